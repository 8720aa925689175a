package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roomhive/allotment-backend/internal/allotment"
	"github.com/roomhive/allotment-backend/internal/analytics"
	"github.com/roomhive/allotment-backend/internal/channelsync"
	"github.com/roomhive/allotment-backend/internal/cron"
	"github.com/roomhive/allotment-backend/internal/reservation"
	"github.com/roomhive/allotment-backend/pkg/config"
	"github.com/roomhive/allotment-backend/pkg/db"
	"github.com/roomhive/allotment-backend/pkg/logger"
	"github.com/roomhive/allotment-backend/pkg/metrics"
	"github.com/roomhive/allotment-backend/pkg/migrate"
	"github.com/roomhive/allotment-backend/pkg/pubsub"
	"github.com/roomhive/allotment-backend/pkg/redis"
)

const lockKeyFormat = "rh:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	repo := allotment.NewRepository(dbClient.DB())
	syncQueue := channelsync.NewQueue(dbClient.DB())

	allotmentService, err := allotment.NewService(repo, dbClient, syncQueue)
	if err != nil {
		logg.Error(context.Background(), "failed to create allotment service", err)
		os.Exit(1)
	}

	reservationService, err := reservation.NewService(allotmentService)
	if err != nil {
		logg.Error(context.Background(), "failed to create reservation service", err)
		os.Exit(1)
	}

	analyticsService, err := analytics.NewService(allotmentService)
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics service", err)
		os.Exit(1)
	}

	syncPort, err := channelsync.NewPubSubPort(pubsubClient.ChannelSyncPublisher())
	if err != nil {
		logg.Error(context.Background(), "failed to create channel sync port", err)
		os.Exit(1)
	}

	syncWorker, err := channelsync.NewWorker(
		syncQueue,
		syncPort,
		allotmentService,
		logg,
		metrics.NewSyncMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create sync worker", err)
		os.Exit(1)
	}

	autoReleaseJob, err := cron.NewAutoReleaseJob(cron.AutoReleaseJobParams{
		Logger:     logg,
		Configs:    repo,
		Candidates: reservation.NewHoldStore(dbClient.DB()),
		Releaser:   reservationService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auto release job", err)
		os.Exit(1)
	}

	analyticsJob, err := cron.NewAnalyticsJob(cron.AnalyticsJobParams{
		Logger:    logg,
		Configs:   repo,
		Analytics: analyticsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics job", err)
		os.Exit(1)
	}

	syncRetryJob, err := cron.NewSyncRetryJob(cron.SyncRetryJobParams{
		Logger:    logg,
		Processor: syncWorker,
		Batch:     cfg.ChannelSync.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync retry job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(autoReleaseJob, analyticsJob, syncRetryJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
