package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/roomhive/allotment-backend/api/routes"
	"github.com/roomhive/allotment-backend/internal/allotment"
	"github.com/roomhive/allotment-backend/internal/analytics"
	"github.com/roomhive/allotment-backend/internal/changelog"
	"github.com/roomhive/allotment-backend/internal/channelsync"
	"github.com/roomhive/allotment-backend/internal/reservation"
	"github.com/roomhive/allotment-backend/internal/rules"
	"github.com/roomhive/allotment-backend/pkg/config"
	"github.com/roomhive/allotment-backend/pkg/db"
	"github.com/roomhive/allotment-backend/pkg/logger"
	"github.com/roomhive/allotment-backend/pkg/migrate"
	"github.com/roomhive/allotment-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	syncQueue := channelsync.NewQueue(dbClient.DB())

	allotmentService, err := allotment.NewService(allotment.NewRepository(dbClient.DB()), dbClient, syncQueue)
	if err != nil {
		logg.Error(context.Background(), "failed to create allotment service", err)
		os.Exit(1)
	}

	reservationService, err := reservation.NewService(allotmentService)
	if err != nil {
		logg.Error(context.Background(), "failed to create reservation service", err)
		os.Exit(1)
	}

	ruleService, err := rules.NewService(allotmentService, rules.NewEvaluator(nil))
	if err != nil {
		logg.Error(context.Background(), "failed to create rule service", err)
		os.Exit(1)
	}

	analyticsService, err := analytics.NewService(allotmentService)
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics service", err)
		os.Exit(1)
	}

	logRepo := changelog.NewRepository(dbClient.DB())
	exporter, err := changelog.NewExporter(allotmentService, logRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create exporter", err)
		os.Exit(1)
	}

	webhookService, err := channelsync.NewWebhookService(allotmentService)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			allotmentService,
			reservationService,
			ruleService,
			analyticsService,
			logRepo,
			exporter,
			webhookService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
