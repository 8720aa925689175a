package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/roomhive/allotment-backend/pkg/logger"
	"github.com/roomhive/allotment-backend/pkg/types"
)

const (
	analyticsActor      = "analytics-sweeper"
	analyticsWindowDays = 30
)

type analyticsRecalculator interface {
	Recalculate(ctx context.Context, configID uuid.UUID, start, end types.Date, actorID string) (*types.MetricsWindow, error)
}

// AnalyticsJobParams configure the analytics sweeper.
type AnalyticsJobParams struct {
	Logger    *logger.Logger
	Configs   activeConfigLister
	Analytics analyticsRecalculator
}

// NewAnalyticsJob builds the job that recomputes metrics for every config
// whose next calculation is due.
func NewAnalyticsJob(params AnalyticsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Configs == nil {
		return nil, fmt.Errorf("config lister required")
	}
	if params.Analytics == nil {
		return nil, fmt.Errorf("analytics service required")
	}
	return &analyticsJob{
		logg:      params.Logger,
		configs:   params.Configs,
		analytics: params.Analytics,
		now:       time.Now,
	}, nil
}

type analyticsJob struct {
	logg      *logger.Logger
	configs   activeConfigLister
	analytics analyticsRecalculator
	now       func() time.Time
}

func (j *analyticsJob) Name() string { return "analytics-recalculation" }

func (j *analyticsJob) Run(ctx context.Context) error {
	now := j.now()
	configs, err := j.configs.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active configs: %w", err)
	}

	recalculated := 0
	var errs []error
	for i := range configs {
		cfg := &configs[i]
		// Zero next-calculation means the config has never been swept.
		next := cfg.Analytics.NextCalculation
		if !next.IsZero() && next.After(now) {
			continue
		}
		end := types.DateOf(now.In(cfg.Location()))
		start := end.AddDays(-(analyticsWindowDays - 1))
		if _, err := j.analytics.Recalculate(ctx, cfg.ID, start, end, analyticsActor); err != nil {
			errs = append(errs, fmt.Errorf("config %s: %w", cfg.ID, err))
			continue
		}
		recalculated++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"recalculated": recalculated,
		"failed":       len(errs),
	})
	j.logg.Info(logCtx, "analytics sweep complete")
	return multierr.Combine(errs...)
}
