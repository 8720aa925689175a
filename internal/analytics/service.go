package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roomhive/allotment-backend/internal/allotment"
	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/types"
)

type configMutator interface {
	Mutate(ctx context.Context, configID uuid.UUID, fn allotment.MutateFunc) (*models.AllotmentConfig, error)
	GetByID(ctx context.Context, configID uuid.UUID) (*models.AllotmentConfig, error)
}

// Service computes and serves rolling performance metrics.
type Service interface {
	Recalculate(ctx context.Context, configID uuid.UUID, start, end types.Date, actorID string) (*types.MetricsWindow, error)
	Analytics(ctx context.Context, configID uuid.UUID) (*types.Analytics, error)
	Recommendations(ctx context.Context, configID uuid.UUID) ([]types.Recommendation, error)
}

type service struct {
	configs configMutator
	now     func() time.Time
}

// NewService builds the analytics aggregator.
func NewService(configs configMutator) (Service, error) {
	if configs == nil {
		return nil, fmt.Errorf("config mutator required")
	}
	return &service{configs: configs, now: time.Now}, nil
}

// Recalculate rolls up [start, end], stores the window on the config and
// overwrites the recommendation list. Re-running over the same records and
// window replaces the stored window with identical metrics.
func (s *service) Recalculate(ctx context.Context, configID uuid.UUID, start, end types.Date, actorID string) (*types.MetricsWindow, error) {
	if end.Before(start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date before start date")
	}

	var window types.MetricsWindow
	_, err := s.configs.Mutate(ctx, configID, func(cfg *models.AllotmentConfig) (*allotment.LogDraft, []allotment.SyncRequest, error) {
		if err := allotment.EnsureActive(cfg); err != nil {
			return nil, nil, err
		}

		now := s.now()
		window = ComputeWindow(cfg, start, end)

		next := cfg.Analytics
		next.Windows = mergeWindow(append([]types.MetricsWindow(nil), cfg.Analytics.Windows...), window, now)
		next.Recommendations = Recommend(window, now)
		next.LastCalculated = now
		if next.Frequency == "" {
			next.Frequency = enums.AnalyticsDaily
		}
		next.NextCalculation = now.Add(next.Frequency.Interval())
		cfg.Analytics = next

		return &allotment.LogDraft{
			ActorID:       actorID,
			Action:        enums.ChangeActionUpdated,
			ChangedFields: []string{"analytics"},
			Reason:        fmt.Sprintf("analytics recalculated %s..%s", start, end),
		}, nil, nil
	})
	if err != nil {
		return nil, err
	}
	return &window, nil
}

func (s *service) Analytics(ctx context.Context, configID uuid.UUID) (*types.Analytics, error) {
	cfg, err := s.configs.GetByID(ctx, configID)
	if err != nil {
		return nil, err
	}
	analytics := cfg.Analytics
	return &analytics, nil
}

func (s *service) Recommendations(ctx context.Context, configID uuid.UUID) ([]types.Recommendation, error) {
	cfg, err := s.configs.GetByID(ctx, configID)
	if err != nil {
		return nil, err
	}
	return cfg.Analytics.Recommendations, nil
}
