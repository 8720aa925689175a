package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/roomhive/allotment-backend/internal/reservation"
	"github.com/roomhive/allotment-backend/pkg/db/models"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/logger"
)

const autoReleaseActor = "auto-release"

type releaseCandidateSource interface {
	// FindReleasable returns holds whose check-in falls before the deadline
	// and which are still holding inventory.
	FindReleasable(ctx context.Context, configID uuid.UUID, deadline time.Time) ([]reservation.ReleaseCandidate, error)
	MarkReleased(ctx context.Context, candidateID uuid.UUID) error
}

type activeConfigLister interface {
	ListActive(ctx context.Context) ([]models.AllotmentConfig, error)
}

type reservationReleaser interface {
	Release(ctx context.Context, input reservation.Input) (*reservation.Result, error)
}

// AutoReleaseJobParams configure the release-window sweeper.
type AutoReleaseJobParams struct {
	Logger     *logger.Logger
	Configs    activeConfigLister
	Candidates releaseCandidateSource
	Releaser   reservationReleaser
}

// NewAutoReleaseJob builds the job that returns expired holds to free stock
// at hotel-local midnight.
func NewAutoReleaseJob(params AutoReleaseJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Configs == nil {
		return nil, fmt.Errorf("config lister required")
	}
	if params.Candidates == nil {
		return nil, fmt.Errorf("candidate source required")
	}
	if params.Releaser == nil {
		return nil, fmt.Errorf("releaser required")
	}
	return &autoReleaseJob{
		logg:       params.Logger,
		configs:    params.Configs,
		candidates: params.Candidates,
		releaser:   params.Releaser,
		now:        time.Now,
	}, nil
}

type autoReleaseJob struct {
	logg       *logger.Logger
	configs    activeConfigLister
	candidates releaseCandidateSource
	releaser   reservationReleaser
	now        func() time.Time
}

func (j *autoReleaseJob) Name() string { return "auto-release" }

func (j *autoReleaseJob) Run(ctx context.Context) error {
	now := j.now()
	configs, err := j.configs.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active configs: %w", err)
	}

	var errs []error
	for i := range configs {
		cfg := &configs[i]
		if !cfg.Defaults.AutoRelease {
			continue
		}
		// The sweeper runs hourly; each hotel gets its pass in the hour
		// after its local midnight.
		if now.In(cfg.Location()).Hour() != 0 {
			continue
		}
		if err := j.sweepConfig(ctx, cfg, now); err != nil {
			errs = append(errs, fmt.Errorf("config %s: %w", cfg.ID, err))
		}
	}
	return multierr.Combine(errs...)
}

func (j *autoReleaseJob) sweepConfig(ctx context.Context, cfg *models.AllotmentConfig, now time.Time) error {
	deadline := now.Add(time.Duration(cfg.Defaults.ReleaseWindowHours) * time.Hour)
	candidates, err := j.candidates.FindReleasable(ctx, cfg.ID, deadline)
	if err != nil {
		return fmt.Errorf("find releasable holds: %w", err)
	}

	released := 0
	var errs []error
	for _, candidate := range candidates {
		// Settle first: a hold that cannot be settled is never released, and
		// a settled hold leaves the candidate set, so inventory moves at most
		// once per hold even when the release itself fails.
		if err := j.candidates.MarkReleased(ctx, candidate.ID); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				// Another sweep got here first.
				continue
			}
			errs = append(errs, fmt.Errorf("mark hold %s released: %w", candidate.ID, err))
			continue
		}
		_, err := j.releaser.Release(ctx, reservation.Input{
			ConfigID:  candidate.ConfigID,
			ChannelID: candidate.ChannelID,
			CheckIn:   candidate.CheckIn,
			CheckOut:  candidate.CheckOut,
			Rooms:     candidate.Rooms,
			ActorID:   autoReleaseActor,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("release hold %s: %w", candidate.ID, err))
			continue
		}
		released++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"config_id": cfg.ID.String(),
		"released":  released,
		"failed":    len(errs),
	})
	j.logg.Info(logCtx, "auto release sweep complete")
	return multierr.Combine(errs...)
}
