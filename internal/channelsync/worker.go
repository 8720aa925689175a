package channelsync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/roomhive/allotment-backend/internal/allotment"
	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	"github.com/roomhive/allotment-backend/pkg/logger"
	"github.com/roomhive/allotment-backend/pkg/metrics"
)

const (
	// maxSyncAttempts is the retry ceiling before an attempt is abandoned
	// and the config is flagged needs-sync.
	maxSyncAttempts = 6

	baseBackoff = 30 * time.Second
	maxBackoff  = 10 * time.Minute

	// publishRetries bounds the in-process retries around one publish call,
	// separate from the durable queue's backoff schedule.
	publishRetries = 2
)

type syncQueue interface {
	Due(ctx context.Context, now time.Time, limit int) ([]models.SyncAttempt, error)
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error, nextRetryAt time.Time) error
	Abandon(ctx context.Context, id uuid.UUID, cause error) error
	Backlog(ctx context.Context) (int64, error)
}

type configMutator interface {
	Mutate(ctx context.Context, configID uuid.UUID, fn allotment.MutateFunc) (*models.AllotmentConfig, error)
	GetByID(ctx context.Context, configID uuid.UUID) (*models.AllotmentConfig, error)
}

// Worker drains the sync queue against the channel-manager port.
type Worker struct {
	queue      syncQueue
	port       Port
	configs    configMutator
	logg       *logger.Logger
	metrics    *metrics.SyncMetrics
	now        func() time.Time
	pubBackoff func() retry.Backoff
}

// NewWorker builds the sync retry worker. Metrics may be nil.
func NewWorker(queue syncQueue, port Port, configs configMutator, logg *logger.Logger, m *metrics.SyncMetrics) (*Worker, error) {
	if queue == nil {
		return nil, fmt.Errorf("sync queue required")
	}
	if port == nil {
		return nil, fmt.Errorf("channel port required")
	}
	if configs == nil {
		return nil, fmt.Errorf("config mutator required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Worker{
		queue:   queue,
		port:    port,
		configs: configs,
		logg:    logg,
		metrics: m,
		now:     time.Now,
		pubBackoff: func() retry.Backoff {
			return retry.WithMaxRetries(publishRetries, retry.NewExponential(time.Second))
		},
	}, nil
}

// ProcessDue pushes every due attempt once and reschedules failures. It
// returns the number of attempts that succeeded.
func (w *Worker) ProcessDue(ctx context.Context, limit int) (int, error) {
	attempts, err := w.queue.Due(ctx, w.now(), limit)
	if err != nil {
		return 0, fmt.Errorf("loading due sync attempts: %w", err)
	}

	succeeded := 0
	for _, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return succeeded, err
		}
		if err := w.processOne(ctx, attempt); err == nil {
			succeeded++
		}
	}

	if backlog, err := w.queue.Backlog(ctx); err == nil {
		w.metrics.SetBacklog(int(backlog))
	}
	return succeeded, nil
}

func (w *Worker) processOne(ctx context.Context, attempt models.SyncAttempt) error {
	lctx := w.logg.WithFields(ctx, map[string]any{
		"sync_attempt_id": attempt.ID.String(),
		"config_id":       attempt.ConfigID.String(),
		"kind":            string(attempt.Kind),
	})
	w.metrics.IncAttempt(string(attempt.Kind))

	cfg, err := w.configs.GetByID(ctx, attempt.ConfigID)
	if err != nil {
		// config is gone, nothing left to push
		w.logg.Warn(lctx, "abandoning sync for missing config")
		return w.queue.Abandon(ctx, attempt.ID, err)
	}

	if err := w.push(ctx, cfg, attempt); err != nil {
		w.metrics.IncFailure(string(attempt.Kind))
		if attempt.Attempts+1 >= maxSyncAttempts {
			w.logg.Error(lctx, "sync attempt exhausted retries", err)
			if qErr := w.queue.Abandon(ctx, attempt.ID, err); qErr != nil {
				return qErr
			}
			return w.flagNeedsSync(ctx, attempt.ConfigID)
		}
		next := w.now().Add(backoffFor(attempt.Attempts))
		w.logg.Warn(lctx, "sync attempt failed, rescheduled")
		if qErr := w.queue.MarkFailed(ctx, attempt.ID, err, next); qErr != nil {
			return qErr
		}
		return err
	}

	if err := w.queue.MarkSucceeded(ctx, attempt.ID); err != nil {
		return err
	}
	w.logg.Info(lctx, "sync attempt succeeded")
	return w.markSynced(ctx, attempt.ConfigID)
}

// push publishes once, retrying only short transient failures in-process.
func (w *Worker) push(ctx context.Context, cfg *models.AllotmentConfig, attempt models.SyncAttempt) error {
	return retry.Do(ctx, w.pubBackoff(), func(ctx context.Context) error {
		var err error
		switch attempt.Kind {
		case enums.SyncKindAllocation:
			err = w.port.PushAllocation(ctx, cfg, attempt.StartDate, attempt.EndDate)
		case enums.SyncKindRate:
			err = w.port.PushRate(ctx, cfg, attempt.StartDate, attempt.EndDate)
		case enums.SyncKindRestrictions:
			err = w.port.PushRestrictions(ctx, cfg, attempt.StartDate, attempt.EndDate)
		default:
			return fmt.Errorf("unsupported sync kind %q", attempt.Kind)
		}
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (w *Worker) markSynced(ctx context.Context, configID uuid.UUID) error {
	now := w.now()
	_, err := w.configs.Mutate(ctx, configID, func(cfg *models.AllotmentConfig) (*allotment.LogDraft, []allotment.SyncRequest, error) {
		cfg.Integration.ChannelManager.NeedsSync = false
		cfg.Integration.ChannelManager.LastSyncedAt = &now
		return &allotment.LogDraft{
			ActorID:       "sync-worker",
			Action:        enums.ChangeActionSynced,
			ChangedFields: []string{"integration"},
			Reason:        "channel manager sync succeeded",
		}, nil, nil
	})
	return err
}

func (w *Worker) flagNeedsSync(ctx context.Context, configID uuid.UUID) error {
	_, err := w.configs.Mutate(ctx, configID, func(cfg *models.AllotmentConfig) (*allotment.LogDraft, []allotment.SyncRequest, error) {
		cfg.Integration.ChannelManager.NeedsSync = true
		return &allotment.LogDraft{
			ActorID:       "sync-worker",
			Action:        enums.ChangeActionSynced,
			ChangedFields: []string{"integration"},
			Reason:        "channel manager sync abandoned after retries",
		}, nil, nil
	})
	return err
}

// backoffFor doubles from the base per recorded attempt, bounded at the cap.
func backoffFor(attempts int) time.Duration {
	d := baseBackoff
	for i := 0; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
