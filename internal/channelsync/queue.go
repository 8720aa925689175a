package channelsync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	"github.com/roomhive/allotment-backend/pkg/types"
)

// Queue is the durable sync backlog over the sync_attempts table. Enqueue
// runs inside the caller's transaction so a mutation and its sync intent
// commit atomically.
type Queue struct {
	db *gorm.DB
}

// NewQueue builds the sync queue over the given handle.
func NewQueue(db *gorm.DB) *Queue {
	return &Queue{db: db}
}

// Enqueue satisfies the enqueuer contract used by config mutations. When tx
// is nil the queue's own handle is used.
func (q *Queue) Enqueue(ctx context.Context, tx *gorm.DB, configID uuid.UUID, kind enums.SyncKind, start, end types.Date) error {
	handle := q.db
	if tx != nil {
		handle = tx
	}
	attempt := models.SyncAttempt{
		ID:        uuid.New(),
		ConfigID:  configID,
		Kind:      kind,
		StartDate: start,
		EndDate:   end,
		Status:    enums.SyncStatusPending,
	}
	return handle.WithContext(ctx).Create(&attempt).Error
}

// Due returns pending attempts whose retry time has passed, oldest first.
func (q *Queue) Due(ctx context.Context, now time.Time, limit int) ([]models.SyncAttempt, error) {
	var attempts []models.SyncAttempt
	err := q.db.WithContext(ctx).
		Where("status = ?", enums.SyncStatusPending).
		Where("next_retry_at IS NULL OR next_retry_at <= ?", now).
		Order("created_at ASC").
		Limit(limit).
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

func (q *Queue) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	return q.db.WithContext(ctx).
		Model(&models.SyncAttempt{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     enums.SyncStatusSucceeded,
			"last_error": "",
			"updated_at": time.Now(),
		}).Error
}

// MarkFailed records the failure and schedules the next retry.
func (q *Queue) MarkFailed(ctx context.Context, id uuid.UUID, cause error, nextRetryAt time.Time) error {
	return q.db.WithContext(ctx).
		Model(&models.SyncAttempt{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.SyncStatusPending,
			"attempts":      gorm.Expr("attempts + 1"),
			"last_error":    cause.Error(),
			"next_retry_at": nextRetryAt,
			"updated_at":    time.Now(),
		}).Error
}

// Abandon retires an attempt that exhausted its retries.
func (q *Queue) Abandon(ctx context.Context, id uuid.UUID, cause error) error {
	return q.db.WithContext(ctx).
		Model(&models.SyncAttempt{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     enums.SyncStatusAbandoned,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause.Error(),
			"updated_at": time.Now(),
		}).Error
}

// Backlog counts attempts still waiting to be pushed.
func (q *Queue) Backlog(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.WithContext(ctx).
		Model(&models.SyncAttempt{}).
		Where("status = ?", enums.SyncStatusPending).
		Count(&count).Error
	return count, err
}
