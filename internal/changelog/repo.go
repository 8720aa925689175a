package changelog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/pagination"
)

// LogFilters narrow a change log range query.
type LogFilters struct {
	From   *time.Time
	To     *time.Time
	Action *enums.ChangeAction
}

// LogPage is one page of entries, newest first.
type LogPage struct {
	Entries    []models.ChangeLogEntry
	NextCursor string
}

// Repository reads the append-only change log.
type Repository interface {
	ListByConfig(ctx context.Context, configID uuid.UUID, params pagination.Params, filters LogFilters) (*LogPage, error)
	AllByConfig(ctx context.Context, configID uuid.UUID, filters LogFilters) ([]models.ChangeLogEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a change log reader over the given handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListByConfig(ctx context.Context, configID uuid.UUID, params pagination.Params, filters LogFilters) (*LogPage, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.filtered(ctx, configID, filters)
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		if cursor != nil {
			query = query.Where(
				"(occurred_at < ?) OR (occurred_at = ? AND id < ?)",
				cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
			)
		}
	}

	var entries []models.ChangeLogEntry
	err := query.
		Order("occurred_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	page := &LogPage{}
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.OccurredAt, ID: last.ID})
	}
	page.Entries = entries
	return page, nil
}

// AllByConfig loads the full filtered log ascending, for export.
func (r *repository) AllByConfig(ctx context.Context, configID uuid.UUID, filters LogFilters) ([]models.ChangeLogEntry, error) {
	var entries []models.ChangeLogEntry
	err := r.filtered(ctx, configID, filters).
		Order("occurred_at ASC").
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) filtered(ctx context.Context, configID uuid.UUID, filters LogFilters) *gorm.DB {
	query := r.db.WithContext(ctx).
		Model(&models.ChangeLogEntry{}).
		Where("config_id = ?", configID)
	if filters.From != nil {
		query = query.Where("occurred_at >= ?", *filters.From)
	}
	if filters.To != nil {
		query = query.Where("occurred_at <= ?", *filters.To)
	}
	if filters.Action != nil {
		query = query.Where("action = ?", *filters.Action)
	}
	return query
}
