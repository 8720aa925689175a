package allotment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roomhive/allotment-backend/pkg/db"
	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an allotment repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, cfg *models.AllotmentConfig) (*models.AllotmentConfig, error) {
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(cfg).Error; err != nil {
		// The partial unique index is the race-proof guard behind the
		// service's pre-check.
		if db.IsUniqueViolation(err, db.ConstraintActiveConfig) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict,
				"an active config already exists for this room type")
		}
		return nil, err
	}
	return cfg, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.AllotmentConfig, error) {
	var cfg models.AllotmentConfig
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindByRoomType resolves the active config for a room type. Deactivated
// configs never match: the room type is free for a replacement.
func (r *repository) FindByRoomType(ctx context.Context, hotelID, roomTypeID uuid.UUID) (*models.AllotmentConfig, error) {
	var cfg models.AllotmentConfig
	err := r.db.WithContext(ctx).
		Where("hotel_id = ? AND room_type_id = ?", hotelID, roomTypeID).
		Where("status = ?", enums.ConfigStatusActive).
		First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *repository) List(ctx context.Context, hotelID uuid.UUID, params pagination.Params, filters ConfigFilters) (*ConfigList, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	qb := r.db.WithContext(ctx).
		Model(&models.AllotmentConfig{}).
		Where("hotel_id = ?", hotelID)

	if filters.Status != nil {
		qb = qb.Where("status = ?", *filters.Status)
	}
	if filters.RoomTypeID != nil {
		qb = qb.Where("room_type_id = ?", *filters.RoomTypeID)
	}
	if search := strings.TrimSpace(filters.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
	}

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	qb = qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer)

	var rows []models.AllotmentConfig
	if err := qb.Find(&rows).Error; err != nil {
		return nil, err
	}

	resultRows := rows
	nextCursor := ""
	if len(rows) > pageSize {
		resultRows = rows[:pageSize]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]ConfigSummary, 0, len(resultRows))
	for i := range resultRows {
		summaries = append(summaries, toSummary(&resultRows[i]))
	}

	return &ConfigList{
		Configs:    summaries,
		NextCursor: nextCursor,
	}, nil
}

func (r *repository) ListByHotel(ctx context.Context, hotelID uuid.UUID) ([]models.AllotmentConfig, error) {
	var rows []models.AllotmentConfig
	err := r.db.WithContext(ctx).
		Where("hotel_id = ?", hotelID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.AllotmentConfig, error) {
	var rows []models.AllotmentConfig
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.ConfigStatusActive).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SaveWithVersion(ctx context.Context, cfg *models.AllotmentConfig, expectedVersion int64) error {
	cfg.Version = expectedVersion + 1
	res := r.db.WithContext(ctx).
		Model(&models.AllotmentConfig{}).
		Where("id = ? AND version = ?", cfg.ID, expectedVersion).
		Select("name", "description", "status", "timezone", "defaults", "channels",
			"rules", "daily_records", "analytics", "integration", "version", "updated_at").
		Updates(cfg)
	if res.Error != nil {
		cfg.Version = expectedVersion
		return res.Error
	}
	if res.RowsAffected == 0 {
		cfg.Version = expectedVersion
		return pkgerrors.New(pkgerrors.CodeVersionConflict,
			fmt.Sprintf("config %s changed since version %d", cfg.ID, expectedVersion))
	}
	return nil
}

// SoftDelete deactivates the config before hiding it: the partial unique
// index only covers active rows, so the room type frees up for a new config.
func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.AllotmentConfig{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     enums.ConfigStatusInactive,
			"deleted_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) AppendLog(ctx context.Context, entry *models.ChangeLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func toSummary(cfg *models.AllotmentConfig) ConfigSummary {
	return ConfigSummary{
		ID:             cfg.ID,
		HotelID:        cfg.HotelID,
		RoomTypeID:     cfg.RoomTypeID,
		Name:           cfg.Name,
		Status:         cfg.Status,
		TotalInventory: cfg.Defaults.TotalInventory,
		ChannelCount:   len(cfg.Channels),
		NeedsSync:      cfg.Integration.ChannelManager.NeedsSync,
		Version:        cfg.Version,
		CreatedAt:      cfg.CreatedAt,
		UpdatedAt:      cfg.UpdatedAt,
	}
}
