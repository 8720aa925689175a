package allotment

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/pagination"
)

// Repository defines persistence operations for allotment configurations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, cfg *models.AllotmentConfig) (*models.AllotmentConfig, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.AllotmentConfig, error)
	FindByRoomType(ctx context.Context, hotelID, roomTypeID uuid.UUID) (*models.AllotmentConfig, error)
	List(ctx context.Context, hotelID uuid.UUID, params pagination.Params, filters ConfigFilters) (*ConfigList, error)
	ListByHotel(ctx context.Context, hotelID uuid.UUID) ([]models.AllotmentConfig, error)
	// ListActive returns every active config across hotels. Sweepers filter
	// the candidates in memory because the gating settings live in JSONB.
	ListActive(ctx context.Context) ([]models.AllotmentConfig, error)
	// SaveWithVersion persists the config only when the stored version equals
	// expectedVersion, bumping the version by one. A mismatch yields a
	// VERSION_CONFLICT error.
	SaveWithVersion(ctx context.Context, cfg *models.AllotmentConfig, expectedVersion int64) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	AppendLog(ctx context.Context, entry *models.ChangeLogEntry) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
