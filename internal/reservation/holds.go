package reservation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/types"
)

// ReleaseCandidate is an unpaid or no-show hold whose rooms should return to
// the sellable pool. The booking system owns these records; the sweeper only
// drives the inventory movement.
type ReleaseCandidate struct {
	ID        uuid.UUID
	ConfigID  uuid.UUID
	ChannelID enums.ChannelID
	CheckIn   types.Date
	CheckOut  types.Date
	Rooms     int
}

// HoldStore reads and settles reservation holds. The booking system inserts
// the rows; this store only feeds the auto-release sweeper.
type HoldStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewHoldStore builds a hold store over the given handle.
func NewHoldStore(db *gorm.DB) *HoldStore {
	return &HoldStore{db: db, now: time.Now}
}

// Record persists a new pending hold.
func (s *HoldStore) Record(ctx context.Context, hold *models.ReservationHold) (*models.ReservationHold, error) {
	if hold.Status == "" {
		hold.Status = enums.HoldStatusPending
	}
	if err := s.db.WithContext(ctx).Create(hold).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create reservation hold")
	}
	return hold, nil
}

// FindReleasable returns pending holds whose check-in falls before the
// deadline, oldest first.
func (s *HoldStore) FindReleasable(ctx context.Context, configID uuid.UUID, deadline time.Time) ([]ReleaseCandidate, error) {
	var holds []models.ReservationHold
	err := s.db.WithContext(ctx).
		Where("config_id = ?", configID).
		Where("status = ?", enums.HoldStatusPending).
		Where("check_in < ?", deadline).
		Order("check_in ASC, created_at ASC").
		Find(&holds).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list releasable holds")
	}

	candidates := make([]ReleaseCandidate, 0, len(holds))
	for _, hold := range holds {
		candidates = append(candidates, ReleaseCandidate{
			ID:        hold.ID,
			ConfigID:  hold.ConfigID,
			ChannelID: hold.ChannelID,
			CheckIn:   hold.CheckIn,
			CheckOut:  hold.CheckOut,
			Rooms:     hold.Rooms,
		})
	}
	return candidates, nil
}

// MarkReleased settles a hold so it is never swept twice.
func (s *HoldStore) MarkReleased(ctx context.Context, candidateID uuid.UUID) error {
	now := s.now()
	result := s.db.WithContext(ctx).
		Model(&models.ReservationHold{}).
		Where("id = ? AND status = ?", candidateID, enums.HoldStatusPending).
		Updates(map[string]any{
			"status":      enums.HoldStatusReleased,
			"released_at": now,
			"updated_at":  now,
		})
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "mark hold released")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "hold not found or already settled")
	}
	return nil
}
