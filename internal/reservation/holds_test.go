package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/types"
)

func setupHoldTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS reservation_holds (
  id TEXT PRIMARY KEY,
  config_id TEXT NOT NULL,
  channel_id TEXT NOT NULL,
  check_in TEXT NOT NULL,
  check_out TEXT NOT NULL,
  rooms INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  external_ref TEXT NOT NULL DEFAULT '',
  released_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedHold(t *testing.T, db *gorm.DB, configID uuid.UUID, checkIn types.Date, status enums.HoldStatus) models.ReservationHold {
	t.Helper()
	hold := models.ReservationHold{
		ID:        uuid.New(),
		ConfigID:  configID,
		ChannelID: enums.ChannelDirect,
		CheckIn:   checkIn,
		CheckOut:  checkIn.AddDays(2),
		Rooms:     1,
		Status:    status,
	}
	require.NoError(t, db.Create(&hold).Error)
	return hold
}

func TestHoldStoreFindReleasable(t *testing.T) {
	db := setupHoldTestDB(t)
	store := NewHoldStore(db)
	configID := uuid.New()

	pastDue := seedHold(t, db, configID, types.NewDate(2023, time.June, 1), enums.HoldStatusPending)
	seedHold(t, db, configID, types.NewDate(2023, time.June, 20), enums.HoldStatusPending)
	seedHold(t, db, configID, types.NewDate(2023, time.June, 1), enums.HoldStatusConfirmed)
	seedHold(t, db, uuid.New(), types.NewDate(2023, time.June, 1), enums.HoldStatusPending)

	deadline := time.Date(2023, time.June, 3, 0, 0, 0, 0, time.UTC)
	candidates, err := store.FindReleasable(context.Background(), configID, deadline)
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, pastDue.ID, candidates[0].ID)
	assert.Equal(t, configID, candidates[0].ConfigID)
	assert.Equal(t, enums.ChannelDirect, candidates[0].ChannelID)
	assert.Equal(t, 1, candidates[0].Rooms)
}

func TestHoldStoreFindReleasableOrdersByCheckIn(t *testing.T) {
	db := setupHoldTestDB(t)
	store := NewHoldStore(db)
	configID := uuid.New()

	later := seedHold(t, db, configID, types.NewDate(2023, time.June, 2), enums.HoldStatusPending)
	earlier := seedHold(t, db, configID, types.NewDate(2023, time.June, 1), enums.HoldStatusPending)

	deadline := time.Date(2023, time.June, 10, 0, 0, 0, 0, time.UTC)
	candidates, err := store.FindReleasable(context.Background(), configID, deadline)
	require.NoError(t, err)

	require.Len(t, candidates, 2)
	assert.Equal(t, earlier.ID, candidates[0].ID)
	assert.Equal(t, later.ID, candidates[1].ID)
}

func TestHoldStoreMarkReleased(t *testing.T) {
	db := setupHoldTestDB(t)
	store := NewHoldStore(db)
	configID := uuid.New()

	hold := seedHold(t, db, configID, types.NewDate(2023, time.June, 1), enums.HoldStatusPending)
	require.NoError(t, store.MarkReleased(context.Background(), hold.ID))

	var stored models.ReservationHold
	require.NoError(t, db.First(&stored, "id = ?", hold.ID).Error)
	assert.Equal(t, enums.HoldStatusReleased, stored.Status)
	assert.NotNil(t, stored.ReleasedAt)

	// Sweeping twice never double-releases.
	err := store.MarkReleased(context.Background(), hold.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestHoldStoreRecordDefaultsToPending(t *testing.T) {
	db := setupHoldTestDB(t)
	store := NewHoldStore(db)

	hold, err := store.Record(context.Background(), &models.ReservationHold{
		ID:        uuid.New(),
		ConfigID:  uuid.New(),
		ChannelID: enums.ChannelBookingCom,
		CheckIn:   types.NewDate(2023, time.July, 1),
		CheckOut:  types.NewDate(2023, time.July, 3),
		Rooms:     2,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.HoldStatusPending, hold.Status)
}
