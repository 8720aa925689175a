package changelog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/pagination"
)

func setupChangeLogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS change_log_entries (
  id TEXT PRIMARY KEY,
  config_id TEXT NOT NULL,
  occurred_at DATETIME NOT NULL,
  actor_id TEXT NOT NULL DEFAULT '',
  action TEXT NOT NULL,
  changed_fields TEXT,
  reason TEXT NOT NULL DEFAULT '',
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedEntries(t *testing.T, db *gorm.DB, configID uuid.UUID, n int, base time.Time) []models.ChangeLogEntry {
	t.Helper()
	entries := make([]models.ChangeLogEntry, 0, n)
	for i := 0; i < n; i++ {
		action := enums.ChangeActionUpdated
		if i%2 == 0 {
			action = enums.ChangeActionAllocated
		}
		entry := models.ChangeLogEntry{
			ID:            uuid.New(),
			ConfigID:      configID,
			OccurredAt:    base.Add(time.Duration(i) * time.Minute),
			ActorID:       "ops@hotel",
			Action:        action,
			ChangedFields: pq.StringArray{"daily_records"},
			Reason:        "test entry",
		}
		require.NoError(t, db.Create(&entry).Error)
		entries = append(entries, entry)
	}
	return entries
}

func TestListByConfigNewestFirstWithCursor(t *testing.T) {
	db := setupChangeLogTestDB(t)
	repo := NewRepository(db)
	configID := uuid.New()
	base := time.Date(2023, time.June, 1, 10, 0, 0, 0, time.UTC)
	seeded := seedEntries(t, db, configID, 5, base)
	seedEntries(t, db, uuid.New(), 3, base) // other config, must not leak

	page, err := repo.ListByConfig(context.Background(), configID, pagination.Params{Limit: 3}, LogFilters{})
	require.NoError(t, err)
	require.Len(t, page.Entries, 3)
	assert.NotEmpty(t, page.NextCursor)
	assert.Equal(t, seeded[4].ID, page.Entries[0].ID)

	rest, err := repo.ListByConfig(context.Background(), configID, pagination.Params{Limit: 3, Cursor: page.NextCursor}, LogFilters{})
	require.NoError(t, err)
	require.Len(t, rest.Entries, 2)
	assert.Empty(t, rest.NextCursor)
	assert.Equal(t, seeded[0].ID, rest.Entries[1].ID)
}

func TestListByConfigFilters(t *testing.T) {
	db := setupChangeLogTestDB(t)
	repo := NewRepository(db)
	configID := uuid.New()
	base := time.Date(2023, time.June, 1, 10, 0, 0, 0, time.UTC)
	seedEntries(t, db, configID, 4, base)

	action := enums.ChangeActionAllocated
	page, err := repo.ListByConfig(context.Background(), configID, pagination.Params{}, LogFilters{Action: &action})
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	for _, entry := range page.Entries {
		assert.Equal(t, enums.ChangeActionAllocated, entry.Action)
	}

	from := base.Add(90 * time.Second)
	to := base.Add(3 * time.Minute)
	page, err = repo.ListByConfig(context.Background(), configID, pagination.Params{}, LogFilters{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
}

func TestListByConfigRejectsBadCursor(t *testing.T) {
	db := setupChangeLogTestDB(t)
	repo := NewRepository(db)

	_, err := repo.ListByConfig(context.Background(), uuid.New(), pagination.Params{Cursor: "not-a-cursor"}, LogFilters{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAllByConfigAscending(t *testing.T) {
	db := setupChangeLogTestDB(t)
	repo := NewRepository(db)
	configID := uuid.New()
	base := time.Date(2023, time.June, 1, 10, 0, 0, 0, time.UTC)
	seeded := seedEntries(t, db, configID, 4, base)

	entries, err := repo.AllByConfig(context.Background(), configID, LogFilters{})
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, seeded[0].ID, entries[0].ID)
	assert.Equal(t, seeded[3].ID, entries[3].ID)
}
