package channelsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/roomhive/allotment-backend/pkg/enums"
	"github.com/roomhive/allotment-backend/pkg/types"
)

func setupSyncTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS sync_attempts (
  id TEXT PRIMARY KEY,
  config_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  start_date DATE NOT NULL,
  end_date DATE NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  attempts INTEGER NOT NULL DEFAULT 0,
  last_error TEXT NOT NULL DEFAULT '',
  next_retry_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestQueueEnqueueAndDue(t *testing.T) {
	db := setupSyncTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()
	configID := uuid.New()
	start := types.NewDate(2023, time.June, 1)
	end := types.NewDate(2023, time.June, 7)

	require.NoError(t, queue.Enqueue(ctx, nil, configID, enums.SyncKindAllocation, start, end))
	require.NoError(t, queue.Enqueue(ctx, nil, configID, enums.SyncKindRate, start, end))

	due, err := queue.Due(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, enums.SyncKindAllocation, due[0].Kind)
	assert.Equal(t, start, due[0].StartDate)
	assert.Equal(t, end, due[0].EndDate)
	assert.Equal(t, enums.SyncStatusPending, due[0].Status)

	backlog, err := queue.Backlog(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), backlog)
}

func TestQueueRetrySchedule(t *testing.T) {
	db := setupSyncTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()
	start := types.NewDate(2023, time.June, 1)

	require.NoError(t, queue.Enqueue(ctx, nil, uuid.New(), enums.SyncKindAllocation, start, start))
	due, err := queue.Due(ctx, time.Now(), 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	attempt := due[0]

	future := time.Now().Add(time.Hour)
	require.NoError(t, queue.MarkFailed(ctx, attempt.ID, errors.New("manager unreachable"), future))

	due, err = queue.Due(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, due, "attempt must wait for its retry time")

	due, err = queue.Due(ctx, future.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].Attempts)
	assert.Equal(t, "manager unreachable", due[0].LastError)
}

func TestQueueSucceededAndAbandonedLeaveQueue(t *testing.T) {
	db := setupSyncTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()
	start := types.NewDate(2023, time.June, 1)

	require.NoError(t, queue.Enqueue(ctx, nil, uuid.New(), enums.SyncKindAllocation, start, start))
	require.NoError(t, queue.Enqueue(ctx, nil, uuid.New(), enums.SyncKindRestrictions, start, start))
	due, err := queue.Due(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, due, 2)

	require.NoError(t, queue.MarkSucceeded(ctx, due[0].ID))
	require.NoError(t, queue.Abandon(ctx, due[1].ID, errors.New("gave up")))

	remaining, err := queue.Due(ctx, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	backlog, err := queue.Backlog(ctx)
	require.NoError(t, err)
	assert.Zero(t, backlog)
}

func TestQueueEnqueueUsesTransactionHandle(t *testing.T) {
	db := setupSyncTestDB(t)
	queue := NewQueue(db)
	ctx := context.Background()
	start := types.NewDate(2023, time.June, 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		return queue.Enqueue(ctx, tx, uuid.New(), enums.SyncKindAllocation, start, start)
	})
	require.NoError(t, err)

	backlog, err := queue.Backlog(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), backlog)

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := queue.Enqueue(ctx, tx, uuid.New(), enums.SyncKindRate, start, start); err != nil {
			return err
		}
		return errors.New("force rollback")
	})
	require.Error(t, err)

	backlog, err = queue.Backlog(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), backlog, "rolled back enqueue must not persist")
}
