package channelsync

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/roomhive/allotment-backend/internal/allotment"
	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/logger"
	"github.com/roomhive/allotment-backend/pkg/types"
)

type memQueue struct {
	due       []models.SyncAttempt
	succeeded []uuid.UUID
	failed    []uuid.UUID
	abandoned []uuid.UUID
	nextRetry time.Time
}

func (q *memQueue) Due(context.Context, time.Time, int) ([]models.SyncAttempt, error) {
	return q.due, nil
}

func (q *memQueue) MarkSucceeded(_ context.Context, id uuid.UUID) error {
	q.succeeded = append(q.succeeded, id)
	return nil
}

func (q *memQueue) MarkFailed(_ context.Context, id uuid.UUID, _ error, next time.Time) error {
	q.failed = append(q.failed, id)
	q.nextRetry = next
	return nil
}

func (q *memQueue) Abandon(_ context.Context, id uuid.UUID, _ error) error {
	q.abandoned = append(q.abandoned, id)
	return nil
}

func (q *memQueue) Backlog(context.Context) (int64, error) {
	return int64(len(q.due)), nil
}

type stubPort struct {
	err   error
	calls int
	kinds []enums.SyncKind
}

func (p *stubPort) PushAllocation(_ context.Context, _ *models.AllotmentConfig, _, _ types.Date) error {
	p.calls++
	p.kinds = append(p.kinds, enums.SyncKindAllocation)
	return p.err
}

func (p *stubPort) PushRate(_ context.Context, _ *models.AllotmentConfig, _, _ types.Date) error {
	p.calls++
	p.kinds = append(p.kinds, enums.SyncKindRate)
	return p.err
}

func (p *stubPort) PushRestrictions(_ context.Context, _ *models.AllotmentConfig, _, _ types.Date) error {
	p.calls++
	p.kinds = append(p.kinds, enums.SyncKindRestrictions)
	return p.err
}

type workerMutator struct {
	cfg    *models.AllotmentConfig
	drafts []*allotment.LogDraft
}

func (m *workerMutator) Mutate(_ context.Context, configID uuid.UUID, fn allotment.MutateFunc) (*models.AllotmentConfig, error) {
	if m.cfg == nil || configID != m.cfg.ID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "config not found")
	}
	draft, _, err := fn(m.cfg)
	if err != nil {
		return nil, err
	}
	m.cfg.Version++
	m.drafts = append(m.drafts, draft)
	return m.cfg, nil
}

func (m *workerMutator) GetByID(_ context.Context, configID uuid.UUID) (*models.AllotmentConfig, error) {
	if m.cfg == nil || configID != m.cfg.ID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "config not found")
	}
	return m.cfg, nil
}

func syncConfigFixture() *models.AllotmentConfig {
	return &models.AllotmentConfig{
		ID:           uuid.New(),
		HotelID:      uuid.New(),
		RoomTypeID:   uuid.New(),
		Name:         "Deluxe Double",
		Status:       enums.ConfigStatusActive,
		Timezone:     "UTC",
		Defaults:     types.DefaultSettings{TotalInventory: 10},
		DailyRecords: map[types.Date]types.DailyRecord{},
		Version:      1,
	}
}

func syncAttemptFixture(configID uuid.UUID, attempts int) models.SyncAttempt {
	return models.SyncAttempt{
		ID:        uuid.New(),
		ConfigID:  configID,
		Kind:      enums.SyncKindAllocation,
		StartDate: types.NewDate(2023, time.June, 1),
		EndDate:   types.NewDate(2023, time.June, 7),
		Status:    enums.SyncStatusPending,
		Attempts:  attempts,
	}
}

func newTestWorker(t *testing.T, queue syncQueue, port Port, configs configMutator) *Worker {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
	worker, err := NewWorker(queue, port, configs, logg, nil)
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	worker.pubBackoff = func() retry.Backoff {
		return retry.WithMaxRetries(0, retry.NewConstant(time.Millisecond))
	}
	return worker
}

func TestWorkerSuccessMarksSynced(t *testing.T) {
	cfg := syncConfigFixture()
	cfg.Integration.ChannelManager.NeedsSync = true
	queue := &memQueue{due: []models.SyncAttempt{syncAttemptFixture(cfg.ID, 0)}}
	port := &stubPort{}
	mutator := &workerMutator{cfg: cfg}
	worker := newTestWorker(t, queue, port, mutator)

	done, err := worker.ProcessDue(context.Background(), 10)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if done != 1 || len(queue.succeeded) != 1 {
		t.Fatalf("expected one success, got %d/%d", done, len(queue.succeeded))
	}
	if port.calls != 1 || port.kinds[0] != enums.SyncKindAllocation {
		t.Fatalf("unexpected port calls: %+v", port.kinds)
	}
	if mutator.cfg.Integration.ChannelManager.NeedsSync {
		t.Error("needs-sync must clear on success")
	}
	if mutator.cfg.Integration.ChannelManager.LastSyncedAt == nil {
		t.Error("last-synced-at must be stamped")
	}
	if len(mutator.drafts) != 1 || mutator.drafts[0].Action != enums.ChangeActionSynced {
		t.Fatalf("unexpected drafts: %+v", mutator.drafts)
	}
}

func TestWorkerFailureReschedulesWithBackoff(t *testing.T) {
	cfg := syncConfigFixture()
	queue := &memQueue{due: []models.SyncAttempt{syncAttemptFixture(cfg.ID, 2)}}
	port := &stubPort{err: errors.New("manager unreachable")}
	mutator := &workerMutator{cfg: cfg}
	worker := newTestWorker(t, queue, port, mutator)
	now := time.Date(2023, time.June, 1, 12, 0, 0, 0, time.UTC)
	worker.now = func() time.Time { return now }

	done, err := worker.ProcessDue(context.Background(), 10)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if done != 0 || len(queue.failed) != 1 {
		t.Fatalf("expected one reschedule, got %d/%d", done, len(queue.failed))
	}
	if want := now.Add(2 * time.Minute); !queue.nextRetry.Equal(want) {
		t.Fatalf("next retry = %v, want %v", queue.nextRetry, want)
	}
	if cfg.Integration.ChannelManager.NeedsSync {
		t.Error("needs-sync flips only after the retry ceiling")
	}
}

func TestWorkerExhaustionAbandonsAndFlagsNeedsSync(t *testing.T) {
	cfg := syncConfigFixture()
	queue := &memQueue{due: []models.SyncAttempt{syncAttemptFixture(cfg.ID, maxSyncAttempts-1)}}
	port := &stubPort{err: errors.New("manager unreachable")}
	mutator := &workerMutator{cfg: cfg}
	worker := newTestWorker(t, queue, port, mutator)

	if _, err := worker.ProcessDue(context.Background(), 10); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if len(queue.abandoned) != 1 {
		t.Fatalf("expected abandonment, got %+v", queue)
	}
	if !cfg.Integration.ChannelManager.NeedsSync {
		t.Error("needs-sync must flip after retries are exhausted")
	}
}

func TestWorkerMissingConfigAbandons(t *testing.T) {
	queue := &memQueue{due: []models.SyncAttempt{syncAttemptFixture(uuid.New(), 0)}}
	port := &stubPort{}
	mutator := &workerMutator{cfg: syncConfigFixture()}
	worker := newTestWorker(t, queue, port, mutator)

	if _, err := worker.ProcessDue(context.Background(), 10); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if len(queue.abandoned) != 1 || port.calls != 0 {
		t.Fatalf("expected abandon without push, got %+v calls=%d", queue.abandoned, port.calls)
	}
}

func TestBackoffForCapsAtTenMinutes(t *testing.T) {
	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 30 * time.Second},
		{1, time.Minute},
		{2, 2 * time.Minute},
		{4, 8 * time.Minute},
		{5, 10 * time.Minute},
		{12, 10 * time.Minute},
	}
	for _, tc := range cases {
		if got := backoffFor(tc.attempts); got != tc.want {
			t.Errorf("backoffFor(%d) = %v, want %v", tc.attempts, got, tc.want)
		}
	}
}
