package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/roomhive/allotment-backend/internal/reservation"
	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/types"
)

type fakeConfigLister struct {
	configs []models.AllotmentConfig
	err     error
}

func (f *fakeConfigLister) ListActive(context.Context) ([]models.AllotmentConfig, error) {
	return f.configs, f.err
}

type fakeCandidateSource struct {
	candidates []reservation.ReleaseCandidate
	deadline   time.Time
	released   []uuid.UUID
	findErr    error
	markErr    error
}

func (f *fakeCandidateSource) FindReleasable(_ context.Context, _ uuid.UUID, deadline time.Time) ([]reservation.ReleaseCandidate, error) {
	f.deadline = deadline
	return f.candidates, f.findErr
}

func (f *fakeCandidateSource) MarkReleased(_ context.Context, id uuid.UUID) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.released = append(f.released, id)
	return nil
}

type fakeReleaser struct {
	inputs []reservation.Input
	err    error
}

func (f *fakeReleaser) Release(_ context.Context, input reservation.Input) (*reservation.Result, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return &reservation.Result{ConfigID: input.ConfigID, ChannelID: input.ChannelID}, nil
}

func autoReleaseConfig(timezone string) models.AllotmentConfig {
	return models.AllotmentConfig{
		ID:         uuid.New(),
		HotelID:    uuid.New(),
		RoomTypeID: uuid.New(),
		Status:     enums.ConfigStatusActive,
		Timezone:   timezone,
		Defaults: types.DefaultSettings{
			TotalInventory:     10,
			AutoRelease:        true,
			ReleaseWindowHours: 24,
		},
	}
}

func newAutoReleaseJob(t *testing.T, lister activeConfigLister, source releaseCandidateSource, releaser reservationReleaser, now time.Time) *autoReleaseJob {
	t.Helper()
	job, err := NewAutoReleaseJob(AutoReleaseJobParams{
		Logger:     testLogger(),
		Configs:    lister,
		Candidates: source,
		Releaser:   releaser,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	impl := job.(*autoReleaseJob)
	impl.now = func() time.Time { return now }
	return impl
}

func TestAutoReleaseReleasesExpiredHolds(t *testing.T) {
	now := time.Date(2023, time.June, 2, 0, 30, 0, 0, time.UTC)
	cfg := autoReleaseConfig("UTC")
	candidate := reservation.ReleaseCandidate{
		ID:        uuid.New(),
		ConfigID:  cfg.ID,
		ChannelID: enums.ChannelDirect,
		CheckIn:   types.NewDate(2023, time.June, 2),
		CheckOut:  types.NewDate(2023, time.June, 4),
		Rooms:     2,
	}
	source := &fakeCandidateSource{candidates: []reservation.ReleaseCandidate{candidate}}
	releaser := &fakeReleaser{}
	job := newAutoReleaseJob(t, &fakeConfigLister{configs: []models.AllotmentConfig{cfg}}, source, releaser, now)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(releaser.inputs) != 1 {
		t.Fatalf("expected 1 release, got %d", len(releaser.inputs))
	}
	input := releaser.inputs[0]
	if input.ConfigID != cfg.ID || input.ChannelID != enums.ChannelDirect || input.Rooms != 2 {
		t.Fatalf("unexpected release input %+v", input)
	}
	if input.ActorID != autoReleaseActor {
		t.Fatalf("expected actor %q, got %q", autoReleaseActor, input.ActorID)
	}
	if len(source.released) != 1 || source.released[0] != candidate.ID {
		t.Fatalf("candidate was not marked released")
	}
	want := now.Add(24 * time.Hour)
	if !source.deadline.Equal(want) {
		t.Fatalf("expected deadline %s, got %s", want, source.deadline)
	}
}

func TestAutoReleaseSkipsOutsideLocalMidnight(t *testing.T) {
	// 00:30 UTC is evening in New York, the hotel's sweep waits for its own
	// midnight hour.
	now := time.Date(2023, time.June, 2, 0, 30, 0, 0, time.UTC)
	cfg := autoReleaseConfig("America/New_York")
	source := &fakeCandidateSource{candidates: []reservation.ReleaseCandidate{{ID: uuid.New(), ConfigID: cfg.ID}}}
	releaser := &fakeReleaser{}
	job := newAutoReleaseJob(t, &fakeConfigLister{configs: []models.AllotmentConfig{cfg}}, source, releaser, now)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(releaser.inputs) != 0 {
		t.Fatalf("expected no releases, got %d", len(releaser.inputs))
	}
}

func TestAutoReleaseSkipsWhenDisabled(t *testing.T) {
	now := time.Date(2023, time.June, 2, 0, 30, 0, 0, time.UTC)
	cfg := autoReleaseConfig("UTC")
	cfg.Defaults.AutoRelease = false
	source := &fakeCandidateSource{candidates: []reservation.ReleaseCandidate{{ID: uuid.New(), ConfigID: cfg.ID}}}
	releaser := &fakeReleaser{}
	job := newAutoReleaseJob(t, &fakeConfigLister{configs: []models.AllotmentConfig{cfg}}, source, releaser, now)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(releaser.inputs) != 0 {
		t.Fatalf("expected no releases, got %d", len(releaser.inputs))
	}
}

func TestAutoReleaseContinuesPastFailedHolds(t *testing.T) {
	now := time.Date(2023, time.June, 2, 0, 30, 0, 0, time.UTC)
	cfg := autoReleaseConfig("UTC")
	source := &fakeCandidateSource{candidates: []reservation.ReleaseCandidate{
		{ID: uuid.New(), ConfigID: cfg.ID, ChannelID: enums.ChannelDirect, Rooms: 1},
		{ID: uuid.New(), ConfigID: cfg.ID, ChannelID: enums.ChannelDirect, Rooms: 1},
	}}
	releaser := &fakeReleaser{err: errors.New("sold below zero")}
	job := newAutoReleaseJob(t, &fakeConfigLister{configs: []models.AllotmentConfig{cfg}}, source, releaser, now)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	if len(releaser.inputs) != 2 {
		t.Fatalf("expected both holds attempted, got %d", len(releaser.inputs))
	}
	if len(source.released) != 2 {
		t.Fatalf("expected both holds settled before release, got %d", len(source.released))
	}
}

func TestAutoReleaseNeverReleasesUnsettledHold(t *testing.T) {
	now := time.Date(2023, time.June, 2, 0, 30, 0, 0, time.UTC)
	cfg := autoReleaseConfig("UTC")
	source := &fakeCandidateSource{
		candidates: []reservation.ReleaseCandidate{
			{ID: uuid.New(), ConfigID: cfg.ID, ChannelID: enums.ChannelDirect, Rooms: 2},
		},
		markErr: errors.New("connection reset"),
	}
	releaser := &fakeReleaser{}
	job := newAutoReleaseJob(t, &fakeConfigLister{configs: []models.AllotmentConfig{cfg}}, source, releaser, now)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatalf("expected settle error to surface")
	}
	// The hold stays pending for the next sweep; inventory never moved, so
	// retrying cannot double-release it.
	if len(releaser.inputs) != 0 {
		t.Fatalf("unsettled hold must not be released, got %d releases", len(releaser.inputs))
	}
}

func TestAutoReleaseSkipsAlreadySettledHold(t *testing.T) {
	now := time.Date(2023, time.June, 2, 0, 30, 0, 0, time.UTC)
	cfg := autoReleaseConfig("UTC")
	source := &fakeCandidateSource{
		candidates: []reservation.ReleaseCandidate{
			{ID: uuid.New(), ConfigID: cfg.ID, ChannelID: enums.ChannelDirect, Rooms: 1},
		},
		markErr: pkgerrors.New(pkgerrors.CodeNotFound, "hold not found or already settled"),
	}
	releaser := &fakeReleaser{}
	job := newAutoReleaseJob(t, &fakeConfigLister{configs: []models.AllotmentConfig{cfg}}, source, releaser, now)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(releaser.inputs) != 0 {
		t.Fatalf("settled hold must be skipped, got %d releases", len(releaser.inputs))
	}
}
