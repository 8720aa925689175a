package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/roomhive/allotment-backend/internal/allotment"
	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/types"
)

type stubMutator struct {
	cfg    *models.AllotmentConfig
	drafts []*allotment.LogDraft
}

func (m *stubMutator) Mutate(_ context.Context, configID uuid.UUID, fn allotment.MutateFunc) (*models.AllotmentConfig, error) {
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

func (m *stubMutator) GetByID(_ context.Context, configID uuid.UUID) (*models.AllotmentConfig, error) {
	if m.cfg == nil || configID != m.cfg.ID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "config not found")
	}
	return m.cfg, nil
}

func newAnalyticsService(t *testing.T, cfg *models.AllotmentConfig, now time.Time) (Service, *stubMutator) {
	t.Helper()
	mutator := &stubMutator{cfg: cfg}
	svc, err := NewService(mutator)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.(*service).now = func() time.Time { return now }
	return svc, mutator
}

func TestRecalculateStoresWindowAndRecommendations(t *testing.T) {
	cfg := newAnalyticsConfig()
	start := types.NewDate(2023, time.June, 1)
	seedAnalyticsDay(cfg, start, 1, 4) // direct 1/6 sold, booking 4/4 sold
	now := time.Date(2023, time.June, 8, 9, 0, 0, 0, time.UTC)
	svc, mutator := newAnalyticsService(t, cfg, now)

	window, err := svc.Recalculate(context.Background(), cfg.ID, start, start, "analytics-job")
	if err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	if window.Channels[enums.ChannelBookingCom].Sold != 4 {
		t.Fatalf("unexpected window: %+v", window)
	}

	stored := mutator.cfg.Analytics
	if len(stored.Windows) != 1 {
		t.Fatalf("expected one stored window, got %d", len(stored.Windows))
	}
	if stored.LastCalculated != now {
		t.Errorf("last calculated = %v, want %v", stored.LastCalculated, now)
	}
	if stored.Frequency != enums.AnalyticsDaily {
		t.Errorf("frequency defaulted to %s, want daily", stored.Frequency)
	}
	if stored.NextCalculation != now.Add(24*time.Hour) {
		t.Errorf("next calculation = %v", stored.NextCalculation)
	}
	if len(stored.Recommendations) == 0 {
		t.Fatal("expected recommendations from the fresh window")
	}
	if len(mutator.drafts) != 1 || mutator.drafts[0].ChangedFields[0] != "analytics" {
		t.Fatalf("unexpected drafts: %+v", mutator.drafts)
	}
}

func TestRecalculateOverwritesRecommendations(t *testing.T) {
	cfg := newAnalyticsConfig()
	cfg.Analytics.Recommendations = []types.Recommendation{
		{Type: enums.RecommendationChangeRestrictions, Message: "stale"},
	}
	start := types.NewDate(2023, time.June, 1)
	seedAnalyticsDay(cfg, start, 6, 4) // both channels fully utilized
	svc, mutator := newAnalyticsService(t, cfg, time.Date(2023, time.June, 8, 0, 0, 0, 0, time.UTC))

	if _, err := svc.Recalculate(context.Background(), cfg.ID, start, start, "analytics-job"); err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	for _, rec := range mutator.cfg.Analytics.Recommendations {
		if rec.Message == "stale" {
			t.Fatal("previous recommendations must be overwritten")
		}
	}
}

func TestRecalculateValidatesRange(t *testing.T) {
	cfg := newAnalyticsConfig()
	svc, _ := newAnalyticsService(t, cfg, time.Now())

	start := types.NewDate(2023, time.June, 7)
	_, err := svc.Recalculate(context.Background(), cfg.ID, start, start.AddDays(-1), "analytics-job")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRecalculateRequiresActiveConfig(t *testing.T) {
	cfg := newAnalyticsConfig()
	cfg.Status = enums.ConfigStatusInactive
	svc, _ := newAnalyticsService(t, cfg, time.Now())

	start := types.NewDate(2023, time.June, 1)
	_, err := svc.Recalculate(context.Background(), cfg.ID, start, start, "analytics-job")
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAnalyticsAndRecommendationsGetters(t *testing.T) {
	cfg := newAnalyticsConfig()
	cfg.Analytics.Recommendations = []types.Recommendation{
		{Type: enums.RecommendationIncreaseAllocation, ChannelID: enums.ChannelDirect},
	}
	svc, _ := newAnalyticsService(t, cfg, time.Now())

	got, err := svc.Analytics(context.Background(), cfg.ID)
	if err != nil {
		t.Fatalf("analytics getter failed: %v", err)
	}
	if len(got.Recommendations) != 1 {
		t.Fatalf("unexpected analytics: %+v", got)
	}

	recs, err := svc.Recommendations(context.Background(), cfg.ID)
	if err != nil {
		t.Fatalf("recommendations getter failed: %v", err)
	}
	if len(recs) != 1 || recs[0].ChannelID != enums.ChannelDirect {
		t.Fatalf("unexpected recommendations: %+v", recs)
	}

	if _, err := svc.Analytics(context.Background(), uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
