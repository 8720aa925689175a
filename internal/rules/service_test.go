package rules

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
	syncs  []allotment.SyncRequest
}

func (m *stubMutator) Mutate(_ context.Context, configID uuid.UUID, fn allotment.MutateFunc) (*models.AllotmentConfig, error) {
	if m.cfg == nil || configID != m.cfg.ID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "config not found")
	}
	draft, syncs, err := fn(m.cfg)
	if err != nil {
		return nil, err
	}
	m.cfg.Version++
	m.drafts = append(m.drafts, draft)
	m.syncs = append(m.syncs, syncs...)
	return m.cfg, nil
}

func newRuleService(t *testing.T, cfg *models.AllotmentConfig, now time.Time) (Service, *stubMutator) {
	t.Helper()
	mutator := &stubMutator{cfg: cfg}
	ev := NewEvaluator(nil)
	ev.now = func() time.Time { return now }
	svc, err := NewService(mutator, ev)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, mutator
}

func TestServiceApplyAppliesRuleAndEnqueuesSync(t *testing.T) {
	cfg := newRuleConfig(100)
	rule := percentageRule("standard split", 10, map[enums.ChannelID]float64{
		enums.ChannelDirect:     40,
		enums.ChannelBookingCom: 35,
		enums.ChannelExpedia:    25,
	})
	cfg.Rules = []types.AllocationRule{rule}
	svc, mutator := newRuleService(t, cfg, time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC))

	start := types.NewDate(2023, time.June, 1)
	end := types.NewDate(2023, time.June, 7)
	outcomes, err := svc.Apply(context.Background(), cfg.ID, rule.ID, start, end, "ops@hotel")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(outcomes) != 7 {
		t.Fatalf("expected 7 outcomes, got %d", len(outcomes))
	}
	if cfg.Version != 2 {
		t.Fatalf("version = %d, want 2", cfg.Version)
	}
	if len(mutator.drafts) != 1 {
		t.Fatalf("expected one log draft, got %d", len(mutator.drafts))
	}
	draft := mutator.drafts[0]
	if draft.Action != enums.ChangeActionUpdated || draft.ActorID != "ops@hotel" {
		t.Fatalf("unexpected draft: %+v", draft)
	}
	if len(mutator.syncs) != 1 {
		t.Fatalf("expected one sync request, got %d", len(mutator.syncs))
	}
	sync := mutator.syncs[0]
	if sync.Kind != enums.SyncKindAllocation || sync.Start != start || sync.End != end {
		t.Fatalf("unexpected sync request: %+v", sync)
	}
}

func TestServiceApplyUnknownRule(t *testing.T) {
	cfg := newRuleConfig(100)
	svc, mutator := newRuleService(t, cfg, time.Now())

	d := types.NewDate(2023, time.June, 1)
	_, err := svc.Apply(context.Background(), cfg.ID, uuid.New(), d, d, "ops@hotel")
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(mutator.drafts) != 0 || cfg.Version != 1 {
		t.Fatal("failed apply must not persist anything")
	}
}

func TestServiceApplyRejectsInvalidRange(t *testing.T) {
	cfg := newRuleConfig(100)
	svc, _ := newRuleService(t, cfg, time.Now())

	start := types.NewDate(2023, time.June, 7)
	end := types.NewDate(2023, time.June, 1)
	_, err := svc.Apply(context.Background(), cfg.ID, uuid.New(), start, end, "ops@hotel")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceApplyRequiresActiveConfig(t *testing.T) {
	cfg := newRuleConfig(100)
	rule := percentageRule("split", 10, map[enums.ChannelID]float64{enums.ChannelDirect: 100})
	cfg.Rules = []types.AllocationRule{rule}
	cfg.Status = enums.ConfigStatusSuspended
	svc, _ := newRuleService(t, cfg, time.Now())

	d := types.NewDate(2023, time.June, 1)
	_, err := svc.Apply(context.Background(), cfg.ID, rule.ID, d, d, "ops@hotel")
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestServiceApplyWithNoApplicableDatesSavesNothing(t *testing.T) {
	cfg := newRuleConfig(100)
	rule := percentageRule("weekend only", 10, map[enums.ChannelID]float64{enums.ChannelDirect: 100})
	rule.Conditions.Seasonality = "weekend"
	cfg.Rules = []types.AllocationRule{rule}
	svc, mutator := newRuleService(t, cfg, time.Now())

	d := types.NewDate(2023, time.June, 1) // Thursday
	outcomes, err := svc.Apply(context.Background(), cfg.ID, rule.ID, d, d, "ops@hotel")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(outcomes) != 1 || !outcomes[0].Skipped {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}
	if len(mutator.drafts) != 0 || cfg.Version != 1 {
		t.Fatal("nothing applied, nothing should be saved")
	}
}

func TestServiceOptimizeRunsAllRulesOverHorizon(t *testing.T) {
	cfg := newRuleConfig(100)
	base := percentageRule("baseline", 1, map[enums.ChannelID]float64{
		enums.ChannelDirect:     50,
		enums.ChannelBookingCom: 50,
	})
	cfg.Rules = []types.AllocationRule{base}
	now := time.Date(2023, time.June, 1, 9, 0, 0, 0, time.UTC)
	svc, mutator := newRuleService(t, cfg, now)

	summary, err := svc.Optimize(context.Background(), cfg.ID, "ops@hotel")
	if err != nil {
		t.Fatalf("optimize failed: %v", err)
	}
	if summary.Applied != optimizeHorizonDays || summary.Skipped != 0 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	wantStart := types.NewDate(2023, time.June, 1)
	if summary.Start != wantStart || summary.End != wantStart.AddDays(optimizeHorizonDays-1) {
		t.Fatalf("unexpected horizon: %s..%s", summary.Start, summary.End)
	}
	if len(mutator.syncs) != 1 || mutator.syncs[0].Start != summary.Start || mutator.syncs[0].End != summary.End {
		t.Fatalf("unexpected sync requests: %+v", mutator.syncs)
	}
	if cfg.Version != 2 {
		t.Fatalf("version = %d, want 2", cfg.Version)
	}
}

func TestServiceOptimizeWithoutMatchingRules(t *testing.T) {
	cfg := newRuleConfig(100)
	svc, mutator := newRuleService(t, cfg, time.Date(2023, time.June, 1, 9, 0, 0, 0, time.UTC))

	summary, err := svc.Optimize(context.Background(), cfg.ID, "ops@hotel")
	if err != nil {
		t.Fatalf("optimize failed: %v", err)
	}
	if summary.Applied != 0 || summary.Skipped != optimizeHorizonDays {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(mutator.drafts) != 0 || cfg.Version != 1 {
		t.Fatal("no-op optimize must not persist anything")
	}
}
