package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roomhive/allotment-backend/internal/allotment"
	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/types"
)

// optimizeHorizonDays is how far ahead Optimize recomputes allocations.
const optimizeHorizonDays = 30

var errNoApplicableDates = errors.New("no applicable dates")

type configMutator interface {
	Mutate(ctx context.Context, configID uuid.UUID, fn allotment.MutateFunc) (*models.AllotmentConfig, error)
}

// OptimizeSummary aggregates the per-date outcomes of a full rule pass.
type OptimizeSummary struct {
	Start    types.Date    `json:"start"`
	End      types.Date    `json:"end"`
	Applied  int           `json:"applied"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Outcomes []DateOutcome `json:"outcomes"`
}

// Service applies allocation rules to stored configs.
type Service interface {
	Apply(ctx context.Context, configID, ruleID uuid.UUID, start, end types.Date, actorID string) ([]DateOutcome, error)
	Optimize(ctx context.Context, configID uuid.UUID, actorID string) (*OptimizeSummary, error)
}

type service struct {
	configs   configMutator
	evaluator *Evaluator
}

// NewService builds the rule application service.
func NewService(configs configMutator, evaluator *Evaluator) (Service, error) {
	if configs == nil {
		return nil, fmt.Errorf("config mutator required")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator required")
	}
	return &service{configs: configs, evaluator: evaluator}, nil
}

func (s *service) Apply(ctx context.Context, configID, ruleID uuid.UUID, start, end types.Date, actorID string) ([]DateOutcome, error) {
	if ruleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rule id required")
	}
	if end.Before(start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date before start date")
	}

	var outcomes []DateOutcome
	_, err := s.configs.Mutate(ctx, configID, func(cfg *models.AllotmentConfig) (*allotment.LogDraft, []allotment.SyncRequest, error) {
		if err := allotment.EnsureActive(cfg); err != nil {
			return nil, nil, err
		}
		rule := cfg.Rule(ruleID)
		if rule == nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("rule %s not found", ruleID))
		}

		outcomes = s.evaluator.Apply(cfg, *rule, start, end)
		if countApplied(outcomes) == 0 {
			return nil, nil, errNoApplicableDates
		}

		return &allotment.LogDraft{
				ActorID:       actorID,
				Action:        enums.ChangeActionUpdated,
				ChangedFields: []string{"daily_records"},
				Reason:        fmt.Sprintf("rule %q applied %s..%s", rule.Name, start, end),
			}, []allotment.SyncRequest{
				{Kind: enums.SyncKindAllocation, Start: start, End: end},
			}, nil
	})
	if err != nil {
		if errors.Is(err, errNoApplicableDates) {
			return outcomes, nil
		}
		return nil, err
	}
	return outcomes, nil
}

func (s *service) Optimize(ctx context.Context, configID uuid.UUID, actorID string) (*OptimizeSummary, error) {
	var summary *OptimizeSummary
	_, err := s.configs.Mutate(ctx, configID, func(cfg *models.AllotmentConfig) (*allotment.LogDraft, []allotment.SyncRequest, error) {
		if err := allotment.EnsureActive(cfg); err != nil {
			return nil, nil, err
		}

		start := types.DateOf(s.evaluator.now().In(cfg.Location()))
		end := start.AddDays(optimizeHorizonDays - 1)
		outcomes := s.evaluator.ApplyAll(cfg, start, end)

		summary = &OptimizeSummary{Start: start, End: end, Outcomes: outcomes}
		for _, o := range outcomes {
			switch {
			case o.Applied:
				summary.Applied++
			case o.Skipped:
				summary.Skipped++
			default:
				summary.Failed++
			}
		}
		if summary.Applied == 0 {
			return nil, nil, errNoApplicableDates
		}

		return &allotment.LogDraft{
				ActorID:       actorID,
				Action:        enums.ChangeActionUpdated,
				ChangedFields: []string{"daily_records"},
				Reason:        fmt.Sprintf("allocations optimized %s..%s", start, end),
			}, []allotment.SyncRequest{
				{Kind: enums.SyncKindAllocation, Start: start, End: end},
			}, nil
	})
	if err != nil && !errors.Is(err, errNoApplicableDates) {
		return nil, err
	}
	return summary, nil
}

func countApplied(outcomes []DateOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Applied {
			n++
		}
	}
	return n
}
