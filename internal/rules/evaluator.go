package rules

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roomhive/allotment-backend/internal/record"
	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	"github.com/roomhive/allotment-backend/pkg/types"
)

// DynamicAllocator supplies allocations for dynamic rules. Returning an error
// falls through to the rule's fallback strategy.
type DynamicAllocator func(cfg *models.AllotmentConfig, date types.Date, rec types.DailyRecord) (map[enums.ChannelID]int, error)

// DateOutcome reports what a rule application did to one date.
type DateOutcome struct {
	Date        types.Date              `json:"date"`
	Applied     bool                    `json:"applied"`
	Skipped     bool                    `json:"skipped"`
	Reason      string                  `json:"reason,omitempty"`
	Allocations map[enums.ChannelID]int `json:"allocations,omitempty"`
}

// Evaluator applies allocation rules to a config's daily records. Rules only
// rewrite allocated counts; sold and blocked are never touched.
type Evaluator struct {
	dynamic DynamicAllocator
	now     func() time.Time
}

// NewEvaluator builds an evaluator. The dynamic allocator may be nil; dynamic
// rules then always use their fallback strategy.
func NewEvaluator(dynamic DynamicAllocator) *Evaluator {
	return &Evaluator{dynamic: dynamic, now: time.Now}
}

// Apply runs one rule over [start, end] inclusive. Dates whose conditions do
// not match are skipped; dates where the new allocation would drop below the
// current sold count fail individually and are left unchanged. The config is
// mutated in place for applied dates only.
func (e *Evaluator) Apply(cfg *models.AllotmentConfig, rule types.AllocationRule, start, end types.Date) []DateOutcome {
	outcomes := make([]DateOutcome, 0, start.DaysUntil(end)+1)
	for _, d := range types.DatesThrough(start, end) {
		outcomes = append(outcomes, e.applyToDate(cfg, rule, d))
	}
	return outcomes
}

// ApplyAll evaluates every active rule by descending priority for each date in
// range and applies the first whose conditions match. Later rules never
// override an earlier match.
func (e *Evaluator) ApplyAll(cfg *models.AllotmentConfig, start, end types.Date) []DateOutcome {
	ordered := activeRulesByPriority(cfg.Rules)

	outcomes := make([]DateOutcome, 0, start.DaysUntil(end)+1)
	for _, d := range types.DatesThrough(start, end) {
		matched := false
		for _, rule := range ordered {
			rec := record.GetOrSeed(cfg, d)
			if !e.conditionsMatch(cfg, rule.Conditions, d, rec) {
				continue
			}
			matched = true
			outcomes = append(outcomes, e.applyToDate(cfg, rule, d))
			break
		}
		if !matched {
			outcomes = append(outcomes, DateOutcome{Date: d, Skipped: true, Reason: "no matching rule"})
		}
	}
	return outcomes
}

func (e *Evaluator) applyToDate(cfg *models.AllotmentConfig, rule types.AllocationRule, d types.Date) DateOutcome {
	rec := record.GetOrSeed(cfg, d)
	if !rule.Active {
		return DateOutcome{Date: d, Skipped: true, Reason: "rule inactive"}
	}
	if !e.conditionsMatch(cfg, rule.Conditions, d, rec) {
		return DateOutcome{Date: d, Skipped: true, Reason: "conditions not met"}
	}

	allocations, err := e.allocationsFor(cfg, rule, d, rec)
	if err != nil {
		return DateOutcome{Date: d, Reason: err.Error()}
	}

	// work on a private copy so a failed date leaves the stored record alone
	next := rec
	next.Channels = append([]types.ChannelAllotment(nil), rec.Channels...)
	now := e.now()
	for channelID, allocated := range allocations {
		entry := next.Channel(channelID)
		if entry == nil {
			next.Channels = append(next.Channels, types.ChannelAllotment{ChannelID: channelID})
			entry = &next.Channels[len(next.Channels)-1]
			if def := cfg.Channel(channelID); def != nil {
				entry.Restrictions = def.Restrictions
			}
		}
		if allocated < entry.Sold {
			return DateOutcome{
				Date:   d,
				Reason: fmt.Sprintf("channel %s: allocated %d below sold %d", channelID, allocated, entry.Sold),
			}
		}
		entry.Allocated = allocated
		entry.LastUpdated = now
	}

	record.Recompute(&next)
	if err := record.Validate(next, cfg.Defaults); err != nil {
		return DateOutcome{Date: d, Reason: err.Error()}
	}

	cfg.DailyRecords[d] = next
	return DateOutcome{Date: d, Applied: true, Allocations: allocations}
}

func (e *Evaluator) allocationsFor(cfg *models.AllotmentConfig, rule types.AllocationRule, d types.Date, rec types.DailyRecord) (map[enums.ChannelID]int, error) {
	switch rule.Type {
	case enums.RuleTypePercentage:
		return percentageAllocations(rule.Percentages, rec.TotalInventory), nil
	case enums.RuleTypeFixed:
		return fixedAllocations(rule.Fixed, rec.TotalInventory), nil
	case enums.RuleTypePriority:
		return priorityAllocations(cfg.Channels, rule.Caps, rec.TotalInventory), nil
	case enums.RuleTypeDynamic:
		if e.dynamic != nil {
			allocations, err := e.dynamic(cfg, d, rec)
			if err == nil {
				return allocations, nil
			}
		}
		return fallbackAllocations(cfg, rule.Fallback, rec)
	default:
		return nil, fmt.Errorf("unsupported rule type %q", rule.Type)
	}
}

// percentageAllocations rounds each share to the nearest whole room with ties
// broken downward, then trims overshoot so the sum never exceeds inventory.
func percentageAllocations(percentages map[enums.ChannelID]decimal.Decimal, totalInventory int) map[enums.ChannelID]int {
	out := make(map[enums.ChannelID]int, len(percentages))
	inv := decimal.NewFromInt(int64(totalInventory))
	hundred := decimal.NewFromInt(100)
	for channelID, pct := range percentages {
		out[channelID] = roundTiesLower(inv.Mul(pct).Div(hundred))
	}
	trimToInventory(out, totalInventory)
	return out
}

func fixedAllocations(fixed map[enums.ChannelID]int, totalInventory int) map[enums.ChannelID]int {
	out := make(map[enums.ChannelID]int, len(fixed))
	for channelID, n := range fixed {
		if n > totalInventory {
			n = totalInventory
		}
		out[channelID] = n
	}
	trimToInventory(out, totalInventory)
	return out
}

func priorityAllocations(channels []types.Channel, caps map[enums.ChannelID]types.ChannelCap, totalInventory int) map[enums.ChannelID]int {
	ordered := append([]types.Channel(nil), channels...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})

	out := make(map[enums.ChannelID]int, len(ordered))
	remaining := totalInventory
	for _, ch := range ordered {
		if !ch.Active {
			continue
		}
		grant := remaining
		if c, ok := caps[ch.ID]; ok {
			if grant < c.Min {
				grant = c.Min
			}
			if grant > c.Max {
				grant = c.Max
			}
		}
		if grant > remaining {
			grant = remaining
		}
		if grant < 0 {
			grant = 0
		}
		out[ch.ID] = grant
		remaining -= grant
	}
	return out
}

func fallbackAllocations(cfg *models.AllotmentConfig, strategy enums.FallbackStrategy, rec types.DailyRecord) (map[enums.ChannelID]int, error) {
	active := activeChannels(cfg.Channels)
	if len(active) == 0 {
		return map[enums.ChannelID]int{}, nil
	}

	switch strategy {
	case enums.FallbackPriorityBased:
		return priorityAllocations(cfg.Channels, nil, rec.TotalInventory), nil
	case enums.FallbackHistoricalPerformance:
		return weightedAllocations(cfg, active, rec.TotalInventory, soldWeight), nil
	case enums.FallbackRevenueOptimization:
		return weightedAllocations(cfg, active, rec.TotalInventory, revenueWeight), nil
	case enums.FallbackEqualDistribution, "":
		return equalAllocations(active, rec.TotalInventory), nil
	default:
		return nil, fmt.Errorf("unsupported fallback strategy %q", strategy)
	}
}

func equalAllocations(channels []types.Channel, totalInventory int) map[enums.ChannelID]int {
	out := make(map[enums.ChannelID]int, len(channels))
	share := totalInventory / len(channels)
	for _, ch := range channels {
		out[ch.ID] = share
	}
	return out
}

func soldWeight(ch types.ChannelAllotment) decimal.Decimal {
	return decimal.NewFromInt(int64(ch.Sold))
}

func revenueWeight(ch types.ChannelAllotment) decimal.Decimal {
	return ch.Rate.Mul(decimal.NewFromInt(int64(ch.Sold)))
}

// weightedAllocations splits inventory proportional to each channel's trailing
// weight across stored records; with no history every channel weighs the same.
func weightedAllocations(cfg *models.AllotmentConfig, active []types.Channel, totalInventory int, weight func(types.ChannelAllotment) decimal.Decimal) map[enums.ChannelID]int {
	weights := make(map[enums.ChannelID]decimal.Decimal, len(active))
	total := decimal.Zero
	for _, rec := range cfg.DailyRecords {
		for _, ch := range rec.Channels {
			w := weight(ch)
			weights[ch.ChannelID] = weights[ch.ChannelID].Add(w)
			total = total.Add(w)
		}
	}
	if total.IsZero() {
		return equalAllocations(active, totalInventory)
	}

	inv := decimal.NewFromInt(int64(totalInventory))
	out := make(map[enums.ChannelID]int, len(active))
	for _, ch := range active {
		out[ch.ID] = roundTiesLower(inv.Mul(weights[ch.ID]).Div(total))
	}
	trimToInventory(out, totalInventory)
	return out
}

func activeChannels(channels []types.Channel) []types.Channel {
	var out []types.Channel
	for _, ch := range channels {
		if ch.Active {
			out = append(out, ch)
		}
	}
	return out
}

func activeRulesByPriority(rules []types.AllocationRule) []types.AllocationRule {
	ordered := make([]types.AllocationRule, 0, len(rules))
	for _, r := range rules {
		if r.Active {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].Name < ordered[j].Name
	})
	return ordered
}

func (e *Evaluator) conditionsMatch(cfg *models.AllotmentConfig, cond types.RuleConditions, d types.Date, rec types.DailyRecord) bool {
	if cond.StartDate != nil && d.Before(*cond.StartDate) {
		return false
	}
	if cond.EndDate != nil && d.After(*cond.EndDate) {
		return false
	}
	if len(cond.DaysOfWeek) > 0 {
		found := false
		for _, wd := range cond.DaysOfWeek {
			if d.Weekday() == wd {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if cond.Seasonality != "" && !seasonalityMatches(cond.Seasonality, d, rec) {
		return false
	}
	if cond.OccupancyThreshold != nil {
		prior, ok := cfg.DailyRecords[d.AddDays(-1)]
		if !ok || prior.OccupancyRate < *cond.OccupancyThreshold {
			return false
		}
	}
	if cond.MinAdvanceDays != nil || cond.MaxAdvanceDays != nil {
		lead := types.DateOf(e.now().In(cfg.Location())).DaysUntil(d)
		if cond.MinAdvanceDays != nil && lead < *cond.MinAdvanceDays {
			return false
		}
		if cond.MaxAdvanceDays != nil && lead > *cond.MaxAdvanceDays {
			return false
		}
	}
	return true
}

// seasonality tags are day classes; unknown tags never match so a typo cannot
// silently widen a rule.
func seasonalityMatches(tag string, d types.Date, rec types.DailyRecord) bool {
	switch tag {
	case "weekend":
		return d.IsWeekend()
	case "weekday":
		return !d.IsWeekend()
	case "holiday":
		return rec.Holiday
	default:
		return false
	}
}

// roundTiesLower rounds to the nearest integer with exact halves going down.
func roundTiesLower(x decimal.Decimal) int {
	floor := x.Floor()
	frac := x.Sub(floor)
	n := int(floor.IntPart())
	if frac.GreaterThan(decimal.NewFromFloat(0.5)) {
		return n + 1
	}
	return n
}

// trimToInventory walks allocations down, largest first, until their sum fits
// under total inventory.
func trimToInventory(allocations map[enums.ChannelID]int, totalInventory int) {
	sum := 0
	for _, n := range allocations {
		sum += n
	}
	if sum <= totalInventory {
		return
	}

	ids := make([]enums.ChannelID, 0, len(allocations))
	for id := range allocations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if allocations[ids[i]] != allocations[ids[j]] {
			return allocations[ids[i]] > allocations[ids[j]]
		}
		return ids[i] < ids[j]
	})

	for sum > totalInventory {
		for _, id := range ids {
			if sum <= totalInventory {
				break
			}
			if allocations[id] > 0 {
				allocations[id]--
				sum--
			}
		}
	}
}
