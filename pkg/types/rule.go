package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/roomhive/allotment-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// AllocationRule is a declarative rewrite of per-channel allocations over a
// date range. Rules never touch sold counts.
type AllocationRule struct {
	ID       uuid.UUID      `json:"id"`
	Name     string         `json:"name"`
	Type     enums.RuleType `json:"type"`
	Active   bool           `json:"active"`
	Priority int            `json:"priority"` // evaluation order, higher first

	Conditions RuleConditions `json:"conditions"`

	// Payload; exactly one of these is populated per Type.
	Percentages map[enums.ChannelID]decimal.Decimal `json:"percentages,omitempty"`
	Fixed       map[enums.ChannelID]int             `json:"fixed,omitempty"`
	Caps        map[enums.ChannelID]ChannelCap      `json:"caps,omitempty"`

	Fallback enums.FallbackStrategy `json:"fallback,omitempty"`
}

// ChannelCap bounds a channel's share under priority allocation.
type ChannelCap struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// RuleConditions gate whether a rule applies to a given date. Every configured
// condition must match.
type RuleConditions struct {
	StartDate          *Date          `json:"start_date,omitempty"`
	EndDate            *Date          `json:"end_date,omitempty"`
	DaysOfWeek         []time.Weekday `json:"days_of_week,omitempty"`
	Seasonality        string         `json:"seasonality,omitempty"`
	OccupancyThreshold *float64       `json:"occupancy_threshold,omitempty"` // percent, prior day
	MinAdvanceDays     *int           `json:"min_advance_days,omitempty"`
	MaxAdvanceDays     *int           `json:"max_advance_days,omitempty"`
}
