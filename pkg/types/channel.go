package types

import (
	"github.com/roomhive/allotment-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Channel is a sales surface configured inside an allotment config. The
// channel id is unique within a config.
type Channel struct {
	ID             enums.ChannelID `json:"id"`
	Name           string          `json:"name"`
	Active         bool            `json:"active"`
	Priority       int             `json:"priority"` // 0..100, higher wins
	CommissionPct  decimal.Decimal `json:"commission_pct"`
	MarkupPct      decimal.Decimal `json:"markup_pct"`
	MinAdvanceDays int             `json:"min_advance_days"`
	MaxAdvanceDays int             `json:"max_advance_days"`
	CutoffTime     string          `json:"cutoff_time,omitempty"` // HH:MM local
	Restrictions   Restrictions    `json:"restrictions"`
	RateModifiers  RateModifiers   `json:"rate_modifiers"`
}

// Restrictions forbid sales, arrivals or departures. They appear both as
// channel-level defaults and as per-day snapshots on channel allotments.
type Restrictions struct {
	MinStay           int  `json:"min_stay"`
	MaxStay           int  `json:"max_stay"`
	ClosedToArrival   bool `json:"closed_to_arrival"`
	ClosedToDeparture bool `json:"closed_to_departure"`
	StopSell          bool `json:"stop_sell"`
}

// RateModifiers scale the base rate per day class.
type RateModifiers struct {
	Weekday decimal.Decimal `json:"weekday"`
	Weekend decimal.Decimal `json:"weekend"`
	Holiday decimal.Decimal `json:"holiday"`
}
