package types

import (
	"time"

	"github.com/roomhive/allotment-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Analytics is the overwritable analytics slot on a config. It is never on
// the critical path of a reservation.
type Analytics struct {
	LastCalculated  time.Time                `json:"last_calculated"`
	NextCalculation time.Time                `json:"next_calculation"`
	Frequency       enums.AnalyticsFrequency `json:"frequency"`
	Windows         []MetricsWindow          `json:"windows,omitempty"`
	Alerts          []Alert                  `json:"alerts,omitempty"`
	Recommendations []Recommendation         `json:"recommendations,omitempty"`
}

// MetricsWindow holds the rolled-up metrics for one [Start, End] period.
type MetricsWindow struct {
	Start    Date                               `json:"start"`
	End      Date                               `json:"end"`
	Channels map[enums.ChannelID]ChannelMetrics `json:"channels"`
	Overall  OverallMetrics                     `json:"overall"`
}

// ChannelMetrics are per-channel performance numbers over a window.
type ChannelMetrics struct {
	Allocated       int             `json:"allocated"`
	Sold            int             `json:"sold"`
	Revenue         decimal.Decimal `json:"revenue"`
	ADR             decimal.Decimal `json:"adr"`
	ConversionPct   float64         `json:"conversion_pct"`
	UtilizationPct  float64         `json:"utilization_pct"` // synonym for conversion
	RevPAR          decimal.Decimal `json:"revpar"`
	CancellationPct float64         `json:"cancellation_pct"`
	NoShowPct       float64         `json:"no_show_pct"`
	LeadTimeDays    float64         `json:"lead_time_days"`
}

// OverallMetrics aggregate channel metrics across the window.
type OverallMetrics struct {
	Allocated           int             `json:"allocated"`
	Sold                int             `json:"sold"`
	Revenue             decimal.Decimal `json:"revenue"`
	ADR                 decimal.Decimal `json:"adr"`
	RevPAR              decimal.Decimal `json:"revpar"`
	AverageOccupancyPct float64         `json:"average_occupancy_pct"`
}

// Recommendation is an advisory action derived from the latest window. The
// list is overwritten on every analytics pass.
type Recommendation struct {
	Type        enums.RecommendationType     `json:"type"`
	Priority    enums.RecommendationPriority `json:"priority"`
	ChannelID   enums.ChannelID              `json:"channel_id,omitempty"`
	Message     string                       `json:"message"`
	Confidence  int                          `json:"confidence"` // 0..100
	GeneratedAt time.Time                    `json:"generated_at"`
}

// Alert flags a condition needing operator attention.
type Alert struct {
	Severity string    `json:"severity"`
	Message  string    `json:"message"`
	RaisedAt time.Time `json:"raised_at"`
}
