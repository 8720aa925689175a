package analytics

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

// retentionMonths bounds how far back metric windows are kept.
const retentionMonths = 12

// ComputeWindow rolls the daily records inside [start, end] up into one
// metrics window. The computation is pure: re-running it over the same
// records yields identical output.
func ComputeWindow(cfg *models.AllotmentConfig, start, end types.Date) types.MetricsWindow {
	window := types.MetricsWindow{
		Start:    start,
		End:      end,
		Channels: map[enums.ChannelID]types.ChannelMetrics{},
	}

	byChannel := map[enums.ChannelID]*accum{}

	records := record.RecordsInRange(cfg, start, end)
	occupancySum := 0.0
	for _, rec := range records {
		occupancySum += rec.OccupancyRate
		for _, ch := range rec.Channels {
			acc, ok := byChannel[ch.ChannelID]
			if !ok {
				acc = &accum{revenue: decimal.Zero}
				byChannel[ch.ChannelID] = acc
			}
			acc.allocated += ch.Allocated
			acc.sold += ch.Sold
			acc.revenue = acc.revenue.Add(ch.Rate.Mul(decimal.NewFromInt(int64(ch.Sold))))
		}
	}

	overall := types.OverallMetrics{Revenue: decimal.Zero, ADR: decimal.Zero, RevPAR: decimal.Zero}
	for channelID, acc := range byChannel {
		window.Channels[channelID] = channelMetrics(*acc)
		overall.Allocated += acc.allocated
		overall.Sold += acc.sold
		overall.Revenue = overall.Revenue.Add(acc.revenue)
	}
	if overall.Sold > 0 {
		overall.ADR = overall.Revenue.Div(decimal.NewFromInt(int64(overall.Sold)))
	}
	if overall.Allocated > 0 {
		overall.RevPAR = overall.Revenue.Div(decimal.NewFromInt(int64(overall.Allocated)))
	}
	if len(records) > 0 {
		overall.AverageOccupancyPct = occupancySum / float64(len(records))
	}
	window.Overall = overall
	return window
}

type accum struct {
	allocated int
	sold      int
	revenue   decimal.Decimal
}

func channelMetrics(acc accum) types.ChannelMetrics {
	m := types.ChannelMetrics{
		Allocated: acc.allocated,
		Sold:      acc.sold,
		Revenue:   acc.revenue,
		ADR:       decimal.Zero,
		RevPAR:    decimal.Zero,
	}
	if acc.sold > 0 {
		m.ADR = acc.revenue.Div(decimal.NewFromInt(int64(acc.sold)))
	}
	if acc.allocated > 0 {
		pct := float64(acc.sold) / float64(acc.allocated) * 100
		m.ConversionPct = pct
		m.UtilizationPct = pct
		m.RevPAR = acc.revenue.Div(decimal.NewFromInt(int64(acc.allocated)))
	}
	return m
}

// Recommend derives the advisory list from one metrics window. Channels with
// no allocation in the window carry no signal and are skipped.
func Recommend(window types.MetricsWindow, now time.Time) []types.Recommendation {
	ids := make([]enums.ChannelID, 0, len(window.Channels))
	for id := range window.Channels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []types.Recommendation
	for _, id := range ids {
		m := window.Channels[id]
		if m.Allocated == 0 {
			continue
		}
		if m.UtilizationPct < 60 {
			out = append(out, types.Recommendation{
				Type:        enums.RecommendationDecreaseAllocation,
				Priority:    enums.RecommendationPriorityMedium,
				ChannelID:   id,
				Message:     fmt.Sprintf("channel %s utilization %.1f%% below 60%%", id, m.UtilizationPct),
				Confidence:  75,
				GeneratedAt: now,
			})
		}
		if m.UtilizationPct > 90 {
			out = append(out, types.Recommendation{
				Type:        enums.RecommendationIncreaseAllocation,
				Priority:    enums.RecommendationPriorityHigh,
				ChannelID:   id,
				Message:     fmt.Sprintf("channel %s utilization %.1f%% above 90%%", id, m.UtilizationPct),
				Confidence:  85,
				GeneratedAt: now,
			})
		}
		if m.ConversionPct < 20 {
			out = append(out, types.Recommendation{
				Type:        enums.RecommendationAdjustRates,
				Priority:    enums.RecommendationPriorityMedium,
				ChannelID:   id,
				Message:     fmt.Sprintf("channel %s conversion %.1f%% below 20%%", id, m.ConversionPct),
				Confidence:  70,
				GeneratedAt: now,
			})
		}
	}
	return out
}

// mergeWindow replaces a window covering the same period or appends a new
// one, keeping the list ordered by start date and inside the retention span.
func mergeWindow(windows []types.MetricsWindow, window types.MetricsWindow, now time.Time) []types.MetricsWindow {
	replaced := false
	for i := range windows {
		if windows[i].Start == window.Start && windows[i].End == window.End {
			windows[i] = window
			replaced = true
			break
		}
	}
	if !replaced {
		windows = append(windows, window)
	}
	sort.Slice(windows, func(i, j int) bool {
		if windows[i].Start != windows[j].Start {
			return windows[i].Start.Before(windows[j].Start)
		}
		return windows[i].End.Before(windows[j].End)
	})

	cutoff := types.DateOf(now.AddDate(0, -retentionMonths, 0))
	kept := windows[:0]
	for _, w := range windows {
		if !w.End.Before(cutoff) {
			kept = append(kept, w)
		}
	}
	return kept
}
