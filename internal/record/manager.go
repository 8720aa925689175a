package record

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/types"
)

// ChannelPatch is a partial update to one channel's slice of a daily record.
// Nil fields are left untouched. Counts are absolute values, not deltas.
type ChannelPatch struct {
	Allocated    *int
	Sold         *int
	Blocked      *int
	Rate         *decimal.Decimal
	Restrictions *types.Restrictions
}

// Empty reports whether the patch changes nothing.
func (p ChannelPatch) Empty() bool {
	return p.Allocated == nil && p.Sold == nil && p.Blocked == nil && p.Rate == nil && p.Restrictions == nil
}

// GetOrSeed returns the daily record for the date, creating one from the
// config defaults when the date has never been touched. The seeded record is
// stored back on the config.
func GetOrSeed(cfg *models.AllotmentConfig, date types.Date) types.DailyRecord {
	if cfg.DailyRecords == nil {
		cfg.DailyRecords = make(map[types.Date]types.DailyRecord)
	}
	if rec, ok := cfg.DailyRecords[date]; ok {
		return rec
	}
	rec := types.DailyRecord{
		Date:           date,
		TotalInventory: cfg.Defaults.TotalInventory,
		Channels:       []types.ChannelAllotment{},
	}
	Recompute(&rec)
	cfg.DailyRecords[date] = rec
	return rec
}

// UpsertChannel applies a partial update to one channel of one date, creating
// the channel entry if absent, then recomputes derived fields and validates
// the record invariants. The config is only mutated when validation passes.
func UpsertChannel(cfg *models.AllotmentConfig, date types.Date, channelID enums.ChannelID, patch ChannelPatch, now time.Time) (types.DailyRecord, error) {
	rec := GetOrSeed(cfg, date)
	// Work on a private copy so a failed validation cannot leak through the
	// shared slice backing array into the stored record.
	rec.Channels = append([]types.ChannelAllotment(nil), rec.Channels...)

	entry := rec.Channel(channelID)
	if entry == nil {
		rec.Channels = append(rec.Channels, types.ChannelAllotment{ChannelID: channelID})
		entry = &rec.Channels[len(rec.Channels)-1]
		if def := cfg.Channel(channelID); def != nil {
			entry.Restrictions = def.Restrictions
		}
	}

	if patch.Allocated != nil {
		entry.Allocated = *patch.Allocated
	}
	if patch.Sold != nil {
		entry.Sold = *patch.Sold
	}
	if patch.Blocked != nil {
		entry.Blocked = *patch.Blocked
	}
	if patch.Rate != nil {
		entry.Rate = *patch.Rate
	}
	if patch.Restrictions != nil {
		entry.Restrictions = *patch.Restrictions
	}
	entry.LastUpdated = now

	Recompute(&rec)
	if err := Validate(rec, cfg.Defaults); err != nil {
		return types.DailyRecord{}, err
	}

	cfg.DailyRecords[date] = rec
	return rec, nil
}

// Recompute re-derives per-channel available/overbooked counters and the
// record-level free stock, total sold and occupancy rate.
func Recompute(rec *types.DailyRecord) {
	totalSold := 0
	allocated := 0
	for i := range rec.Channels {
		ch := &rec.Channels[i]
		ch.Available = ch.Allocated - ch.Sold - ch.Blocked
		if ch.Available < 0 {
			ch.Overbooked = -ch.Available
		} else {
			ch.Overbooked = 0
		}
		totalSold += ch.Sold
		allocated += ch.Allocated
	}
	rec.FreeStock = rec.TotalInventory - allocated
	rec.TotalSold = totalSold
	rec.OccupancyRate = occupancy(totalSold, rec.TotalInventory)
}

// Validate checks the conservation invariants that must hold after every
// successful mutation. The returned error names the violated invariant.
func Validate(rec types.DailyRecord, defaults types.DefaultSettings) error {
	tolerance := defaults.OverbookingTolerance()

	allocated := 0
	for _, ch := range rec.Channels {
		if ch.Allocated < 0 {
			return invariantErr(rec.Date, ch.ChannelID, fmt.Sprintf("allocated %d < 0", ch.Allocated))
		}
		if ch.Sold < 0 {
			return invariantErr(rec.Date, ch.ChannelID, fmt.Sprintf("sold %d < 0", ch.Sold))
		}
		if ch.Blocked < 0 {
			return invariantErr(rec.Date, ch.ChannelID, fmt.Sprintf("blocked %d < 0", ch.Blocked))
		}
		if ch.Available < -tolerance {
			return invariantErr(rec.Date, ch.ChannelID, fmt.Sprintf("available %d below overbooking tolerance %d", ch.Available, tolerance))
		}
		allocated += ch.Allocated
	}

	if limit := rec.TotalInventory + tolerance; allocated > limit {
		return pkgerrors.New(pkgerrors.CodeInvariant,
			fmt.Sprintf("date %s: allocated sum %d exceeds inventory cap %d", rec.Date, allocated, limit))
	}
	if rec.FreeStock != rec.TotalInventory-allocated {
		return pkgerrors.New(pkgerrors.CodeInvariant,
			fmt.Sprintf("date %s: free stock %d inconsistent with inventory %d and allocated %d", rec.Date, rec.FreeStock, rec.TotalInventory, allocated))
	}
	return nil
}

// CapAdjustment describes one channel scaled down by EnforceTotalCap.
type CapAdjustment struct {
	ChannelID enums.ChannelID
	From      int
	To        int
}

// EnforceTotalCap proportionally scales channel allocations down (floor) when
// their sum exceeds total inventory and overbooking is disallowed. It returns
// the adjustments made so the caller can log a warning.
func EnforceTotalCap(rec *types.DailyRecord, defaults types.DefaultSettings) []CapAdjustment {
	if defaults.OverbookingAllowed {
		return nil
	}
	allocated := rec.AllocatedSum()
	if allocated <= rec.TotalInventory || allocated == 0 {
		return nil
	}

	var adjustments []CapAdjustment
	for i := range rec.Channels {
		ch := &rec.Channels[i]
		scaled := ch.Allocated * rec.TotalInventory / allocated
		if scaled != ch.Allocated {
			adjustments = append(adjustments, CapAdjustment{ChannelID: ch.ChannelID, From: ch.Allocated, To: scaled})
			ch.Allocated = scaled
		}
	}
	Recompute(rec)
	return adjustments
}

// RecordsInRange returns the daily records with dates in [start, end]
// inclusive, ascending. Dates never touched are absent, not seeded.
func RecordsInRange(cfg *models.AllotmentConfig, start, end types.Date) []types.DailyRecord {
	var out []types.DailyRecord
	for _, d := range cfg.SortedDates() {
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, cfg.DailyRecords[d])
	}
	return out
}

func occupancy(totalSold, totalInventory int) float64 {
	if totalInventory <= 0 {
		return 0
	}
	rate := float64(totalSold) / float64(totalInventory) * 100
	return math.Round(rate*100) / 100
}

func invariantErr(date types.Date, channel enums.ChannelID, detail string) error {
	return pkgerrors.New(pkgerrors.CodeInvariant,
		fmt.Sprintf("date %s channel %s: %s", date, channel, detail))
}
