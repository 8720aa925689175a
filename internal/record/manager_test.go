package record

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	pkgerrors "github.com/roomhive/allotment-backend/pkg/errors"
	"github.com/roomhive/allotment-backend/pkg/types"
)

func intPtr(v int) *int { return &v }

func testConfig(inventory int) *models.AllotmentConfig {
	return &models.AllotmentConfig{
		Defaults: types.DefaultSettings{TotalInventory: inventory},
		Channels: []types.Channel{
			{ID: enums.ChannelDirect, Name: "Direct", Active: true},
			{ID: enums.ChannelBookingCom, Name: "Booking.com", Active: true},
		},
	}
}

func TestGetOrSeedCreatesRecordFromDefaults(t *testing.T) {
	cfg := testConfig(10)
	date := types.NewDate(2023, time.June, 1)

	rec := GetOrSeed(cfg, date)
	if rec.TotalInventory != 10 {
		t.Fatalf("expected seeded inventory 10, got %d", rec.TotalInventory)
	}
	if rec.FreeStock != 10 {
		t.Fatalf("expected free stock 10 on empty record, got %d", rec.FreeStock)
	}
	if len(rec.Channels) != 0 {
		t.Fatalf("expected no channel entries on seed, got %d", len(rec.Channels))
	}
	if _, ok := cfg.DailyRecords[date]; !ok {
		t.Fatalf("seeded record was not stored on the config")
	}

	again := GetOrSeed(cfg, date)
	if again.TotalInventory != rec.TotalInventory {
		t.Fatalf("second call should return the stored record")
	}
}

func TestUpsertChannelCreatesAndRecomputes(t *testing.T) {
	cfg := testConfig(10)
	date := types.NewDate(2023, time.June, 1)
	now := time.Now()

	rec, err := UpsertChannel(cfg, date, enums.ChannelDirect, ChannelPatch{
		Allocated: intPtr(8),
		Sold:      intPtr(3),
	}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ch := rec.Channel(enums.ChannelDirect)
	if ch == nil {
		t.Fatalf("channel entry not created")
	}
	if ch.Available != 5 {
		t.Fatalf("expected available 5, got %d", ch.Available)
	}
	if rec.FreeStock != 2 {
		t.Fatalf("expected free stock 2, got %d", rec.FreeStock)
	}
	if rec.TotalSold != 3 {
		t.Fatalf("expected total sold 3, got %d", rec.TotalSold)
	}
	if rec.OccupancyRate != 30 {
		t.Fatalf("expected occupancy 30, got %f", rec.OccupancyRate)
	}
	if ch.LastUpdated != now {
		t.Fatalf("last updated not stamped")
	}
}

func TestUpsertChannelSnapshotsChannelRestrictions(t *testing.T) {
	cfg := testConfig(10)
	cfg.Channels[0].Restrictions = types.Restrictions{MinStay: 2}
	date := types.NewDate(2023, time.June, 1)

	rec, err := UpsertChannel(cfg, date, enums.ChannelDirect, ChannelPatch{Allocated: intPtr(5)}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Channel(enums.ChannelDirect).Restrictions.MinStay; got != 2 {
		t.Fatalf("expected min stay snapshot 2, got %d", got)
	}
}

func TestUpsertChannelRejectsOversell(t *testing.T) {
	cfg := testConfig(10)
	date := types.NewDate(2023, time.June, 1)

	if _, err := UpsertChannel(cfg, date, enums.ChannelDirect, ChannelPatch{
		Allocated: intPtr(5),
		Sold:      intPtr(6),
	}, time.Now()); !pkgerrors.IsCode(err, pkgerrors.CodeInvariant) {
		t.Fatalf("expected invariant violation, got %v", err)
	}

	// rejection must not leave a partial channel entry behind
	rec := cfg.DailyRecords[date]
	if rec.Channel(enums.ChannelDirect) != nil && rec.Channel(enums.ChannelDirect).Sold != 0 {
		t.Fatalf("rejected mutation leaked into stored record")
	}
}

func TestUpsertChannelAllowsOverbookingWithinLimit(t *testing.T) {
	cfg := testConfig(10)
	cfg.Defaults.OverbookingAllowed = true
	cfg.Defaults.OverbookingLimit = 2
	date := types.NewDate(2023, time.June, 1)

	rec, err := UpsertChannel(cfg, date, enums.ChannelDirect, ChannelPatch{
		Allocated: intPtr(10),
		Sold:      intPtr(12),
	}, time.Now())
	if err != nil {
		t.Fatalf("expected overbooking within limit to pass: %v", err)
	}
	ch := rec.Channel(enums.ChannelDirect)
	if ch.Available != -2 {
		t.Fatalf("expected available -2, got %d", ch.Available)
	}
	if ch.Overbooked != 2 {
		t.Fatalf("expected overbooked counter 2, got %d", ch.Overbooked)
	}

	if _, err := UpsertChannel(cfg, date, enums.ChannelDirect, ChannelPatch{
		Sold: intPtr(13),
	}, time.Now()); !pkgerrors.IsCode(err, pkgerrors.CodeInvariant) {
		t.Fatalf("expected invariant violation one past the limit, got %v", err)
	}
}

func TestUpsertChannelRejectsNegativeCounts(t *testing.T) {
	cfg := testConfig(10)
	date := types.NewDate(2023, time.June, 1)

	if _, err := UpsertChannel(cfg, date, enums.ChannelDirect, ChannelPatch{
		Allocated: intPtr(-1),
	}, time.Now()); !pkgerrors.IsCode(err, pkgerrors.CodeInvariant) {
		t.Fatalf("expected invariant violation for negative allocated, got %v", err)
	}
}

func TestOccupancyZeroInventory(t *testing.T) {
	cfg := testConfig(0)
	date := types.NewDate(2023, time.June, 1)

	rec := GetOrSeed(cfg, date)
	if rec.OccupancyRate != 0 {
		t.Fatalf("occupancy must be 0 with zero inventory, got %f", rec.OccupancyRate)
	}
}

func TestOccupancyRoundsToTwoDecimals(t *testing.T) {
	rec := types.DailyRecord{
		TotalInventory: 3,
		Channels: []types.ChannelAllotment{
			{ChannelID: enums.ChannelDirect, Allocated: 3, Sold: 1},
		},
	}
	Recompute(&rec)
	if rec.OccupancyRate != 33.33 {
		t.Fatalf("expected occupancy 33.33, got %f", rec.OccupancyRate)
	}
}

func TestEnforceTotalCapScalesProportionally(t *testing.T) {
	rec := types.DailyRecord{
		TotalInventory: 10,
		Channels: []types.ChannelAllotment{
			{ChannelID: enums.ChannelDirect, Allocated: 12},
			{ChannelID: enums.ChannelBookingCom, Allocated: 8},
		},
	}
	Recompute(&rec)

	adjustments := EnforceTotalCap(&rec, types.DefaultSettings{TotalInventory: 10})
	if len(adjustments) != 2 {
		t.Fatalf("expected both channels adjusted, got %d", len(adjustments))
	}
	if rec.Channels[0].Allocated != 6 || rec.Channels[1].Allocated != 4 {
		t.Fatalf("expected floor-scaled allocations 6/4, got %d/%d", rec.Channels[0].Allocated, rec.Channels[1].Allocated)
	}
	if rec.AllocatedSum() > rec.TotalInventory {
		t.Fatalf("cap still exceeded after scaling")
	}
	if rec.FreeStock != 0 {
		t.Fatalf("expected free stock 0 after scaling, got %d", rec.FreeStock)
	}
}

func TestEnforceTotalCapNoopWhenOverbookingAllowed(t *testing.T) {
	rec := types.DailyRecord{
		TotalInventory: 10,
		Channels: []types.ChannelAllotment{
			{ChannelID: enums.ChannelDirect, Allocated: 12},
		},
	}
	Recompute(&rec)

	if got := EnforceTotalCap(&rec, types.DefaultSettings{TotalInventory: 10, OverbookingAllowed: true}); got != nil {
		t.Fatalf("expected no adjustments with overbooking allowed, got %v", got)
	}
	if rec.Channels[0].Allocated != 12 {
		t.Fatalf("allocation must be untouched")
	}
}

func TestRecordsInRangeAscendingAndClipped(t *testing.T) {
	cfg := testConfig(10)
	for _, day := range []int{5, 1, 3, 9} {
		GetOrSeed(cfg, types.NewDate(2023, time.June, day))
	}

	recs := RecordsInRange(cfg, types.NewDate(2023, time.June, 2), types.NewDate(2023, time.June, 5))
	if len(recs) != 2 {
		t.Fatalf("expected 2 records in range, got %d", len(recs))
	}
	if recs[0].Date.Day != 3 || recs[1].Date.Day != 5 {
		t.Fatalf("expected ascending dates 3,5 got %d,%d", recs[0].Date.Day, recs[1].Date.Day)
	}
}

func TestChannelPatchEmpty(t *testing.T) {
	if !(ChannelPatch{}).Empty() {
		t.Fatalf("zero patch should be empty")
	}
	rate := decimal.NewFromInt(120)
	if (ChannelPatch{Rate: &rate}).Empty() {
		t.Fatalf("patch with rate should not be empty")
	}
}
