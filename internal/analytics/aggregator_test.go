package analytics

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	"github.com/roomhive/allotment-backend/pkg/types"
)

func newAnalyticsConfig() *models.AllotmentConfig {
	return &models.AllotmentConfig{
		ID:         uuid.New(),
		HotelID:    uuid.New(),
		RoomTypeID: uuid.New(),
		Name:       "Deluxe Double",
		Status:     enums.ConfigStatusActive,
		Timezone:   "UTC",
		Defaults:   types.DefaultSettings{TotalInventory: 10},
		Channels: []types.Channel{
			{ID: enums.ChannelDirect, Active: true},
			{ID: enums.ChannelBookingCom, Active: true},
		},
		DailyRecords: map[types.Date]types.DailyRecord{},
		Version:      1,
	}
}

func seedAnalyticsDay(cfg *models.AllotmentConfig, d types.Date, directSold, bookingSold int) {
	cfg.DailyRecords[d] = types.DailyRecord{
		Date:           d,
		TotalInventory: 10,
		Channels: []types.ChannelAllotment{
			{ChannelID: enums.ChannelDirect, Allocated: 6, Sold: directSold, Rate: decimal.NewFromInt(100)},
			{ChannelID: enums.ChannelBookingCom, Allocated: 4, Sold: bookingSold, Rate: decimal.NewFromInt(150)},
		},
		TotalSold:     directSold + bookingSold,
		OccupancyRate: float64(directSold+bookingSold) * 10,
	}
}

func TestComputeWindowMetrics(t *testing.T) {
	cfg := newAnalyticsConfig()
	start := types.NewDate(2023, time.June, 1)
	seedAnalyticsDay(cfg, start, 3, 2)
	seedAnalyticsDay(cfg, start.AddDays(1), 6, 4)
	end := start.AddDays(1)

	window := ComputeWindow(cfg, start, end)

	direct := window.Channels[enums.ChannelDirect]
	if direct.Allocated != 12 || direct.Sold != 9 {
		t.Fatalf("direct sums = %d/%d, want 12/9", direct.Allocated, direct.Sold)
	}
	if !direct.Revenue.Equal(decimal.NewFromInt(900)) {
		t.Errorf("direct revenue = %s, want 900", direct.Revenue)
	}
	if !direct.ADR.Equal(decimal.NewFromInt(100)) {
		t.Errorf("direct ADR = %s, want 100", direct.ADR)
	}
	if direct.UtilizationPct != 75 || direct.ConversionPct != 75 {
		t.Errorf("direct utilization = %v, want 75", direct.UtilizationPct)
	}
	if !direct.RevPAR.Equal(decimal.NewFromInt(75)) {
		t.Errorf("direct RevPAR = %s, want 75", direct.RevPAR)
	}

	overall := window.Overall
	if overall.Allocated != 20 || overall.Sold != 15 {
		t.Fatalf("overall sums = %d/%d, want 20/15", overall.Allocated, overall.Sold)
	}
	if !overall.Revenue.Equal(decimal.NewFromInt(1800)) {
		t.Errorf("overall revenue = %s, want 1800", overall.Revenue)
	}
	if !overall.ADR.Equal(decimal.NewFromInt(120)) {
		t.Errorf("overall ADR = %s, want 120", overall.ADR)
	}
	if overall.AverageOccupancyPct != 75 {
		t.Errorf("average occupancy = %v, want 75", overall.AverageOccupancyPct)
	}
}

func TestComputeWindowIsDeterministic(t *testing.T) {
	cfg := newAnalyticsConfig()
	start := types.NewDate(2023, time.June, 1)
	for i := 0; i < 5; i++ {
		seedAnalyticsDay(cfg, start.AddDays(i), i, 5-i)
	}
	end := start.AddDays(4)

	first := ComputeWindow(cfg, start, end)
	second := ComputeWindow(cfg, start, end)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("re-running the aggregator changed the metrics")
	}
}

func TestComputeWindowEmptyRange(t *testing.T) {
	cfg := newAnalyticsConfig()
	start := types.NewDate(2023, time.June, 1)

	window := ComputeWindow(cfg, start, start.AddDays(6))
	if len(window.Channels) != 0 {
		t.Fatalf("expected no channel metrics, got %d", len(window.Channels))
	}
	if window.Overall.AverageOccupancyPct != 0 {
		t.Fatal("occupancy over an empty range must be 0, not NaN")
	}
	if !window.Overall.ADR.Equal(decimal.Zero) {
		t.Fatal("ADR with zero sold must be 0")
	}
}

func TestRecommendThresholds(t *testing.T) {
	now := time.Date(2023, time.June, 8, 0, 0, 0, 0, time.UTC)
	window := types.MetricsWindow{
		Channels: map[enums.ChannelID]types.ChannelMetrics{
			enums.ChannelDirect:     {Allocated: 10, Sold: 1, UtilizationPct: 10, ConversionPct: 10},
			enums.ChannelBookingCom: {Allocated: 10, Sold: 10, UtilizationPct: 95, ConversionPct: 95},
			enums.ChannelExpedia:    {Allocated: 10, Sold: 7, UtilizationPct: 70, ConversionPct: 70},
			enums.ChannelAirbnb:     {Allocated: 0},
		},
	}

	recs := Recommend(window, now)

	byType := map[enums.RecommendationType][]types.Recommendation{}
	for _, r := range recs {
		byType[r.Type] = append(byType[r.Type], r)
	}

	decreases := byType[enums.RecommendationDecreaseAllocation]
	if len(decreases) != 1 || decreases[0].ChannelID != enums.ChannelDirect {
		t.Fatalf("unexpected decrease recommendations: %+v", decreases)
	}
	if decreases[0].Priority != enums.RecommendationPriorityMedium || decreases[0].Confidence != 75 {
		t.Errorf("decrease priority/confidence = %s/%d", decreases[0].Priority, decreases[0].Confidence)
	}

	increases := byType[enums.RecommendationIncreaseAllocation]
	if len(increases) != 1 || increases[0].ChannelID != enums.ChannelBookingCom {
		t.Fatalf("unexpected increase recommendations: %+v", increases)
	}
	if increases[0].Priority != enums.RecommendationPriorityHigh || increases[0].Confidence != 85 {
		t.Errorf("increase priority/confidence = %s/%d", increases[0].Priority, increases[0].Confidence)
	}

	adjusts := byType[enums.RecommendationAdjustRates]
	if len(adjusts) != 1 || adjusts[0].ChannelID != enums.ChannelDirect {
		t.Fatalf("unexpected rate recommendations: %+v", adjusts)
	}

	for _, r := range recs {
		if r.ChannelID == enums.ChannelAirbnb {
			t.Fatal("channels without allocation must not produce recommendations")
		}
	}
}

func TestMergeWindowReplacesAndEvicts(t *testing.T) {
	now := time.Date(2023, time.June, 8, 0, 0, 0, 0, time.UTC)
	old := types.MetricsWindow{
		Start: types.NewDate(2022, time.January, 1),
		End:   types.NewDate(2022, time.January, 31),
	}
	current := types.MetricsWindow{
		Start: types.NewDate(2023, time.June, 1),
		End:   types.NewDate(2023, time.June, 7),
	}

	windows := mergeWindow([]types.MetricsWindow{old}, current, now)
	if len(windows) != 1 || windows[0].Start != current.Start {
		t.Fatalf("expected eviction of stale window, got %+v", windows)
	}

	replacement := current
	replacement.Overall.Sold = 42
	windows = mergeWindow(windows, replacement, now)
	if len(windows) != 1 || windows[0].Overall.Sold != 42 {
		t.Fatalf("expected in-place replacement, got %+v", windows)
	}
}
