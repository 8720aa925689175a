package types

import (
	"time"

	"github.com/roomhive/allotment-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// DailyRecord holds one calendar day of inventory for a room type, split
// across channels. Derived fields (FreeStock, TotalSold, OccupancyRate and
// per-channel Available) are recomputed by the record manager after every
// mutation, never edited directly.
type DailyRecord struct {
	Date           Date               `json:"date"`
	TotalInventory int                `json:"total_inventory"`
	Channels       []ChannelAllotment `json:"channels"`
	FreeStock      int                `json:"free_stock"`
	TotalSold      int                `json:"total_sold"`
	OccupancyRate  float64            `json:"occupancy_rate"`
	Holiday        bool               `json:"holiday"`
	Blackout       bool               `json:"blackout"`
	Notes          string             `json:"notes,omitempty"`
}

// ChannelAllotment is one channel's slice of a daily record.
type ChannelAllotment struct {
	ChannelID    enums.ChannelID `json:"channel_id"`
	Allocated    int             `json:"allocated"`
	Sold         int             `json:"sold"`
	Available    int             `json:"available"`
	Blocked      int             `json:"blocked"`
	Overbooked   int             `json:"overbooked"`
	Rate         decimal.Decimal `json:"rate"`
	Restrictions Restrictions    `json:"restrictions"`
	LastUpdated  time.Time       `json:"last_updated"`
}

// Channel returns the allotment entry for the channel, or nil.
func (r *DailyRecord) Channel(id enums.ChannelID) *ChannelAllotment {
	for i := range r.Channels {
		if r.Channels[i].ChannelID == id {
			return &r.Channels[i]
		}
	}
	return nil
}

// AllocatedSum is the total rooms handed to channels on this day.
func (r *DailyRecord) AllocatedSum() int {
	sum := 0
	for i := range r.Channels {
		sum += r.Channels[i].Allocated
	}
	return sum
}
