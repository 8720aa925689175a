package types

import (
	"time"

	"github.com/roomhive/allotment-backend/pkg/enums"
)

// DefaultSettings seed new daily records and gate engine behavior.
type DefaultSettings struct {
	TotalInventory     int                    `json:"total_inventory"`
	AllocationMethod   enums.AllocationMethod `json:"allocation_method"`
	OverbookingAllowed bool                   `json:"overbooking_allowed"`
	OverbookingLimit   int                    `json:"overbooking_limit"`
	ReleaseWindowHours int                    `json:"release_window_hours"`
	AutoRelease        bool                   `json:"auto_release"`
	BlockPeriodDays    int                    `json:"block_period_days"`
}

// OverbookingTolerance returns the number of rooms sold may exceed allocated
// by, zero when overbooking is disallowed.
func (s DefaultSettings) OverbookingTolerance() int {
	if !s.OverbookingAllowed || s.OverbookingLimit < 0 {
		return 0
	}
	return s.OverbookingLimit
}

// IntegrationSettings hold the external channel-manager wiring for a config.
type IntegrationSettings struct {
	ChannelManager ChannelManagerSettings `json:"channel_manager"`
}

// ChannelManagerSettings control outbound sync behavior.
type ChannelManagerSettings struct {
	Enabled              bool       `json:"enabled"`
	ManagerID            string     `json:"manager_id,omitempty"`
	AutoSync             bool       `json:"auto_sync"`
	SyncFrequencyMinutes int        `json:"sync_frequency_minutes"`
	NeedsSync            bool       `json:"needs_sync"`
	LastSyncedAt         *time.Time `json:"last_synced_at,omitempty"`
}
