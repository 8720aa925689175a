package allotment

import (
	"time"

	"github.com/google/uuid"

	"github.com/roomhive/allotment-backend/pkg/db/models"
	"github.com/roomhive/allotment-backend/pkg/enums"
	"github.com/roomhive/allotment-backend/pkg/types"
)

// CreateConfigInput carries everything needed to open a room type for
// allotment management.
type CreateConfigInput struct {
	HotelID     uuid.UUID              `json:"hotel_id" validate:"required"`
	RoomTypeID  uuid.UUID              `json:"room_type_id" validate:"required"`
	Name        string                 `json:"name" validate:"required,max=200"`
	Description string                 `json:"description" validate:"max=2000"`
	Timezone    string                 `json:"timezone"`
	Defaults    types.DefaultSettings  `json:"defaults"`
	Channels    []types.Channel        `json:"channels" validate:"min=1,dive"`
	Rules       []types.AllocationRule `json:"rules" validate:"dive"`

	ActorID string `json:"-"`
}

// UpdateConfigInput is a partial patch; nil fields are untouched.
type UpdateConfigInput struct {
	Name        *string                    `json:"name,omitempty" validate:"omitempty,max=200"`
	Description *string                    `json:"description,omitempty" validate:"omitempty,max=2000"`
	Status      *enums.ConfigStatus        `json:"status,omitempty"`
	Timezone    *string                    `json:"timezone,omitempty"`
	Defaults    *types.DefaultSettings     `json:"defaults,omitempty"`
	Channels    []types.Channel            `json:"channels,omitempty" validate:"omitempty,dive"`
	Rules       []types.AllocationRule     `json:"rules,omitempty" validate:"omitempty,dive"`
	Integration *types.IntegrationSettings `json:"integration,omitempty"`

	ActorID string `json:"-"`
}

// ConfigFilters narrow list queries.
type ConfigFilters struct {
	Status     *enums.ConfigStatus
	RoomTypeID *uuid.UUID
	Query      string
}

// ConfigSummary is the list-row projection of a config.
type ConfigSummary struct {
	ID             uuid.UUID          `json:"id"`
	HotelID        uuid.UUID          `json:"hotel_id"`
	RoomTypeID     uuid.UUID          `json:"room_type_id"`
	Name           string             `json:"name"`
	Status         enums.ConfigStatus `json:"status"`
	TotalInventory int                `json:"total_inventory"`
	ChannelCount   int                `json:"channel_count"`
	NeedsSync      bool               `json:"needs_sync"`
	Version        int64              `json:"version"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// ConfigList is one page of config summaries.
type ConfigList struct {
	Configs    []ConfigSummary `json:"configs"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// ConfigView is a config with its daily records clipped to a date range.
type ConfigView struct {
	Config  *models.AllotmentConfig `json:"config"`
	Records []types.DailyRecord     `json:"records"`
}

// AvailabilityDay reports sellable rooms for one date.
type AvailabilityDay struct {
	Date      types.Date            `json:"date"`
	FreeStock int                   `json:"free_stock"`
	Channels  []ChannelAvailability `json:"channels"`
	Blackout  bool                  `json:"blackout"`
}

// ChannelAvailability is one channel's sellable count on a date.
type ChannelAvailability struct {
	ChannelID enums.ChannelID `json:"channel_id"`
	Allocated int             `json:"allocated"`
	Available int             `json:"available"`
	StopSell  bool            `json:"stop_sell"`
}

// LogDraft describes the change-log entry a mutation should append.
type LogDraft struct {
	ActorID       string
	Action        enums.ChangeAction
	ChangedFields []string
	Reason        string
}
