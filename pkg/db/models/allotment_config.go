package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roomhive/allotment-backend/pkg/enums"
	"github.com/roomhive/allotment-backend/pkg/types"
)

// AllotmentConfig is the per (hotel, room type) aggregate. Channels, rules,
// daily records and analytics travel with the row as JSONB documents; the
// Version column drives optimistic concurrency and is bumped on every save.
type AllotmentConfig struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	HotelID     uuid.UUID          `gorm:"column:hotel_id;type:uuid;not null"`
	RoomTypeID  uuid.UUID          `gorm:"column:room_type_id;type:uuid;not null"`
	Name        string             `gorm:"column:name;not null"`
	Description string             `gorm:"column:description"`
	Status      enums.ConfigStatus `gorm:"column:status;type:text;not null;default:'active'"`
	Timezone    string             `gorm:"column:timezone;not null;default:'UTC'"`

	Defaults     types.DefaultSettings            `gorm:"column:defaults;type:jsonb;serializer:json"`
	Channels     []types.Channel                  `gorm:"column:channels;type:jsonb;serializer:json"`
	Rules        []types.AllocationRule           `gorm:"column:rules;type:jsonb;serializer:json"`
	DailyRecords map[types.Date]types.DailyRecord `gorm:"column:daily_records;type:jsonb;serializer:json"`
	Analytics    types.Analytics                  `gorm:"column:analytics;type:jsonb;serializer:json"`
	Integration  types.IntegrationSettings        `gorm:"column:integration;type:jsonb;serializer:json"`

	Version   int64          `gorm:"column:version;not null;default:1"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

// TableName pins the table name.
func (AllotmentConfig) TableName() string {
	return "allotment_configs"
}

// Location resolves the hotel timezone, falling back to UTC.
func (c *AllotmentConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Channel returns the channel definition for the id, or nil.
func (c *AllotmentConfig) Channel(id enums.ChannelID) *types.Channel {
	for i := range c.Channels {
		if c.Channels[i].ID == id {
			return &c.Channels[i]
		}
	}
	return nil
}

// Rule returns the allocation rule with the id, or nil.
func (c *AllotmentConfig) Rule(id uuid.UUID) *types.AllocationRule {
	for i := range c.Rules {
		if c.Rules[i].ID == id {
			return &c.Rules[i]
		}
	}
	return nil
}

// SortedDates returns the daily record keys in ascending order.
func (c *AllotmentConfig) SortedDates() []types.Date {
	dates := make([]types.Date, 0, len(c.DailyRecords))
	for d := range c.DailyRecords {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
