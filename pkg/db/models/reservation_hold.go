package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/roomhive/allotment-backend/pkg/enums"
	"github.com/roomhive/allotment-backend/pkg/types"
)

// ReservationHold is an unpaid booking parked against channel inventory. The
// booking system writes these rows; the auto-release sweeper returns expired
// pending holds to the sellable pool.
type ReservationHold struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConfigID    uuid.UUID        `gorm:"column:config_id;type:uuid;not null;index"`
	ChannelID   enums.ChannelID  `gorm:"column:channel_id;type:text;not null"`
	CheckIn     types.Date       `gorm:"column:check_in;type:date;not null"`
	CheckOut    types.Date       `gorm:"column:check_out;type:date;not null"`
	Rooms       int              `gorm:"column:rooms;not null"`
	Status      enums.HoldStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	ExternalRef string           `gorm:"column:external_ref"`
	ReleasedAt  *time.Time       `gorm:"column:released_at"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name.
func (ReservationHold) TableName() string {
	return "reservation_holds"
}
