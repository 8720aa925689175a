package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/roomhive/allotment-backend/pkg/enums"
)

// ChangeLogEntry is one append-only audit record for a config mutation. Rows
// are written in the same transaction as the config save.
type ChangeLogEntry struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConfigID      uuid.UUID          `gorm:"column:config_id;type:uuid;not null;index"`
	OccurredAt    time.Time          `gorm:"column:occurred_at;not null;index"`
	ActorID       string             `gorm:"column:actor_id;not null"`
	Action        enums.ChangeAction `gorm:"column:action;type:text;not null"`
	ChangedFields pq.StringArray     `gorm:"column:changed_fields;type:text[]"`
	Reason        string             `gorm:"column:reason"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// TableName pins the table name.
func (ChangeLogEntry) TableName() string {
	return "change_log_entries"
}
