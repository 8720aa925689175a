package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/roomhive/allotment-backend/pkg/enums"
	"github.com/roomhive/allotment-backend/pkg/types"
)

// SyncAttempt is a queued channel-manager push. Rows are enqueued in the same
// transaction as the mutation they describe and drained by the sync worker;
// failed rows carry the next retry instant for exponential backoff.
type SyncAttempt struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConfigID    uuid.UUID        `gorm:"column:config_id;type:uuid;not null;index"`
	Kind        enums.SyncKind   `gorm:"column:kind;type:text;not null"`
	StartDate   types.Date       `gorm:"column:start_date;type:date"`
	EndDate     types.Date       `gorm:"column:end_date;type:date"`
	Status      enums.SyncStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Attempts    int              `gorm:"column:attempts;not null;default:0"`
	LastError   string           `gorm:"column:last_error"`
	NextRetryAt time.Time        `gorm:"column:next_retry_at;not null;index"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name.
func (SyncAttempt) TableName() string {
	return "sync_attempts"
}
