package models

import (
	"time"

	"github.com/google/uuid"
)

// BatchTrackingModel is the durable progress counter for multi-event batches.
// One row per (batch id, tenant); the processed counter is only ever touched
// through the locked upsert in the repository.
type BatchTrackingModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID       string    `gorm:"type:varchar(63);primaryKey"`
	TotalExpected  int       `gorm:"not null"`
	ProcessedCount int       `gorm:"not null;default:0"`
	CreatedAt      time.Time `gorm:"not null;default:now();index:idx_batch_tracking_created"`
	UpdatedAt      time.Time `gorm:"not null;default:now()"`
}

// TableName returns the table name for GORM
func (BatchTrackingModel) TableName() string {
	return "batch_tracking"
}
