package models

import (
	"time"

	"github.com/google/uuid"
)

// ConsortiumConfigModel maps a member tenant to its consortium central tenant.
// The reconciliation engine only reads this table; it is maintained by the
// consortium administration surface.
type ConsortiumConfigModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID        string    `gorm:"type:varchar(63);not null;uniqueIndex:idx_consortium_tenant"`
	CentralTenantID string    `gorm:"type:varchar(63);not null"`
	CentralOrdering bool      `gorm:"not null;default:false"`
	CreatedAt       time.Time `gorm:"not null;default:now()"`
	UpdatedAt       time.Time `gorm:"not null;default:now()"`
}

// TableName returns the table name for GORM
func (ConsortiumConfigModel) TableName() string {
	return "consortium_configs"
}
