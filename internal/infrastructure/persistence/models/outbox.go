package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/libhub/orders-storage/internal/domain/shared"
)

// OutboxEventLogModel is the persistence model for audit rows written through
// the transactional outbox. A row is inserted in the same transaction as the
// domain change it describes and published after commit.
type OutboxEventLogModel struct {
	ID          uuid.UUID              `gorm:"type:uuid;primaryKey"`
	TenantID    string                 `gorm:"type:varchar(63);not null;index:idx_outbox_tenant_status,priority:1"`
	EntityType  shared.AuditEntityType `gorm:"type:varchar(32);not null"`
	Action      shared.AuditAction     `gorm:"type:varchar(16);not null"`
	EntityID    uuid.UUID              `gorm:"type:uuid;not null"`
	Payload     []byte                 `gorm:"type:jsonb;not null"`
	Status      shared.OutboxStatus    `gorm:"type:varchar(20);default:PENDING;index:idx_outbox_tenant_status,priority:2;index:idx_outbox_status_created,priority:1"`
	RetryCount  int                    `gorm:"default:0"`
	MaxRetries  int                    `gorm:"default:5"`
	LastError   string                 `gorm:"type:text"`
	NextRetryAt *time.Time             `gorm:"index:idx_outbox_next_retry"`
	ProcessedAt *time.Time
	CreatedAt   time.Time `gorm:"not null;default:now();index:idx_outbox_status_created,priority:2"`
	UpdatedAt   time.Time `gorm:"not null;default:now()"`
}

// TableName returns the table name for GORM
func (OutboxEventLogModel) TableName() string {
	return "outbox_event_logs"
}

// ToDomain converts the persistence model to a domain OutboxEventLog
func (m *OutboxEventLogModel) ToDomain() *shared.OutboxEventLog {
	return &shared.OutboxEventLog{
		ID:          m.ID,
		TenantID:    m.TenantID,
		EntityType:  m.EntityType,
		Action:      m.Action,
		EntityID:    m.EntityID,
		Payload:     m.Payload,
		Status:      m.Status,
		RetryCount:  m.RetryCount,
		MaxRetries:  m.MaxRetries,
		LastError:   m.LastError,
		NextRetryAt: m.NextRetryAt,
		ProcessedAt: m.ProcessedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain OutboxEventLog
func (m *OutboxEventLogModel) FromDomain(e *shared.OutboxEventLog) {
	m.ID = e.ID
	m.TenantID = e.TenantID
	m.EntityType = e.EntityType
	m.Action = e.Action
	m.EntityID = e.EntityID
	m.Payload = e.Payload
	m.Status = e.Status
	m.RetryCount = e.RetryCount
	m.MaxRetries = e.MaxRetries
	m.LastError = e.LastError
	m.NextRetryAt = e.NextRetryAt
	m.ProcessedAt = e.ProcessedAt
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// OutboxEventLogModelFromDomain creates a new persistence model from a domain
// OutboxEventLog
func OutboxEventLogModelFromDomain(e *shared.OutboxEventLog) *OutboxEventLogModel {
	m := &OutboxEventLogModel{}
	m.FromDomain(e)
	return m
}
