package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// AuditAction describes what happened to the audited entity.
type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionEdit   AuditAction = "EDIT"
)

// AuditEntityType identifies the kind of entity an audit record describes.
type AuditEntityType string

const (
	EntityTypePoLine AuditEntityType = "PO_LINE"
	EntityTypePiece  AuditEntityType = "PIECE"
)

// OutboxStatus represents the delivery status of an outbox row
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

// Default retry configuration
const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
)

// OutboxEventLog is an audit event written in the same transaction as the
// domain change it describes. Publication happens after commit; a row is
// never lost because the owning transaction either commits both the data
// change and the row, or neither.
type OutboxEventLog struct {
	ID          uuid.UUID
	TenantID    string
	EntityType  AuditEntityType
	Action      AuditAction
	EntityID    uuid.UUID
	Payload     []byte
	Status      OutboxStatus
	RetryCount  int
	MaxRetries  int
	LastError   string
	NextRetryAt *time.Time
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOutboxEventLog creates a pending outbox row for an entity snapshot
func NewOutboxEventLog(tenantID string, entityType AuditEntityType, action AuditAction, entityID uuid.UUID, payload []byte) *OutboxEventLog {
	now := time.Now()
	return &OutboxEventLog{
		ID:         uuid.New(),
		TenantID:   tenantID,
		EntityType: entityType,
		Action:     action,
		EntityID:   entityID,
		Payload:    payload,
		Status:     OutboxStatusPending,
		MaxRetries: DefaultMaxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// CanRetry returns true if the row can be retried
func (e *OutboxEventLog) CanRetry() bool {
	return e.Status == OutboxStatusFailed && e.RetryCount < e.MaxRetries
}

// MarkSent marks the row as successfully published
func (e *OutboxEventLog) MarkSent() {
	now := time.Now()
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkFailed records a publication failure and schedules the next retry
func (e *OutboxEventLog) MarkFailed(errMsg string) {
	e.RetryCount++
	e.LastError = errMsg
	e.UpdatedAt = time.Now()

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
	} else {
		e.Status = OutboxStatusFailed
		// Exponential backoff: 1s, 2s, 4s, 8s, ...
		backoff := DefaultBaseBackoff * time.Duration(1<<uint(e.RetryCount-1))
		nextRetry := time.Now().Add(backoff)
		e.NextRetryAt = &nextRetry
	}
}

// ResetForRetry resets a dead letter row for another delivery attempt
func (e *OutboxEventLog) ResetForRetry() error {
	if e.Status != OutboxStatusDead {
		return errors.New("can only retry dead letter rows")
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	e.UpdatedAt = time.Now()
	return nil
}

// IsDead returns true if the row is in dead letter status
func (e *OutboxEventLog) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// OutboxRepository defines the interface for outbox persistence
type OutboxRepository interface {
	// Save persists one or more outbox rows
	Save(ctx context.Context, logs ...*OutboxEventLog) error
	// ClaimPending atomically marks pending rows for a tenant as processing
	// and returns them. Rows locked by a concurrent flush are skipped.
	ClaimPending(ctx context.Context, tenantID string, limit int) ([]*OutboxEventLog, error)
	// FindRetryable retrieves failed rows that are due for retry
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*OutboxEventLog, error)
	// FindDead retrieves dead letter rows with pagination
	FindDead(ctx context.Context, page, pageSize int) ([]*OutboxEventLog, int64, error)
	// FindByID retrieves a single outbox row by ID
	FindByID(ctx context.Context, id uuid.UUID) (*OutboxEventLog, error)
	// Update updates an existing outbox row
	Update(ctx context.Context, log *OutboxEventLog) error
	// TenantsWithPending returns the tenants that currently have pending rows
	TenantsWithPending(ctx context.Context, limit int) ([]string, error)
	// DeleteSentOlderThan deletes published rows older than the given time
	DeleteSentOlderThan(ctx context.Context, before time.Time) (int64, error)
	// CountByStatus returns the number of rows per status
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
