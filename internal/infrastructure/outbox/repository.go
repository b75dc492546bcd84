package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/libhub/orders-storage/internal/domain/shared"
	"github.com/libhub/orders-storage/internal/infrastructure/persistence/models"
)

// GormOutboxRepository implements shared.OutboxRepository using GORM
type GormOutboxRepository struct {
	db *gorm.DB
}

// NewGormOutboxRepository creates a new GORM-based outbox repository
func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

// WithTx returns a new repository instance bound to the given transaction
func (r *GormOutboxRepository) WithTx(tx *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: tx}
}

// Save persists one or more outbox rows
func (r *GormOutboxRepository) Save(ctx context.Context, logs ...*shared.OutboxEventLog) error {
	if len(logs) == 0 {
		return nil
	}

	ms := make([]*models.OutboxEventLogModel, len(logs))
	for i, l := range logs {
		ms[i] = models.OutboxEventLogModelFromDomain(l)
	}
	return r.db.WithContext(ctx).Create(ms).Error
}

// ClaimPending atomically marks pending rows for a tenant as processing and
// returns them. Rows locked by a concurrent flush are skipped, so two flushes
// for the same tenant never publish the same row twice.
func (r *GormOutboxRepository) ClaimPending(ctx context.Context, tenantID string, limit int) ([]*shared.OutboxEventLog, error) {
	var claimed []*shared.OutboxEventLog

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ms []models.OutboxEventLogModel
		if err := tx.
			Clauses(clause.Locking{
				Strength: "UPDATE",
				Options:  "SKIP LOCKED",
			}).
			Where("tenant_id = ? AND status = ?", tenantID, shared.OutboxStatusPending).
			Order("created_at ASC").
			Limit(limit).
			Find(&ms).Error; err != nil {
			return err
		}

		if len(ms) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, len(ms))
		for i := range ms {
			ids[i] = ms[i].ID
		}

		now := time.Now()
		if err := tx.Model(&models.OutboxEventLogModel{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":     shared.OutboxStatusProcessing,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		claimed = make([]*shared.OutboxEventLog, len(ms))
		for i := range ms {
			log := ms[i].ToDomain()
			log.Status = shared.OutboxStatusProcessing
			log.UpdatedAt = now
			claimed[i] = log
		}
		return nil
	})

	return claimed, err
}

// FindRetryable retrieves failed rows that are due for retry
func (r *GormOutboxRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEventLog, error) {
	var ms []models.OutboxEventLogModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", shared.OutboxStatusFailed, before).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	return toDomainLogs(ms), nil
}

// FindDead retrieves dead letter rows with pagination
func (r *GormOutboxRepository) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEventLog, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.OutboxEventLogModel{}).
		Where("status = ?", shared.OutboxStatusDead).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ms []models.OutboxEventLogModel
	offset := (page - 1) * pageSize
	if err := r.db.WithContext(ctx).
		Where("status = ?", shared.OutboxStatusDead).
		Order("updated_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	return toDomainLogs(ms), total, nil
}

// FindByID retrieves a single outbox row by ID
func (r *GormOutboxRepository) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEventLog, error) {
	var m models.OutboxEventLogModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// Update updates an existing outbox row
func (r *GormOutboxRepository) Update(ctx context.Context, log *shared.OutboxEventLog) error {
	log.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(models.OutboxEventLogModelFromDomain(log)).Error
}

// TenantsWithPending returns the tenants that currently have pending rows
func (r *GormOutboxRepository) TenantsWithPending(ctx context.Context, limit int) ([]string, error) {
	var tenants []string
	err := r.db.WithContext(ctx).
		Model(&models.OutboxEventLogModel{}).
		Where("status = ?", shared.OutboxStatusPending).
		Distinct("tenant_id").
		Limit(limit).
		Pluck("tenant_id", &tenants).Error
	return tenants, err
}

// DeleteSentOlderThan deletes published rows older than the given time
func (r *GormOutboxRepository) DeleteSentOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", shared.OutboxStatusSent, before).
		Delete(&models.OutboxEventLogModel{})
	return result.RowsAffected, result.Error
}

// CountByStatus returns the number of rows per status
func (r *GormOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	type statusCount struct {
		Status shared.OutboxStatus
		Count  int64
	}

	var results []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.OutboxEventLogModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[shared.OutboxStatus]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

func toDomainLogs(ms []models.OutboxEventLogModel) []*shared.OutboxEventLog {
	logs := make([]*shared.OutboxEventLog, len(ms))
	for i := range ms {
		logs[i] = ms[i].ToDomain()
	}
	return logs
}

// Ensure GormOutboxRepository implements OutboxRepository
var _ shared.OutboxRepository = (*GormOutboxRepository)(nil)
