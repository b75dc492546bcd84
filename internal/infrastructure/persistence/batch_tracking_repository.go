package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/libhub/orders-storage/internal/domain/inventory"
	"github.com/libhub/orders-storage/internal/infrastructure/persistence/models"
)

// GormBatchTrackingRepository implements the reconciliation BatchTracker using
// GORM. Progress increments go through a single locked upsert so that
// concurrent events for the same batch observe a monotonic counter.
type GormBatchTrackingRepository struct {
	db *gorm.DB
}

// NewGormBatchTrackingRepository creates a new GormBatchTrackingRepository
func NewGormBatchTrackingRepository(db *gorm.DB) *GormBatchTrackingRepository {
	return &GormBatchTrackingRepository{db: db}
}

// IncreaseProgress atomically increments the processed counter for the batch,
// creating the row on first sight, and returns the new count. The conflict
// update takes the row lock, so two events for the same batch serialize here.
func (r *GormBatchTrackingRepository) IncreaseProgress(ctx context.Context, tx *gorm.DB, tenantID string, batch inventory.BatchContext) (int, error) {
	var count int
	err := session(r.db, tx).WithContext(ctx).Raw(`
		INSERT INTO batch_tracking (id, tenant_id, total_expected, processed_count, created_at, updated_at)
		VALUES (?, ?, ?, 1, now(), now())
		ON CONFLICT (id, tenant_id)
		DO UPDATE SET processed_count = batch_tracking.processed_count + 1, updated_at = now()
		RETURNING processed_count`,
		batch.ID, tenantID, batch.TotalExpected,
	).Scan(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to increase batch progress for %s: %w", batch.ID, err)
	}
	return count, nil
}

// Delete removes the tracking row for the batch. Deleting an already-removed
// row is a success.
func (r *GormBatchTrackingRepository) Delete(ctx context.Context, tx *gorm.DB, tenantID string, batchID uuid.UUID) error {
	return session(r.db, tx).WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, batchID).
		Delete(&models.BatchTrackingModel{}).Error
}

// Cleanup removes stale rows whose batch never completed, across all tenants,
// and returns the number removed
func (r *GormBatchTrackingRepository) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", time.Now().Add(-maxAge)).
		Delete(&models.BatchTrackingModel{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
