package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/libhub/orders-storage/internal/domain/orders"
	"github.com/libhub/orders-storage/internal/infrastructure/persistence/models"
)

// GormPieceRepository implements the reconciliation PieceStore using GORM
type GormPieceRepository struct {
	db *gorm.DB
}

// NewGormPieceRepository creates a new GormPieceRepository
func NewGormPieceRepository(db *gorm.DB) *GormPieceRepository {
	return &GormPieceRepository{db: db}
}

// FindByItemID returns the pieces linked to the given inventory item
func (r *GormPieceRepository) FindByItemID(ctx context.Context, tx *gorm.DB, tenantID string, itemID uuid.UUID) ([]orders.Piece, error) {
	var ms []models.PieceModel
	if err := session(r.db, tx).WithContext(ctx).
		Where("tenant_id = ? AND item_id = ?", tenantID, itemID).
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return toDomainPieces(ms), nil
}

// FindByHoldingID returns the pieces linked to the given holding
func (r *GormPieceRepository) FindByHoldingID(ctx context.Context, tx *gorm.DB, tenantID string, holdingID uuid.UUID) ([]orders.Piece, error) {
	var ms []models.PieceModel
	if err := session(r.db, tx).WithContext(ctx).
		Where("tenant_id = ? AND holding_id = ?", tenantID, holdingID).
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return toDomainPieces(ms), nil
}

// ExistsByItemID reports whether any piece references the given item id
func (r *GormPieceRepository) ExistsByItemID(ctx context.Context, tx *gorm.DB, tenantID string, itemID uuid.UUID) (bool, error) {
	var count int64
	if err := session(r.db, tx).WithContext(ctx).
		Model(&models.PieceModel{}).
		Where("tenant_id = ? AND item_id = ?", tenantID, itemID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateBatch persists the reconciliation-owned fields of the given pieces
func (r *GormPieceRepository) UpdateBatch(ctx context.Context, tx *gorm.DB, tenantID string, pieces []orders.Piece) error {
	db := session(r.db, tx).WithContext(ctx)
	for i := range pieces {
		m := models.PieceModelFromDomain(tenantID, &pieces[i])
		m.UpdatedAt = time.Now()
		if err := db.Model(&models.PieceModel{}).
			Where("tenant_id = ? AND id = ?", tenantID, m.ID).
			Select("holding_id", "receiving_tenant_id", "barcode", "call_number", "accession_number", "updated_at").
			Updates(m).Error; err != nil {
			return fmt.Errorf("failed to update piece %s: %w", m.ID, err)
		}
	}
	return nil
}

func toDomainPieces(ms []models.PieceModel) []orders.Piece {
	pieces := make([]orders.Piece, 0, len(ms))
	for i := range ms {
		pieces = append(pieces, ms[i].ToDomain())
	}
	return pieces
}
