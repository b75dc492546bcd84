package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/libhub/orders-storage/internal/domain/shared"
	"github.com/libhub/orders-storage/internal/infrastructure/persistence/models"
)

// ConsortiumConfig is the consortium membership record for one tenant.
type ConsortiumConfig struct {
	TenantID        string
	CentralTenantID string
	CentralOrdering bool
}

// GormConsortiumConfigRepository reads consortium membership records
type GormConsortiumConfigRepository struct {
	db *gorm.DB
}

// NewGormConsortiumConfigRepository creates a new GormConsortiumConfigRepository
func NewGormConsortiumConfigRepository(db *gorm.DB) *GormConsortiumConfigRepository {
	return &GormConsortiumConfigRepository{db: db}
}

// FindByTenant returns the consortium config for a member tenant.
// Returns shared.ErrNotFound when the tenant is not part of a consortium.
func (r *GormConsortiumConfigRepository) FindByTenant(ctx context.Context, tenantID string) (*ConsortiumConfig, error) {
	var m models.ConsortiumConfigModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &ConsortiumConfig{
		TenantID:        m.TenantID,
		CentralTenantID: m.CentralTenantID,
		CentralOrdering: m.CentralOrdering,
	}, nil
}
