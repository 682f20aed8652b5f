package persistence

import (
	"context"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBOMRepository implements BOMRepository using GORM
type GormBOMRepository struct {
	db *gorm.DB
}

// NewGormBOMRepository creates a new GormBOMRepository
func NewGormBOMRepository(db *gorm.DB) *GormBOMRepository {
	return &GormBOMRepository{db: db}
}

// FindByParent returns the components of a kit ordered by component id
func (r *GormBOMRepository) FindByParent(ctx context.Context, tenantID, parentID uuid.UUID) ([]inventory.BOMComponent, error) {
	var components []inventory.BOMComponent
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND parent_product_id = ?", tenantID, parentID).
		Order("component_product_id").
		Find(&components).Error; err != nil {
		return nil, err
	}
	return components, nil
}

// Upsert creates the link or replaces its required quantity
func (r *GormBOMRepository) Upsert(ctx context.Context, component *inventory.BOMComponent) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "parent_product_id"}, {Name: "component_product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity_required", "updated_at"}),
		}).
		Create(component).Error
}

// Delete removes a link
func (r *GormBOMRepository) Delete(ctx context.Context, tenantID, parentID, componentID uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&inventory.BOMComponent{},
		"tenant_id = ? AND parent_product_id = ? AND component_product_id = ?", tenantID, parentID, componentID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ inventory.BOMRepository = (*GormBOMRepository)(nil)
