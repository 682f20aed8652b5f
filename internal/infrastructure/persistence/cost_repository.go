package persistence

import (
	"context"
	"errors"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCostRepository implements CostRepository using GORM
type GormCostRepository struct {
	db *gorm.DB
}

// NewGormCostRepository creates a new GormCostRepository
func NewGormCostRepository(db *gorm.DB) *GormCostRepository {
	return &GormCostRepository{db: db}
}

// FindByKey finds the cost record of an item at a location
func (r *GormCostRepository) FindByKey(ctx context.Context, tenantID uuid.UUID, key inventory.BalanceKey) (*inventory.CostRecord, error) {
	var record inventory.CostRecord
	if err := whereBalanceKey(r.db.WithContext(ctx), tenantID, key).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// Save inserts the record or overwrites the running figures of the existing one
func (r *GormCostRepository) Save(ctx context.Context, record *inventory.CostRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "item_kind"}, {Name: "item_id"}, {Name: "location_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"average_cost", "last_unit_cost", "purchased_quantity", "purchased_value", "updated_at",
			}),
		}).
		Create(record).Error
}

var _ inventory.CostRepository = (*GormCostRepository)(nil)
