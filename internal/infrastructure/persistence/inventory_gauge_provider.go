package persistence

import (
	"context"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormInventoryGaugeProvider feeds the periodic inventory gauges from the balance table
type GormInventoryGaugeProvider struct {
	db *gorm.DB
}

// NewGormInventoryGaugeProvider creates a new GormInventoryGaugeProvider
func NewGormInventoryGaugeProvider(db *gorm.DB) *GormInventoryGaugeProvider {
	return &GormInventoryGaugeProvider{db: db}
}

// ActiveTenantIDs returns the tenants that hold balances
func (p *GormInventoryGaugeProvider) ActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var tenants []uuid.UUID
	if err := p.db.WithContext(ctx).
		Model(&inventory.Balance{}).
		Distinct("tenant_id").
		Order("tenant_id").
		Pluck("tenant_id", &tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

type locationReserved struct {
	LocationID uuid.UUID
	Reserved   decimal.Decimal
}

// ReservedQuantityByLocation returns the total reserved quantity per location
func (p *GormInventoryGaugeProvider) ReservedQuantityByLocation(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	var rows []locationReserved
	if err := p.db.WithContext(ctx).
		Model(&inventory.Balance{}).
		Select("location_id, COALESCE(SUM(quantity_reserved), 0) AS reserved").
		Where("tenant_id = ?", tenantID).
		Group("location_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]decimal.Decimal, len(rows))
	for _, row := range rows {
		out[row.LocationID] = row.Reserved
	}
	return out, nil
}

// BelowMinimumCount returns how many balances are under their minimum level
func (p *GormInventoryGaugeProvider) BelowMinimumCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Model(&inventory.Balance{}).
		Where("tenant_id = ? AND minimum_quantity IS NOT NULL AND "+forSaleExpr+" < minimum_quantity", tenantID).
		Count(&count).Error
	return count, err
}

var _ telemetry.InventoryGaugeProvider = (*GormInventoryGaugeProvider)(nil)
