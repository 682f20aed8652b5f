package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forSaleExpr is Balance.ForSale in SQL: available minus reserved, floored at zero
const forSaleExpr = "CASE WHEN quantity_available > quantity_reserved THEN quantity_available - quantity_reserved ELSE 0 END"

// GormBalanceRepository implements BalanceRepository using GORM
type GormBalanceRepository struct {
	db *gorm.DB
}

// NewGormBalanceRepository creates a new GormBalanceRepository
func NewGormBalanceRepository(db *gorm.DB) *GormBalanceRepository {
	return &GormBalanceRepository{db: db}
}

func whereBalanceKey(query *gorm.DB, tenantID uuid.UUID, key inventory.BalanceKey) *gorm.DB {
	return query.Where("tenant_id = ? AND item_kind = ? AND item_id = ? AND location_id = ?",
		tenantID, key.Item.Kind, key.Item.ID, key.LocationID)
}

// FindByKey finds the balance of an item at a location
func (r *GormBalanceRepository) FindByKey(ctx context.Context, tenantID uuid.UUID, key inventory.BalanceKey) (*inventory.Balance, error) {
	var balance inventory.Balance
	if err := whereBalanceKey(r.db.WithContext(ctx), tenantID, key).First(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &balance, nil
}

// GetOrCreate returns the balance, inserting a zero row when it does not exist.
// A concurrent insert of the same key is absorbed by ON CONFLICT DO NOTHING and
// the winner's row is read back.
func (r *GormBalanceRepository) GetOrCreate(ctx context.Context, tenantID uuid.UUID, key inventory.BalanceKey) (*inventory.Balance, error) {
	balance, err := r.FindByKey(ctx, tenantID, key)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	balance, err = inventory.NewBalance(tenantID, key)
	if err != nil {
		return nil, err
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(balance)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 1 {
		return balance, nil
	}
	return r.FindByKey(ctx, tenantID, key)
}

// GetForUpdate returns the balance row locked FOR UPDATE, creating it first if needed
func (r *GormBalanceRepository) GetForUpdate(ctx context.Context, tenantID uuid.UUID, key inventory.BalanceKey) (*inventory.Balance, error) {
	created, err := r.GetOrCreate(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}

	var balance inventory.Balance
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, created.ID).
		First(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &balance, nil
}

// Save writes quantities and levels when the stored version still matches, then
// advances the version of both the row and the balance
func (r *GormBalanceRepository) Save(ctx context.Context, balance *inventory.Balance) error {
	if balance.UpdatedAt.IsZero() {
		balance.UpdatedAt = time.Now()
	}
	result := r.db.WithContext(ctx).
		Model(&inventory.Balance{}).
		Where("tenant_id = ? AND id = ? AND version = ?", balance.TenantID, balance.ID, balance.Version).
		Updates(map[string]any{
			"quantity_available": balance.QuantityAvailable,
			"quantity_reserved":  balance.QuantityReserved,
			"minimum_quantity":   balance.MinimumQuantity,
			"maximum_quantity":   balance.MaximumQuantity,
			"version":            balance.Version + 1,
			"updated_at":         balance.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	balance.IncrementVersion()
	return nil
}

// List returns a page of balances and the total count
func (r *GormBalanceRepository) List(ctx context.Context, tenantID uuid.UUID, filter inventory.BalanceFilter) ([]inventory.Balance, int64, error) {
	query := r.db.WithContext(ctx).Model(&inventory.Balance{}).Where("tenant_id = ?", tenantID)
	if filter.Item != nil {
		query = query.Where("item_kind = ? AND item_id = ?", filter.Item.Kind, filter.Item.ID)
	}
	if filter.LocationID != nil {
		query = query.Where("location_id = ?", *filter.LocationID)
	}
	if filter.OnlyInStock {
		query = query.Where("quantity_available > 0")
	}
	if filter.BelowMinimum {
		query = query.Where("minimum_quantity IS NOT NULL AND " + forSaleExpr + " < minimum_quantity")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var balances []inventory.Balance
	if err := applyPage(query, filter.Filter, BalanceSortFields, "created_at").Find(&balances).Error; err != nil {
		return nil, 0, err
	}
	return balances, total, nil
}

// FindBelowMinimum returns balances whose quantity for sale is under their minimum
func (r *GormBalanceRepository) FindBelowMinimum(ctx context.Context, tenantID uuid.UUID) ([]inventory.Balance, error) {
	var balances []inventory.Balance
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND minimum_quantity IS NOT NULL AND "+forSaleExpr+" < minimum_quantity", tenantID).
		Order("item_id, location_id").
		Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

type productForSale struct {
	ItemID  uuid.UUID
	ForSale decimal.Decimal
}

// SumForSaleByProducts returns quantity for sale per product
func (r *GormBalanceRepository) SumForSaleByProducts(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID, locationID *uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	out := make(map[uuid.UUID]decimal.Decimal, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	query := r.db.WithContext(ctx).
		Model(&inventory.Balance{}).
		Select("item_id, SUM("+forSaleExpr+") AS for_sale").
		Where("tenant_id = ? AND item_kind = ? AND item_id IN ?", tenantID, inventory.ItemKindProduct, productIDs)
	if locationID != nil {
		query = query.Where("location_id = ?", *locationID)
	}

	var rows []productForSale
	if err := query.Group("item_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ItemID] = row.ForSale
	}
	return out, nil
}

var _ inventory.BalanceRepository = (*GormBalanceRepository)(nil)
