package persistence

import (
	"context"
	"errors"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogItem is the engine's read model of a product or variant. The catalog
// service owns the data; the engine only reads it.
type CatalogItem struct {
	TenantID uuid.UUID          `gorm:"type:uuid;primaryKey"`
	ItemKind inventory.ItemKind `gorm:"type:varchar(10);primaryKey"`
	ItemID   uuid.UUID          `gorm:"type:uuid;primaryKey"`
	Name     string             `gorm:"type:varchar(200);not null"`
	IsActive bool               `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (CatalogItem) TableName() string {
	return "catalog_items"
}

// StockLocation is the engine's read model of a warehouse or store
type StockLocation struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name     string    `gorm:"type:varchar(200);not null"`
	IsActive bool      `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (StockLocation) TableName() string {
	return "stock_locations"
}

// GormReferenceLookup resolves items and locations from the reference tables
type GormReferenceLookup struct {
	db *gorm.DB
}

// NewGormReferenceLookup creates a new GormReferenceLookup
func NewGormReferenceLookup(db *gorm.DB) *GormReferenceLookup {
	return &GormReferenceLookup{db: db}
}

// GetItem implements inventory.ItemLookup
func (l *GormReferenceLookup) GetItem(ctx context.Context, tenantID uuid.UUID, item inventory.ItemRef) (*inventory.ItemInfo, error) {
	var row CatalogItem
	if err := l.db.WithContext(ctx).
		Where("tenant_id = ? AND item_kind = ? AND item_id = ?", tenantID, item.Kind, item.ID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithMessage("Item " + item.String() + " not found")
		}
		return nil, err
	}
	return &inventory.ItemInfo{Ref: item, Name: row.Name, Active: row.IsActive}, nil
}

// GetLocation implements inventory.LocationLookup
func (l *GormReferenceLookup) GetLocation(ctx context.Context, tenantID, locationID uuid.UUID) (*inventory.LocationInfo, error) {
	var row StockLocation
	if err := l.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, locationID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithMessage("Location " + locationID.String() + " not found")
		}
		return nil, err
	}
	return &inventory.LocationInfo{ID: row.ID, Name: row.Name, Active: row.IsActive}, nil
}

var (
	_ inventory.ItemLookup     = (*GormReferenceLookup)(nil)
	_ inventory.LocationLookup = (*GormReferenceLookup)(nil)
)
