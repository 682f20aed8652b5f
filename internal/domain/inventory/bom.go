package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BOMComponent links a kit product to one of the products it is made of.
// A kit has no stock of its own: its availability is derived from its components.
type BOMComponent struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_bom_parent_component,priority:1"`
	ParentProductID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_bom_parent_component,priority:2"`
	ComponentProductID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_bom_parent_component,priority:3"`
	QuantityRequired   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt          time.Time       `gorm:"not null"`
	UpdatedAt          time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BOMComponent) TableName() string {
	return "inventory_bom_components"
}

// NewBOMComponent validates and creates a component link
func NewBOMComponent(tenantID, parentID, componentID uuid.UUID, quantityRequired decimal.Decimal) (*BOMComponent, error) {
	if parentID == uuid.Nil || componentID == uuid.Nil {
		return nil, ErrInvalidItemReference.WithMessage("Parent and component products are required")
	}
	if parentID == componentID {
		return nil, ErrConfiguration.WithMessage("A kit cannot contain itself")
	}
	if !quantityRequired.IsPositive() {
		return nil, ErrConfiguration.WithMessage(
			fmt.Sprintf("Quantity required must be positive, got %s", quantityRequired))
	}
	if err := checkScale(ErrInvalidQuantity, "Quantity required", quantityRequired); err != nil {
		return nil, err
	}

	now := time.Now()
	return &BOMComponent{
		ID:                 uuid.New(),
		TenantID:           tenantID,
		ParentProductID:    parentID,
		ComponentProductID: componentID,
		QuantityRequired:   quantityRequired,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// Item returns the component as a stocked item reference
func (c *BOMComponent) Item() ItemRef {
	return ProductItem(c.ComponentProductID)
}

// QuantityFor returns the component quantity needed for a number of kits
func (c *BOMComponent) QuantityFor(kits decimal.Decimal) decimal.Decimal {
	return c.QuantityRequired.Mul(kits)
}

// AvailableKits returns how many whole kits can be built from the given component
// stock, keyed by component product id. A component missing from stock counts as zero.
func AvailableKits(components []BOMComponent, stock map[uuid.UUID]decimal.Decimal) (decimal.Decimal, error) {
	if len(components) == 0 {
		return decimal.Zero, ErrConfiguration.WithMessage("Kit has no components")
	}

	var kits decimal.Decimal
	for i, c := range components {
		if !c.QuantityRequired.IsPositive() {
			return decimal.Zero, ErrConfiguration.WithMessage(
				fmt.Sprintf("Component %s requires a non-positive quantity %s", c.ComponentProductID, c.QuantityRequired))
		}
		onHand := stock[c.ComponentProductID]
		if onHand.IsNegative() {
			onHand = decimal.Zero
		}
		buildable := onHand.Div(c.QuantityRequired).Floor()
		if i == 0 || buildable.LessThan(kits) {
			kits = buildable
		}
	}
	return kits, nil
}
