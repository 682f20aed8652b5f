package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostPrecision is the number of decimal places of a computed average cost
const CostPrecision int32 = 2

// WeightedAverageCost returns the unit cost after receiving stock.
//
//	cost = (currentQty*currentCost + receivedQty*receivedCost) / (currentQty + receivedQty)
//
// With no stock on hand the received cost is returned as is, resetting the cost
// basis. Otherwise the result is rounded half-up to CostPrecision places.
func WeightedAverageCost(currentQty, currentCost, receivedQty, receivedCost decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidateQuantity(receivedQty); err != nil {
		return decimal.Zero, err
	}
	if err := ValidateUnitCost(receivedCost); err != nil {
		return decimal.Zero, err
	}
	if currentQty.IsNegative() {
		return decimal.Zero, ErrInvalidQuantity.WithMessage(
			fmt.Sprintf("Current quantity cannot be negative, got %s", currentQty))
	}
	if currentQty.IsZero() {
		return receivedCost, nil
	}

	totalValue := currentQty.Mul(currentCost).Add(receivedQty.Mul(receivedCost))
	totalQty := currentQty.Add(receivedQty)
	// DivRound rounds half away from zero, which is half-up for non-negative costs.
	return totalValue.DivRound(totalQty, CostPrecision), nil
}

// CostRecord keeps the running cost of an item at a location
type CostRecord struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_cost_item_location,priority:1"`
	ItemKind          ItemKind        `gorm:"type:varchar(10);not null;uniqueIndex:uq_cost_item_location,priority:2"`
	ItemID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_cost_item_location,priority:3"`
	LocationID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_cost_item_location,priority:4"`
	AverageCost       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LastUnitCost      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PurchasedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PurchasedValue    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreatedAt         time.Time       `gorm:"not null"`
	UpdatedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CostRecord) TableName() string {
	return "inventory_costs"
}

// NewCostRecord creates an empty cost record
func NewCostRecord(tenantID uuid.UUID, key BalanceKey) *CostRecord {
	now := time.Now()
	return &CostRecord{
		ID:                uuid.New(),
		TenantID:          tenantID,
		ItemKind:          key.Item.Kind,
		ItemID:            key.Item.ID,
		LocationID:        key.LocationID,
		AverageCost:       decimal.Zero,
		LastUnitCost:      decimal.Zero,
		PurchasedQuantity: decimal.Zero,
		PurchasedValue:    decimal.Zero,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// ApplyReceipt blends a receipt into the record. onHand is the available quantity
// before the receipt.
func (c *CostRecord) ApplyReceipt(onHand, quantity, unitCost decimal.Decimal) error {
	average, err := WeightedAverageCost(onHand, c.AverageCost, quantity, unitCost)
	if err != nil {
		return err
	}

	c.AverageCost = average
	c.LastUnitCost = unitCost
	c.PurchasedQuantity = c.PurchasedQuantity.Add(quantity)
	c.PurchasedValue = c.PurchasedValue.Add(quantity.Mul(unitCost))
	c.UpdatedAt = time.Now()
	return nil
}

// StockValue returns the value of a quantity at the average cost
func (c *CostRecord) StockValue(quantity decimal.Decimal) decimal.Decimal {
	return quantity.Mul(c.AverageCost).Round(CostPrecision)
}
