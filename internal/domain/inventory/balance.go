package inventory

import (
	"fmt"
	"time"

	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balance holds the stock of one item at one location.
// It is the aggregate root for stock mutations and a cache of the ledger:
// QuantityAvailable and QuantityReserved can always be rebuilt by replaying it.
type Balance struct {
	shared.TenantAggregateRoot
	ItemKind          ItemKind         `gorm:"type:varchar(10);not null;uniqueIndex:uq_balance_item_location,priority:1"`
	ItemID            uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uq_balance_item_location,priority:2"`
	LocationID        uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uq_balance_item_location,priority:3"`
	QuantityAvailable decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	QuantityReserved  decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	MinimumQuantity   *decimal.Decimal `gorm:"type:decimal(18,4)"`
	MaximumQuantity   *decimal.Decimal `gorm:"type:decimal(18,4)"`
}

// TableName returns the table name for GORM
func (Balance) TableName() string {
	return "inventory_balances"
}

// BucketChange describes the effect of a mutation on one balance quantity.
// It carries exactly what a ledger entry needs.
type BucketChange struct {
	Bucket Bucket
	Before decimal.Decimal
	Delta  decimal.Decimal
}

// After returns the bucket value after the change
func (c BucketChange) After() decimal.Decimal {
	return c.Before.Add(c.Delta)
}

// NewBalance creates an empty balance for an item at a location
func NewBalance(tenantID uuid.UUID, key BalanceKey) (*Balance, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if err := key.Item.Validate(); err != nil {
		return nil, err
	}
	if key.LocationID == uuid.Nil {
		return nil, ErrLocationRequired
	}

	return &Balance{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ItemKind:            key.Item.Kind,
		ItemID:              key.Item.ID,
		LocationID:          key.LocationID,
		QuantityAvailable:   decimal.Zero,
		QuantityReserved:    decimal.Zero,
	}, nil
}

// Item returns the item reference of the balance
func (b *Balance) Item() ItemRef {
	return ItemRef{Kind: b.ItemKind, ID: b.ItemID}
}

// Key returns the balance key
func (b *Balance) Key() BalanceKey {
	return BalanceKey{Item: b.Item(), LocationID: b.LocationID}
}

// ForSale returns the quantity that can still be sold or moved: available minus
// reserved, never below zero
func (b *Balance) ForSale() decimal.Decimal {
	forSale := b.QuantityAvailable.Sub(b.QuantityReserved)
	if forSale.IsNegative() {
		return decimal.Zero
	}
	return forSale
}

// BucketValue returns the current value of a bucket
func (b *Balance) BucketValue(bucket Bucket) decimal.Decimal {
	if bucket == BucketReserved {
		return b.QuantityReserved
	}
	return b.QuantityAvailable
}

// Increase adds physical stock
func (b *Balance) Increase(quantity decimal.Decimal) (BucketChange, error) {
	if err := ValidateQuantity(quantity); err != nil {
		return BucketChange{}, err
	}

	change := BucketChange{Bucket: BucketAvailable, Before: b.QuantityAvailable, Delta: quantity}
	b.QuantityAvailable = b.QuantityAvailable.Add(quantity)
	b.Touch(time.Now())
	return change, nil
}

// Decrease removes physical stock. Reserved stock cannot be removed, so the
// quantity is limited by ForSale.
func (b *Balance) Decrease(quantity decimal.Decimal) (BucketChange, error) {
	if err := ValidateQuantity(quantity); err != nil {
		return BucketChange{}, err
	}
	forSale := b.ForSale()
	if quantity.GreaterThan(forSale) {
		return BucketChange{}, insufficient("for sale", quantity, forSale)
	}

	change := BucketChange{Bucket: BucketAvailable, Before: b.QuantityAvailable, Delta: quantity.Neg()}
	b.QuantityAvailable = b.QuantityAvailable.Sub(quantity)
	b.Touch(time.Now())
	b.checkMinimum(forSale)
	return change, nil
}

// Reserve holds stock for a pending order without removing it
func (b *Balance) Reserve(quantity decimal.Decimal) (BucketChange, error) {
	if err := ValidateQuantity(quantity); err != nil {
		return BucketChange{}, err
	}
	forSale := b.ForSale()
	if quantity.GreaterThan(forSale) {
		return BucketChange{}, insufficient("for sale", quantity, forSale)
	}

	change := BucketChange{Bucket: BucketReserved, Before: b.QuantityReserved, Delta: quantity}
	b.QuantityReserved = b.QuantityReserved.Add(quantity)
	b.Touch(time.Now())
	b.checkMinimum(forSale)
	return change, nil
}

// Release returns reserved stock to sale
func (b *Balance) Release(quantity decimal.Decimal) (BucketChange, error) {
	if err := ValidateQuantity(quantity); err != nil {
		return BucketChange{}, err
	}
	if quantity.GreaterThan(b.QuantityReserved) {
		return BucketChange{}, insufficient("reserved", quantity, b.QuantityReserved)
	}

	change := BucketChange{Bucket: BucketReserved, Before: b.QuantityReserved, Delta: quantity.Neg()}
	b.QuantityReserved = b.QuantityReserved.Sub(quantity)
	b.Touch(time.Now())
	return change, nil
}

// FulfillReservation ships reserved stock: both available and reserved go down by
// the same amount, leaving ForSale unchanged. The reserved change comes first.
func (b *Balance) FulfillReservation(quantity decimal.Decimal) ([]BucketChange, error) {
	if err := ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	if quantity.GreaterThan(b.QuantityReserved) {
		return nil, insufficient("reserved", quantity, b.QuantityReserved)
	}

	changes := []BucketChange{
		{Bucket: BucketReserved, Before: b.QuantityReserved, Delta: quantity.Neg()},
		{Bucket: BucketAvailable, Before: b.QuantityAvailable, Delta: quantity.Neg()},
	}
	b.QuantityReserved = b.QuantityReserved.Sub(quantity)
	b.QuantityAvailable = b.QuantityAvailable.Sub(quantity)
	b.Touch(time.Now())
	return changes, nil
}

// SetLevels sets the minimum and maximum thresholds. Nil clears a threshold.
func (b *Balance) SetLevels(minimum, maximum *decimal.Decimal) error {
	if minimum != nil && minimum.IsNegative() {
		return ErrInvalidQuantity.WithMessage("Minimum quantity cannot be negative")
	}
	if maximum != nil && maximum.IsNegative() {
		return ErrInvalidQuantity.WithMessage("Maximum quantity cannot be negative")
	}
	if minimum != nil {
		if err := checkScale(ErrInvalidQuantity, "Minimum quantity", *minimum); err != nil {
			return err
		}
	}
	if maximum != nil {
		if err := checkScale(ErrInvalidQuantity, "Maximum quantity", *maximum); err != nil {
			return err
		}
	}
	if minimum != nil && maximum != nil && minimum.GreaterThan(*maximum) {
		return ErrInvalidQuantity.WithMessage("Minimum quantity cannot exceed maximum quantity")
	}

	b.MinimumQuantity = minimum
	b.MaximumQuantity = maximum
	b.Touch(time.Now())
	return nil
}

// IsBelowMinimum returns true if the quantity for sale is under the minimum threshold
func (b *Balance) IsBelowMinimum() bool {
	return b.MinimumQuantity != nil && b.ForSale().LessThan(*b.MinimumQuantity)
}

// IsAboveMaximum returns true if the available quantity exceeds the maximum threshold
func (b *Balance) IsAboveMaximum() bool {
	return b.MaximumQuantity != nil && b.QuantityAvailable.GreaterThan(*b.MaximumQuantity)
}

// checkMinimum raises StockBelowMinimum when a mutation crosses the threshold downwards
func (b *Balance) checkMinimum(forSaleBefore decimal.Decimal) {
	if b.MinimumQuantity == nil {
		return
	}
	if forSaleBefore.GreaterThanOrEqual(*b.MinimumQuantity) && b.IsBelowMinimum() {
		b.Raise(NewStockBelowMinimumEvent(b))
	}
}

// Scale is the number of decimal places stored for quantities and costs
const Scale int32 = 4

// ValidateQuantity accepts a positive quantity with at most Scale decimal places
func ValidateQuantity(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return ErrInvalidQuantity.WithMessage(fmt.Sprintf("Quantity must be positive, got %s", quantity))
	}
	return checkScale(ErrInvalidQuantity, "Quantity", quantity)
}

// ValidateUnitCost accepts a non-negative cost with at most Scale decimal places
func ValidateUnitCost(cost decimal.Decimal) error {
	if cost.IsNegative() {
		return ErrInvalidCost.WithMessage(fmt.Sprintf("Unit cost cannot be negative, got %s", cost))
	}
	return checkScale(ErrInvalidCost, "Unit cost", cost)
}

// FitsScale reports whether d survives storage without rounding
func FitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(Scale))
}

func checkScale(base *shared.DomainError, what string, d decimal.Decimal) error {
	if !FitsScale(d) {
		return base.WithMessage(fmt.Sprintf("%s %s has more than %d decimal places", what, d, Scale))
	}
	return nil
}

func insufficient(what string, requested, have decimal.Decimal) error {
	return ErrInsufficientQuantity.WithMessage(
		fmt.Sprintf("Requested %s exceeds quantity %s of %s", requested, what, have))
}
