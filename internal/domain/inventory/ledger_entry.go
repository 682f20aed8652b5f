package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntry is an immutable record of one balance change.
// Once appended it is never modified; a correction is a new entry.
type LedgerEntry struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID        `gorm:"type:uuid;not null;index:idx_ledger_tenant_item,priority:1"`
	ItemKind      ItemKind         `gorm:"type:varchar(10);not null;index:idx_ledger_tenant_item,priority:2"`
	ItemID        uuid.UUID        `gorm:"type:uuid;not null;index:idx_ledger_tenant_item,priority:3"`
	LocationID    uuid.UUID        `gorm:"type:uuid;not null;index:idx_ledger_tenant_item,priority:4"`
	MovementType  MovementType     `gorm:"type:varchar(20);not null;index"`
	Bucket        Bucket           `gorm:"type:varchar(10);not null"`
	Quantity      decimal.Decimal  `gorm:"type:decimal(18,4);not null"` // signed
	BalanceBefore decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	BalanceAfter  decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	UnitCost      *decimal.Decimal `gorm:"type:decimal(18,4)"`
	UserID        uuid.UUID        `gorm:"type:uuid;not null;index"`
	DocumentType  string           `gorm:"type:varchar(40);index:idx_ledger_document,priority:1"`
	DocumentID    string           `gorm:"type:varchar(64);index:idx_ledger_document,priority:2"`
	Reason        string           `gorm:"type:varchar(500)"`
	CreatedAt     time.Time        `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (LedgerEntry) TableName() string {
	return "inventory_ledger_entries"
}

// LedgerOption customises a ledger entry at construction time
type LedgerOption func(*LedgerEntry)

// WithDocument links the entry to the business document that caused it
func WithDocument(documentType, documentID string) LedgerOption {
	return func(e *LedgerEntry) {
		e.DocumentType = documentType
		e.DocumentID = documentID
	}
}

// WithReason sets a free-text reason
func WithReason(reason string) LedgerOption {
	return func(e *LedgerEntry) {
		e.Reason = reason
	}
}

// WithUnitCost records the unit cost of a receipt
func WithUnitCost(cost decimal.Decimal) LedgerOption {
	return func(e *LedgerEntry) {
		c := cost
		e.UnitCost = &c
	}
}

// WithTimestamp overrides the creation time
func WithTimestamp(at time.Time) LedgerOption {
	return func(e *LedgerEntry) {
		e.CreatedAt = at
	}
}

// NewLedgerEntry builds the entry recording a bucket change on a balance.
// BalanceAfter is always BalanceBefore + Quantity.
func NewLedgerEntry(
	tenantID uuid.UUID,
	key BalanceKey,
	movement MovementType,
	change BucketChange,
	userID uuid.UUID,
	opts ...LedgerOption,
) (*LedgerEntry, error) {
	entry := &LedgerEntry{
		ID:            uuid.New(),
		TenantID:      tenantID,
		ItemKind:      key.Item.Kind,
		ItemID:        key.Item.ID,
		LocationID:    key.LocationID,
		MovementType:  movement,
		Bucket:        change.Bucket,
		Quantity:      change.Delta,
		BalanceBefore: change.Before,
		BalanceAfter:  change.Before.Add(change.Delta),
		UserID:        userID,
		CreatedAt:     time.Now(),
	}
	for _, opt := range opts {
		opt(entry)
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}

// Validate checks every invariant of a ledger entry. The ledger repository calls it
// again on append, so entries built by hand cannot bypass it.
func (e *LedgerEntry) Validate() error {
	if e.TenantID == uuid.Nil {
		return ErrInvalidLedgerEntry.WithMessage("Tenant ID cannot be empty")
	}
	if err := e.Item().Validate(); err != nil {
		return err
	}
	if e.LocationID == uuid.Nil {
		return ErrLocationRequired
	}
	if e.UserID == uuid.Nil {
		return ErrUserRequired
	}
	if !e.MovementType.IsValid() {
		return ErrInvalidLedgerEntry.WithMessage(fmt.Sprintf("Unknown movement type %q", e.MovementType))
	}
	if e.Bucket != e.MovementType.Bucket() {
		return ErrInvalidLedgerEntry.WithMessage(
			fmt.Sprintf("Movement %s must change the %s quantity", e.MovementType, e.MovementType.Bucket()))
	}
	if e.Quantity.IsZero() {
		return ErrInvalidQuantity.WithMessage("Ledger quantity cannot be zero")
	}
	if !e.MovementType.AcceptsSign(e.Quantity.IsPositive()) {
		return ErrInvalidLedgerEntry.WithMessage(
			fmt.Sprintf("Movement %s does not accept quantity %s", e.MovementType, e.Quantity))
	}
	if !e.BalanceAfter.Equal(e.BalanceBefore.Add(e.Quantity)) {
		return ErrInvalidLedgerEntry.WithMessage("Balance after must equal balance before plus quantity")
	}
	if e.BalanceBefore.IsNegative() || e.BalanceAfter.IsNegative() {
		return ErrInvalidLedgerEntry.WithMessage("Ledger balances cannot be negative")
	}
	if err := checkScale(ErrInvalidQuantity, "Ledger quantity", e.Quantity); err != nil {
		return err
	}
	if e.UnitCost != nil {
		if err := ValidateUnitCost(*e.UnitCost); err != nil {
			return err
		}
	}
	if (e.DocumentType == "") != (e.DocumentID == "") {
		return ErrInvalidLedgerEntry.WithMessage("Document reference needs both type and id")
	}
	return nil
}

// Item returns the item reference of the entry
func (e *LedgerEntry) Item() ItemRef {
	return ItemRef{Kind: e.ItemKind, ID: e.ItemID}
}

// Key returns the balance key of the entry
func (e *LedgerEntry) Key() BalanceKey {
	return BalanceKey{Item: e.Item(), LocationID: e.LocationID}
}

// HasDocument reports whether the entry references a business document
func (e *LedgerEntry) HasDocument() bool {
	return e.DocumentType != ""
}
