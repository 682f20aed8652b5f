package inventory

import (
	"time"

	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferStatus is the lifecycle state of a transfer
type TransferStatus string

const (
	TransferCompleted TransferStatus = "completed"
	TransferCancelled TransferStatus = "cancelled"
)

// String returns the string representation of TransferStatus
func (s TransferStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is known
func (s TransferStatus) IsValid() bool {
	return s == TransferCompleted || s == TransferCancelled
}

// TransferStateMachine holds every allowed transfer transition
var TransferStateMachine = shared.NewStateMachine("transfer", map[TransferStatus][]TransferStatus{
	TransferCompleted: {TransferCancelled},
})

// Transfer records a move of stock between two locations. A transfer is created
// completed: it is only persisted together with both of its ledger entries.
type Transfer struct {
	shared.BaseEntity
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemKind       ItemKind        `gorm:"type:varchar(10);not null"`
	ItemID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	FromLocationID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ToLocationID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status         TransferStatus  `gorm:"type:varchar(20);not null"`
	Reason         string          `gorm:"type:varchar(500)"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null"`
	CancelledAt    *time.Time
	CancelledBy    *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (Transfer) TableName() string {
	return "inventory_transfers"
}

// NewTransfer validates and creates a completed transfer
func NewTransfer(
	tenantID uuid.UUID,
	item ItemRef,
	fromLocationID, toLocationID uuid.UUID,
	quantity decimal.Decimal,
	reason string,
	userID uuid.UUID,
) (*Transfer, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if fromLocationID == uuid.Nil || toLocationID == uuid.Nil {
		return nil, ErrLocationRequired
	}
	if fromLocationID == toLocationID {
		return nil, ErrLocationMismatch
	}
	if err := ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	if userID == uuid.Nil {
		return nil, ErrUserRequired
	}

	return &Transfer{
		BaseEntity:     shared.NewBaseEntity(),
		TenantID:       tenantID,
		ItemKind:       item.Kind,
		ItemID:         item.ID,
		FromLocationID: fromLocationID,
		ToLocationID:   toLocationID,
		Quantity:       quantity,
		Status:         TransferCompleted,
		Reason:         reason,
		UserID:         userID,
	}, nil
}

// Item returns the item reference of the transfer
func (t *Transfer) Item() ItemRef {
	return ItemRef{Kind: t.ItemKind, ID: t.ItemID}
}

// FromKey returns the balance key of the origin
func (t *Transfer) FromKey() BalanceKey {
	return BalanceKey{Item: t.Item(), LocationID: t.FromLocationID}
}

// ToKey returns the balance key of the destination
func (t *Transfer) ToKey() BalanceKey {
	return BalanceKey{Item: t.Item(), LocationID: t.ToLocationID}
}

// Cancel marks the transfer as reversed
func (t *Transfer) Cancel(userID uuid.UUID) error {
	if err := TransferStateMachine.Transition(t.Status, TransferCancelled); err != nil {
		return err
	}
	now := time.Now()
	t.Status = TransferCancelled
	t.CancelledAt = &now
	t.CancelledBy = &userID
	t.Touch(now)
	return nil
}

// LockOrder returns the two balance keys in the order they must be locked
func LockOrder(a, b BalanceKey) (BalanceKey, BalanceKey) {
	if b.Less(a) {
		return b, a
	}
	return a, b
}
