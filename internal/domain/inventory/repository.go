package inventory

import (
	"context"
	"time"

	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceFilter narrows a balance listing
type BalanceFilter struct {
	shared.Filter
	Item         *ItemRef
	LocationID   *uuid.UUID
	OnlyInStock  bool
	BelowMinimum bool
}

// BalanceRepository defines the interface for balance persistence
type BalanceRepository interface {
	// FindByKey finds the balance of an item at a location
	FindByKey(ctx context.Context, tenantID uuid.UUID, key BalanceKey) (*Balance, error)

	// GetOrCreate returns the balance, inserting a zero row if it does not exist yet.
	// Concurrent callers never create duplicates (ON CONFLICT DO NOTHING).
	GetOrCreate(ctx context.Context, tenantID uuid.UUID, key BalanceKey) (*Balance, error)

	// GetForUpdate is GetOrCreate followed by a row lock held until the
	// surrounding transaction ends
	GetForUpdate(ctx context.Context, tenantID uuid.UUID, key BalanceKey) (*Balance, error)

	// Save persists a mutated balance. It fails with ErrConcurrencyConflict when
	// the stored version moved since the balance was read.
	Save(ctx context.Context, balance *Balance) error

	// List returns a page of balances and the total count
	List(ctx context.Context, tenantID uuid.UUID, filter BalanceFilter) ([]Balance, int64, error)

	// FindBelowMinimum returns balances whose quantity for sale is under their minimum
	FindBelowMinimum(ctx context.Context, tenantID uuid.UUID) ([]Balance, error)

	// SumForSaleByProducts returns quantity for sale per product, summed across
	// locations when locationID is nil. Products without stock are absent.
	SumForSaleByProducts(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID, locationID *uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
}

// LedgerFilter selects ledger entries. Zero fields do not filter.
type LedgerFilter struct {
	shared.Filter
	Item         *ItemRef
	LocationID   *uuid.UUID
	MovementType *MovementType
	DocumentType string
	DocumentID   string
	UserID       *uuid.UUID
	From         *time.Time
	To           *time.Time
}

// ReplayTotals is the result of summing the ledger of one balance
type ReplayTotals struct {
	Available decimal.Decimal
	Reserved  decimal.Decimal
	Entries   int64
}

// LedgerRepository is append-only: entries can be added and read, never changed
type LedgerRepository interface {
	// Append validates and inserts entries in order
	Append(ctx context.Context, entries ...*LedgerEntry) error

	// FindByID finds an entry
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*LedgerEntry, error)

	// Find returns a page of entries, newest first unless the filter says otherwise
	Find(ctx context.Context, tenantID uuid.UUID, filter LedgerFilter) ([]LedgerEntry, int64, error)

	// Latest returns the newest entry of a balance. An empty bucket matches both
	// buckets. Returns shared.ErrNotFound when the balance has no entry.
	Latest(ctx context.Context, tenantID uuid.UUID, key BalanceKey, bucket Bucket) (*LedgerEntry, error)

	// Timeline returns every entry of a balance, oldest first
	Timeline(ctx context.Context, tenantID uuid.UUID, key BalanceKey) ([]LedgerEntry, error)

	// Replay sums the signed quantities of a balance per bucket
	Replay(ctx context.Context, tenantID uuid.UUID, key BalanceKey) (*ReplayTotals, error)
}

// TransferFilter narrows a transfer listing
type TransferFilter struct {
	shared.Filter
	Item       *ItemRef
	LocationID *uuid.UUID // origin or destination
	Status     *TransferStatus
	From       *time.Time
	To         *time.Time
}

// TransferRepository defines the interface for transfer persistence
type TransferRepository interface {
	Create(ctx context.Context, transfer *Transfer) error
	Save(ctx context.Context, transfer *Transfer) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Transfer, error)
	// FindByIDForUpdate locks the transfer row for the surrounding transaction
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Transfer, error)
	List(ctx context.Context, tenantID uuid.UUID, filter TransferFilter) ([]Transfer, int64, error)
}

// AdjustmentFilter narrows an adjustment listing
type AdjustmentFilter struct {
	shared.Filter
	From       *time.Time
	To         *time.Time
	LocationID *uuid.UUID
	Direction  *AdjustmentDirection
	Reason     *AdjustmentReason
	UserID     *uuid.UUID
}

// AdjustmentRepository defines the interface for adjustment persistence
type AdjustmentRepository interface {
	Create(ctx context.Context, adjustment *Adjustment) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Adjustment, error)
	FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*Adjustment, error)
	List(ctx context.Context, tenantID uuid.UUID, filter AdjustmentFilter) ([]Adjustment, int64, error)

	// GroupByItemLocation counts adjustments dated at or after since, per item and location
	GroupByItemLocation(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]AdjustmentGroup, error)
}

// ReservationFilter narrows a reservation listing
type ReservationFilter struct {
	shared.Filter
	Item       *ItemRef
	LocationID *uuid.UUID
	Status     *ReservationStatus
	SourceType string
	SourceID   string
}

// ReservationRepository defines the interface for reservation persistence
type ReservationRepository interface {
	Create(ctx context.Context, reservation *Reservation) error
	Save(ctx context.Context, reservation *Reservation) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Reservation, error)

	// FindByIDForUpdate locks the reservation row. It is always taken before the
	// balance row of the same reservation.
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Reservation, error)

	List(ctx context.Context, tenantID uuid.UUID, filter ReservationFilter) ([]Reservation, int64, error)

	// FindActiveCreatedBefore returns ids of active reservations created before the cutoff, oldest first
	FindActiveCreatedBefore(ctx context.Context, tenantID uuid.UUID, cutoff time.Time, limit int) ([]uuid.UUID, error)

	// TenantsWithActive returns every tenant that holds at least one active reservation
	TenantsWithActive(ctx context.Context) ([]uuid.UUID, error)
}

// CostRepository defines the interface for cost record persistence
type CostRepository interface {
	// FindByKey returns shared.ErrNotFound when nothing was ever received
	FindByKey(ctx context.Context, tenantID uuid.UUID, key BalanceKey) (*CostRecord, error)
	Save(ctx context.Context, record *CostRecord) error
}

// BOMRepository defines the interface for kit component persistence
type BOMRepository interface {
	FindByParent(ctx context.Context, tenantID, parentID uuid.UUID) ([]BOMComponent, error)

	// Upsert creates the link or replaces its required quantity
	Upsert(ctx context.Context, component *BOMComponent) error

	// Delete removes a link; shared.ErrNotFound if it does not exist
	Delete(ctx context.Context, tenantID, parentID, componentID uuid.UUID) error
}
