package inventory

import (
	"time"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MutationRequest changes one balance. MovementType may be left empty to use the
// default of the operation.
type MutationRequest struct {
	Item         inventory.ItemRef
	LocationID   uuid.UUID
	Quantity     decimal.Decimal
	MovementType inventory.MovementType
	DocumentType string
	DocumentID   string
	Reason       string
	UserID       uuid.UUID
}

// Key returns the balance key addressed by the request
func (r MutationRequest) Key() (inventory.BalanceKey, error) {
	return inventory.NewBalanceKey(r.Item, r.LocationID)
}

// SetLevelsRequest sets or clears the minimum and maximum levels of a balance
type SetLevelsRequest struct {
	Item       inventory.ItemRef
	LocationID uuid.UUID
	Minimum    *decimal.Decimal
	Maximum    *decimal.Decimal
}

// ReceiveRequest records purchased stock arriving at a location
type ReceiveRequest struct {
	Item         inventory.ItemRef
	LocationID   uuid.UUID
	Quantity     decimal.Decimal
	UnitCost     decimal.Decimal
	DocumentType string
	DocumentID   string
	Reason       string
	UserID       uuid.UUID
}

// BalanceQuery filters a balance listing
type BalanceQuery struct {
	Item         *inventory.ItemRef
	LocationID   *uuid.UUID
	OnlyInStock  bool
	BelowMinimum bool
	Page         int
	PageSize     int
	OrderBy      string
	OrderDir     string
}

// BalanceResponse represents a balance in API responses
type BalanceResponse struct {
	ID                uuid.UUID         `json:"id"`
	TenantID          uuid.UUID         `json:"tenant_id"`
	Item              inventory.ItemRef `json:"item"`
	LocationID        uuid.UUID         `json:"location_id"`
	QuantityAvailable decimal.Decimal   `json:"quantity_available"`
	QuantityReserved  decimal.Decimal   `json:"quantity_reserved"`
	QuantityForSale   decimal.Decimal   `json:"quantity_for_sale"`
	MinimumQuantity   *decimal.Decimal  `json:"minimum_quantity,omitempty"`
	MaximumQuantity   *decimal.Decimal  `json:"maximum_quantity,omitempty"`
	IsBelowMinimum    bool              `json:"is_below_minimum"`
	IsAboveMaximum    bool              `json:"is_above_maximum"`
	Version           int               `json:"version"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// ToBalanceResponse converts a domain balance to a response
func ToBalanceResponse(b *inventory.Balance) BalanceResponse {
	return BalanceResponse{
		ID:                b.ID,
		TenantID:          b.TenantID,
		Item:              b.Item(),
		LocationID:        b.LocationID,
		QuantityAvailable: b.QuantityAvailable,
		QuantityReserved:  b.QuantityReserved,
		QuantityForSale:   b.ForSale(),
		MinimumQuantity:   b.MinimumQuantity,
		MaximumQuantity:   b.MaximumQuantity,
		IsBelowMinimum:    b.IsBelowMinimum(),
		IsAboveMaximum:    b.IsAboveMaximum(),
		Version:           b.Version,
		UpdatedAt:         b.UpdatedAt,
	}
}

// ToBalanceResponses converts a slice of balances
func ToBalanceResponses(balances []inventory.Balance) []BalanceResponse {
	out := make([]BalanceResponse, len(balances))
	for i := range balances {
		out[i] = ToBalanceResponse(&balances[i])
	}
	return out
}

// LedgerEntryResponse represents a ledger entry in API responses
type LedgerEntryResponse struct {
	ID            uuid.UUID              `json:"id"`
	Item          inventory.ItemRef      `json:"item"`
	LocationID    uuid.UUID              `json:"location_id"`
	MovementType  inventory.MovementType `json:"movement_type"`
	Bucket        inventory.Bucket       `json:"bucket"`
	Quantity      decimal.Decimal        `json:"quantity"`
	BalanceBefore decimal.Decimal        `json:"balance_before"`
	BalanceAfter  decimal.Decimal        `json:"balance_after"`
	UnitCost      *decimal.Decimal       `json:"unit_cost,omitempty"`
	UserID        uuid.UUID              `json:"user_id"`
	DocumentType  string                 `json:"document_type,omitempty"`
	DocumentID    string                 `json:"document_id,omitempty"`
	Reason        string                 `json:"reason,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// ToLedgerEntryResponse converts a ledger entry to a response
func ToLedgerEntryResponse(e *inventory.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:            e.ID,
		Item:          e.Item(),
		LocationID:    e.LocationID,
		MovementType:  e.MovementType,
		Bucket:        e.Bucket,
		Quantity:      e.Quantity,
		BalanceBefore: e.BalanceBefore,
		BalanceAfter:  e.BalanceAfter,
		UnitCost:      e.UnitCost,
		UserID:        e.UserID,
		DocumentType:  e.DocumentType,
		DocumentID:    e.DocumentID,
		Reason:        e.Reason,
		CreatedAt:     e.CreatedAt,
	}
}

// ToLedgerEntryResponses converts a slice of entries
func ToLedgerEntryResponses(entries []inventory.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, len(entries))
	for i := range entries {
		out[i] = ToLedgerEntryResponse(&entries[i])
	}
	return out
}

func entryResponses(entries []*inventory.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = ToLedgerEntryResponse(e)
	}
	return out
}

// MutationResponse is the balance after a mutation and the entries it wrote
type MutationResponse struct {
	Balance BalanceResponse       `json:"balance"`
	Entries []LedgerEntryResponse `json:"entries"`
}

// ReceiveResponse is the result of a purchase receipt
type ReceiveResponse struct {
	Balance      BalanceResponse     `json:"balance"`
	Entry        LedgerEntryResponse `json:"entry"`
	AverageCost  decimal.Decimal     `json:"average_cost"`
	LastUnitCost decimal.Decimal     `json:"last_unit_cost"`
}

// LedgerQuery filters ledger entries. Zero fields do not filter.
type LedgerQuery struct {
	Item         *inventory.ItemRef
	LocationID   *uuid.UUID
	MovementType *inventory.MovementType
	DocumentType string
	DocumentID   string
	UserID       *uuid.UUID
	From         *time.Time
	To           *time.Time
	Page         int
	PageSize     int
	OrderDir     string
}

func (q LedgerQuery) filter() inventory.LedgerFilter {
	return inventory.LedgerFilter{
		Filter: shared.Filter{
			Page:     q.Page,
			PageSize: q.PageSize,
			OrderBy:  "created_at",
			OrderDir: q.OrderDir,
		}.Normalize(),
		Item:         q.Item,
		LocationID:   q.LocationID,
		MovementType: q.MovementType,
		DocumentType: q.DocumentType,
		DocumentID:   q.DocumentID,
		UserID:       q.UserID,
		From:         q.From,
		To:           q.To,
	}
}

// ConsistencyReport compares a cached balance with the replay of its ledger
type ConsistencyReport struct {
	Item              inventory.ItemRef `json:"item"`
	LocationID        uuid.UUID         `json:"location_id"`
	Consistent        bool              `json:"consistent"`
	CachedAvailable   decimal.Decimal   `json:"cached_available"`
	ReplayedAvailable decimal.Decimal   `json:"replayed_available"`
	CachedReserved    decimal.Decimal   `json:"cached_reserved"`
	ReplayedReserved  decimal.Decimal   `json:"replayed_reserved"`
	Entries           int64             `json:"entries"`
	CheckedAt         time.Time         `json:"checked_at"`
}

// TransferRequest moves stock between two locations
type TransferRequest struct {
	Item           inventory.ItemRef
	FromLocationID uuid.UUID
	ToLocationID   uuid.UUID
	Quantity       decimal.Decimal
	Reason         string
	UserID         uuid.UUID
}

// TransferResponse represents a transfer in API responses
type TransferResponse struct {
	ID             uuid.UUID                `json:"id"`
	Item           inventory.ItemRef        `json:"item"`
	FromLocationID uuid.UUID                `json:"from_location_id"`
	ToLocationID   uuid.UUID                `json:"to_location_id"`
	Quantity       decimal.Decimal          `json:"quantity"`
	Status         inventory.TransferStatus `json:"status"`
	Reason         string                   `json:"reason,omitempty"`
	UserID         uuid.UUID                `json:"user_id"`
	CreatedAt      time.Time                `json:"created_at"`
	CancelledAt    *time.Time               `json:"cancelled_at,omitempty"`
	CancelledBy    *uuid.UUID               `json:"cancelled_by,omitempty"`
	Entries        []LedgerEntryResponse    `json:"entries,omitempty"`
}

// ToTransferResponse converts a transfer to a response
func ToTransferResponse(t *inventory.Transfer) TransferResponse {
	return TransferResponse{
		ID:             t.ID,
		Item:           t.Item(),
		FromLocationID: t.FromLocationID,
		ToLocationID:   t.ToLocationID,
		Quantity:       t.Quantity,
		Status:         t.Status,
		Reason:         t.Reason,
		UserID:         t.UserID,
		CreatedAt:      t.CreatedAt,
		CancelledAt:    t.CancelledAt,
		CancelledBy:    t.CancelledBy,
	}
}

// TransferQuery filters a transfer listing
type TransferQuery struct {
	Item       *inventory.ItemRef
	LocationID *uuid.UUID
	Status     *inventory.TransferStatus
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// AdjustRequest records a manual stock correction
type AdjustRequest struct {
	Item        inventory.ItemRef
	LocationID  uuid.UUID
	Direction   inventory.AdjustmentDirection
	Quantity    decimal.Decimal
	Reason      inventory.AdjustmentReason
	Description string
	Date        *time.Time
	UserID      uuid.UUID
}

// AdjustmentResponse represents an adjustment in API responses
type AdjustmentResponse struct {
	ID             uuid.UUID                     `json:"id"`
	Number         string                        `json:"number"`
	Item           inventory.ItemRef             `json:"item"`
	LocationID     uuid.UUID                     `json:"location_id"`
	Direction      inventory.AdjustmentDirection `json:"direction"`
	Quantity       decimal.Decimal               `json:"quantity"`
	Reason         inventory.AdjustmentReason    `json:"reason"`
	Description    string                        `json:"description,omitempty"`
	UserID         uuid.UUID                     `json:"user_id"`
	AdjustmentDate time.Time                     `json:"adjustment_date"`
	BalanceBefore  decimal.Decimal               `json:"balance_before"`
	BalanceAfter   decimal.Decimal               `json:"balance_after"`
	CreatedAt      time.Time                     `json:"created_at"`
}

// ToAdjustmentResponse converts an adjustment to a response
func ToAdjustmentResponse(a *inventory.Adjustment) AdjustmentResponse {
	return AdjustmentResponse{
		ID:             a.ID,
		Number:         a.Number,
		Item:           a.Item(),
		LocationID:     a.LocationID,
		Direction:      a.Direction,
		Quantity:       a.Quantity,
		Reason:         a.Reason,
		Description:    a.Description,
		UserID:         a.UserID,
		AdjustmentDate: a.AdjustmentDate,
		BalanceBefore:  a.BalanceBefore,
		BalanceAfter:   a.BalanceAfter,
		CreatedAt:      a.CreatedAt,
	}
}

// AdjustmentQuery filters an adjustment listing
type AdjustmentQuery struct {
	From       *time.Time
	To         *time.Time
	LocationID *uuid.UUID
	Direction  *inventory.AdjustmentDirection
	Reason     *inventory.AdjustmentReason
	UserID     *uuid.UUID
	Page       int
	PageSize   int
}

// FrequentAdjustmentLine is one (item, location) group of the frequent adjustment report
type FrequentAdjustmentLine struct {
	Item          inventory.ItemRef `json:"item"`
	LocationID    uuid.UUID         `json:"location_id"`
	Count         int64             `json:"count"`
	TotalIncrease decimal.Decimal   `json:"total_increase"`
	TotalDecrease decimal.Decimal   `json:"total_decrease"`
	LastAdjusted  time.Time         `json:"last_adjusted"`
	Flagged       bool              `json:"flagged"`
}

// FrequentAdjustmentReport lists adjustment groups of a trailing window
type FrequentAdjustmentReport struct {
	Since     time.Time                `json:"since"`
	Until     time.Time                `json:"until"`
	Threshold int64                    `json:"threshold"`
	Flagged   int                      `json:"flagged"`
	Lines     []FrequentAdjustmentLine `json:"lines"`
}

// ReserveRequest holds stock for a source document
type ReserveRequest struct {
	Item       inventory.ItemRef
	LocationID uuid.UUID
	Quantity   decimal.Decimal
	SourceType string
	SourceID   string
	UserID     uuid.UUID
}

// ReservationResponse represents a reservation in API responses
type ReservationResponse struct {
	ID         uuid.UUID                   `json:"id"`
	Item       inventory.ItemRef           `json:"item"`
	LocationID uuid.UUID                   `json:"location_id"`
	Quantity   decimal.Decimal             `json:"quantity"`
	Status     inventory.ReservationStatus `json:"status"`
	SourceType string                      `json:"source_type,omitempty"`
	SourceID   string                      `json:"source_id,omitempty"`
	UserID     uuid.UUID                   `json:"user_id"`
	CreatedAt  time.Time                   `json:"created_at"`
	ResolvedAt *time.Time                  `json:"resolved_at,omitempty"`
	ResolvedBy *uuid.UUID                  `json:"resolved_by,omitempty"`
}

// ToReservationResponse converts a reservation to a response
func ToReservationResponse(r *inventory.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:         r.ID,
		Item:       r.Item(),
		LocationID: r.LocationID,
		Quantity:   r.Quantity,
		Status:     r.Status,
		SourceType: r.SourceType,
		SourceID:   r.SourceID,
		UserID:     r.UserID,
		CreatedAt:  r.CreatedAt,
		ResolvedAt: r.ResolvedAt,
		ResolvedBy: r.ResolvedBy,
	}
}

// ReservationQuery filters a reservation listing
type ReservationQuery struct {
	Item       *inventory.ItemRef
	LocationID *uuid.UUID
	Status     *inventory.ReservationStatus
	SourceType string
	SourceID   string
	Page       int
	PageSize   int
}

// SweepStats contains statistics about one expiry sweep of a tenant
type SweepStats struct {
	TenantID    uuid.UUID `json:"tenant_id"`
	Cutoff      time.Time `json:"cutoff"`
	Found       int       `json:"found"`
	Expired     int       `json:"expired"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	ProcessedAt time.Time `json:"processed_at"`
}

// SetComponentRequest creates or updates a kit component link
type SetComponentRequest struct {
	ParentID         uuid.UUID
	ComponentID      uuid.UUID
	QuantityRequired decimal.Decimal
}

// ComponentResponse represents a kit component in API responses
type ComponentResponse struct {
	ID               uuid.UUID       `json:"id"`
	ParentID         uuid.UUID       `json:"parent_id"`
	ComponentID      uuid.UUID       `json:"component_id"`
	QuantityRequired decimal.Decimal `json:"quantity_required"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ToComponentResponse converts a component link to a response
func ToComponentResponse(c *inventory.BOMComponent) ComponentResponse {
	return ComponentResponse{
		ID:               c.ID,
		ParentID:         c.ParentProductID,
		ComponentID:      c.ComponentProductID,
		QuantityRequired: c.QuantityRequired,
		UpdatedAt:        c.UpdatedAt,
	}
}

// ComponentAvailability is the stock of one component seen by a kit availability query
type ComponentAvailability struct {
	ComponentID      uuid.UUID       `json:"component_id"`
	QuantityRequired decimal.Decimal `json:"quantity_required"`
	QuantityForSale  decimal.Decimal `json:"quantity_for_sale"`
	BuildableKits    decimal.Decimal `json:"buildable_kits"`
}

// AvailableKitsResponse is the answer of a kit availability query
type AvailableKitsResponse struct {
	ParentID      uuid.UUID               `json:"parent_id"`
	LocationID    *uuid.UUID              `json:"location_id,omitempty"`
	AvailableKits decimal.Decimal         `json:"available_kits"`
	Components    []ComponentAvailability `json:"components"`
}

// KitRequest assembles or disassembles a number of kits at a location
type KitRequest struct {
	ParentID   uuid.UUID
	LocationID uuid.UUID
	Kits       decimal.Decimal
	Reason     string
	UserID     uuid.UUID
}

// KitResponse lists the component movements of a kit operation
type KitResponse struct {
	ParentID   uuid.UUID             `json:"parent_id"`
	LocationID uuid.UUID             `json:"location_id"`
	Kits       decimal.Decimal       `json:"kits"`
	Entries    []LedgerEntryResponse `json:"entries"`
}
