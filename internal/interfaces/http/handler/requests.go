package handler

import (
	"fmt"
	"time"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/erp/stockengine/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemSelector names a stocked item at the API boundary: exactly one of
// product_id and variant_id.
type ItemSelector struct {
	ProductID string `json:"product_id" form:"product_id" binding:"omitempty,uuid"`
	VariantID string `json:"variant_id" form:"variant_id" binding:"omitempty,uuid"`
}

// Ref returns the item reference, failing unless exactly one id is set
func (s ItemSelector) Ref() (inventory.ItemRef, error) {
	productID, err := optionalUUID(s.ProductID, "product_id")
	if err != nil {
		return inventory.ItemRef{}, err
	}
	variantID, err := optionalUUID(s.VariantID, "variant_id")
	if err != nil {
		return inventory.ItemRef{}, err
	}
	return inventory.NewItemRef(productID, variantID)
}

// OptionalRef is Ref for filters: nil when neither id is set
func (s ItemSelector) OptionalRef() (*inventory.ItemRef, error) {
	if s.ProductID == "" && s.VariantID == "" {
		return nil, nil
	}
	ref, err := s.Ref()
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// StockMutationRequest is the body of a stock increase or decrease
// @Description Item, location and quantity of a direct stock change
type StockMutationRequest struct {
	ItemSelector
	LocationID   string          `json:"location_id" binding:"required,uuid"`
	Quantity     decimal.Decimal `json:"quantity" binding:"decimal_gt0,decimal_scale4"`
	MovementType string          `json:"movement_type" binding:"max=30"`
	DocumentType string          `json:"document_type" binding:"max=50"`
	DocumentID   string          `json:"document_id" binding:"max=100"`
	Reason       string          `json:"reason" binding:"max=500"`
}

// ReceiveStockRequest is the body of a purchase receipt
// @Description Received quantity and unit cost of a purchase
type ReceiveStockRequest struct {
	ItemSelector
	LocationID   string          `json:"location_id" binding:"required,uuid"`
	Quantity     decimal.Decimal `json:"quantity" binding:"decimal_gt0,decimal_scale4"`
	UnitCost     decimal.Decimal `json:"unit_cost" binding:"decimal_gte0,decimal_scale4"`
	DocumentType string          `json:"document_type" binding:"max=50"`
	DocumentID   string          `json:"document_id" binding:"max=100"`
	Reason       string          `json:"reason" binding:"max=500"`
}

// SetLevelsRequest sets or clears the minimum and maximum of a balance. An
// omitted level is cleared.
type SetLevelsRequest struct {
	ItemSelector
	LocationID string           `json:"location_id" binding:"required,uuid"`
	Minimum    *decimal.Decimal `json:"minimum_quantity" binding:"omitempty,decimal_gte0,decimal_scale4"`
	Maximum    *decimal.Decimal `json:"maximum_quantity" binding:"omitempty,decimal_gte0,decimal_scale4"`
}

// BalanceLocator addresses one balance in a query string
type BalanceLocator struct {
	ItemSelector
	LocationID string `form:"location_id" binding:"required,uuid"`
}

// BalanceListQuery filters the balance listing
type BalanceListQuery struct {
	ItemSelector
	dto.ListRequest
	LocationID   string `form:"location_id" binding:"omitempty,uuid"`
	OnlyInStock  bool   `form:"only_in_stock"`
	BelowMinimum bool   `form:"below_minimum"`
}

// LedgerListQuery filters ledger entries
type LedgerListQuery struct {
	ItemSelector
	dto.ListRequest
	LocationID   string `form:"location_id" binding:"omitempty,uuid"`
	MovementType string `form:"movement_type"`
	DocumentType string `form:"document_type"`
	DocumentID   string `form:"document_id"`
	UserID       string `form:"user_id" binding:"omitempty,uuid"`
	From         string `form:"from"`
	To           string `form:"to"`
}

// TransferCreateRequest is the body of a transfer
// @Description Item, quantity and the two locations of a transfer
type TransferCreateRequest struct {
	ItemSelector
	FromLocationID string          `json:"from_location_id" binding:"required,uuid"`
	ToLocationID   string          `json:"to_location_id" binding:"required,uuid"`
	Quantity       decimal.Decimal `json:"quantity" binding:"decimal_gt0,decimal_scale4"`
	Reason         string          `json:"reason" binding:"max=500"`
}

// TransferListQuery filters the transfer listing
type TransferListQuery struct {
	ItemSelector
	dto.ListRequest
	LocationID string `form:"location_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=completed cancelled"`
	From       string `form:"from"`
	To         string `form:"to"`
}

// AdjustmentCreateRequest is the body of a manual adjustment
// @Description Direction, quantity and reason of a stock correction
type AdjustmentCreateRequest struct {
	ItemSelector
	LocationID  string          `json:"location_id" binding:"required,uuid"`
	Direction   string          `json:"direction" binding:"required,oneof=increase decrease"`
	Quantity    decimal.Decimal `json:"quantity" binding:"decimal_gt0,decimal_scale4"`
	Reason      string          `json:"reason" binding:"required"`
	Description string          `json:"description" binding:"max=1000"`
	Date        string          `json:"adjustment_date"`
}

// AdjustmentListQuery filters the adjustment listing
type AdjustmentListQuery struct {
	dto.ListRequest
	LocationID string `form:"location_id" binding:"omitempty,uuid"`
	Direction  string `form:"direction" binding:"omitempty,oneof=increase decrease"`
	Reason     string `form:"reason"`
	UserID     string `form:"user_id" binding:"omitempty,uuid"`
	From       string `form:"from"`
	To         string `form:"to"`
}

// ReservationCreateRequest is the body of a reservation
// @Description Quantity to hold and the source document it is held for
type ReservationCreateRequest struct {
	ItemSelector
	LocationID string          `json:"location_id" binding:"required,uuid"`
	Quantity   decimal.Decimal `json:"quantity" binding:"decimal_gt0,decimal_scale4"`
	SourceType string          `json:"source_type" binding:"max=50"`
	SourceID   string          `json:"source_id" binding:"max=100"`
}

// ReservationListQuery filters the reservation listing
type ReservationListQuery struct {
	ItemSelector
	dto.ListRequest
	LocationID string `form:"location_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=active fulfilled released expired"`
	SourceType string `form:"source_type"`
	SourceID   string `form:"source_id"`
}

// SetComponentBody is the body of a component link update
type SetComponentBody struct {
	QuantityRequired decimal.Decimal `json:"quantity_required" binding:"decimal_gt0,decimal_scale4"`
}

// KitOperationRequest is the body of assemble and disassemble
// @Description Location and whole number of kits to build or break down
type KitOperationRequest struct {
	LocationID string          `json:"location_id" binding:"required,uuid"`
	Kits       decimal.Decimal `json:"kits" binding:"decimal_gt0"`
	Reason     string          `json:"reason" binding:"max=500"`
}

func optionalUUID(value, field string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("Invalid %s format", field))
	}
	return &id, nil
}

func requiredUUID(value, field string) (uuid.UUID, error) {
	id, err := optionalUUID(value, field)
	if err != nil {
		return uuid.Nil, err
	}
	if id == nil {
		return uuid.Nil, shared.ErrInvalidInput.WithMessage(field + " is required")
	}
	return *id, nil
}

// parseDateTime accepts RFC3339, a plain date, or a date with a wall clock time
func parseDateTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

func optionalTime(value, field string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := parseDateTime(value)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("Invalid %s date", field))
	}
	return &t, nil
}

// dateRange parses an optional from/to pair. A plain to date covers that whole day.
func dateRange(from, to string) (*time.Time, *time.Time, error) {
	fromTime, err := optionalTime(from, "from")
	if err != nil {
		return nil, nil, err
	}
	toTime, err := optionalTime(to, "to")
	if err != nil {
		return nil, nil, err
	}
	if toTime != nil && len(to) == len("2006-01-02") {
		end := toTime.Add(24*time.Hour - time.Nanosecond)
		toTime = &end
	}
	if fromTime != nil && toTime != nil && toTime.Before(*fromTime) {
		return nil, nil, shared.ErrInvalidInput.WithMessage("from must not be after to")
	}
	return fromTime, toTime, nil
}

// pageOf applies the list defaults
func pageOf(req dto.ListRequest) (page, pageSize int) {
	page, pageSize = req.Page, req.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = dto.DefaultListRequest().PageSize
	}
	return page, pageSize
}
