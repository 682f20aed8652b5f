package inventory

import (
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeBalance is the aggregate type of Balance events
const AggregateTypeBalance = "InventoryBalance"

// EventTypeStockBelowMinimum is raised when quantity for sale falls under the minimum level
const EventTypeStockBelowMinimum = "StockBelowMinimum"

// StockBelowMinimumEvent is raised when a mutation takes a balance under its minimum level
type StockBelowMinimumEvent struct {
	shared.EventHeader
	ItemKind        ItemKind        `json:"item_kind"`
	ItemID          uuid.UUID       `json:"item_id"`
	LocationID      uuid.UUID       `json:"location_id"`
	ForSale         decimal.Decimal `json:"for_sale"`
	MinimumQuantity decimal.Decimal `json:"minimum_quantity"`
}

// NewStockBelowMinimumEvent creates a new StockBelowMinimumEvent
func NewStockBelowMinimumEvent(b *Balance) *StockBelowMinimumEvent {
	minimum := decimal.Zero
	if b.MinimumQuantity != nil {
		minimum = *b.MinimumQuantity
	}
	return &StockBelowMinimumEvent{
		EventHeader:     shared.NewEventHeader(EventTypeStockBelowMinimum, AggregateTypeBalance, b.ID, b.TenantID),
		ItemKind:        b.ItemKind,
		ItemID:          b.ItemID,
		LocationID:      b.LocationID,
		ForSale:         b.ForSale(),
		MinimumQuantity: minimum,
	}
}

// Shortfall returns how far the balance is under its minimum
func (e *StockBelowMinimumEvent) Shortfall() decimal.Decimal {
	return e.MinimumQuantity.Sub(e.ForSale)
}
