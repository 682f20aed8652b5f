package inventory

import (
	"context"
	"fmt"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/erp/stockengine/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// StockAlert represents a stock level alert
type StockAlert struct {
	TenantID        string `json:"tenant_id"`
	BalanceID       string `json:"balance_id"`
	ItemKind        string `json:"item_kind"`
	ItemID          string `json:"item_id"`
	LocationID      string `json:"location_id"`
	ForSale         string `json:"for_sale"`
	MinimumQuantity string `json:"minimum_quantity"`
	Shortfall       string `json:"shortfall"`
	AlertType       string `json:"alert_type"` // "low_stock", "out_of_stock"
}

// StockAlertNotifier sends stock alerts to whoever restocks
type StockAlertNotifier interface {
	SendAlert(ctx context.Context, alert StockAlert) error
}

// StockBelowMinimumHandler handles StockBelowMinimum events
type StockBelowMinimumHandler struct {
	logger   *zap.Logger
	metrics  *telemetry.InventoryMetrics
	notifier StockAlertNotifier
}

// NewStockBelowMinimumHandler creates a new handler for stock below minimum events
func NewStockBelowMinimumHandler(logger *zap.Logger, metrics *telemetry.InventoryMetrics) *StockBelowMinimumHandler {
	return &StockBelowMinimumHandler{
		logger:  logger,
		metrics: metrics,
	}
}

// WithNotifier sets the notifier for sending alerts
func (h *StockBelowMinimumHandler) WithNotifier(notifier StockAlertNotifier) *StockBelowMinimumHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *StockBelowMinimumHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockBelowMinimum}
}

// Handle processes a StockBelowMinimumEvent
func (h *StockBelowMinimumHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	belowMinimum, ok := event.(*inventory.StockBelowMinimumEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeStockBelowMinimum, event.EventType())
	}

	alert := StockAlert{
		TenantID:        event.TenantID().String(),
		BalanceID:       event.AggregateID().String(),
		ItemKind:        belowMinimum.ItemKind.String(),
		ItemID:          belowMinimum.ItemID.String(),
		LocationID:      belowMinimum.LocationID.String(),
		ForSale:         belowMinimum.ForSale.String(),
		MinimumQuantity: belowMinimum.MinimumQuantity.String(),
		Shortfall:       belowMinimum.Shortfall().String(),
		AlertType:       "low_stock",
	}
	if belowMinimum.ForSale.IsZero() {
		alert.AlertType = "out_of_stock"
	}

	h.logger.Warn("stock below minimum",
		zap.String("tenant_id", alert.TenantID),
		zap.String("item_kind", alert.ItemKind),
		zap.String("item_id", alert.ItemID),
		zap.String("location_id", alert.LocationID),
		zap.String("for_sale", alert.ForSale),
		zap.String("minimum_quantity", alert.MinimumQuantity),
		zap.String("alert_type", alert.AlertType),
	)
	h.metrics.RecordStockBelowMinimum(ctx, event.TenantID())

	if h.notifier != nil {
		if err := h.notifier.SendAlert(ctx, alert); err != nil {
			// notification failure does not fail event handling
			h.logger.Error("failed to send stock alert",
				zap.String("item_id", alert.ItemID),
				zap.Error(err),
			)
		}
	}
	return nil
}

var _ shared.EventHandler = (*StockBelowMinimumHandler)(nil)
