package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// InventoryMetrics records stock engine activity.
// A nil *InventoryMetrics is valid and records nothing.
type InventoryMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	movementsTotal      *Counter
	movementQuantity    *FloatCounter
	integrityViolations *Counter
	belowMinimumEvents  *Counter
	reservationsExpired *Counter

	// Gauge metrics (point-in-time values)
	reservedQuantity  *FloatGauge
	belowMinimumCount *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	provider InventoryGaugeProvider
}

// InventoryGaugeProvider supplies the point-in-time values collected periodically.
// It keeps the telemetry package free of the inventory domain.
type InventoryGaugeProvider interface {
	// ActiveTenantIDs returns the tenants that hold balances
	ActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)

	// ReservedQuantityByLocation returns the total reserved quantity per location
	ReservedQuantityByLocation(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)

	// BelowMinimumCount returns how many balances are under their minimum level
	BelowMinimumCount(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// InventoryMetricsConfig holds configuration for inventory metrics.
type InventoryMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	Provider        InventoryGaugeProvider
}

// NewInventoryMetrics creates the instruments of the stock engine.
func NewInventoryMetrics(cfg InventoryMetricsConfig) (*InventoryMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	im := &InventoryMetrics{
		meter:    cfg.Meter,
		logger:   logger,
		stopChan: make(chan struct{}),
		provider: cfg.Provider,
	}

	var err error

	im.movementsTotal, err = NewCounter(
		cfg.Meter,
		"stock_movements_total",
		"Total number of ledger entries written",
		"{entries}",
	)
	if err != nil {
		return nil, err
	}

	im.movementQuantity, err = NewFloatCounter(
		cfg.Meter,
		"stock_movement_quantity_total",
		"Absolute quantity moved by ledger entries",
		"{units}",
	)
	if err != nil {
		return nil, err
	}

	im.integrityViolations, err = NewCounter(
		cfg.Meter,
		"stock_integrity_violations_total",
		"Number of mutations rejected because a balance disagreed with its ledger",
		"{violations}",
	)
	if err != nil {
		return nil, err
	}

	im.belowMinimumEvents, err = NewCounter(
		cfg.Meter,
		"stock_below_minimum_events_total",
		"Number of below-minimum alerts raised",
		"{events}",
	)
	if err != nil {
		return nil, err
	}

	im.reservationsExpired, err = NewCounter(
		cfg.Meter,
		"stock_reservations_expired_total",
		"Number of reservations released by the expiry sweep",
		"{reservations}",
	)
	if err != nil {
		return nil, err
	}

	im.reservedQuantity, err = NewFloatGauge(
		cfg.Meter,
		"stock_reserved_quantity",
		"Current reserved quantity per location",
		"{units}",
	)
	if err != nil {
		return nil, err
	}

	im.belowMinimumCount, err = NewGauge(
		cfg.Meter,
		"stock_below_minimum_count",
		"Number of balances below their minimum level",
		"{balances}",
	)
	if err != nil {
		return nil, err
	}

	return im, nil
}

// RecordMovement counts one ledger entry and its absolute quantity.
func (im *InventoryMetrics) RecordMovement(ctx context.Context, tenantID uuid.UUID, movementType string, quantity decimal.Decimal) {
	if im == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrMovementType.String(movementType),
	}
	im.movementsTotal.Inc(ctx, attrs...)
	qty, _ := quantity.Abs().Float64()
	im.movementQuantity.Add(ctx, qty, attrs...)
}

// RecordIntegrityViolation counts a mutation refused by the integrity check.
func (im *InventoryMetrics) RecordIntegrityViolation(ctx context.Context, tenantID uuid.UUID, operation string) {
	if im == nil {
		return
	}
	im.integrityViolations.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrOperation.String(operation),
	)
}

// RecordStockBelowMinimum counts a below-minimum alert.
func (im *InventoryMetrics) RecordStockBelowMinimum(ctx context.Context, tenantID uuid.UUID) {
	if im == nil {
		return
	}
	im.belowMinimumEvents.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// RecordReservationsExpired adds the reservations released by one sweep.
func (im *InventoryMetrics) RecordReservationsExpired(ctx context.Context, tenantID uuid.UUID, count int64) {
	if im == nil || count <= 0 {
		return
	}
	im.reservationsExpired.Add(ctx, count, AttrTenantID.String(tenantID.String()))
}

// RecordReservedQuantity records the reserved quantity held at a location.
func (im *InventoryMetrics) RecordReservedQuantity(ctx context.Context, tenantID, locationID uuid.UUID, quantity decimal.Decimal) {
	if im == nil {
		return
	}
	qty, _ := quantity.Float64()
	im.reservedQuantity.Record(ctx, qty,
		AttrTenantID.String(tenantID.String()),
		AttrLocationID.String(locationID.String()),
	)
}

// RecordBelowMinimumCount records how many balances sit below their minimum.
func (im *InventoryMetrics) RecordBelowMinimumCount(ctx context.Context, tenantID uuid.UUID, count int64) {
	if im == nil {
		return
	}
	im.belowMinimumCount.Record(ctx, count, AttrTenantID.String(tenantID.String()))
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts collecting the gauges every interval.
// It is non-blocking; call Stop to end collection.
func (im *InventoryMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	if im == nil {
		return
	}
	im.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go im.runPeriodicCollection(ctx, interval)
	})
}

func (im *InventoryMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	im.Collect(ctx)

	for {
		select {
		case <-im.stopChan:
			im.logger.Info("Stopping periodic inventory metrics collection")
			return
		case <-ctx.Done():
			im.logger.Info("Context cancelled, stopping periodic inventory metrics collection")
			return
		case <-ticker.C:
			im.Collect(ctx)
		}
	}
}

// Collect records the gauges once for every active tenant.
func (im *InventoryMetrics) Collect(ctx context.Context) {
	if im == nil {
		return
	}
	if im.provider == nil {
		im.logger.Debug("No inventory gauge provider configured, skipping collection")
		return
	}

	tenantIDs, err := im.provider.ActiveTenantIDs(ctx)
	if err != nil {
		im.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		im.collectTenant(ctx, tenantID)
	}
}

func (im *InventoryMetrics) collectTenant(ctx context.Context, tenantID uuid.UUID) {
	reserved, err := im.provider.ReservedQuantityByLocation(ctx, tenantID)
	if err != nil {
		im.logger.Warn("Failed to get reserved quantity for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		for locationID, quantity := range reserved {
			im.RecordReservedQuantity(ctx, tenantID, locationID, quantity)
		}
	}

	count, err := im.provider.BelowMinimumCount(ctx, tenantID)
	if err != nil {
		im.logger.Warn("Failed to get below-minimum count for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		im.RecordBelowMinimumCount(ctx, tenantID, count)
	}
}

// Stop stops the periodic collection.
func (im *InventoryMetrics) Stop() {
	if im == nil {
		return
	}
	im.stopOnce.Do(func() {
		close(im.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewInventoryMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
