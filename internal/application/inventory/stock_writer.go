package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/erp/stockengine/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// stockWriter applies balance mutations inside one transaction.
//
// Every balance goes through lock before it is changed: the row is locked, then
// both cached buckets are compared with the latest ledger snapshot. A mismatch
// aborts the transaction with ErrBalanceIntegrity.
type stockWriter struct {
	ctx      context.Context
	repos    TransactionalRepositories
	tenantID uuid.UUID
	userID   uuid.UUID

	locked  map[inventory.BalanceKey]*inventory.Balance
	order   []inventory.BalanceKey
	lastAt  map[inventory.BalanceKey]time.Time
	entries []*inventory.LedgerEntry
}

func newStockWriter(ctx context.Context, repos TransactionalRepositories, tenantID, userID uuid.UUID) *stockWriter {
	return &stockWriter{
		ctx:      ctx,
		repos:    repos,
		tenantID: tenantID,
		userID:   userID,
		locked:   make(map[inventory.BalanceKey]*inventory.Balance),
		lastAt:   make(map[inventory.BalanceKey]time.Time),
	}
}

// lockAll locks several balances in BalanceKey.Less order
func (w *stockWriter) lockAll(keys ...inventory.BalanceKey) error {
	sorted := make([]inventory.BalanceKey, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	for _, key := range sorted {
		if _, err := w.lock(key); err != nil {
			return err
		}
	}
	return nil
}

// lock returns the locked, verified balance of a key. A key is only locked once
// per transaction.
func (w *stockWriter) lock(key inventory.BalanceKey) (*inventory.Balance, error) {
	if b, ok := w.locked[key]; ok {
		return b, nil
	}

	b, err := w.repos.BalanceRepo().GetForUpdate(w.ctx, w.tenantID, key)
	if err != nil {
		return nil, err
	}
	if err := w.verify(b); err != nil {
		return nil, err
	}

	w.locked[key] = b
	w.order = append(w.order, key)
	return b, nil
}

func (w *stockWriter) verify(b *inventory.Balance) error {
	key := b.Key()
	for _, bucket := range []inventory.Bucket{inventory.BucketAvailable, inventory.BucketReserved} {
		snapshot, at, err := w.snapshot(key, bucket)
		if err != nil {
			return err
		}
		if at.After(w.lastAt[key]) {
			w.lastAt[key] = at
		}
		if cached := b.BucketValue(bucket); !cached.Equal(snapshot) {
			return inventory.ErrBalanceIntegrity.WithMessage(fmt.Sprintf(
				"Balance %s: cached %s quantity %s disagrees with ledger snapshot %s",
				key, bucket, cached, snapshot))
		}
	}
	return nil
}

// snapshot returns BalanceAfter of the newest entry of a bucket, zero if none
func (w *stockWriter) snapshot(key inventory.BalanceKey, bucket inventory.Bucket) (decimal.Decimal, time.Time, error) {
	latest, err := w.repos.LedgerRepo().Latest(w.ctx, w.tenantID, key, bucket)
	if errors.Is(err, shared.ErrNotFound) {
		return decimal.Zero, time.Time{}, nil
	}
	if err != nil {
		return decimal.Zero, time.Time{}, fmt.Errorf("failed to read ledger snapshot: %w", err)
	}
	return latest.BalanceAfter, latest.CreatedAt, nil
}

// record appends the ledger entry of a change on a locked balance. Entries of one
// balance get strictly increasing timestamps so Latest is never ambiguous.
func (w *stockWriter) record(
	b *inventory.Balance,
	movement inventory.MovementType,
	change inventory.BucketChange,
	opts ...inventory.LedgerOption,
) (*inventory.LedgerEntry, error) {
	key := b.Key()
	at := time.Now().UTC().Truncate(time.Microsecond)
	if last := w.lastAt[key]; !at.After(last) {
		at = last.Add(time.Microsecond)
	}

	opts = append(opts, inventory.WithTimestamp(at))
	entry, err := inventory.NewLedgerEntry(w.tenantID, key, movement, change, w.userID, opts...)
	if err != nil {
		return nil, err
	}
	if err := w.repos.LedgerRepo().Append(w.ctx, entry); err != nil {
		return nil, err
	}

	w.lastAt[key] = at
	w.entries = append(w.entries, entry)
	return entry, nil
}

// save persists every locked balance in lock order
func (w *stockWriter) save() error {
	for _, key := range w.order {
		if err := w.repos.BalanceRepo().Save(w.ctx, w.locked[key]); err != nil {
			return err
		}
	}
	return nil
}

// events drains the domain events raised by the locked balances
func (w *stockWriter) events() []shared.DomainEvent {
	var events []shared.DomainEvent
	for _, key := range w.order {
		b := w.locked[key]
		events = append(events, b.PendingEvents()...)
		b.ClearEvents()
	}
	return events
}

// commitHooks runs what must only happen once a transaction has committed
type commitHooks struct {
	logger         *zap.Logger
	eventPublisher shared.EventPublisher
	metrics        *telemetry.InventoryMetrics
}

// SetEventPublisher sets the publisher of domain events raised by mutations
func (h *commitHooks) SetEventPublisher(publisher shared.EventPublisher) {
	h.eventPublisher = publisher
}

// SetMetrics sets the inventory metrics recorder
func (h *commitHooks) SetMetrics(metrics *telemetry.InventoryMetrics) {
	h.metrics = metrics
}

func (h *commitHooks) afterCommit(ctx context.Context, w *stockWriter) {
	for _, e := range w.entries {
		h.metrics.RecordMovement(ctx, w.tenantID, e.MovementType.String(), e.Quantity)
	}

	events := w.events()
	if len(events) == 0 || h.eventPublisher == nil {
		return
	}
	// the mutation is committed; a publish failure is logged, not returned
	if err := h.eventPublisher.Publish(ctx, events...); err != nil {
		h.logger.Error("Failed to publish inventory events",
			zap.String("tenant_id", w.tenantID.String()),
			zap.Int("count", len(events)),
			zap.Error(err),
		)
	}
}

// onFailure records integrity violations, which are never corrected automatically
func (h *commitHooks) onFailure(ctx context.Context, tenantID uuid.UUID, operation string, err error) {
	if errors.Is(err, inventory.ErrBalanceIntegrity) {
		h.metrics.RecordIntegrityViolation(ctx, tenantID, operation)
		h.logger.Error("Balance integrity violation",
			zap.String("tenant_id", tenantID.String()),
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
}
