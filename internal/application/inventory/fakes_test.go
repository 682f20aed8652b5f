package inventory

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// In-memory repositories. They copy rows in and out the way a database does, so
// a service only sees its changes after Save.

type memBalanceRepo struct {
	mu   sync.Mutex
	rows map[inventory.BalanceKey]*inventory.Balance
	// locks records GetForUpdate calls in order
	locks []inventory.BalanceKey
}

func newMemBalanceRepo() *memBalanceRepo {
	return &memBalanceRepo{rows: make(map[inventory.BalanceKey]*inventory.Balance)}
}

func copyBalance(b *inventory.Balance) *inventory.Balance {
	c := *b
	c.ClearEvents()
	return &c
}

func (r *memBalanceRepo) getOrCreate(tenantID uuid.UUID, key inventory.BalanceKey) (*inventory.Balance, error) {
	if b, ok := r.rows[key]; ok {
		return copyBalance(b), nil
	}
	b, err := inventory.NewBalance(tenantID, key)
	if err != nil {
		return nil, err
	}
	r.rows[key] = copyBalance(b)
	return b, nil
}

func (r *memBalanceRepo) FindByKey(_ context.Context, _ uuid.UUID, key inventory.BalanceKey) (*inventory.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.rows[key]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return copyBalance(b), nil
}

func (r *memBalanceRepo) GetOrCreate(_ context.Context, tenantID uuid.UUID, key inventory.BalanceKey) (*inventory.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreate(tenantID, key)
}

func (r *memBalanceRepo) GetForUpdate(_ context.Context, tenantID uuid.UUID, key inventory.BalanceKey) (*inventory.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locks = append(r.locks, key)
	return r.getOrCreate(tenantID, key)
}

func (r *memBalanceRepo) Save(_ context.Context, b *inventory.Balance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[b.Key()]
	if ok && stored.Version != b.Version {
		return shared.ErrConcurrencyConflict
	}
	b.IncrementVersion()
	r.rows[b.Key()] = copyBalance(b)
	return nil
}

func (r *memBalanceRepo) List(_ context.Context, _ uuid.UUID, filter inventory.BalanceFilter) ([]inventory.Balance, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.Balance
	for _, b := range r.rows {
		if filter.LocationID != nil && b.LocationID != *filter.LocationID {
			continue
		}
		if filter.OnlyInStock && !b.QuantityAvailable.IsPositive() {
			continue
		}
		if filter.BelowMinimum && !b.IsBelowMinimum() {
			continue
		}
		out = append(out, *copyBalance(b))
	}
	return out, int64(len(out)), nil
}

func (r *memBalanceRepo) FindBelowMinimum(ctx context.Context, tenantID uuid.UUID) ([]inventory.Balance, error) {
	out, _, err := r.List(ctx, tenantID, inventory.BalanceFilter{BelowMinimum: true})
	return out, err
}

func (r *memBalanceRepo) SumForSaleByProducts(_ context.Context, _ uuid.UUID, productIDs []uuid.UUID, locationID *uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	out := make(map[uuid.UUID]decimal.Decimal)
	for key, b := range r.rows {
		if key.Item.Kind != inventory.ItemKindProduct || !wanted[key.Item.ID] {
			continue
		}
		if locationID != nil && key.LocationID != *locationID {
			continue
		}
		out[key.Item.ID] = out[key.Item.ID].Add(b.ForSale())
	}
	return out, nil
}

// put stores a balance as-is, bypassing the ledger
func (r *memBalanceRepo) put(b *inventory.Balance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[b.Key()] = copyBalance(b)
}

func (r *memBalanceRepo) get(key inventory.BalanceKey) *inventory.Balance {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.rows[key]; ok {
		return copyBalance(b)
	}
	return nil
}

type memLedgerRepo struct {
	mu      sync.Mutex
	entries []inventory.LedgerEntry
}

func (r *memLedgerRepo) Append(_ context.Context, entries ...*inventory.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
		r.entries = append(r.entries, *e)
	}
	return nil
}

func (r *memLedgerRepo) FindByID(_ context.Context, _ uuid.UUID, id uuid.UUID) (*inventory.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == id {
			e := r.entries[i]
			return &e, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memLedgerRepo) Find(_ context.Context, _ uuid.UUID, filter inventory.LedgerFilter) ([]inventory.LedgerEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.LedgerEntry
	for _, e := range r.entries {
		switch {
		case filter.Item != nil && e.Item() != *filter.Item,
			filter.LocationID != nil && e.LocationID != *filter.LocationID,
			filter.MovementType != nil && e.MovementType != *filter.MovementType,
			filter.DocumentType != "" && e.DocumentType != filter.DocumentType,
			filter.DocumentID != "" && e.DocumentID != filter.DocumentID,
			filter.UserID != nil && e.UserID != *filter.UserID:
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

func (r *memLedgerRepo) of(key inventory.BalanceKey) []inventory.LedgerEntry {
	var out []inventory.LedgerEntry
	for _, e := range r.entries {
		if e.Key() == key {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *memLedgerRepo) Latest(_ context.Context, _ uuid.UUID, key inventory.BalanceKey, bucket inventory.Bucket) (*inventory.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.of(key)
	for i := len(entries) - 1; i >= 0; i-- {
		if bucket == "" || entries[i].Bucket == bucket {
			e := entries[i]
			return &e, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memLedgerRepo) Timeline(_ context.Context, _ uuid.UUID, key inventory.BalanceKey) ([]inventory.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.of(key), nil
}

func (r *memLedgerRepo) Replay(_ context.Context, _ uuid.UUID, key inventory.BalanceKey) (*inventory.ReplayTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	totals := &inventory.ReplayTotals{Available: decimal.Zero, Reserved: decimal.Zero}
	for _, e := range r.of(key) {
		if e.Bucket == inventory.BucketReserved {
			totals.Reserved = totals.Reserved.Add(e.Quantity)
		} else {
			totals.Available = totals.Available.Add(e.Quantity)
		}
		totals.Entries++
	}
	return totals, nil
}

func (r *memLedgerRepo) all() []inventory.LedgerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]inventory.LedgerEntry(nil), r.entries...)
}

type memTransferRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]inventory.Transfer
}

func (r *memTransferRepo) Create(_ context.Context, t *inventory.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[t.ID] = *t
	return nil
}

func (r *memTransferRepo) Save(ctx context.Context, t *inventory.Transfer) error {
	return r.Create(ctx, t)
}

func (r *memTransferRepo) FindByID(_ context.Context, _ uuid.UUID, id uuid.UUID) (*inventory.Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &t, nil
}

func (r *memTransferRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Transfer, error) {
	return r.FindByID(ctx, tenantID, id)
}

func (r *memTransferRepo) List(_ context.Context, _ uuid.UUID, _ inventory.TransferFilter) ([]inventory.Transfer, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.Transfer
	for _, t := range r.rows {
		out = append(out, t)
	}
	return out, int64(len(out)), nil
}

type memAdjustmentRepo struct {
	mu     sync.Mutex
	rows   []inventory.Adjustment
	groups []inventory.AdjustmentGroup
	since  time.Time
}

func (r *memAdjustmentRepo) Create(_ context.Context, a *inventory.Adjustment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.Number == a.Number {
			return shared.ErrAlreadyExists
		}
	}
	r.rows = append(r.rows, *a)
	return nil
}

func (r *memAdjustmentRepo) FindByID(_ context.Context, _ uuid.UUID, id uuid.UUID) (*inventory.Adjustment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id {
			a := r.rows[i]
			return &a, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memAdjustmentRepo) FindByNumber(_ context.Context, _ uuid.UUID, number string) (*inventory.Adjustment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].Number == number {
			a := r.rows[i]
			return &a, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memAdjustmentRepo) List(_ context.Context, _ uuid.UUID, _ inventory.AdjustmentFilter) ([]inventory.Adjustment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]inventory.Adjustment(nil), r.rows...), int64(len(r.rows)), nil
}

func (r *memAdjustmentRepo) GroupByItemLocation(_ context.Context, _ uuid.UUID, since time.Time) ([]inventory.AdjustmentGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.since = since
	return r.groups, nil
}

type memReservationRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]inventory.Reservation
	// failOn makes FindByIDForUpdate fail for one id
	failOn uuid.UUID
}

func (r *memReservationRepo) Create(_ context.Context, res *inventory.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[res.ID] = *res
	return nil
}

func (r *memReservationRepo) Save(ctx context.Context, res *inventory.Reservation) error {
	return r.Create(ctx, res)
}

func (r *memReservationRepo) FindByID(_ context.Context, _ uuid.UUID, id uuid.UUID) (*inventory.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &res, nil
}

func (r *memReservationRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Reservation, error) {
	if id == r.failOn {
		return nil, shared.ErrConcurrencyConflict
	}
	return r.FindByID(ctx, tenantID, id)
}

func (r *memReservationRepo) List(_ context.Context, _ uuid.UUID, _ inventory.ReservationFilter) ([]inventory.Reservation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.Reservation
	for _, res := range r.rows {
		out = append(out, res)
	}
	return out, int64(len(out)), nil
}

func (r *memReservationRepo) FindActiveCreatedBefore(_ context.Context, tenantID uuid.UUID, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []inventory.Reservation
	for _, res := range r.rows {
		if res.TenantID == tenantID && res.IsActive() && !res.CreatedAt.After(cutoff) {
			rows = append(rows, res)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	var ids []uuid.UUID
	for _, res := range rows {
		if len(ids) == limit {
			break
		}
		ids = append(ids, res.ID)
	}
	return ids, nil
}

func (r *memReservationRepo) TenantsWithActive(_ context.Context) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[uuid.UUID]bool{}
	var out []uuid.UUID
	for _, res := range r.rows {
		if res.IsActive() && !seen[res.TenantID] {
			seen[res.TenantID] = true
			out = append(out, res.TenantID)
		}
	}
	return out, nil
}

type memCostRepo struct {
	mu   sync.Mutex
	rows map[inventory.BalanceKey]inventory.CostRecord
}

func (r *memCostRepo) FindByKey(_ context.Context, _ uuid.UUID, key inventory.BalanceKey) (*inventory.CostRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[key]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &c, nil
}

func (r *memCostRepo) Save(_ context.Context, c *inventory.CostRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[inventory.BalanceKey{Item: inventory.ItemRef{Kind: c.ItemKind, ID: c.ItemID}, LocationID: c.LocationID}] = *c
	return nil
}

type memBOMRepo struct {
	mu   sync.Mutex
	rows []inventory.BOMComponent
}

func (r *memBOMRepo) FindByParent(_ context.Context, _ uuid.UUID, parentID uuid.UUID) ([]inventory.BOMComponent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.BOMComponent
	for _, c := range r.rows {
		if c.ParentProductID == parentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memBOMRepo) Upsert(_ context.Context, c *inventory.BOMComponent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ParentProductID == c.ParentProductID && r.rows[i].ComponentProductID == c.ComponentProductID {
			r.rows[i].QuantityRequired = c.QuantityRequired
			r.rows[i].UpdatedAt = c.UpdatedAt
			return nil
		}
	}
	r.rows = append(r.rows, *c)
	return nil
}

func (r *memBOMRepo) Delete(_ context.Context, _ uuid.UUID, parentID, componentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ParentProductID == parentID && r.rows[i].ComponentProductID == componentID {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

// testStore bundles the in-memory repositories behind a NoOpTransactionScope
type testStore struct {
	balances     *memBalanceRepo
	ledger       *memLedgerRepo
	transfers    *memTransferRepo
	adjustments  *memAdjustmentRepo
	reservations *memReservationRepo
	costs        *memCostRepo
	boms         *memBOMRepo
	sequences    *memSequenceRepo
	scope        *NoOpTransactionScope
}

func newTestStore() *testStore {
	s := &testStore{
		balances:     newMemBalanceRepo(),
		ledger:       &memLedgerRepo{},
		transfers:    &memTransferRepo{rows: map[uuid.UUID]inventory.Transfer{}},
		adjustments:  &memAdjustmentRepo{},
		reservations: &memReservationRepo{rows: map[uuid.UUID]inventory.Reservation{}},
		costs:        &memCostRepo{rows: map[inventory.BalanceKey]inventory.CostRecord{}},
		boms:         &memBOMRepo{},
		sequences:    &memSequenceRepo{values: map[string]int64{}},
	}
	s.scope = NewNoOpTransactionScope(&Repositories{
		Balances:     s.balances,
		Ledger:       s.ledger,
		Transfers:    s.transfers,
		Adjustments:  s.adjustments,
		Reservations: s.reservations,
		Costs:        s.costs,
		Sequences:    s.sequences,
	})
	return s
}

type memSequenceRepo struct {
	values map[string]int64
}

func (r *memSequenceRepo) Next(_ context.Context, tenantID uuid.UUID, scope, period string) (int64, error) {
	key := tenantID.String() + "/" + scope + "/" + period
	r.values[key]++
	return r.values[key], nil
}

// requireConsistent asserts that the cached buckets equal the replayed ledger
func (s *testStore) requireConsistent(t *testing.T, key inventory.BalanceKey) {
	t.Helper()
	b := s.balances.get(key)
	require.NotNil(t, b)
	totals, err := s.ledger.Replay(context.Background(), b.TenantID, key)
	require.NoError(t, err)
	require.True(t, b.QuantityAvailable.Equal(totals.Available),
		"available %s != replayed %s", b.QuantityAvailable, totals.Available)
	require.True(t, b.QuantityReserved.Equal(totals.Reserved),
		"reserved %s != replayed %s", b.QuantityReserved, totals.Reserved)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockSequenceGenerator is a mock implementation of inventory.SequenceGenerator
type MockSequenceGenerator struct {
	mock.Mock
}

func (m *MockSequenceGenerator) Next(ctx context.Context, tenantID uuid.UUID, scope, period string) (int64, error) {
	args := m.Called(ctx, tenantID, scope, period)
	return args.Get(0).(int64), args.Error(1)
}

// MockItemLookup is a mock implementation of inventory.ItemLookup
type MockItemLookup struct {
	mock.Mock
}

func (m *MockItemLookup) GetItem(ctx context.Context, tenantID uuid.UUID, item inventory.ItemRef) (*inventory.ItemInfo, error) {
	args := m.Called(ctx, tenantID, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.ItemInfo), args.Error(1)
}

// MockLocationLookup is a mock implementation of inventory.LocationLookup
type MockLocationLookup struct {
	mock.Mock
}

func (m *MockLocationLookup) GetLocation(ctx context.Context, tenantID, locationID uuid.UUID) (*inventory.LocationInfo, error) {
	args := m.Called(ctx, tenantID, locationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.LocationInfo), args.Error(1)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}
