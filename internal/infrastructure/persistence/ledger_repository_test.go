package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgerEntry(t *testing.T, tenantID uuid.UUID, key inventory.BalanceKey, movement inventory.MovementType, before, delta int64, userID uuid.UUID, opts ...inventory.LedgerOption) *inventory.LedgerEntry {
	t.Helper()
	change := inventory.BucketChange{
		Bucket: movement.Bucket(),
		Before: decimal.NewFromInt(before),
		Delta:  decimal.NewFromInt(delta),
	}
	entry, err := inventory.NewLedgerEntry(tenantID, key, movement, change, userID, opts...)
	require.NoError(t, err)
	return entry
}

func TestGormLedgerRepository_Append(t *testing.T) {
	repo := NewGormLedgerRepository(newSQLiteDB(t))
	ctx := context.Background()
	tenantID := uuid.New()
	userID := uuid.New()
	key := newBalanceKey()

	t.Run("appends entries in order", func(t *testing.T) {
		at := time.Now().UTC()
		first := ledgerEntry(t, tenantID, key, inventory.MovementEntry, 0, 10, userID, inventory.WithTimestamp(at))
		second := ledgerEntry(t, tenantID, key, inventory.MovementReserve, 0, 4, userID, inventory.WithTimestamp(at))

		require.NoError(t, repo.Append(ctx, first, second))
		assert.True(t, second.CreatedAt.After(first.CreatedAt))

		stored, err := repo.FindByID(ctx, tenantID, first.ID)
		require.NoError(t, err)
		assert.Equal(t, inventory.MovementEntry, stored.MovementType)
		assert.True(t, decimal.NewFromInt(10).Equal(stored.BalanceAfter))
	})

	t.Run("rejects an invalid entry before writing", func(t *testing.T) {
		valid := ledgerEntry(t, tenantID, key, inventory.MovementEntry, 10, 1, userID)
		broken := ledgerEntry(t, tenantID, key, inventory.MovementEntry, 11, 1, userID)
		broken.BalanceAfter = decimal.NewFromInt(99)

		err := repo.Append(ctx, valid, broken)

		assert.ErrorIs(t, err, inventory.ErrInvalidLedgerEntry)
		_, err = repo.FindByID(ctx, tenantID, valid.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("rejects a duplicate id", func(t *testing.T) {
		entry := ledgerEntry(t, tenantID, key, inventory.MovementEntry, 10, 1, userID)
		require.NoError(t, repo.Append(ctx, entry))

		err := repo.Append(ctx, entry)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})
}

func TestGormLedgerRepository_Queries(t *testing.T) {
	repo := NewGormLedgerRepository(newSQLiteDB(t))
	ctx := context.Background()
	tenantID := uuid.New()
	userA := uuid.New()
	userB := uuid.New()
	key := newBalanceKey()
	other := newBalanceKey()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	entries := []*inventory.LedgerEntry{
		ledgerEntry(t, tenantID, key, inventory.MovementPurchase, 0, 10, userA,
			inventory.WithTimestamp(base), inventory.WithDocument("purchase_order", "PO-1")),
		ledgerEntry(t, tenantID, key, inventory.MovementReserve, 0, 4, userA,
			inventory.WithTimestamp(base.Add(time.Hour)), inventory.WithDocument("sales_order", "SO-1")),
		ledgerEntry(t, tenantID, key, inventory.MovementSale, 10, -3, userB,
			inventory.WithTimestamp(base.Add(2*time.Hour)), inventory.WithDocument("sales_order", "SO-2")),
		ledgerEntry(t, tenantID, other, inventory.MovementEntry, 0, 5, userB,
			inventory.WithTimestamp(base.Add(3*time.Hour))),
	}
	require.NoError(t, repo.Append(ctx, entries...))
	require.NoError(t, repo.Append(ctx, ledgerEntry(t, uuid.New(), key, inventory.MovementEntry, 0, 1, userA)))

	t.Run("finds newest first by default", func(t *testing.T) {
		found, total, err := repo.Find(ctx, tenantID, inventory.LedgerFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		require.Len(t, found, 4)
		assert.Equal(t, entries[3].ID, found[0].ID)
		assert.Equal(t, entries[0].ID, found[3].ID)
	})

	t.Run("filters by item and movement type", func(t *testing.T) {
		item := key.Item
		movement := inventory.MovementSale
		found, total, err := repo.Find(ctx, tenantID, inventory.LedgerFilter{Item: &item, MovementType: &movement})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, entries[2].ID, found[0].ID)
	})

	t.Run("filters by document", func(t *testing.T) {
		found, _, err := repo.Find(ctx, tenantID, inventory.LedgerFilter{DocumentType: "sales_order", DocumentID: "SO-1"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, entries[1].ID, found[0].ID)
	})

	t.Run("filters by user and location", func(t *testing.T) {
		location := other.LocationID
		found, _, err := repo.Find(ctx, tenantID, inventory.LedgerFilter{UserID: &userB, LocationID: &location})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, entries[3].ID, found[0].ID)
	})

	t.Run("latest per bucket", func(t *testing.T) {
		latest, err := repo.Latest(ctx, tenantID, key, "")
		require.NoError(t, err)
		assert.Equal(t, entries[2].ID, latest.ID)

		reserved, err := repo.Latest(ctx, tenantID, key, inventory.BucketReserved)
		require.NoError(t, err)
		assert.Equal(t, entries[1].ID, reserved.ID)

		_, err = repo.Latest(ctx, tenantID, newBalanceKey(), "")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("timeline is oldest first", func(t *testing.T) {
		timeline, err := repo.Timeline(ctx, tenantID, key)
		require.NoError(t, err)
		require.Len(t, timeline, 3)
		assert.Equal(t, entries[0].ID, timeline[0].ID)
		assert.Equal(t, entries[2].ID, timeline[2].ID)
	})

	t.Run("replay sums both buckets", func(t *testing.T) {
		totals, err := repo.Replay(ctx, tenantID, key)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(7).Equal(totals.Available), "got %s", totals.Available)
		assert.True(t, decimal.NewFromInt(4).Equal(totals.Reserved), "got %s", totals.Reserved)
		assert.Equal(t, int64(3), totals.Entries)
	})

	t.Run("replay of an empty balance is zero", func(t *testing.T) {
		totals, err := repo.Replay(ctx, tenantID, newBalanceKey())
		require.NoError(t, err)
		assert.True(t, totals.Available.IsZero())
		assert.True(t, totals.Reserved.IsZero())
		assert.Zero(t, totals.Entries)
	})
}
