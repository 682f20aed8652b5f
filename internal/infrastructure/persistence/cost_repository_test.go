package persistence

import (
	"context"
	"testing"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormCostRepository(t *testing.T) {
	repo := NewGormCostRepository(newSQLiteDB(t))
	ctx := context.Background()
	tenantID := uuid.New()
	key := newBalanceKey()

	_, err := repo.FindByKey(ctx, tenantID, key)
	require.ErrorIs(t, err, shared.ErrNotFound)

	record := inventory.NewCostRecord(tenantID, key)
	require.NoError(t, record.ApplyReceipt(decimal.Zero, decimal.NewFromInt(10), decimal.NewFromInt(5)))
	require.NoError(t, repo.Save(ctx, record))

	stored, err := repo.FindByKey(ctx, tenantID, key)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5).Equal(stored.AverageCost))

	require.NoError(t, stored.ApplyReceipt(decimal.NewFromInt(10), decimal.NewFromInt(10), decimal.NewFromInt(7)))
	require.NoError(t, repo.Save(ctx, stored))

	updated, err := repo.FindByKey(ctx, tenantID, key)
	require.NoError(t, err)
	assert.Equal(t, record.ID, updated.ID)
	assert.True(t, decimal.NewFromInt(6).Equal(updated.AverageCost), "got %s", updated.AverageCost)
	assert.True(t, decimal.NewFromInt(7).Equal(updated.LastUnitCost))
	assert.True(t, decimal.NewFromInt(20).Equal(updated.PurchasedQuantity))
	assert.True(t, decimal.NewFromInt(120).Equal(updated.PurchasedValue))
}

func TestGormCostRepository_SaveUpsertsOnKey(t *testing.T) {
	repo := NewGormCostRepository(newSQLiteDB(t))
	ctx := context.Background()
	tenantID := uuid.New()
	key := newBalanceKey()

	first := inventory.NewCostRecord(tenantID, key)
	require.NoError(t, first.ApplyReceipt(decimal.Zero, decimal.NewFromInt(1), decimal.NewFromInt(3)))
	require.NoError(t, repo.Save(ctx, first))

	// a second writer that never saw the first row still lands on it
	second := inventory.NewCostRecord(tenantID, key)
	require.NoError(t, second.ApplyReceipt(decimal.Zero, decimal.NewFromInt(1), decimal.NewFromInt(9)))
	require.NoError(t, repo.Save(ctx, second))

	stored, err := repo.FindByKey(ctx, tenantID, key)
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.True(t, decimal.NewFromInt(9).Equal(stored.AverageCost))
}
