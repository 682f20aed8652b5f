//go:build integration

package integration

import (
	"context"
	"testing"

	inventoryapp "github.com/erp/stockengine/internal/application/inventory"
	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/erp/stockengine/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransfer_MovesAndCancels(t *testing.T) {
	tdb := NewTestDB(t)
	engine := NewEngine(t, tdb, WithReferenceChecks())
	ctx := context.Background()

	tenantID := uuid.New()
	userID := testutil.TestUserID()
	item := testutil.NewProduct()
	from, to := uuid.New(), uuid.New()
	tdb.CreateCatalogItem(tenantID, item)
	tdb.CreateStockLocation(tenantID, from)
	tdb.CreateStockLocation(tenantID, to)

	_, err := engine.Balances.Increase(ctx, tenantID, inventoryapp.MutationRequest{
		Item: item, LocationID: from, Quantity: testutil.Dec("12"), UserID: userID,
	})
	require.NoError(t, err)

	transfer, err := engine.Transfers.Transfer(ctx, tenantID, inventoryapp.TransferRequest{
		Item: item, FromLocationID: from, ToLocationID: to, Quantity: testutil.Dec("5"),
		Reason: "rebalance", UserID: userID,
	})
	require.NoError(t, err)
	assert.Equal(t, inventory.TransferCompleted, transfer.Status)
	require.Len(t, transfer.Entries, 2)

	source, err := engine.Balances.GetBalance(ctx, tenantID, item, from)
	require.NoError(t, err)
	dest, err := engine.Balances.GetBalance(ctx, tenantID, item, to)
	require.NoError(t, err)
	assert.True(t, source.QuantityAvailable.Equal(testutil.Dec("7")))
	assert.True(t, dest.QuantityAvailable.Equal(testutil.Dec("5")))

	cancelled, err := engine.Transfers.Cancel(ctx, tenantID, transfer.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, inventory.TransferCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)

	_, err = engine.Transfers.Cancel(ctx, tenantID, transfer.ID, userID)
	assert.ErrorIs(t, err, shared.ErrInvalidStateTransition)

	source, err = engine.Balances.GetBalance(ctx, tenantID, item, from)
	require.NoError(t, err)
	dest, err = engine.Balances.GetBalance(ctx, tenantID, item, to)
	require.NoError(t, err)
	assert.True(t, source.QuantityAvailable.Equal(testutil.Dec("12")))
	assert.True(t, dest.QuantityAvailable.IsZero())

	for _, loc := range []uuid.UUID{from, to} {
		report, err := engine.Ledger.ValidateBalanceConsistency(ctx, tenantID, item, loc)
		require.NoError(t, err)
		assert.True(t, report.Consistent)
	}

	list, total, err := engine.Transfers.ListTransfers(ctx, tenantID, inventoryapp.TransferQuery{Item: &item})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, transfer.ID, list[0].ID)
}

func TestTransfer_RejectsUnknownReferences(t *testing.T) {
	tdb := NewTestDB(t)
	engine := NewEngine(t, tdb, WithReferenceChecks())
	ctx := context.Background()

	tenantID := uuid.New()
	item := testutil.NewProduct()
	from, to := uuid.New(), uuid.New()
	tdb.CreateCatalogItem(tenantID, item)
	tdb.CreateStockLocation(tenantID, from)

	_, err := engine.Transfers.Transfer(ctx, tenantID, inventoryapp.TransferRequest{
		Item: item, FromLocationID: from, ToLocationID: to, Quantity: testutil.Dec("1"), UserID: testutil.TestUserID(),
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	var rows int64
	require.NoError(t, tdb.DB.Table("inventory_transfers").Where("tenant_id = ?", tenantID).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestTransfer_InsufficientStockLeavesNothingBehind(t *testing.T) {
	tdb := NewTestDB(t)
	engine := NewEngine(t, tdb)
	ctx := context.Background()

	tenantID := uuid.New()
	item := testutil.NewProduct()
	from, to := uuid.New(), uuid.New()

	_, err := engine.Balances.Increase(ctx, tenantID, inventoryapp.MutationRequest{
		Item: item, LocationID: from, Quantity: testutil.Dec("2"), UserID: testutil.TestUserID(),
	})
	require.NoError(t, err)

	_, err = engine.Transfers.Transfer(ctx, tenantID, inventoryapp.TransferRequest{
		Item: item, FromLocationID: from, ToLocationID: to, Quantity: testutil.Dec("3"), UserID: testutil.TestUserID(),
	})
	assert.ErrorIs(t, err, inventory.ErrInsufficientQuantity)

	entries, total, err := engine.Ledger.ByItem(ctx, tenantID, item, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, entries, 1)
}
