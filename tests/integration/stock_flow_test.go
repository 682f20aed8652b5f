//go:build integration

package integration

import (
	"context"
	"testing"

	inventoryapp "github.com/erp/stockengine/internal/application/inventory"
	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockFlow_ReceiveReserveFulfill(t *testing.T) {
	tdb := NewTestDB(t)
	engine := NewEngine(t, tdb)
	ctx := context.Background()

	tenantID := uuid.New()
	userID := testutil.TestUserID()
	item := testutil.NewProduct()
	locationID := uuid.New()

	first, err := engine.Balances.ReceivePurchase(ctx, tenantID, inventoryapp.ReceiveRequest{
		Item: item, LocationID: locationID, Quantity: testutil.Dec("10"), UnitCost: testutil.Dec("5"),
		DocumentType: "purchase_order", DocumentID: "PO-1", UserID: userID,
	})
	require.NoError(t, err)
	assert.True(t, first.AverageCost.Equal(testutil.Dec("5")))

	second, err := engine.Balances.ReceivePurchase(ctx, tenantID, inventoryapp.ReceiveRequest{
		Item: item, LocationID: locationID, Quantity: testutil.Dec("10"), UnitCost: testutil.Dec("7"),
		DocumentType: "purchase_order", DocumentID: "PO-2", UserID: userID,
	})
	require.NoError(t, err)
	assert.True(t, second.AverageCost.Equal(testutil.Dec("6")), "got %s", second.AverageCost)
	assert.True(t, second.LastUnitCost.Equal(testutil.Dec("7")))
	assert.True(t, second.Balance.QuantityAvailable.Equal(testutil.Dec("20")))

	hold := func(qty, orderID string) *inventoryapp.ReservationResponse {
		t.Helper()
		resp, err := engine.Reservations.Reserve(ctx, tenantID, inventoryapp.ReserveRequest{
			Item: item, LocationID: locationID, Quantity: testutil.Dec(qty),
			SourceType: "sales_order", SourceID: orderID, UserID: userID,
		})
		require.NoError(t, err)
		return resp
	}
	hold("1", "SO-2")
	shipped := hold("3", "SO-1")

	_, err = engine.Reservations.Fulfill(ctx, tenantID, shipped.ID, userID)
	require.NoError(t, err)

	balance, err := engine.Balances.GetBalance(ctx, tenantID, item, locationID)
	require.NoError(t, err)
	assert.True(t, balance.QuantityAvailable.Equal(testutil.Dec("17")))
	assert.True(t, balance.QuantityReserved.Equal(testutil.Dec("1")))
	assert.True(t, balance.QuantityForSale.Equal(testutil.Dec("16")))

	_, err = engine.Balances.Decrease(ctx, tenantID, inventoryapp.MutationRequest{
		Item: item, LocationID: locationID, Quantity: testutil.Dec("17"), UserID: userID,
	})
	assert.ErrorIs(t, err, inventory.ErrInsufficientQuantity, "reserved stock is not for sale")

	report, err := engine.Ledger.ValidateBalanceConsistency(ctx, tenantID, item, locationID)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, int64(6), report.Entries)
	assert.True(t, report.ReplayedAvailable.Equal(testutil.Dec("17")))
	assert.True(t, report.ReplayedReserved.Equal(testutil.Dec("1")))

	timeline, err := engine.Ledger.Timeline(ctx, tenantID, item, locationID)
	require.NoError(t, err)
	require.Len(t, timeline, 6)
	assert.Equal(t, inventory.MovementPurchase, timeline[0].MovementType)
	for i := 1; i < len(timeline); i++ {
		assert.False(t, timeline[i].CreatedAt.Before(timeline[i-1].CreatedAt))
	}

	byDoc, err := engine.Ledger.ByDocument(ctx, tenantID, inventory.DocumentTypeReservation, shipped.ID.String())
	require.NoError(t, err)
	require.Len(t, byDoc, 3)
	assert.Equal(t, inventory.MovementReserve, byDoc[0].MovementType)
	assert.Equal(t, inventory.MovementRelease, byDoc[1].MovementType)
	assert.Equal(t, inventory.MovementSale, byDoc[2].MovementType)

	latest, err := engine.Ledger.Latest(ctx, tenantID, item, locationID)
	require.NoError(t, err)
	assert.Equal(t, inventory.MovementSale, latest.MovementType)
}

func TestStockFlow_DetectsTamperedBalance(t *testing.T) {
	tdb := NewTestDB(t)
	engine := NewEngine(t, tdb)
	ctx := context.Background()

	tenantID := uuid.New()
	item := testutil.NewProduct()
	locationID := uuid.New()

	_, err := engine.Balances.Increase(ctx, tenantID, inventoryapp.MutationRequest{
		Item: item, LocationID: locationID, Quantity: testutil.Dec("8"), UserID: testutil.TestUserID(),
	})
	require.NoError(t, err)

	require.NoError(t, tdb.DB.Exec(
		"UPDATE inventory_balances SET quantity_available = 9 WHERE tenant_id = ?", tenantID).Error)

	report, err := engine.Ledger.ValidateBalanceConsistency(ctx, tenantID, item, locationID)
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	assert.True(t, report.CachedAvailable.Equal(testutil.Dec("9")))
	assert.True(t, report.ReplayedAvailable.Equal(testutil.Dec("8")))
}

func TestStockFlow_BelowMinimumListing(t *testing.T) {
	tdb := NewTestDB(t)
	engine := NewEngine(t, tdb)
	ctx := context.Background()

	tenantID := uuid.New()
	item := testutil.NewProduct()
	locationID := uuid.New()
	userID := testutil.TestUserID()

	_, err := engine.Balances.Increase(ctx, tenantID, inventoryapp.MutationRequest{
		Item: item, LocationID: locationID, Quantity: testutil.Dec("10"), UserID: userID,
	})
	require.NoError(t, err)

	minimum := testutil.Dec("5")
	_, err = engine.Balances.SetLevels(ctx, tenantID, inventoryapp.SetLevelsRequest{
		Item: item, LocationID: locationID, Minimum: &minimum,
	})
	require.NoError(t, err)

	below, err := engine.Balances.BelowMinimum(ctx, tenantID)
	require.NoError(t, err)
	assert.Empty(t, below)

	_, err = engine.Balances.Decrease(ctx, tenantID, inventoryapp.MutationRequest{
		Item: item, LocationID: locationID, Quantity: testutil.Dec("6"), UserID: userID,
	})
	require.NoError(t, err)

	below, err = engine.Balances.BelowMinimum(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, below, 1)
	assert.True(t, below[0].IsBelowMinimum)
	assert.Equal(t, item, below[0].Item)
}
