//go:build integration

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	inventoryapp "github.com/erp/stockengine/internal/application/inventory"
	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjustments_NumberedPerTenantAndMonth(t *testing.T) {
	tdb := NewTestDB(t)
	engine := NewEngine(t, tdb)
	ctx := context.Background()

	tenantID := uuid.New()
	otherTenant := uuid.New()
	item := testutil.NewProduct()
	locationID := uuid.New()
	date := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	adjust := func(tenant uuid.UUID, direction inventory.AdjustmentDirection, qty string) *inventoryapp.AdjustmentResponse {
		t.Helper()
		resp, err := engine.Adjustments.Adjust(ctx, tenant, inventoryapp.AdjustRequest{
			Item: item, LocationID: locationID, Direction: direction, Quantity: testutil.Dec(qty),
			Reason: inventory.ReasonInventoryCount, Date: &date, UserID: testutil.TestUserID(),
		})
		require.NoError(t, err)
		return resp
	}

	first := adjust(tenantID, inventory.AdjustmentIncrease, "10")
	second := adjust(tenantID, inventory.AdjustmentDecrease, "3")
	foreign := adjust(otherTenant, inventory.AdjustmentIncrease, "1")

	assert.Equal(t, "ADJ-202603-0001", first.Number)
	assert.Equal(t, "ADJ-202603-0002", second.Number)
	assert.Equal(t, "ADJ-202603-0001", foreign.Number)

	assert.True(t, second.BalanceBefore.Equal(testutil.Dec("10")))
	assert.True(t, second.BalanceAfter.Equal(testutil.Dec("7")))

	_, err := engine.Adjustments.Adjust(ctx, tenantID, inventoryapp.AdjustRequest{
		Item: item, LocationID: locationID, Direction: inventory.AdjustmentDecrease, Quantity: testutil.Dec("8"),
		Reason: inventory.ReasonLoss, Date: &date, UserID: testutil.TestUserID(),
	})
	assert.ErrorIs(t, err, inventory.ErrInsufficientQuantity)

	list, total, err := engine.Adjustments.ListAdjustments(ctx, tenantID, inventoryapp.AdjustmentQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	entries, err := engine.Ledger.ByDocument(ctx, tenantID, inventory.DocumentTypeAdjustment, first.ID.String())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, inventory.MovementAdjustment, entries[0].MovementType)
}

func TestAdjustments_RejectedAdjustmentKeepsNumberFree(t *testing.T) {
	tdb := NewTestDB(t)
	engine := NewEngine(t, tdb)
	ctx := context.Background()

	tenantID := uuid.New()
	item := testutil.NewProduct()
	locationID := uuid.New()
	date := time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC)
	request := func(direction inventory.AdjustmentDirection, qty string) inventoryapp.AdjustRequest {
		return inventoryapp.AdjustRequest{
			Item: item, LocationID: locationID, Direction: direction, Quantity: testutil.Dec(qty),
			Reason: inventory.ReasonLoss, Date: &date, UserID: testutil.TestUserID(),
		}
	}

	_, err := engine.Adjustments.Adjust(ctx, tenantID, request(inventory.AdjustmentDecrease, "5"))
	require.ErrorIs(t, err, inventory.ErrInsufficientQuantity)

	resp, err := engine.Adjustments.Adjust(ctx, tenantID, request(inventory.AdjustmentIncrease, "5"))
	require.NoError(t, err)
	assert.Equal(t, "ADJ-202610-0001", resp.Number)

	_, err = engine.Adjustments.Adjust(ctx, tenantID, request(inventory.AdjustmentDecrease, "6"))
	require.ErrorIs(t, err, inventory.ErrInsufficientQuantity)

	resp, err = engine.Adjustments.Adjust(ctx, tenantID, request(inventory.AdjustmentDecrease, "2"))
	require.NoError(t, err)
	assert.Equal(t, "ADJ-202610-0002", resp.Number)
}

func TestAdjustments_ConcurrentNumbersAreUnique(t *testing.T) {
	tdb := NewTestDB(t)
	engine := NewEngine(t, tdb)
	ctx := context.Background()

	tenantID := uuid.New()
	const workers = 8

	numbers := make(chan string, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			resp, err := engine.Adjustments.Adjust(ctx, tenantID, inventoryapp.AdjustRequest{
				Item: testutil.NewProduct(), LocationID: uuid.New(), Direction: inventory.AdjustmentIncrease,
				Quantity: testutil.Dec("1"), Reason: inventory.ReasonOther, UserID: testutil.TestUserID(),
			})
			if err != nil {
				errs <- err
				return
			}
			numbers <- resp.Number
		}()
	}

	seen := map[string]bool{}
	for i := 0; i < workers; i++ {
		select {
		case err := <-errs:
			require.NoError(t, err)
		case n := <-numbers:
			assert.False(t, seen[n], "duplicate number %s", n)
			seen[n] = true
		case <-time.After(30 * time.Second):
			t.Fatal("adjustments did not complete")
		}
	}
	period := inventory.AdjustmentPeriod(time.Now())
	for i := 1; i <= workers; i++ {
		assert.True(t, seen[fmt.Sprintf("ADJ-%s-%04d", period, i)], "missing number %d", i)
	}
}

func TestAdjustments_FrequentReport(t *testing.T) {
	tdb := NewTestDB(t)
	engine := NewEngine(t, tdb)
	ctx := context.Background()

	tenantID := uuid.New()
	hot, cold := testutil.NewProduct(), testutil.NewProduct()
	locationID := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := engine.Adjustments.Adjust(ctx, tenantID, inventoryapp.AdjustRequest{
			Item: hot, LocationID: locationID, Direction: inventory.AdjustmentIncrease,
			Quantity: testutil.Dec("2"), Reason: inventory.ReasonDataEntryError, UserID: testutil.TestUserID(),
		})
		require.NoError(t, err)
	}
	_, err := engine.Adjustments.Adjust(ctx, tenantID, inventoryapp.AdjustRequest{
		Item: cold, LocationID: locationID, Direction: inventory.AdjustmentIncrease,
		Quantity: testutil.Dec("1"), Reason: inventory.ReasonOther, UserID: testutil.TestUserID(),
	})
	require.NoError(t, err)

	report, err := engine.Adjustments.FrequentAdjustments(ctx, tenantID, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, report.Lines, 2)
	assert.Equal(t, 1, report.Flagged)
	assert.Equal(t, hot, report.Lines[0].Item)
	assert.True(t, report.Lines[0].Flagged)
	assert.Equal(t, int64(3), report.Lines[0].Count)
	assert.True(t, report.Lines[0].TotalIncrease.Equal(testutil.Dec("6")))
	assert.False(t, report.Lines[1].Flagged)
}
