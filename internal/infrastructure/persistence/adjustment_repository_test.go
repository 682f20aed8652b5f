package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdjustment(t *testing.T, tenantID uuid.UUID, number string, key inventory.BalanceKey, direction inventory.AdjustmentDirection, reason inventory.AdjustmentReason, userID uuid.UUID) *inventory.Adjustment {
	t.Helper()
	in := inventory.AdjustmentInput{
		Key:       key,
		Direction: direction,
		Quantity:  decimal.NewFromInt(2),
		Reason:    reason,
		UserID:    userID,
		Date:      time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC),
	}
	if reason == inventory.ReasonOther {
		in.Description = "found behind the shelf"
	}
	delta := in.Quantity
	if direction == inventory.AdjustmentDecrease {
		delta = delta.Neg()
	}
	change := inventory.BucketChange{Bucket: inventory.BucketAvailable, Before: decimal.NewFromInt(10), Delta: delta}
	adjustment, err := inventory.NewAdjustment(tenantID, number, in, change)
	require.NoError(t, err)
	return adjustment
}

func TestGormAdjustmentRepository(t *testing.T) {
	repo := NewGormAdjustmentRepository(newSQLiteDB(t))
	ctx := context.Background()
	tenantID := uuid.New()
	userID := uuid.New()
	key := newBalanceKey()

	loss := newTestAdjustment(t, tenantID, "ADJ-202605-0001", key, inventory.AdjustmentDecrease, inventory.ReasonLoss, userID)
	count := newTestAdjustment(t, tenantID, "ADJ-202605-0002", newBalanceKey(), inventory.AdjustmentIncrease, inventory.ReasonInventoryCount, uuid.New())
	require.NoError(t, repo.Create(ctx, loss))
	require.NoError(t, repo.Create(ctx, count))

	t.Run("numbers are unique per tenant", func(t *testing.T) {
		dup := newTestAdjustment(t, tenantID, loss.Number, key, inventory.AdjustmentIncrease, inventory.ReasonOther, userID)
		assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrAlreadyExists)

		otherTenant := newTestAdjustment(t, uuid.New(), loss.Number, key, inventory.AdjustmentIncrease, inventory.ReasonOther, userID)
		assert.NoError(t, repo.Create(ctx, otherTenant))
	})

	t.Run("finds by id and number", func(t *testing.T) {
		byID, err := repo.FindByID(ctx, tenantID, loss.ID)
		require.NoError(t, err)
		assert.Equal(t, loss.Number, byID.Number)
		assert.True(t, decimal.NewFromInt(8).Equal(byID.BalanceAfter))

		byNumber, err := repo.FindByNumber(ctx, tenantID, count.Number)
		require.NoError(t, err)
		assert.Equal(t, count.ID, byNumber.ID)

		_, err = repo.FindByNumber(ctx, tenantID, "ADJ-000000-9999")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("filters by direction reason and user", func(t *testing.T) {
		direction := inventory.AdjustmentDecrease
		list, total, err := repo.List(ctx, tenantID, inventory.AdjustmentFilter{Direction: &direction})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, loss.ID, list[0].ID)

		reason := inventory.ReasonInventoryCount
		list, _, err = repo.List(ctx, tenantID, inventory.AdjustmentFilter{Reason: &reason})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, count.ID, list[0].ID)

		list, _, err = repo.List(ctx, tenantID, inventory.AdjustmentFilter{UserID: &userID})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, loss.ID, list[0].ID)
	})

	t.Run("filters by location", func(t *testing.T) {
		location := key.LocationID
		list, total, err := repo.List(ctx, tenantID, inventory.AdjustmentFilter{LocationID: &location})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, loss.ID, list[0].ID)
	})
}

func TestGormAdjustmentRepository_GroupByItemLocation(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormAdjustmentRepository(db)

	tenantID := uuid.New()
	itemID := uuid.New()
	locationID := uuid.New()
	since := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2026, 4, 20, 8, 30, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"item_kind", "item_id", "location_id", "count", "total_increase", "total_decrease", "last_adjusted"}).
		AddRow("product", itemID.String(), locationID.String(), 4, "6", "3.5", last)

	mock.ExpectQuery(`(?s)SELECT item_kind, item_id, location_id,\s+COUNT\(\*\) AS count,.* FROM "inventory_adjustments" WHERE tenant_id = \$3 AND adjustment_date >= \$4 GROUP BY item_kind, item_id, location_id`).
		WithArgs(inventory.AdjustmentIncrease, inventory.AdjustmentDecrease, tenantID, since).
		WillReturnRows(rows)

	groups, err := repo.GroupByItemLocation(context.Background(), tenantID, since)

	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, inventory.ItemKindProduct, groups[0].ItemKind)
	assert.Equal(t, itemID, groups[0].ItemID)
	assert.Equal(t, locationID, groups[0].LocationID)
	assert.Equal(t, int64(4), groups[0].Count)
	assert.True(t, decimal.NewFromInt(6).Equal(groups[0].TotalIncrease))
	assert.True(t, decimal.RequireFromString("3.5").Equal(groups[0].TotalDecrease))
	assert.True(t, last.Equal(groups[0].LastAdjusted))
	assert.NoError(t, mock.ExpectationsWereMet())
}
