//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	inventoryapp "github.com/erp/stockengine/internal/application/inventory"
	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/infrastructure/cache"
	"github.com/erp/stockengine/internal/infrastructure/config"
	"github.com/erp/stockengine/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRedis_Infrastructure(t *testing.T) {
	client := NewTestRedis(t)
	ctx := testutil.ContextWithTimeout(t, time.Minute)

	t.Run("sequence generator is gap free under contention", func(t *testing.T) {
		gen := cache.NewRedisSequenceGenerator(client)
		tenantID := uuid.New()

		const draws = 50
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			seen = map[int64]bool{}
		)
		for i := 0; i < draws; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				n, err := gen.Next(ctx, tenantID, inventory.AdjustmentSequenceScope, "202601")
				assert.NoError(t, err)
				mu.Lock()
				seen[n] = true
				mu.Unlock()
			}()
		}
		wg.Wait()

		require.Len(t, seen, draws)
		for i := int64(1); i <= draws; i++ {
			assert.True(t, seen[i], "missing %d", i)
		}

		n, err := gen.Next(ctx, tenantID, inventory.AdjustmentSequenceScope, "202602")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n, "each period restarts at one")
	})

	t.Run("lease excludes a second holder until released", func(t *testing.T) {
		lease := cache.NewRedisLease(client)

		release, ok, err := lease.TryAcquire(ctx, "sweep-test", 10*time.Second)
		require.NoError(t, err)
		require.True(t, ok)

		_, ok, err = lease.TryAcquire(ctx, "sweep-test", 10*time.Second)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, release(ctx))
		release, ok, err = lease.TryAcquire(ctx, "sweep-test", 10*time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, release(ctx))
	})

	t.Run("lease release never deletes a newer holder", func(t *testing.T) {
		lease := cache.NewRedisLease(client)

		stale, ok, err := lease.TryAcquire(ctx, "expiring", 50*time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)
		time.Sleep(120 * time.Millisecond)

		_, ok, err = lease.TryAcquire(ctx, "expiring", 10*time.Second)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, stale(ctx))
		_, ok, err = lease.TryAcquire(ctx, "expiring", 10*time.Second)
		require.NoError(t, err)
		assert.False(t, ok, "the current holder keeps the lease")
	})

	t.Run("idempotency store from factory", func(t *testing.T) {
		factory := cache.NewIdempotencyStoreFactory(config.RedisConfig{Enabled: true},
			cache.WithRedisClient(client), cache.WithLogger(zaptest.NewLogger(t)))
		store, err := factory.CreateStore(ctx)
		require.NoError(t, err)
		require.IsType(t, &cache.RedisIdempotencyStore{}, store)

		first, err := store.MarkProcessed(ctx, "t1:key", time.Minute)
		require.NoError(t, err)
		assert.True(t, first)

		again, err := store.MarkProcessed(ctx, "t1:key", time.Minute)
		require.NoError(t, err)
		assert.False(t, again)

		require.NoError(t, store.Forget(ctx, "t1:key"))
		processed, err := store.IsProcessed(ctx, "t1:key")
		require.NoError(t, err)
		assert.False(t, processed)
	})
}

func TestRedis_AdjustmentNumbering(t *testing.T) {
	client := NewTestRedis(t)
	tdb := NewTestDB(t)
	engine := NewEngine(t, tdb, WithSequences(cache.NewRedisSequenceGenerator(client)))
	ctx := context.Background()

	tenantID := uuid.New()
	date := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	for i, want := range []string{"ADJ-202605-0001", "ADJ-202605-0002"} {
		resp, err := engine.Adjustments.Adjust(ctx, tenantID, inventoryapp.AdjustRequest{
			Item: testutil.NewProduct(), LocationID: uuid.New(), Direction: inventory.AdjustmentIncrease,
			Quantity: testutil.Dec("1"), Reason: inventory.ReasonOther, Date: &date, UserID: testutil.TestUserID(),
		})
		require.NoError(t, err, "adjustment %d", i)
		assert.Equal(t, want, resp.Number)
	}

	raw, err := client.Get(ctx, cache.SequenceKey(tenantID, inventory.AdjustmentSequenceScope, "202605")).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(2), raw)
}
