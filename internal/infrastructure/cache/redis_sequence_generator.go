package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SequenceTTL keeps a period counter around long enough to outlive a monthly period
const SequenceTTL = 40 * 24 * time.Hour

// RedisSequenceGenerator numbers documents with INCR on seq:<tenant>:<scope>:<period>
type RedisSequenceGenerator struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisSequenceGenerator creates a generator over a shared client
func NewRedisSequenceGenerator(client redis.UniversalClient) *RedisSequenceGenerator {
	return &RedisSequenceGenerator{client: client, ttl: SequenceTTL}
}

// SequenceKey returns the Redis key of a counter
func SequenceKey(tenantID uuid.UUID, scope, period string) string {
	return fmt.Sprintf("seq:%s:%s:%s", tenantID, scope, period)
}

// Next increments the counter. The TTL is refreshed on every call.
func (g *RedisSequenceGenerator) Next(ctx context.Context, tenantID uuid.UUID, scope, period string) (int64, error) {
	key := SequenceKey(tenantID, scope, period)

	pipe := g.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, g.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s/%s: %w", scope, period, err)
	}
	return incr.Val(), nil
}

var _ inventory.SequenceGenerator = (*RedisSequenceGenerator)(nil)
