package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only while it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease is a best-effort cross-instance mutex built on SET NX PX
type RedisLease struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisLease creates a lease helper over a shared client
func NewRedisLease(client redis.UniversalClient) *RedisLease {
	return &RedisLease{client: client, keyPrefix: "lease:"}
}

// TryAcquire takes the named lease for ttl. When another holder owns it the
// call returns ok=false and no error. The returned release func is safe to
// call after expiry; it never deletes a lease taken over by someone else.
func (l *RedisLease) TryAcquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error) {
	key := l.keyPrefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lease %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("failed to release lease %s: %w", name, err)
		}
		return nil
	}
	return release, true, nil
}
