package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const nonceKeyPrefix = "replay:nonce:"

// RedisGuard is a Guard backed by a shared Redis instance, for horizontally
// scaled deployments where an in-process map would leave each instance with
// its own replay window. SET NX with TTL makes the check-and-register atomic
// across instances, and Redis expiry bounds the store.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisGuardOption configures a RedisGuard.
type RedisGuardOption func(*RedisGuard)

// WithRedisTTL overrides the retention window.
func WithRedisTTL(ttl time.Duration) RedisGuardOption {
	return func(g *RedisGuard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// NewRedisGuard constructs a Redis-backed guard.
func NewRedisGuard(client *redis.Client, opts ...RedisGuardOption) *RedisGuard {
	g := &RedisGuard{
		client: client,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Seen registers the pair via SET NX. A store error reports the pair as seen
// so the caller denies the launch rather than admitting a possible replay.
func (g *RedisGuard) Seen(ctx context.Context, nonce, timestamp string) (bool, error) {
	key := nonceKeyPrefix + nonce + "|" + timestamp
	registered, err := g.client.SetNX(ctx, key, "1", g.ttl).Result()
	if err != nil {
		return true, fmt.Errorf("replay guard: %w", err)
	}
	return !registered, nil
}
