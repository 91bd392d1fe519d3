package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounterStore backs velocity windows with Redis counters. The
// production-recommended implementation: INCR is atomic server-side and the
// pipeline keeps it one round trip, so concurrent workers can share counters
// safely.
type RedisCounterStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed counter store.
func NewRedis(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

func (s *RedisCounterStore) IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	// NX: only set the TTL when the key has none, so the window does not
	// slide forward on every increment.
	pipe.ExpireNX(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	return incr.Val(), nil
}

func (s *RedisCounterStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete counters: %w", err)
	}
	return nil
}
