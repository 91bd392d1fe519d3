package url

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// VerdictCache stores classifications keyed by final URL so hot links are
// classified once per TTL.
type VerdictCache interface {
	Get(ctx context.Context, finalURL string) (*Classification, bool, error)
	Set(ctx context.Context, finalURL string, c *Classification, ttl time.Duration) error
}

// RedisCache is a VerdictCache over Redis with JSON values.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a verdict cache over the given Redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func verdictKey(finalURL string) string {
	return "vigil:urlverdict:" + finalURL
}

func (c *RedisCache) Get(ctx context.Context, finalURL string) (*Classification, bool, error) {
	raw, err := c.client.Get(ctx, verdictKey(finalURL)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get verdict: %w", err)
	}
	var out Classification
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false, fmt.Errorf("decode cached verdict: %w", err)
	}
	return &out, true, nil
}

func (c *RedisCache) Set(ctx context.Context, finalURL string, cls *Classification, ttl time.Duration) error {
	raw, err := json.Marshal(cls)
	if err != nil {
		return fmt.Errorf("encode verdict: %w", err)
	}
	if err := c.client.Set(ctx, verdictKey(finalURL), raw, ttl).Err(); err != nil {
		return fmt.Errorf("set verdict: %w", err)
	}
	return nil
}

// MemoryCache is an in-process VerdictCache for tests.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryCacheEntry
	clock   func() time.Time
}

type memoryCacheEntry struct {
	classification Classification
	expiresAt      time.Time
}

// NewMemoryCache creates an empty in-memory verdict cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryCacheEntry), clock: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, finalURL string) (*Classification, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[finalURL]
	if !ok || c.clock().After(entry.expiresAt) {
		delete(c.entries, finalURL)
		return nil, false, nil
	}
	out := entry.classification
	return &out, true, nil
}

func (c *MemoryCache) Set(_ context.Context, finalURL string, cls *Classification, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[finalURL] = memoryCacheEntry{classification: *cls, expiresAt: c.clock().Add(ttl)}
	return nil
}
