package store

import (
	"context"
	"sync"
	"time"
)

// MemoryCounterStore is an in-memory counter store for unit tests and
// single-process development. For production use RedisCounterStore.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]*counter
	clock    func() time.Time
}

type counter struct {
	count     int64
	expiresAt time.Time
}

// MemoryOption configures a MemoryCounterStore.
type MemoryOption func(*MemoryCounterStore)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) MemoryOption {
	return func(s *MemoryCounterStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewMemory creates an empty in-memory counter store.
func NewMemory(opts ...MemoryOption) *MemoryCounterStore {
	s := &MemoryCounterStore{
		counters: make(map[string]*counter),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryCounterStore) IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	c, ok := s.counters[key]
	if !ok || now.After(c.expiresAt) {
		c = &counter{expiresAt: now.Add(ttl)}
		s.counters[key] = c
	}
	c.count++
	return c.count, nil
}

func (s *MemoryCounterStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.counters, key)
	}
	return nil
}
