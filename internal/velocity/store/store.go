// Package store defines the velocity counter contract. Implementations must
// provide atomic increment-with-expiry (single round trip, not read+write) so
// concurrent calls for the same key cannot race.
package store

import (
	"context"
	"time"
)

// CounterStore is the atomic counter backing velocity windows.
type CounterStore interface {
	// IncrementWithExpiry atomically increments the counter and sets its TTL
	// if the key is new, returning the post-increment count.
	IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Delete removes counters, used for manual unmute resets.
	Delete(ctx context.Context, keys ...string) error
}
