// Package store defines the reputation persistence contract. Implementations
// must make ApplyEvent atomic per user (transactional read-modify-write or a
// single conflict-safe statement) so concurrent events from multiple workers
// cannot lose updates.
package store

import (
	"context"
	"time"

	"vigil/internal/reputation/models"
)

// Store persists reputation scores and their append-only event history.
type Store interface {
	// Get returns the score for a user, or sentinel.ErrNotFound.
	Get(ctx context.Context, userID string) (*models.Score, error)

	// GetOrCreate returns the score for a user, creating a neutral zero
	// score if none exists.
	GetOrCreate(ctx context.Context, userID string) (*models.Score, error)

	// ApplyEvent appends the event and adjusts the user's bounded score and
	// band in one atomic unit, returning the updated score.
	ApplyEvent(ctx context.Context, event *models.Event) (*models.Score, error)

	// Decay applies a relative step toward zero to every score in the given
	// bands whose last event predates the cutoff, recomputing the band from
	// the new score, and returns the updated scores ordered by user. The
	// decrement must be atomic against concurrent ApplyEvent calls; a stale
	// read followed by an absolute write would lose their deltas.
	Decay(ctx context.Context, before time.Time, bands []models.Band, step int) ([]*models.Score, error)

	// EventsByUser lists a user's events, newest first, for moderator review.
	EventsByUser(ctx context.Context, userID string, limit int) ([]*models.Event, error)
}
