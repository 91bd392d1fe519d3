// Package store defines the restriction persistence contract.
package store

import (
	"context"
	"time"

	"vigil/internal/restriction/models"
)

// Store persists TTL'd restrictions. Rows accumulate; expiry filtering
// happens at read time so revocation and TTL lapse share one code path.
type Store interface {
	// Insert appends a restriction row.
	Insert(ctx context.Context, r *models.Restriction) error

	// Get returns a restriction by id, or sentinel.ErrNotFound.
	Get(ctx context.Context, id string) (*models.Restriction, error)

	// ActiveForScope lists restrictions for a user and scope still active at
	// the given time.
	ActiveForScope(ctx context.Context, userID, scope string, now time.Time) ([]*models.Restriction, error)

	// ActiveForUser lists all active restrictions for a user across scopes.
	ActiveForUser(ctx context.Context, userID string, now time.Time) ([]*models.Restriction, error)

	// Expire marks a restriction lapsed as of now. Returns
	// sentinel.ErrNotFound for unknown ids.
	Expire(ctx context.Context, id string, now time.Time) error

	// ExpireActive lapses every active restriction matching user, scope and
	// mode, returning how many rows were touched.
	ExpireActive(ctx context.Context, userID, scope string, mode models.Mode, now time.Time) (int, error)

	// PurgeExpired deletes rows whose expiry predates the cutoff, returning
	// how many were removed.
	PurgeExpired(ctx context.Context, before time.Time) (int, error)
}
