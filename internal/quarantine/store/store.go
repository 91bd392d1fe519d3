// Package store persists held attachments awaiting human review.
package store

import (
	"context"
	"time"

	"vigil/internal/quarantine/models"
)

// Store is pure persistence for quarantine items. Implementations return
// sentinel errors; the service layer translates them for callers.
type Store interface {
	// Upsert inserts the item or refreshes the scores and status of an
	// existing unresolved hold. Resolved items are never reopened by
	// intake; the upsert leaves them untouched.
	Upsert(ctx context.Context, item *models.Item) error

	// Get returns the item, or sentinel.ErrNotFound.
	Get(ctx context.Context, attachmentID string) (*models.Item, error)

	// List returns items in the given status created strictly after the
	// cursor time, oldest first, up to limit.
	List(ctx context.Context, status models.Status, after time.Time, limit int) ([]*models.Item, error)

	// UpdateStatus moves the item to the given status and returns the
	// updated row, or sentinel.ErrNotFound.
	UpdateStatus(ctx context.Context, attachmentID string, status models.Status) (*models.Item, error)

	// CountByStatus returns the backlog size per status.
	CountByStatus(ctx context.Context) (map[models.Status]int, error)
}
