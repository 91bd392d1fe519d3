// Package audit records the append-only trail of enforcement and moderation
// decisions. Entries are never mutated; moderator tooling reads them back by
// target.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one audit fact. ActorID is "system" for decisions made by the
// pipeline without a human in the loop.
type Entry struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id"`
	Meta       map[string]any `json:"meta,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewEntry builds an Entry with a fresh id and timestamp.
func NewEntry(actorID, action, targetType, targetID string, meta map[string]any) Entry {
	return Entry{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Meta:       meta,
		CreatedAt:  time.Now().UTC(),
	}
}

// Store persists audit entries.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ByTarget(ctx context.Context, targetType, targetID string, limit int) ([]Entry, error)
}
