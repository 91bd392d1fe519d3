package audit

import (
	"context"
)

// Publisher captures structured audit entries. It is append-only and uses
// the storage layer for persistence so tests can swap sinks easily. With an
// inbox attached, Record hands entries to the drain Worker instead of paying
// store latency inline.
type Publisher struct {
	store Store
	inbox chan<- Entry
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// NewAsyncPublisher queues entries on the inbox for a Worker to persist.
// Reads still go straight to the store.
func NewAsyncPublisher(store Store, inbox chan<- Entry) *Publisher {
	return &Publisher{store: store, inbox: inbox}
}

// Record appends one audit entry. The async path drops the entry when the
// inbox is full; audit must never block or fail an enforcement action.
func (p *Publisher) Record(ctx context.Context, actorID, action, targetType, targetID string, meta map[string]any) error {
	entry := NewEntry(actorID, action, targetType, targetID, meta)
	if p.inbox != nil {
		select {
		case p.inbox <- entry:
		default:
		}
		return nil
	}
	return p.store.Append(ctx, entry)
}

// ByTarget lists the newest entries for a target.
func (p *Publisher) ByTarget(ctx context.Context, targetType, targetID string, limit int) ([]Entry, error) {
	return p.store.ByTarget(ctx, targetType, targetID, limit)
}
