package audit

import (
	"context"
	"log/slog"
	"time"
)

// Worker consumes audit entries from a channel and persists them. It keeps
// enforcement paths free of audit store latency.
type Worker struct {
	store  Store
	inbox  <-chan Entry
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Entry, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run consumes until the context is cancelled, then drains whatever is
// already queued. A failed append is logged and dropped rather than halting
// the drain.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case entry := <-w.inbox:
			w.append(ctx, entry)
		}
	}
}

func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case entry := <-w.inbox:
			w.append(ctx, entry)
		default:
			return
		}
	}
}

func (w *Worker) append(ctx context.Context, entry Entry) {
	if err := w.store.Append(ctx, entry); err != nil {
		if w.logger != nil {
			w.logger.ErrorContext(ctx, "audit append failed",
				"action", entry.Action, "target_id", entry.TargetID, "error", err)
		}
	}
}
