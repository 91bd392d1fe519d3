package pipeline

import (
	"context"
	"log/slog"
	"time"

	"vigil/internal/pipeline/metrics"
	"vigil/internal/stream"
	dErrors "vigil/pkg/domain-errors"
)

const (
	defaultBatchSize = 64
	defaultBlock     = 2 * time.Second
	defaultBackoff   = time.Second
)

// HandleFunc processes one stream entry. A nil return advances the cursor
// past the entry. A CodeUnavailable error stops the batch and retries it
// from the failed entry after a backoff; any other error skips the entry.
type HandleFunc func(ctx context.Context, entry stream.Entry) error

// Worker drains one stream with a durable cursor. Each worker instance
// owns its consumer name; running two workers under the same name splits
// the stream arbitrarily.
type Worker struct {
	name    string
	stream  string
	log     stream.Log
	cursors stream.CursorStore
	handle  HandleFunc

	batchSize int
	block     time.Duration
	backoff   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithBatchSize bounds how many entries one read returns.
func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithBlock bounds how long an empty read waits for new entries.
func WithBlock(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.block = d
		}
	}
}

// WithBackoff sets the pause before retrying after a backend outage.
func WithBackoff(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.backoff = d
		}
	}
}

// WithLogger sets the logger for the worker.
func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) { w.logger = logger }
}

// WithMetrics sets the metrics recorder for the worker.
func WithMetrics(m *metrics.Metrics) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

// NewWorker creates a worker draining streamName under the given consumer
// name.
func NewWorker(name, streamName string, log stream.Log, cursors stream.CursorStore, handle HandleFunc, opts ...WorkerOption) *Worker {
	w := &Worker{
		name:      name,
		stream:    streamName,
		log:       log,
		cursors:   cursors,
		handle:    handle,
		batchSize: defaultBatchSize,
		block:     defaultBlock,
		backoff:   defaultBackoff,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains the stream until ctx is cancelled. The cursor is persisted
// after every entry, so a restart resumes at the first unprocessed entry.
// Entries are delivered at least once; handlers must be idempotent.
func (w *Worker) Run(ctx context.Context) error {
	cursor, err := w.cursors.Get(ctx, w.name, w.stream)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "load cursor")
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		entries, err := w.log.Read(ctx, w.stream, cursor, w.batchSize, w.block)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("stream read failed",
				"worker", w.name, "stream", w.stream, "error", err)
			w.metrics.RecordRetry(w.name)
			if !w.sleep(ctx) {
				return nil
			}
			continue
		}

		for _, entry := range entries {
			if err := w.handle(ctx, entry); err != nil {
				if dErrors.CodeOf(err) == dErrors.CodeUnavailable {
					w.logger.Warn("entry handling retried, backend unavailable",
						"worker", w.name, "stream", w.stream, "entry_id", entry.ID, "error", err)
					w.metrics.RecordRetry(w.name)
					if !w.sleep(ctx) {
						return nil
					}
					break
				}
				w.logger.Error("entry skipped",
					"worker", w.name, "stream", w.stream, "entry_id", entry.ID, "error", err)
				w.metrics.RecordSkipped(w.name)
			} else {
				w.metrics.RecordProcessed(w.name)
			}

			cursor = entry.ID
			if err := w.cursors.Set(ctx, w.name, w.stream, cursor); err != nil {
				w.logger.Error("cursor persist failed",
					"worker", w.name, "stream", w.stream, "cursor", cursor, "error", err)
			}
		}
	}
}

// sleep pauses for the backoff, returning false when ctx was cancelled.
func (w *Worker) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(w.backoff):
		return true
	}
}
