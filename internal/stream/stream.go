// Package stream provides the append-only, cursor-addressable log transport
// the pipeline workers communicate through. Three backends exist: an
// in-memory log for tests, Redis Streams for single-node deployments, and
// Kafka for shared clusters.
package stream

import (
	"context"
	"time"
)

// Stream names used by the pipeline. Topics and Redis stream keys share
// these names across backends.
const (
	Ingress    = "trust.ingress"
	Results    = "trust.results"
	Decisions  = "trust.decisions"
	Quarantine = "trust.quarantine"
)

// Entry is one record read from a stream. ID is the backend-assigned
// position and doubles as the consumer cursor.
type Entry struct {
	ID      string
	Payload []byte
}

// Log is an append-only multi-consumer log. Entries are delivered in append
// order; Read returns entries strictly after the given cursor, waiting up
// to block for new entries when the stream is caught up.
type Log interface {
	Append(ctx context.Context, stream string, payload []byte) (string, error)
	Read(ctx context.Context, stream, after string, max int, block time.Duration) ([]Entry, error)
	Close() error
}

// CursorStore persists each consumer's last-processed position per stream.
// An empty cursor means the consumer starts from the beginning.
type CursorStore interface {
	Get(ctx context.Context, consumer, stream string) (string, error)
	Set(ctx context.Context, consumer, stream, cursor string) error
}
