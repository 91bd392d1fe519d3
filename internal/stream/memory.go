package stream

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryLog is an in-process Log for tests and single-binary development.
// IDs are 1-based decimal sequence numbers per stream.
type MemoryLog struct {
	mu      sync.Mutex
	streams map[string][]Entry
	wakeups map[string]chan struct{}
}

// NewMemoryLog creates an empty in-memory log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		streams: make(map[string][]Entry),
		wakeups: make(map[string]chan struct{}),
	}
}

func (l *MemoryLog) Append(ctx context.Context, stream string, payload []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	buf := make([]byte, len(payload))
	copy(buf, payload)
	id := strconv.Itoa(len(l.streams[stream]) + 1)
	l.streams[stream] = append(l.streams[stream], Entry{ID: id, Payload: buf})

	// Wake blocked readers.
	if ch, ok := l.wakeups[stream]; ok {
		close(ch)
		delete(l.wakeups, stream)
	}
	return id, nil
}

func (l *MemoryLog) Read(ctx context.Context, stream, after string, max int, block time.Duration) ([]Entry, error) {
	deadline := time.Now().Add(block)
	for {
		entries, wakeup := l.readAfter(stream, after, max)
		if len(entries) > 0 || block <= 0 {
			return entries, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case <-wakeup:
			timer.Stop()
		}
	}
}

func (l *MemoryLog) readAfter(stream, after string, max int) ([]Entry, chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := 0
	if after != "" {
		// Cursors are the sequence number of the last consumed entry.
		n, err := strconv.Atoi(after)
		if err == nil && n > 0 {
			start = n
		}
	}

	entries := l.streams[stream]
	if start >= len(entries) {
		ch, ok := l.wakeups[stream]
		if !ok {
			ch = make(chan struct{})
			l.wakeups[stream] = ch
		}
		return nil, ch
	}

	end := start + max
	if end > len(entries) {
		end = len(entries)
	}
	out := make([]Entry, end-start)
	copy(out, entries[start:end])
	return out, nil
}

func (l *MemoryLog) Close() error { return nil }

// MemoryCursorStore keeps consumer cursors in process memory.
type MemoryCursorStore struct {
	mu      sync.Mutex
	cursors map[string]string
}

// NewMemoryCursorStore creates an empty cursor store.
func NewMemoryCursorStore() *MemoryCursorStore {
	return &MemoryCursorStore{cursors: make(map[string]string)}
}

func (s *MemoryCursorStore) Get(_ context.Context, consumer, stream string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursors[consumer+"/"+stream], nil
}

func (s *MemoryCursorStore) Set(_ context.Context, consumer, stream, cursor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[consumer+"/"+stream] = cursor
	return nil
}
