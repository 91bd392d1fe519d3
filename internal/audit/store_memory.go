package audit

import (
	"context"
	"sync"
)

// MemoryStore keeps audit entries in process memory for tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryStore creates an empty in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryStore) ByTarget(_ context.Context, targetType, targetID string, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Entry
	// Newest first.
	for i := len(s.entries) - 1; i >= 0; i-- {
		entry := s.entries[i]
		if entry.TargetType != targetType || entry.TargetID != targetID {
			continue
		}
		out = append(out, entry)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// All returns every entry in append order. Test helper.
func (s *MemoryStore) All() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
