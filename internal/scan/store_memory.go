package scan

import (
	"context"
	"sync"
)

// MemoryStore keeps scan records in process memory for tests.
type MemoryStore struct {
	mu      sync.Mutex
	records []*Record
}

// NewMemoryStore creates an empty in-memory scan store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Insert(_ context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *r
	s.records = append(s.records, &copied)
	return nil
}

func (s *MemoryStore) BySubject(_ context.Context, subjectType, subjectID string, limit int) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Record
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if r.SubjectType != subjectType || r.SubjectID != subjectID {
			continue
		}
		copied := *r
		out = append(out, &copied)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
