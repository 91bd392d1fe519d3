package store

import (
	"context"
	"sync"
	"time"

	"vigil/internal/restriction/models"
	"vigil/pkg/platform/sentinel"
)

// MemoryStore is an in-memory restriction store for unit tests and
// single-process development.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]*models.Restriction
}

// NewMemory creates an empty in-memory restriction store.
func NewMemory() *MemoryStore {
	return &MemoryStore{rows: make(map[string]*models.Restriction)}
}

func (s *MemoryStore) Insert(ctx context.Context, r *models.Restriction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *r
	s.rows[r.ID] = &copied
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Restriction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rows[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (s *MemoryStore) ActiveForScope(ctx context.Context, userID, scope string, now time.Time) ([]*models.Restriction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Restriction
	for _, r := range s.rows {
		if r.UserID == userID && r.Scope == scope && r.Active(now) {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *MemoryStore) ActiveForUser(ctx context.Context, userID string, now time.Time) ([]*models.Restriction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Restriction
	for _, r := range s.rows {
		if r.UserID == userID && r.Active(now) {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *MemoryStore) Expire(ctx context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	expired := now
	r.ExpiresAt = &expired
	return nil
}

func (s *MemoryStore) ExpireActive(ctx context.Context, userID, scope string, mode models.Mode, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, r := range s.rows {
		if r.UserID == userID && r.Scope == scope && r.Mode == mode && r.Active(now) {
			expired := now
			r.ExpiresAt = &expired
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) PurgeExpired(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, r := range s.rows {
		if r.ExpiresAt != nil && r.ExpiresAt.Before(before) {
			delete(s.rows, id)
			count++
		}
	}
	return count, nil
}
