package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"vigil/internal/quarantine/models"
	"vigil/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store for tests and single-binary development.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]*models.Item
	clock func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewMemory creates an empty in-memory quarantine store.
func NewMemory(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		items: make(map[string]*models.Item),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func copyItem(item *models.Item) *models.Item {
	cp := *item
	if item.SafetyScore != nil {
		cp.SafetyScore = make(map[string]float64, len(item.SafetyScore))
		for k, v := range item.SafetyScore {
			cp.SafetyScore[k] = v
		}
	}
	return &cp
}

func (s *MemoryStore) Upsert(_ context.Context, item *models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[item.AttachmentID]
	if !ok {
		s.items[item.AttachmentID] = copyItem(item)
		return nil
	}
	if existing.SafetyStatus == models.StatusResolved {
		return nil
	}
	existing.SafetyScore = copyItem(item).SafetyScore
	existing.SafetyStatus = item.SafetyStatus
	existing.UpdatedAt = s.clock().UTC()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, attachmentID string) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[attachmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyItem(item), nil
}

func (s *MemoryStore) List(_ context.Context, status models.Status, after time.Time, limit int) ([]*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Item
	for _, item := range s.items {
		if item.SafetyStatus != status {
			continue
		}
		if !after.IsZero() && !item.CreatedAt.After(after) {
			continue
		}
		out = append(out, copyItem(item))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, attachmentID string, status models.Status) (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[attachmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	item.SafetyStatus = status
	item.UpdatedAt = s.clock().UTC()
	return copyItem(item), nil
}

func (s *MemoryStore) CountByStatus(_ context.Context) (map[models.Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[models.Status]int)
	for _, item := range s.items {
		counts[item.SafetyStatus]++
	}
	return counts, nil
}
