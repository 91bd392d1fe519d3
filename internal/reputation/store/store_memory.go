package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"vigil/internal/reputation/models"
	"vigil/pkg/platform/sentinel"
)

// MemoryStore is an in-memory reputation store for unit tests and
// single-process development. The single mutex gives the same per-user
// atomicity the postgres store gets from transactions.
type MemoryStore struct {
	mu     sync.Mutex
	scores map[string]*models.Score
	events []*models.Event
	clock  func() time.Time
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

// NewMemory creates an empty in-memory reputation store.
func NewMemory(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		scores: make(map[string]*models.Score),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Get(ctx context.Context, userID string) (*models.Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	score, ok := s.scores[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *score
	return &copied, nil
}

func (s *MemoryStore) GetOrCreate(ctx context.Context, userID string) (*models.Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *s.getOrCreateLocked(userID)
	return &copied, nil
}

func (s *MemoryStore) getOrCreateLocked(userID string) *models.Score {
	if score, ok := s.scores[userID]; ok {
		return score
	}
	score := &models.Score{
		UserID:      userID,
		Score:       0,
		Band:        models.BandNeutral,
		LastEventAt: s.clock(),
	}
	s.scores[userID] = score
	return score
}

func (s *MemoryStore) ApplyEvent(ctx context.Context, event *models.Event) (*models.Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	score := s.getOrCreateLocked(event.UserID)
	score.Score = models.ClampScore(score.Score + event.Delta)
	score.Band = models.BandForScore(score.Score)
	score.LastEventAt = event.CreatedAt

	copied := *event
	s.events = append(s.events, &copied)

	result := *score
	return &result, nil
}

func (s *MemoryStore) Decay(ctx context.Context, before time.Time, bands []models.Band, step int) ([]*models.Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[models.Band]bool, len(bands))
	for _, b := range bands {
		wanted[b] = true
	}

	var out []*models.Score
	for _, record := range s.scores {
		if !wanted[record.Band] || !record.LastEventAt.Before(before) {
			continue
		}
		next := record.Score - step
		if next < 0 {
			next = 0
		}
		record.Score = next
		record.Band = models.BandForScore(next)
		copied := *record
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *MemoryStore) EventsByUser(ctx context.Context, userID string, limit int) ([]*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Event
	for i := len(s.events) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.events[i].UserID == userID {
			copied := *s.events[i]
			out = append(out, &copied)
		}
	}
	return out, nil
}
