package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"vigil/internal/enforce/models"
	"vigil/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store for tests and single-binary development.
type MemoryStore struct {
	mu      sync.Mutex
	cases   map[string]*models.Case   // by case id
	subject map[string]string         // subject key -> case id
	actions map[string][]*models.ModerationAction
	clock   func() time.Time
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

// NewMemory creates an empty in-memory case store.
func NewMemory(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		cases:   make(map[string]*models.Case),
		subject: make(map[string]string),
		actions: make(map[string][]*models.ModerationAction),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func subjectKey(subjectType, subjectID string) string {
	return subjectType + "/" + subjectID
}

func (s *MemoryStore) UpsertCase(_ context.Context, c *models.Case) (*models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := subjectKey(c.SubjectType, c.SubjectID)
	if existingID, ok := s.subject[key]; ok {
		existing := s.cases[existingID]
		existing.Reason = c.Reason
		existing.Severity = c.Severity
		if c.PolicyID != "" {
			existing.PolicyID = c.PolicyID
		}
		existing.UpdatedAt = s.clock().UTC()
		return copyCase(existing), nil
	}

	stored := copyCase(c)
	s.cases[stored.CaseID] = stored
	s.subject[key] = stored.CaseID
	return copyCase(stored), nil
}

func (s *MemoryStore) GetCase(_ context.Context, caseID string) (*models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyCase(c), nil
}

func (s *MemoryStore) CaseBySubject(_ context.Context, subjectType, subjectID string) (*models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.subject[subjectKey(subjectType, subjectID)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyCase(s.cases[id]), nil
}

func (s *MemoryStore) UpdateCase(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.cases[c.CaseID]
	if !ok {
		return sentinel.ErrNotFound
	}
	updated := copyCase(c)
	updated.UpdatedAt = s.clock().UTC()
	s.cases[c.CaseID] = updated
	s.subject[subjectKey(existing.SubjectType, existing.SubjectID)] = c.CaseID
	return nil
}

func (s *MemoryStore) ListCases(_ context.Context, status models.Status, limit int) ([]*models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Case
	for _, c := range s.cases {
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, copyCase(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) AlreadyApplied(_ context.Context, caseID string, action string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.actions[caseID] {
		if string(a.Action) == action {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) RecordAction(_ context.Context, a *models.ModerationAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.actions[a.CaseID] {
		if existing.Action == a.Action {
			return sentinel.ErrConflict
		}
	}
	stored := *a
	s.actions[a.CaseID] = append(s.actions[a.CaseID], &stored)
	return nil
}

func (s *MemoryStore) ActionsByCase(_ context.Context, caseID string) ([]*models.ModerationAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	actions := s.actions[caseID]
	out := make([]*models.ModerationAction, len(actions))
	for i, a := range actions {
		copied := *a
		out[i] = &copied
	}
	return out, nil
}

func copyCase(c *models.Case) *models.Case {
	copied := *c
	return &copied
}
