package store

import (
	"context"

	"vigil/internal/enforce/models"
)

// Store is pure I/O for moderation cases and actions. Implementations
// return sentinel errors; the service layer translates them into coded
// domain errors.
type Store interface {
	// UpsertCase inserts the case or, when one already exists for the
	// subject, updates reason, severity, and policy id in a single
	// conflict-safe statement (last writer wins). The stored row is
	// returned either way.
	UpsertCase(ctx context.Context, c *models.Case) (*models.Case, error)

	// GetCase returns the case by id or sentinel.ErrNotFound.
	GetCase(ctx context.Context, caseID string) (*models.Case, error)

	// CaseBySubject returns the case for a subject or sentinel.ErrNotFound.
	CaseBySubject(ctx context.Context, subjectType, subjectID string) (*models.Case, error)

	// UpdateCase persists lifecycle fields (status, escalation level,
	// assignment, appeal flags) for an existing case.
	UpdateCase(ctx context.Context, c *models.Case) error

	// ListCases returns cases filtered by status (empty means all), newest
	// first.
	ListCases(ctx context.Context, status models.Status, limit int) ([]*models.Case, error)

	// AlreadyApplied reports whether an action row exists for the case.
	AlreadyApplied(ctx context.Context, caseID string, action string) (bool, error)

	// RecordAction appends the action row, returning sentinel.ErrConflict
	// when (case_id, action) already exists.
	RecordAction(ctx context.Context, a *models.ModerationAction) error

	// ActionsByCase returns the applied actions for a case in apply order.
	ActionsByCase(ctx context.Context, caseID string) ([]*models.ModerationAction, error)
}
