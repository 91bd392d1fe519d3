package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"vigil/internal/enforce/models"
	"vigil/pkg/platform/sentinel"
)

// PostgresStore persists moderation cases and actions in PostgreSQL. The
// case upsert is a single conflict-safe statement so two concurrent signals
// on the same subject cannot lose updates; the (case_id, action) uniqueness
// constraint backs action idempotency.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed case store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const caseColumns = `case_id, subject_type, subject_id, status, reason, severity,
	COALESCE(policy_id, ''), created_by, escalation_level, COALESCE(assigned_to, ''),
	appeal_open, COALESCE(appealed_by, ''), COALESCE(appeal_note, ''), created_at, updated_at`

const uniqueViolation = "23505"

func (s *PostgresStore) UpsertCase(ctx context.Context, c *models.Case) (*models.Case, error) {
	query := `
		INSERT INTO moderation_cases
			(case_id, subject_type, subject_id, status, reason, severity, policy_id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
		ON CONFLICT (subject_type, subject_id) DO UPDATE SET
			reason     = EXCLUDED.reason,
			severity   = EXCLUDED.severity,
			policy_id  = COALESCE(EXCLUDED.policy_id, moderation_cases.policy_id),
			updated_at = now()
		RETURNING ` + caseColumns
	row := s.db.QueryRowContext(ctx, query,
		c.CaseID, c.SubjectType, c.SubjectID, c.Status, c.Reason, c.Severity,
		c.PolicyID, c.CreatedBy, c.CreatedAt, c.UpdatedAt)
	return scanCase(row)
}

func (s *PostgresStore) GetCase(ctx context.Context, caseID string) (*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM moderation_cases WHERE case_id = $1`
	c, err := scanCase(s.db.QueryRowContext(ctx, query, caseID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) CaseBySubject(ctx context.Context, subjectType, subjectID string) (*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM moderation_cases WHERE subject_type = $1 AND subject_id = $2`
	c, err := scanCase(s.db.QueryRowContext(ctx, query, subjectType, subjectID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *PostgresStore) UpdateCase(ctx context.Context, c *models.Case) error {
	query := `
		UPDATE moderation_cases SET
			status           = $2,
			reason           = $3,
			severity         = $4,
			escalation_level = $5,
			assigned_to      = NULLIF($6, ''),
			appeal_open      = $7,
			appealed_by      = NULLIF($8, ''),
			appeal_note      = NULLIF($9, ''),
			updated_at       = now()
		WHERE case_id = $1`
	result, err := s.db.ExecContext(ctx, query,
		c.CaseID, c.Status, c.Reason, c.Severity, c.EscalationLevel,
		c.AssignedTo, c.AppealOpen, c.AppealedBy, c.AppealNote)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update case affected rows: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListCases(ctx context.Context, status models.Status, limit int) ([]*models.Case, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + caseColumns + ` FROM moderation_cases
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := s.db.QueryContext(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var cases []*models.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

func (s *PostgresStore) AlreadyApplied(ctx context.Context, caseID string, action string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM moderation_actions WHERE case_id = $1 AND action = $2)`,
		caseID, action).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check applied action: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) RecordAction(ctx context.Context, a *models.ModerationAction) error {
	var payload []byte
	if a.Payload != nil {
		var err error
		payload, err = json.Marshal(a.Payload)
		if err != nil {
			return fmt.Errorf("marshal action payload: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO moderation_actions (id, case_id, action, payload, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.CaseID, a.Action, payload, a.ActorID, a.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("record action: %w", err)
	}
	return nil
}

func (s *PostgresStore) ActionsByCase(ctx context.Context, caseID string) ([]*models.ModerationAction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, case_id, action, payload, actor_id, created_at
		FROM moderation_actions
		WHERE case_id = $1
		ORDER BY created_at ASC`,
		caseID)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var actions []*models.ModerationAction
	for rows.Next() {
		var (
			a       models.ModerationAction
			payload []byte
		)
		if err := rows.Scan(&a.ID, &a.CaseID, &a.Action, &payload, &a.ActorID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &a.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal action payload: %w", err)
			}
		}
		actions = append(actions, &a)
	}
	return actions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*models.Case, error) {
	var c models.Case
	err := row.Scan(&c.CaseID, &c.SubjectType, &c.SubjectID, &c.Status, &c.Reason, &c.Severity,
		&c.PolicyID, &c.CreatedBy, &c.EscalationLevel, &c.AssignedTo,
		&c.AppealOpen, &c.AppealedBy, &c.AppealNote, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
