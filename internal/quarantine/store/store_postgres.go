package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vigil/internal/quarantine/models"
	"vigil/pkg/platform/sentinel"
)

const itemColumns = `attachment_id, subject_type, subject_id, safety_status, safety_score, created_at, updated_at`

// PostgresStore persists quarantine items in the quarantine_items table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres creates a quarantine store over the given database.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, item *models.Item) error {
	var scores []byte
	if item.SafetyScore != nil {
		var err error
		scores, err = json.Marshal(item.SafetyScore)
		if err != nil {
			return fmt.Errorf("marshal safety score: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quarantine_items (attachment_id, subject_type, subject_id, safety_status, safety_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (attachment_id) DO UPDATE SET
			safety_score = EXCLUDED.safety_score,
			safety_status = EXCLUDED.safety_status,
			updated_at = now()
		WHERE quarantine_items.safety_status <> 'resolved'`,
		item.AttachmentID, item.SubjectType, item.SubjectID, item.SafetyStatus, scores, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert quarantine item: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, attachmentID string) (*models.Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM quarantine_items
		WHERE attachment_id = $1`,
		attachmentID)
	return scanItem(row)
}

func (s *PostgresStore) List(ctx context.Context, status models.Status, after time.Time, limit int) ([]*models.Item, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM quarantine_items
		WHERE safety_status = $1 AND created_at > $2
		ORDER BY created_at ASC
		LIMIT $3`,
		status, after, limit)
	if err != nil {
		return nil, fmt.Errorf("query quarantine items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, attachmentID string, status models.Status) (*models.Item, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE quarantine_items
		SET safety_status = $2, updated_at = now()
		WHERE attachment_id = $1
		RETURNING `+itemColumns,
		attachmentID, status)
	return scanItem(row)
}

func (s *PostgresStore) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT safety_status, count(*)
		FROM quarantine_items
		GROUP BY safety_status`)
	if err != nil {
		return nil, fmt.Errorf("count quarantine items: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var (
			status models.Status
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan quarantine count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var (
		item   models.Item
		scores []byte
	)
	err := row.Scan(&item.AttachmentID, &item.SubjectType, &item.SubjectID,
		&item.SafetyStatus, &scores, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan quarantine item: %w", err)
	}
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &item.SafetyScore); err != nil {
			return nil, fmt.Errorf("unmarshal safety score: %w", err)
		}
	}
	return &item, nil
}
