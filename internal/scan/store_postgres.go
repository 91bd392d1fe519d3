package scan

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore persists scan records in the content_scans table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a scan store over the given database.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, r *Record) error {
	var scores []byte
	if r.Scores != nil {
		var err error
		scores, err = json.Marshal(r.Scores)
		if err != nil {
			return fmt.Errorf("marshal scan scores: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_scans (id, subject_type, subject_id, kind, scores, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.SubjectType, r.SubjectID, r.Kind, scores, r.Status, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert scan record: %w", err)
	}
	return nil
}

func (s *PostgresStore) BySubject(ctx context.Context, subjectType, subjectID string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject_type, subject_id, kind, scores, status, created_at
		FROM content_scans
		WHERE subject_type = $1 AND subject_id = $2
		ORDER BY created_at DESC
		LIMIT $3`,
		subjectType, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("query scan records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			r      Record
			scores []byte
		)
		if err := rows.Scan(&r.ID, &r.SubjectType, &r.SubjectID, &r.Kind, &scores, &r.Status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		if len(scores) > 0 {
			if err := json.Unmarshal(scores, &r.Scores); err != nil {
				return nil, fmt.Errorf("unmarshal scan scores: %w", err)
			}
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}
