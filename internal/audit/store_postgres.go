package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore persists audit entries in the audit_log table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates an audit store over the given database.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	var meta []byte
	if entry.Meta != nil {
		var err error
		meta, err = json.Marshal(entry.Meta)
		if err != nil {
			return fmt.Errorf("marshal audit meta: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, actor_id, action, target_type, target_id, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.ActorID, entry.Action, entry.TargetType, entry.TargetID, meta, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ByTarget(ctx context.Context, targetType, targetID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_id, action, target_type, target_id, meta, created_at
		FROM audit_log
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at DESC
		LIMIT $3`,
		targetType, targetID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry Entry
			meta  []byte
		)
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Action, &entry.TargetType, &entry.TargetID, &meta, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &entry.Meta); err != nil {
				return nil, fmt.Errorf("unmarshal audit meta: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
