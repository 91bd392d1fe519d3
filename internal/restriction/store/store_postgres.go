package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vigil/internal/restriction/models"
	"vigil/pkg/platform/sentinel"
)

// PostgresStore persists restrictions in PostgreSQL. This store is pure
// I/O; expiry aggregation and flag semantics belong in the service.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed restriction store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const restrictionColumns = `id, user_id, scope, mode, reason, ttl_seconds, created_by, created_at, expires_at`

func (s *PostgresStore) Insert(ctx context.Context, r *models.Restriction) error {
	query := `
		INSERT INTO restrictions (id, user_id, scope, mode, reason, ttl_seconds, created_by, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.UserID, r.Scope, r.Mode, r.Reason, r.TTLSeconds, r.CreatedBy, r.CreatedAt, r.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert restriction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Restriction, error) {
	query := `SELECT ` + restrictionColumns + ` FROM restrictions WHERE id = $1`
	r, err := scanRestriction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get restriction: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ActiveForScope(ctx context.Context, userID, scope string, now time.Time) ([]*models.Restriction, error) {
	query := `
		SELECT ` + restrictionColumns + `
		FROM restrictions
		WHERE user_id = $1 AND scope = $2 AND (expires_at IS NULL OR expires_at > $3)
		ORDER BY created_at
	`
	return s.queryRestrictions(ctx, query, userID, scope, now)
}

func (s *PostgresStore) ActiveForUser(ctx context.Context, userID string, now time.Time) ([]*models.Restriction, error) {
	query := `
		SELECT ` + restrictionColumns + `
		FROM restrictions
		WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY created_at
	`
	return s.queryRestrictions(ctx, query, userID, now)
}

func (s *PostgresStore) Expire(ctx context.Context, id string, now time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE restrictions SET expires_at = $2 WHERE id = $1`, id, now)
	if err != nil {
		return fmt.Errorf("expire restriction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("expire restriction: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ExpireActive(ctx context.Context, userID, scope string, mode models.Mode, now time.Time) (int, error) {
	query := `
		UPDATE restrictions
		SET expires_at = $4
		WHERE user_id = $1 AND scope = $2 AND mode = $3
		  AND (expires_at IS NULL OR expires_at > $4)
	`
	result, err := s.db.ExecContext(ctx, query, userID, scope, mode, now)
	if err != nil {
		return 0, fmt.Errorf("expire active restrictions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire active restrictions: %w", err)
	}
	return int(affected), nil
}

func (s *PostgresStore) PurgeExpired(ctx context.Context, before time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM restrictions WHERE expires_at IS NOT NULL AND expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge expired restrictions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired restrictions: %w", err)
	}
	return int(affected), nil
}

func (s *PostgresStore) queryRestrictions(ctx context.Context, query string, args ...any) ([]*models.Restriction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query restrictions: %w", err)
	}
	defer rows.Close()

	var out []*models.Restriction
	for rows.Next() {
		r, err := scanRestriction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan restriction: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRestriction(row rowScanner) (*models.Restriction, error) {
	var r models.Restriction
	if err := row.Scan(&r.ID, &r.UserID, &r.Scope, &r.Mode, &r.Reason,
		&r.TTLSeconds, &r.CreatedBy, &r.CreatedAt, &r.ExpiresAt); err != nil {
		return nil, err
	}
	return &r, nil
}
