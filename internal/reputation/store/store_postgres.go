package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"vigil/internal/reputation/models"
	"vigil/pkg/platform/sentinel"
)

// PostgresStore persists reputation scores and events in PostgreSQL.
// ApplyEvent serializes per-user updates with SELECT ... FOR UPDATE inside a
// transaction, so concurrent events from multiple workers cannot lose
// updates.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed reputation store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (*models.Score, error) {
	query := `
		SELECT user_id, score, band, last_event_at
		FROM reputation_scores
		WHERE user_id = $1
	`
	score, err := scanScore(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get reputation score: %w", err)
	}
	return score, nil
}

func (s *PostgresStore) GetOrCreate(ctx context.Context, userID string) (*models.Score, error) {
	query := `
		INSERT INTO reputation_scores (user_id, score, band, last_event_at)
		VALUES ($1, 0, 'neutral', now())
		ON CONFLICT (user_id) DO UPDATE SET
			user_id = EXCLUDED.user_id
		RETURNING user_id, score, band, last_event_at
	`
	score, err := scanScore(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("get or create reputation score: %w", err)
	}
	return score, nil
}

func (s *PostgresStore) ApplyEvent(ctx context.Context, event *models.Event) (*models.Score, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin apply event: %w", err)
	}
	defer tx.Rollback()

	// Lock (or create) the user's row so the read-modify-write below is
	// serialized per user.
	ensure := `
		INSERT INTO reputation_scores (user_id, score, band, last_event_at)
		VALUES ($1, 0, 'neutral', $2)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, ensure, event.UserID, event.CreatedAt); err != nil {
		return nil, fmt.Errorf("ensure reputation score: %w", err)
	}

	var current int
	row := tx.QueryRowContext(ctx,
		`SELECT score FROM reputation_scores WHERE user_id = $1 FOR UPDATE`, event.UserID)
	if err := row.Scan(&current); err != nil {
		return nil, fmt.Errorf("lock reputation score: %w", err)
	}

	next := models.ClampScore(current + event.Delta)
	band := models.BandForScore(next)

	update := `
		UPDATE reputation_scores
		SET score = $2, band = $3, last_event_at = $4
		WHERE user_id = $1
		RETURNING user_id, score, band, last_event_at
	`
	score, err := scanScore(tx.QueryRowContext(ctx, update, event.UserID, next, band, event.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("update reputation score: %w", err)
	}

	meta, err := marshalMeta(event.Meta)
	if err != nil {
		return nil, err
	}
	insert := `
		INSERT INTO reputation_events (id, user_id, surface, kind, delta, device_fp, ip, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9)
	`
	if _, err := tx.ExecContext(ctx, insert,
		event.ID, event.UserID, event.Surface, event.Kind, event.Delta,
		event.DeviceFP, event.IP, meta, event.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert reputation event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit apply event: %w", err)
	}
	return score, nil
}

// Decay decrements matching scores in one statement so a concurrent
// ApplyEvent delta is never overwritten by a stale read. The CASE mirrors
// models.BandForScore.
func (s *PostgresStore) Decay(ctx context.Context, before time.Time, bands []models.Band, step int) ([]*models.Score, error) {
	names := make([]string, len(bands))
	for i, b := range bands {
		names[i] = string(b)
	}

	query := `
		WITH decayed AS (
			UPDATE reputation_scores
			SET score = GREATEST(score - $3, 0),
			    band = CASE
			        WHEN GREATEST(score - $3, 0) <= -25 THEN 'good'
			        WHEN GREATEST(score - $3, 0) < 25 THEN 'neutral'
			        WHEN GREATEST(score - $3, 0) < 50 THEN 'watch'
			        WHEN GREATEST(score - $3, 0) < 75 THEN 'risk'
			        ELSE 'bad'
			    END
			WHERE band = ANY($1) AND last_event_at < $2
			RETURNING user_id, score, band, last_event_at
		)
		SELECT user_id, score, band, last_event_at FROM decayed ORDER BY user_id
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(names), before, step)
	if err != nil {
		return nil, fmt.Errorf("decay reputation scores: %w", err)
	}
	defer rows.Close()

	var out []*models.Score
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decayed score: %w", err)
		}
		out = append(out, score)
	}
	return out, rows.Err()
}

func (s *PostgresStore) EventsByUser(ctx context.Context, userID string, limit int) ([]*models.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, user_id, surface, kind, delta,
		       COALESCE(device_fp, ''), COALESCE(ip, ''), meta, created_at
		FROM reputation_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list reputation events: %w", err)
	}
	defer rows.Close()

	var out []*models.Event
	for rows.Next() {
		var (
			event models.Event
			meta  []byte
		)
		if err := rows.Scan(&event.ID, &event.UserID, &event.Surface, &event.Kind,
			&event.Delta, &event.DeviceFP, &event.IP, &meta, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reputation event: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &event.Meta); err != nil {
				return nil, fmt.Errorf("decode event meta: %w", err)
			}
		}
		out = append(out, &event)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScore(row rowScanner) (*models.Score, error) {
	var score models.Score
	if err := row.Scan(&score.UserID, &score.Score, &score.Band, &score.LastEventAt); err != nil {
		return nil, err
	}
	return &score, nil
}

func marshalMeta(meta map[string]any) ([]byte, error) {
	if meta == nil {
		return nil, nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode event meta: %w", err)
	}
	return raw, nil
}
