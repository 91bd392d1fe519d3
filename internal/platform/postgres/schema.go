package postgres

// schemaStatements is the relational schema for the trust and enforcement
// stores. Uniqueness on moderation_actions(case_id, action) is the
// idempotency guard for action application; reputation_scores carries one row
// per user upserted atomically.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS reputation_scores (
		user_id        TEXT PRIMARY KEY,
		score          INTEGER NOT NULL DEFAULT 0,
		band           TEXT NOT NULL DEFAULT 'neutral',
		last_event_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS reputation_events (
		id          UUID PRIMARY KEY,
		user_id     TEXT NOT NULL,
		surface     TEXT NOT NULL,
		kind        TEXT NOT NULL,
		delta       INTEGER NOT NULL,
		device_fp   TEXT,
		ip          TEXT,
		meta        JSONB,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS reputation_events_user_idx
		ON reputation_events (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS restrictions (
		id          UUID PRIMARY KEY,
		user_id     TEXT NOT NULL,
		scope       TEXT NOT NULL,
		mode        TEXT NOT NULL,
		reason      TEXT NOT NULL,
		ttl_seconds INTEGER NOT NULL,
		created_by  TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at  TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS restrictions_user_scope_idx
		ON restrictions (user_id, scope, expires_at)`,
	`CREATE TABLE IF NOT EXISTS moderation_cases (
		case_id          UUID PRIMARY KEY,
		subject_type     TEXT NOT NULL,
		subject_id       TEXT NOT NULL,
		status           TEXT NOT NULL DEFAULT 'open',
		reason           TEXT NOT NULL,
		severity         INTEGER NOT NULL DEFAULT 0,
		policy_id        TEXT,
		created_by       TEXT NOT NULL,
		escalation_level INTEGER NOT NULL DEFAULT 0,
		assigned_to      TEXT,
		appeal_open      BOOLEAN NOT NULL DEFAULT FALSE,
		appealed_by      TEXT,
		appeal_note      TEXT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (subject_type, subject_id)
	)`,
	`CREATE TABLE IF NOT EXISTS moderation_actions (
		id          UUID PRIMARY KEY,
		case_id     UUID NOT NULL REFERENCES moderation_cases (case_id),
		action      TEXT NOT NULL,
		payload     JSONB,
		actor_id    TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (case_id, action)
	)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id          UUID PRIMARY KEY,
		actor_id    TEXT NOT NULL,
		action      TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id   TEXT NOT NULL,
		meta        JSONB,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS content_scans (
		id          UUID PRIMARY KEY,
		subject_type TEXT NOT NULL,
		subject_id  TEXT NOT NULL,
		kind        TEXT NOT NULL,
		scores      JSONB,
		status      TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS quarantine_items (
		attachment_id  TEXT PRIMARY KEY,
		subject_type   TEXT NOT NULL,
		subject_id     TEXT NOT NULL,
		safety_status  TEXT NOT NULL DEFAULT 'needs_review',
		safety_score   JSONB,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS quarantine_status_idx
		ON quarantine_items (safety_status, created_at)`,
}
