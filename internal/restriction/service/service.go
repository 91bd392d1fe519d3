package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vigil/internal/restriction/models"
	"vigil/internal/restriction/store"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/sentinel"
)

// SystemActor is recorded as created_by for restrictions applied
// automatically by the write gate.
const SystemActor = "system"

// Service owns the TTL'd restriction ledger. It does not dedupe repeated
// applications: rows accumulate and CheckFlags takes the longest surviving
// expiry per mode, so callers are responsible for idempotent intent.
type Service struct {
	store  store.Store
	logger *slog.Logger
	clock  func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New constructs a restriction Service.
func New(st store.Store, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("restriction store is required")
	}
	svc := &Service{store: st, clock: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ApplyCooldown blocks writes on the scope for the given duration.
func (s *Service) ApplyCooldown(ctx context.Context, userID, scope string, d time.Duration, reason, createdBy string) (*models.Restriction, error) {
	return s.apply(ctx, userID, scope, models.ModeCooldown, d, reason, createdBy)
}

// ApplyShadow makes the user's writes on the scope invisible to others for
// the given duration.
func (s *Service) ApplyShadow(ctx context.Context, userID, scope string, d time.Duration, reason, createdBy string) (*models.Restriction, error) {
	return s.apply(ctx, userID, scope, models.ModeShadow, d, reason, createdBy)
}

// RequireCaptcha demands a solved captcha on the user's next attempts for
// the given duration.
func (s *Service) RequireCaptcha(ctx context.Context, userID, scope string, d time.Duration, reason, createdBy string) (*models.Restriction, error) {
	return s.apply(ctx, userID, scope, models.ModeCaptchaRequired, d, reason, createdBy)
}

// ApplyLinkCooloff strips external links from the user's content on the
// scope for the given duration.
func (s *Service) ApplyLinkCooloff(ctx context.Context, userID, scope string, d time.Duration, reason, createdBy string) (*models.Restriction, error) {
	return s.apply(ctx, userID, scope, models.ModeLinkCooloff, d, reason, createdBy)
}

func (s *Service) apply(ctx context.Context, userID, scope string, mode models.Mode, d time.Duration, reason, createdBy string) (*models.Restriction, error) {
	if createdBy == "" {
		createdBy = SystemActor
	}
	r, err := models.New(userID, scope, mode, d, reason, createdBy)
	if err != nil {
		return nil, err
	}
	if err := s.store.Insert(ctx, r); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "insert restriction")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "restriction applied",
			"user_id", userID, "scope", scope, "mode", mode.String(),
			"ttl_seconds", r.TTLSeconds, "reason", reason, "created_by", createdBy,
			"log_type", "audit")
	}
	return r, nil
}

// CheckFlags aggregates all active restrictions for the user and scope into
// one decision bundle. The cooldown TTL is the remaining time on the longest
// surviving cooldown row.
func (s *Service) CheckFlags(ctx context.Context, userID, scope string) (*models.Flags, error) {
	now := s.clock()
	active, err := s.store.ActiveForScope(ctx, userID, scope, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "check restriction flags")
	}

	flags := &models.Flags{}
	for _, r := range active {
		switch r.Mode {
		case models.ModeCooldown:
			if r.ExpiresAt == nil {
				// An unbounded cooldown reports a day of retry-after at a
				// time rather than an infinite TTL.
				flags.CooldownTTL = 24 * time.Hour
				continue
			}
			if ttl := r.ExpiresAt.Sub(now); ttl > flags.CooldownTTL {
				flags.CooldownTTL = ttl
			}
		case models.ModeShadow:
			flags.ShadowActive = true
		case models.ModeCaptchaRequired:
			flags.CaptchaRequired = true
		case models.ModeLinkCooloff:
			flags.LinkCooloff = true
		}
	}
	return flags, nil
}

// Revoke lapses a restriction immediately, used by moderator override.
func (s *Service) Revoke(ctx context.Context, id string) error {
	if err := s.store.Expire(ctx, id, s.clock()); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "restriction not found")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "revoke restriction")
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "restriction revoked", "restriction_id", id, "log_type", "audit")
	}
	return nil
}

// RevokeActive lapses every active restriction of one mode on a user and
// scope. Rows accumulate, so moderator unmute needs this rather than
// per-id Revoke.
func (s *Service) RevokeActive(ctx context.Context, userID, scope string, mode models.Mode) (int, error) {
	count, err := s.store.ExpireActive(ctx, userID, scope, mode, s.clock())
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "revoke active restrictions")
	}
	return count, nil
}

// ListActive returns all active restrictions for a user across scopes.
func (s *Service) ListActive(ctx context.Context, userID string) ([]*models.Restriction, error) {
	active, err := s.store.ActiveForUser(ctx, userID, s.clock())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list active restrictions")
	}
	return active, nil
}

// PurgeExpired removes rows that lapsed before the cutoff. Run periodically
// by housekeeping.
func (s *Service) PurgeExpired(ctx context.Context, before time.Time) (int, error) {
	count, err := s.store.PurgeExpired(ctx, before)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "purge expired restrictions")
	}
	return count, nil
}
