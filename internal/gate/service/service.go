package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vigil/internal/gate/metrics"
	"vigil/internal/gate/models"
	repmodels "vigil/internal/reputation/models"
	repservice "vigil/internal/reputation/service"
	resmodels "vigil/internal/restriction/models"
	velmodels "vigil/internal/velocity/models"
	dErrors "vigil/pkg/domain-errors"
)

// Defaults for restrictions the gate applies on its own authority.
const (
	// honeyShadowTTL shadows a honeypot tripper long enough for review.
	honeyShadowTTL = 24 * time.Hour
	// honeyCaptchaTTL forces captcha on the tripper's next attempts.
	honeyCaptchaTTL = time.Hour
	// sensitiveShadowTTL shadows risky users on sensitive surfaces.
	sensitiveShadowTTL = time.Hour

	// Reputation deltas; positive is worse.
	velocityTripDelta = 5
	honeyTripDelta    = 15
)

// ReputationService is the slice of the reputation module the gate needs.
type ReputationService interface {
	GetOrCreate(ctx context.Context, userID string) (*repmodels.Score, error)
	RecordEvent(ctx context.Context, userID, surface, kind string, delta int, opts ...repservice.EventOption) (*repmodels.Score, error)
}

// VelocityService observes write attempts against configured windows.
type VelocityService interface {
	Observe(ctx context.Context, userID, surface string, band repmodels.Band) (*velmodels.Trip, error)
}

// RestrictionService is the slice of the restriction ledger the gate needs.
type RestrictionService interface {
	CheckFlags(ctx context.Context, userID, scope string) (*resmodels.Flags, error)
	ApplyCooldown(ctx context.Context, userID, scope string, d time.Duration, reason, createdBy string) (*resmodels.Restriction, error)
	ApplyShadow(ctx context.Context, userID, scope string, d time.Duration, reason, createdBy string) (*resmodels.Restriction, error)
	RequireCaptcha(ctx context.Context, userID, scope string, d time.Duration, reason, createdBy string) (*resmodels.Restriction, error)
}

// Service is the write gate: the single integration surface the surrounding
// domains call before persisting any user write. It composes reputation,
// velocity, and restriction checks into one pass over a WriteContext.
//
// The gate fails closed: if a lookup against any backing store fails, the
// write is rejected rather than allowed through unchecked.
type Service struct {
	reputation   ReputationService
	velocity     VelocityService
	restrictions RestrictionService
	sensitive    map[string]struct{}
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches gate metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSensitiveSurfaces sets the surfaces on which risk and bad band users
// are forced into shadow.
func WithSensitiveSurfaces(surfaces []string) Option {
	return func(s *Service) {
		s.sensitive = make(map[string]struct{}, len(surfaces))
		for _, surface := range surfaces {
			s.sensitive[surface] = struct{}{}
		}
	}
}

// New constructs a write gate over its three backing services.
func New(reputation ReputationService, velocity VelocityService, restrictions RestrictionService, opts ...Option) (*Service, error) {
	if reputation == nil {
		return nil, errors.New("reputation service is required")
	}
	if velocity == nil {
		return nil, errors.New("velocity service is required")
	}
	if restrictions == nil {
		return nil, errors.New("restriction service is required")
	}
	svc := &Service{
		reputation:   reputation,
		velocity:     velocity,
		restrictions: restrictions,
		sensitive:    map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Enforce runs the full gate over one write attempt. On success it returns
// the mutated context; the caller consults Shadow and StripLinks before
// fanning the content out. On rejection the error carries one of the two
// user-visible codes (cooldown_active, captcha_required); internal scores
// and bands are never exposed.
func (s *Service) Enforce(ctx context.Context, userID, surface string, wctx *models.WriteContext) (*models.WriteContext, error) {
	if userID == "" || surface == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user_id and surface are required")
	}
	if wctx == nil {
		wctx = &models.WriteContext{}
	}

	band, err := s.resolveBand(ctx, userID, wctx)
	if err != nil {
		return nil, err
	}

	flags, err := s.restrictions.CheckFlags(ctx, userID, surface)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "restriction lookup")
	}

	if flags.CooldownTTL > 0 {
		s.metrics.RecordRejection(surface, string(dErrors.CodeRateLimited))
		return nil, dErrors.RateLimited(ttlSeconds(flags.CooldownTTL))
	}

	shadowed := false
	if flags.ShadowActive {
		wctx.Shadow = true
		shadowed = true
		s.metrics.RecordShadowWrite(surface)
	}

	trip, err := s.velocity.Observe(ctx, userID, surface, band)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "velocity observe")
	}
	if trip != nil {
		if err := s.absorbVelocityTrip(ctx, userID, surface, trip); err != nil {
			return nil, err
		}
		s.metrics.RecordRejection(surface, string(dErrors.CodeRateLimited))
		return nil, dErrors.RateLimited(ttlSeconds(trip.Cooldown))
	}

	if flags.CaptchaRequired && !wctx.CaptchaOK {
		s.metrics.RecordRejection(surface, string(dErrors.CodeCaptchaRequired))
		s.metrics.RecordCaptchaRequired(surface)
		return nil, dErrors.New(dErrors.CodeCaptchaRequired, "captcha required")
	}

	if flags.LinkCooloff && wctx.ContainsLink() {
		wctx.StripLinks = true
		wctx.Annotate("link_cooloff", "links stripped")
		s.metrics.RecordLinkStrip(surface)
	}

	if wctx.HoneyTripped {
		if err := s.absorbHoneyTrip(ctx, userID, surface); err != nil {
			return nil, err
		}
		s.metrics.RecordHoneypotTrip(surface)
		s.metrics.RecordRejection(surface, string(dErrors.CodeCaptchaRequired))
		return nil, dErrors.New(dErrors.CodeCaptchaRequired, "captcha required")
	}

	if band.AtRisk() {
		if _, ok := s.sensitive[surface]; ok {
			wctx.Shadow = true
			if !shadowed {
				_, err := s.restrictions.ApplyShadow(ctx, userID, surface, sensitiveShadowTTL, "risk band on sensitive surface", "")
				if err != nil {
					return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "apply shadow restriction")
				}
				s.metrics.RecordShadowWrite(surface)
			}
			if s.logger != nil {
				s.logger.InfoContext(ctx, "sensitive surface shadow forced",
					"user_id", userID, "surface", surface, "band", band.String(),
					"log_type", "audit")
			}
		}
	}

	return wctx, nil
}

// resolveBand trusts a valid band carried in the context, otherwise looks
// the score up fresh.
func (s *Service) resolveBand(ctx context.Context, userID string, wctx *models.WriteContext) (repmodels.Band, error) {
	if wctx.Band != "" {
		band := repmodels.Band(wctx.Band)
		if band.IsValid() {
			return band, nil
		}
	}
	score, err := s.reputation.GetOrCreate(ctx, userID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "reputation lookup")
	}
	wctx.Band = score.Band.String()
	return score.Band, nil
}

// absorbVelocityTrip converts a tripped window into a cooldown restriction
// and a reputation event before the rejection is surfaced.
func (s *Service) absorbVelocityTrip(ctx context.Context, userID, surface string, trip *velmodels.Trip) error {
	_, err := s.restrictions.ApplyCooldown(ctx, userID, surface, trip.Cooldown, "velocity limit exceeded: "+trip.Window, "")
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "apply trip cooldown")
	}
	if _, err := s.reputation.RecordEvent(ctx, userID, surface, repmodels.KindVelocityTrip, velocityTripDelta); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "record velocity trip")
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "velocity trip absorbed",
			"user_id", userID, "surface", surface, "window", trip.Window,
			"count", trip.Count, "limit", trip.Limit,
			"log_type", "audit")
	}
	return nil
}

// absorbHoneyTrip records the near-certain abuse signal and arms both a
// shadow and a captcha requirement for subsequent attempts. The attempt
// itself is rejected as an ordinary captcha failure so the trap stays
// invisible.
func (s *Service) absorbHoneyTrip(ctx context.Context, userID, surface string) error {
	if _, err := s.reputation.RecordEvent(ctx, userID, surface, repmodels.KindHoneyTrip, honeyTripDelta); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "record honey trip")
	}
	if _, err := s.restrictions.ApplyShadow(ctx, userID, surface, honeyShadowTTL, "honeypot tripped", ""); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "apply honey shadow")
	}
	if _, err := s.restrictions.RequireCaptcha(ctx, userID, surface, honeyCaptchaTTL, "honeypot tripped", ""); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "apply honey captcha")
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "honeypot trip absorbed",
			"user_id", userID, "surface", surface,
			"log_type", "audit")
	}
	return nil
}

func ttlSeconds(d time.Duration) int {
	secs := int(d.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
