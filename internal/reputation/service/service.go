package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vigil/internal/reputation/models"
	"vigil/internal/reputation/store"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/sentinel"
)

// decayStep is how many points a stale score moves toward neutral per sweep.
const decayStep = 5

// Service owns reputation reads and writes. Scores are bounded, bands derive
// from fixed thresholds, and every mutation goes through the store's atomic
// ApplyEvent so concurrent workers cannot lose updates.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New constructs a reputation Service.
func New(st store.Store, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("reputation store is required")
	}
	svc := &Service{store: st}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// GetOrCreate returns the user's score, creating a neutral one on first
// sight.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (*models.Score, error) {
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user_id cannot be empty")
	}
	score, err := s.store.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "get or create reputation score")
	}
	return score, nil
}

// Get returns the user's score or CodeNotFound.
func (s *Service) Get(ctx context.Context, userID string) (*models.Score, error) {
	score, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "reputation score not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "get reputation score")
	}
	return score, nil
}

// EventOption enriches a recorded event with request metadata.
type EventOption func(*models.Event)

// WithDeviceFP attaches a device fingerprint to the event.
func WithDeviceFP(fp string) EventOption {
	return func(e *models.Event) { e.DeviceFP = fp }
}

// WithIP attaches the originating IP to the event.
func WithIP(ip string) EventOption {
	return func(e *models.Event) { e.IP = ip }
}

// WithMeta attaches free-form metadata to the event.
func WithMeta(meta map[string]any) EventOption {
	return func(e *models.Event) { e.Meta = meta }
}

// RecordEvent appends an event and atomically adjusts the user's bounded
// score and band, returning the updated score.
func (s *Service) RecordEvent(ctx context.Context, userID, surface, kind string, delta int, opts ...EventOption) (*models.Score, error) {
	event, err := models.NewEvent(userID, surface, kind, delta)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(event)
	}

	score, err := s.store.ApplyEvent(ctx, event)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "apply reputation event")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "reputation event recorded",
			"user_id", userID, "surface", surface, "kind", kind,
			"delta", delta, "score", score.Score, "band", score.Band.String())
	}
	return score, nil
}

// DecaySweep nudges scores in watch/risk/bad whose last event predates the
// cutoff one step toward neutral, and returns the updated scores. Decay is
// monotonic toward zero and never crosses it, so a score can never decay
// past neutral into good.
func (s *Service) DecaySweep(ctx context.Context, before time.Time) ([]*models.Score, error) {
	// One relative store-side update; selecting candidates first and writing
	// absolute scores back would drop concurrent event deltas.
	updated, err := s.store.Decay(ctx, before,
		[]models.Band{models.BandWatch, models.BandRisk, models.BandBad}, decayStep)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "apply decay")
	}

	if s.logger != nil && len(updated) > 0 {
		s.logger.InfoContext(ctx, "reputation decay sweep applied", "users", len(updated))
	}
	return updated, nil
}

// EventsByUser lists a user's recent events for moderator review.
func (s *Service) EventsByUser(ctx context.Context, userID string, limit int) ([]*models.Event, error) {
	events, err := s.store.EventsByUser(ctx, userID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list reputation events")
	}
	return events, nil
}
