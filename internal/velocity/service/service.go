package service

import (
	"context"
	"errors"
	"log/slog"

	repmodels "vigil/internal/reputation/models"
	"vigil/internal/velocity/config"
	"vigil/internal/velocity/metrics"
	"vigil/internal/velocity/models"
	"vigil/internal/velocity/store"
	dErrors "vigil/pkg/domain-errors"
)

// Service enforces multi-window sliding-rate limits per user and surface.
// Windows are checked shortest first, with limits scaled down for risky
// reputation bands.
type Service struct {
	counters store.CounterStore
	config   *config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithConfig overrides the default window configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) { s.config = cfg }
}

// WithMetrics attaches velocity metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a velocity Service.
func New(counters store.CounterStore, opts ...Option) (*Service, error) {
	if counters == nil {
		return nil, errors.New("counter store is required")
	}
	svc := &Service{
		counters: counters,
		config:   config.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if err := svc.config.Validate(); err != nil {
		return nil, err
	}
	return svc, nil
}

// Observe counts one write attempt against every window for the surface and
// returns a trip for the first (shortest) window whose post-increment count
// exceeds its band-adjusted limit, or nil when all windows have headroom.
func (s *Service) Observe(ctx context.Context, userID, surface string, band repmodels.Band) (*models.Trip, error) {
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user_id cannot be empty")
	}

	multiplier := band.Multiplier()
	for _, window := range s.config.WindowsFor(surface) {
		key := models.CounterKey(surface, userID, window.Seconds)
		count, err := s.counters.IncrementWithExpiry(ctx, key, window.Duration())
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "increment velocity counter")
		}

		limit := models.EffectiveLimit(window.Limit, multiplier)
		if count > int64(limit) {
			trip := &models.Trip{
				Surface:  surface,
				Window:   window.Name,
				Limit:    limit,
				Count:    count,
				Cooldown: window.Cooldown(),
			}
			s.metrics.RecordTrip(surface, window.Name)
			if s.logger != nil {
				s.logger.InfoContext(ctx, "velocity window tripped",
					"user_id", userID, "surface", surface, "window", window.Name,
					"count", count, "limit", limit, "band", band.String(),
					"log_type", "audit")
			}
			return trip, nil
		}
	}
	return nil, nil
}

// Reset clears all window counters for a user on a surface, used by moderator
// unmute.
func (s *Service) Reset(ctx context.Context, userID, surface string) error {
	windows := s.config.WindowsFor(surface)
	if len(windows) == 0 {
		return nil
	}

	keys := make([]string, 0, len(windows))
	for _, window := range windows {
		keys = append(keys, models.CounterKey(surface, userID, window.Seconds))
	}
	if err := s.counters.Delete(ctx, keys...); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "reset velocity counters")
	}

	s.metrics.RecordReset(surface)
	return nil
}
