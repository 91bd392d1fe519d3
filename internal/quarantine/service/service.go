// Package service implements the human-review queue over held attachments.
// Moderator verdicts feed back into the enforcement engine; everything else
// is bookkeeping around the backlog.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vigil/internal/audit"
	enfmodels "vigil/internal/enforce/models"
	"vigil/internal/policy"
	"vigil/internal/quarantine/metrics"
	"vigil/internal/quarantine/models"
	"vigil/internal/quarantine/store"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/sentinel"
)

// QuarantineReason is the fixed case reason recorded for verdict-driven
// enforcement.
const QuarantineReason = "quarantine"

// Enforcer is the subset of the enforcement service verdicts feed into.
type Enforcer interface {
	ApplyDecision(ctx context.Context, subjectType, subjectID, actorID, baseReason string, decision *policy.Decision, policyID string) (*enfmodels.Case, policy.Action, error)
}

// Service owns the quarantine queue.
type Service struct {
	store    store.Store
	enforcer Enforcer
	audit    *audit.Publisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
	clock    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches quarantine metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAudit attaches an audit publisher.
func WithAudit(publisher *audit.Publisher) Option {
	return func(s *Service) { s.audit = publisher }
}

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New constructs a quarantine Service.
func New(st store.Store, enforcer Enforcer, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("quarantine store is required")
	}
	if enforcer == nil {
		return nil, errors.New("enforcer is required")
	}
	svc := &Service{
		store:    st,
		enforcer: enforcer,
		logger:   slog.Default(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Intake holds an attachment for review. Re-delivered holds refresh the
// scores of an existing unresolved item; resolved items stay resolved.
func (s *Service) Intake(ctx context.Context, attachmentID, subjectType, subjectID string, scores map[string]float64) (*models.Item, error) {
	item, err := models.NewItem(attachmentID, subjectType, subjectID, scores, s.clock())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid quarantine item")
	}
	if err := s.store.Upsert(ctx, item); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "hold attachment")
	}
	s.metrics.RecordIntake()
	s.refreshBacklog(ctx)
	return item, nil
}

// ListItems returns held items in one bucket, oldest first, created strictly
// after the cursor time.
func (s *Service) ListItems(ctx context.Context, status models.Status, after time.Time, limit int) ([]*models.Item, error) {
	if !status.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown status %q", status)
	}
	items, err := s.store.List(ctx, status, after, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list quarantine items")
	}
	s.refreshBacklog(ctx)
	return items, nil
}

// Resolve closes a held item with a moderator verdict. Blocked attachments
// are removed at severity 5 and tombstoned ones kept at severity 4 through
// the enforcement engine; a clean verdict releases without enforcement.
func (s *Service) Resolve(ctx context.Context, attachmentID, verdict, note, actorID string) (*models.Item, error) {
	item, err := s.store.Get(ctx, attachmentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "attachment %s is not held", attachmentID)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load quarantine item")
	}
	if item.SafetyStatus == models.StatusResolved {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "attachment %s is already resolved", attachmentID)
	}

	decision, err := verdictDecision(verdict)
	if err != nil {
		return nil, err
	}

	if decision != nil {
		if _, _, err := s.enforcer.ApplyDecision(ctx, item.SubjectType, item.SubjectID,
			actorID, QuarantineReason, decision, ""); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.UpdateStatus(ctx, attachmentID, models.StatusResolved)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "resolve quarantine item")
	}

	s.metrics.RecordResolution(verdict)
	s.recordAudit(ctx, actorID, updated, verdict, note)
	s.refreshBacklog(ctx)
	return updated, nil
}

// RefreshBacklog republishes the backlog gauges for the review buckets.
func (s *Service) RefreshBacklog(ctx context.Context) error {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "count quarantine backlog")
	}
	s.metrics.SetBacklog(string(models.StatusNeedsReview), counts[models.StatusNeedsReview])
	s.metrics.SetBacklog(string(models.StatusQuarantined), counts[models.StatusQuarantined])
	return nil
}

// Housekeeping refreshes the backlog gauges on an interval until ctx is
// cancelled.
func (s *Service) Housekeeping(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.RefreshBacklog(ctx); err != nil {
				s.logger.Error("quarantine backlog refresh failed", "error", err)
			}
		}
	}
}

func verdictDecision(verdict string) (*policy.Decision, error) {
	switch verdict {
	case models.VerdictBlocked:
		return &policy.Decision{
			Action:   policy.ActionRemove,
			Severity: 5,
			Reasons:  []string{QuarantineReason},
		}, nil
	case models.VerdictTombstone:
		return &policy.Decision{
			Action:   policy.ActionTombstone,
			Severity: 4,
			Reasons:  []string{QuarantineReason},
		}, nil
	case models.VerdictClean:
		return nil, nil
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown verdict %q", verdict)
	}
}

// refreshBacklog is the best-effort gauge refresh after queue mutations.
func (s *Service) refreshBacklog(ctx context.Context) {
	if err := s.RefreshBacklog(ctx); err != nil {
		s.logger.Warn("quarantine backlog refresh failed", "error", err)
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID string, item *models.Item, verdict, note string) {
	if s.audit == nil {
		return
	}
	meta := map[string]any{"verdict": verdict}
	if note != "" {
		meta["note"] = note
	}
	if err := s.audit.Record(ctx, actorID, "quarantine_resolved", "attachment", item.AttachmentID, meta); err != nil {
		s.logger.Error("audit append failed",
			"action", "quarantine_resolved", "attachment_id", item.AttachmentID, "error", err)
	}
	s.logger.Info("quarantine resolved",
		"log_type", "audit",
		"attachment_id", item.AttachmentID,
		"subject_type", item.SubjectType,
		"subject_id", item.SubjectID,
		"verdict", verdict,
		"actor_id", actorID,
	)
}
