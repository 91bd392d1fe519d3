package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vigil/internal/audit"
	"vigil/internal/enforce/metrics"
	"vigil/internal/enforce/models"
	"vigil/internal/enforce/ports"
	"vigil/internal/enforce/store"
	"vigil/internal/policy"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/sentinel"
)

// SystemActor is recorded on decisions applied by the pipeline without a
// human in the loop.
const SystemActor = "system"

// Service owns the moderation case write path. Cases are upserted per
// subject with last-writer-wins on reason and severity; action application
// is idempotent under the (case_id, action) uniqueness constraint.
type Service struct {
	store   store.Store
	hooks   ports.ActionHooks
	audit   *audit.Publisher
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches enforcement metrics.
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

// New constructs an enforcement Service. Hooks are required; pass
// ports.NoopHooks when the owning domains consume the decisions stream
// instead.
func New(st store.Store, hooks ports.ActionHooks, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("case store is required")
	}
	if hooks == nil {
		return nil, errors.New("action hooks are required")
	}
	svc := &Service{store: st, hooks: hooks, clock: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ApplyDecision upserts the case for the subject and applies the decision's
// action once. Redelivered decisions hit the idempotency guard and return
// the case with applied action none. The returned action is what this call
// actually applied.
func (s *Service) ApplyDecision(ctx context.Context, subjectType, subjectID, actorID, baseReason string, decision *policy.Decision, policyID string) (*models.Case, policy.Action, error) {
	if decision == nil {
		return nil, policy.ActionNone, dErrors.New(dErrors.CodeInvalidInput, "decision is required")
	}
	if actorID == "" {
		actorID = SystemActor
	}

	reason := baseReason
	if reason == "" && len(decision.Reasons) > 0 {
		reason = decision.Reasons[0]
	}
	if reason == "" {
		reason = "policy decision"
	}

	draft, err := models.NewCase(subjectType, subjectID, reason, decision.Severity, policyID, actorID)
	if err != nil {
		return nil, policy.ActionNone, err
	}

	c, err := s.store.UpsertCase(ctx, draft)
	if err != nil {
		return nil, policy.ActionNone, dErrors.Wrap(err, dErrors.CodeUnavailable, "upsert case")
	}

	if decision.Action == policy.ActionNone {
		return c, policy.ActionNone, nil
	}

	applied, err := s.store.AlreadyApplied(ctx, c.CaseID, string(decision.Action))
	if err != nil {
		return nil, policy.ActionNone, dErrors.Wrap(err, dErrors.CodeUnavailable, "check applied action")
	}
	if applied {
		s.metrics.RecordSkipped(string(decision.Action))
		return c, policy.ActionNone, nil
	}

	if err := s.dispatch(ctx, c, decision); err != nil {
		s.metrics.RecordHookFailure(string(decision.Action))
		return nil, policy.ActionNone, dErrors.Wrap(err, dErrors.CodeUnavailable, "dispatch "+string(decision.Action))
	}

	action := models.NewModerationAction(c.CaseID, decision.Action, decision.Payload, actorID)
	if err := s.store.RecordAction(ctx, action); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// A concurrent delivery won the race; the action is applied.
			s.metrics.RecordSkipped(string(decision.Action))
			return c, policy.ActionNone, nil
		}
		return nil, policy.ActionNone, dErrors.Wrap(err, dErrors.CodeUnavailable, "record action")
	}

	c.Status = models.StatusActioned
	if err := s.store.UpdateCase(ctx, c); err != nil {
		return nil, policy.ActionNone, dErrors.Wrap(err, dErrors.CodeUnavailable, "update case status")
	}

	s.metrics.RecordApplied(string(decision.Action))
	s.recordAudit(ctx, actorID, "case_actioned", c, map[string]any{
		"action":   string(decision.Action),
		"severity": decision.Severity,
		"reasons":  decision.Reasons,
	})
	if s.logger != nil {
		s.logger.InfoContext(ctx, "decision applied",
			"case_id", c.CaseID, "subject_type", subjectType, "subject_id", subjectID,
			"action", string(decision.Action), "severity", decision.Severity, "actor_id", actorID,
			"log_type", "audit")
	}
	return c, decision.Action, nil
}

func (s *Service) dispatch(ctx context.Context, c *models.Case, decision *policy.Decision) error {
	switch decision.Action {
	case policy.ActionTombstone:
		return s.hooks.Tombstone(ctx, c, decision.Payload)
	case policy.ActionRemove:
		return s.hooks.Remove(ctx, c, decision.Payload)
	case policy.ActionShadowHide:
		return s.hooks.ShadowHide(ctx, c, decision.Payload)
	case policy.ActionMute:
		return s.hooks.Mute(ctx, c, decision.Payload)
	case policy.ActionBan:
		return s.hooks.Ban(ctx, c, decision.Payload)
	case policy.ActionWarn:
		return s.hooks.Warn(ctx, c, decision.Payload)
	case policy.ActionRestrictCreate:
		return s.hooks.RestrictCreate(ctx, c, decision.Payload, s.clock().Add(time.Hour))
	default:
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown action %q", decision.Action)
	}
}

// Dismiss closes the case without enforcement.
func (s *Service) Dismiss(ctx context.Context, caseID, actorID, note string) (*models.Case, error) {
	return s.transition(ctx, caseID, actorID, models.StatusDismissed, func(c *models.Case) {
		if note != "" {
			c.Reason = note
		}
	})
}

// Escalate sends an open case to a higher review tier, or advances the
// escalation level of a case already escalated.
func (s *Service) Escalate(ctx context.Context, caseID, actorID string) (*models.Case, error) {
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	switch c.Status {
	case models.StatusEscalated:
		c.EscalationLevel++
	case models.StatusOpen:
		c.Status = models.StatusEscalated
	default:
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "cannot escalate case in status %s", c.Status)
	}

	if err := s.store.UpdateCase(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "update case")
	}
	s.metrics.RecordTransition(string(models.StatusEscalated))
	s.recordAudit(ctx, actorID, "case_escalated", c, map[string]any{"escalation_level": c.EscalationLevel})
	return c, nil
}

// Reopen returns an escalated case to the open state after review.
func (s *Service) Reopen(ctx context.Context, caseID, actorID string) (*models.Case, error) {
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.Status != models.StatusEscalated {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "cannot reopen case in status %s", c.Status)
	}
	c.Status = models.StatusOpen
	if err := s.store.UpdateCase(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "update case")
	}
	s.metrics.RecordTransition(string(models.StatusOpen))
	s.recordAudit(ctx, actorID, "case_reopened", c, nil)
	return c, nil
}

// Assign hands the case to a moderator.
func (s *Service) Assign(ctx context.Context, caseID, assignee, actorID string) (*models.Case, error) {
	if assignee == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "assignee is required")
	}
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	c.AssignedTo = assignee
	if err := s.store.UpdateCase(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "update case")
	}
	s.recordAudit(ctx, actorID, "case_assigned", c, map[string]any{"assigned_to": assignee})
	return c, nil
}

// OpenAppeal flags the case as under appeal. The flag is orthogonal to the
// lifecycle status and does not block further decisions.
func (s *Service) OpenAppeal(ctx context.Context, caseID, userID, note string) (*models.Case, error) {
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user_id is required")
	}
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.AppealOpen {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "appeal already open")
	}
	c.AppealOpen = true
	c.AppealedBy = userID
	c.AppealNote = note
	if err := s.store.UpdateCase(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "update case")
	}
	s.recordAudit(ctx, userID, "appeal_opened", c, map[string]any{"note": note})
	return c, nil
}

// ResolveAppeal clears the appeal flag.
func (s *Service) ResolveAppeal(ctx context.Context, caseID, actorID, note string) (*models.Case, error) {
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !c.AppealOpen {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "no appeal open")
	}
	c.AppealOpen = false
	c.AppealNote = note
	if err := s.store.UpdateCase(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "update case")
	}
	s.recordAudit(ctx, actorID, "appeal_resolved", c, map[string]any{"note": note})
	return c, nil
}

// GetCase fetches one case by id.
func (s *Service) GetCase(ctx context.Context, caseID string) (*models.Case, error) {
	return s.getCase(ctx, caseID)
}

// ListCases returns cases by status (empty means all), newest first.
func (s *Service) ListCases(ctx context.Context, status models.Status, limit int) ([]*models.Case, error) {
	if status != "" && !status.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown status %q", status)
	}
	cases, err := s.store.ListCases(ctx, status, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list cases")
	}
	return cases, nil
}

// ActionsByCase returns the actions applied on a case in apply order.
func (s *Service) ActionsByCase(ctx context.Context, caseID string) ([]*models.ModerationAction, error) {
	actions, err := s.store.ActionsByCase(ctx, caseID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list actions")
	}
	return actions, nil
}

func (s *Service) transition(ctx context.Context, caseID, actorID string, next models.Status, mutate func(*models.Case)) (*models.Case, error) {
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !c.Status.CanTransition(next) {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "cannot move case from %s to %s", c.Status, next)
	}
	if mutate != nil {
		mutate(c)
	}
	c.Status = next
	if err := s.store.UpdateCase(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "update case")
	}
	s.metrics.RecordTransition(string(next))
	s.recordAudit(ctx, actorID, "case_"+string(next), c, nil)
	return c, nil
}

func (s *Service) getCase(ctx context.Context, caseID string) (*models.Case, error) {
	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "get case")
	}
	return c, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID, action string, c *models.Case, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, actorID, action, "case", c.CaseID, meta); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "audit record failed", "action", action, "case_id", c.CaseID, "error", err)
	}
}
