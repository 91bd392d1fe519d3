package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	enfmodels "vigil/internal/enforce/models"
	"vigil/internal/pipeline/metrics"
	"vigil/internal/policy"
	"vigil/internal/stream"
	dErrors "vigil/pkg/domain-errors"
)

// Enforcer is the subset of the enforcement service the workers use.
type Enforcer interface {
	ApplyDecision(ctx context.Context, subjectType, subjectID, actorID, baseReason string, decision *policy.Decision, policyID string) (*enfmodels.Case, policy.Action, error)
}

// IngressHandler evaluates the active policy over each ingress event and
// routes non-clean outcomes into enforcement, emitting the applied
// decision to the decisions stream.
type IngressHandler struct {
	engine    *policy.Engine
	policy    *policy.Policy
	enforcer  Enforcer
	transport stream.Log
	metrics   *metrics.Metrics
	logger    *slog.Logger
	clock     func() time.Time
}

// NewIngressHandler creates an ingress handler over the given policy.
func NewIngressHandler(engine *policy.Engine, pol *policy.Policy, enforcer Enforcer, transport stream.Log, m *metrics.Metrics, logger *slog.Logger) *IngressHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngressHandler{
		engine:    engine,
		policy:    pol,
		enforcer:  enforcer,
		transport: transport,
		metrics:   m,
		logger:    logger,
		clock:     time.Now,
	}
}

// Handle is the HandleFunc for the ingress worker.
func (h *IngressHandler) Handle(ctx context.Context, entry stream.Entry) error {
	var ev IngressEvent
	if err := json.Unmarshal(entry.Payload, &ev); err != nil {
		return fmt.Errorf("decode ingress event: %w", err)
	}
	if ev.SubjectType == "" || ev.SubjectID == "" {
		return fmt.Errorf("ingress event %s missing subject", ev.EventID)
	}

	decision := h.engine.Evaluate(h.policy, ev.PolicySignals(), ev.TrustScore)
	if decision.Action == policy.ActionNone {
		return nil
	}

	c, applied, err := h.enforcer.ApplyDecision(ctx, ev.SubjectType, ev.SubjectID,
		"", "", &decision, h.policy.ID)
	if err != nil {
		return err
	}

	return emitDecision(ctx, h.transport, h.metrics, DecisionRecord{
		CaseID:        c.CaseID,
		Decision:      string(decision.Action),
		Severity:      decision.Severity,
		Reasons:       decision.Reasons,
		EventID:       ev.EventID,
		SubjectType:   ev.SubjectType,
		SubjectID:     ev.SubjectID,
		AppliedAction: string(applied),
		Signals:       ev.Signals,
		CreatedAt:     h.clock().UTC(),
	})
}

// emitDecision appends a decision record to the decisions stream. Append
// failures are retryable so the entry is reprocessed rather than lost.
func emitDecision(ctx context.Context, transport stream.Log, m *metrics.Metrics, rec DecisionRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode decision record: %w", err)
	}
	if _, err := transport.Append(ctx, stream.Decisions, payload); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "append decision record")
	}
	m.RecordDecisionEmitted(rec.AppliedAction)
	return nil
}
