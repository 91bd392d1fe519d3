package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"vigil/internal/pipeline/metrics"
	"vigil/internal/policy"
	"vigil/internal/stream"
)

// ResultsHandler turns scanner verdicts into enforcement decisions. The
// scanner already suggested an action; the handler applies it with the
// scan level as the case severity and emits the applied decision.
type ResultsHandler struct {
	enforcer  Enforcer
	transport stream.Log
	metrics   *metrics.Metrics
	logger    *slog.Logger
	clock     func() time.Time
}

// NewResultsHandler creates a results handler.
func NewResultsHandler(enforcer Enforcer, transport stream.Log, m *metrics.Metrics, logger *slog.Logger) *ResultsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultsHandler{
		enforcer:  enforcer,
		transport: transport,
		metrics:   m,
		logger:    logger,
		clock:     time.Now,
	}
}

// Handle is the HandleFunc for the results worker.
func (h *ResultsHandler) Handle(ctx context.Context, entry stream.Entry) error {
	var res ScanResult
	if err := json.Unmarshal(entry.Payload, &res); err != nil {
		return fmt.Errorf("decode scan result: %w", err)
	}
	if res.SubjectType == "" || res.SubjectID == "" {
		return fmt.Errorf("scan result %s missing subject", res.EventID)
	}

	action := policy.Action(res.SuggestedAction)
	if action == "" || action == policy.ActionNone {
		return nil
	}
	if !action.IsValid() {
		return fmt.Errorf("scan result %s suggests unknown action %q", res.EventID, res.SuggestedAction)
	}

	reason := fmt.Sprintf("%s scan %s", res.Scanner, res.Status)
	decision := policy.Decision{
		Action:   action,
		Severity: res.Level,
		Reasons:  []string{reason},
	}

	c, applied, err := h.enforcer.ApplyDecision(ctx, res.SubjectType, res.SubjectID,
		"", reason, &decision, "")
	if err != nil {
		return err
	}

	return emitDecision(ctx, h.transport, h.metrics, DecisionRecord{
		CaseID:        c.CaseID,
		Decision:      string(decision.Action),
		Severity:      decision.Severity,
		Reasons:       decision.Reasons,
		EventID:       res.EventID,
		SubjectType:   res.SubjectType,
		SubjectID:     res.SubjectID,
		AppliedAction: string(applied),
		Signals:       res.Signals,
		CreatedAt:     h.clock().UTC(),
	})
}
