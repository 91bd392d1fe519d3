package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"vigil/internal/pipeline/metrics"
	"vigil/internal/stream"
)

// ActionsHandler tails the decisions stream for bookkeeping. Owning
// domains consume the same stream for content mutations; this handler
// only counts and logs what was applied.
type ActionsHandler struct {
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewActionsHandler creates an actions handler.
func NewActionsHandler(m *metrics.Metrics, logger *slog.Logger) *ActionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActionsHandler{metrics: m, logger: logger}
}

// Handle is the HandleFunc for the actions worker.
func (h *ActionsHandler) Handle(_ context.Context, entry stream.Entry) error {
	var rec DecisionRecord
	if err := json.Unmarshal(entry.Payload, &rec); err != nil {
		return fmt.Errorf("decode decision record: %w", err)
	}

	h.metrics.RecordDecisionConsumed(rec.AppliedAction)
	h.logger.Info("decision applied",
		"log_type", "audit",
		"case_id", rec.CaseID,
		"subject_type", rec.SubjectType,
		"subject_id", rec.SubjectID,
		"decision", rec.Decision,
		"applied_action", rec.AppliedAction,
		"severity", rec.Severity,
	)
	return nil
}
