package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	qmodels "vigil/internal/quarantine/models"
	"vigil/internal/stream"
)

// QuarantineHold is one held-attachment event on the quarantine stream.
type QuarantineHold struct {
	AttachmentID string             `json:"attachment_id"`
	SubjectType  string             `json:"subject_type"`
	SubjectID    string             `json:"subject_id"`
	SafetyScore  map[string]float64 `json:"safety_score,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

// QuarantineIntake is the subset of the quarantine service the worker uses.
type QuarantineIntake interface {
	Intake(ctx context.Context, attachmentID, subjectType, subjectID string, scores map[string]float64) (*qmodels.Item, error)
}

// QuarantineHandler drains hold events into the review queue.
type QuarantineHandler struct {
	intake QuarantineIntake
	logger *slog.Logger
}

// NewQuarantineHandler creates a quarantine intake handler.
func NewQuarantineHandler(intake QuarantineIntake, logger *slog.Logger) *QuarantineHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuarantineHandler{intake: intake, logger: logger}
}

// Handle is the HandleFunc for the quarantine worker.
func (h *QuarantineHandler) Handle(ctx context.Context, entry stream.Entry) error {
	var hold QuarantineHold
	if err := json.Unmarshal(entry.Payload, &hold); err != nil {
		return fmt.Errorf("decode quarantine hold: %w", err)
	}

	if _, err := h.intake.Intake(ctx, hold.AttachmentID, hold.SubjectType, hold.SubjectID, hold.SafetyScore); err != nil {
		return err
	}
	return nil
}
