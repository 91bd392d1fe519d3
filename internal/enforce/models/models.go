package models

import (
	"time"

	"github.com/google/uuid"

	"vigil/internal/policy"
	dErrors "vigil/pkg/domain-errors"
)

// Status is the moderation case lifecycle state.
type Status string

const (
	StatusOpen      Status = "open"
	StatusActioned  Status = "actioned"
	StatusDismissed Status = "dismissed"
	StatusEscalated Status = "escalated"
)

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusActioned, StatusDismissed, StatusEscalated:
		return true
	}
	return false
}

// CanTransition reports whether the lifecycle permits moving to next.
// Open fans out to every terminal-ish state; escalated may return to open
// for another review round. The appeal flag is orthogonal and not governed
// here.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusOpen:
		return next == StatusActioned || next == StatusDismissed || next == StatusEscalated
	case StatusEscalated:
		return next == StatusOpen || next == StatusActioned || next == StatusDismissed
	default:
		return false
	}
}

// Case is the moderation case for one subject. One case exists per
// (subject_type, subject_id); repeated decisions upsert into it with the
// latest reason and severity winning.
type Case struct {
	CaseID          string    `json:"case_id"`
	SubjectType     string    `json:"subject_type"`
	SubjectID       string    `json:"subject_id"`
	Status          Status    `json:"status"`
	Reason          string    `json:"reason"`
	Severity        int       `json:"severity"`
	PolicyID        string    `json:"policy_id,omitempty"`
	CreatedBy       string    `json:"created_by"`
	EscalationLevel int       `json:"escalation_level"`
	AssignedTo      string    `json:"assigned_to,omitempty"`
	AppealOpen      bool      `json:"appeal_open"`
	AppealedBy      string    `json:"appealed_by,omitempty"`
	AppealNote      string    `json:"appeal_note,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewCase builds an open case for a subject.
func NewCase(subjectType, subjectID, reason string, severity int, policyID, createdBy string) (*Case, error) {
	if subjectType == "" || subjectID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "subject_type and subject_id are required")
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "reason is required")
	}
	if severity < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "severity cannot be negative")
	}
	now := time.Now().UTC()
	return &Case{
		CaseID:      uuid.NewString(),
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Status:      StatusOpen,
		Reason:      reason,
		Severity:    severity,
		PolicyID:    policyID,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ModerationAction records that one action was applied on a case. At most
// one row exists per (case_id, action); the uniqueness constraint is the
// idempotency guard for at-least-once decision delivery.
type ModerationAction struct {
	ID        string         `json:"id"`
	CaseID    string         `json:"case_id"`
	Action    policy.Action  `json:"action"`
	Payload   map[string]any `json:"payload,omitempty"`
	ActorID   string         `json:"actor_id"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewModerationAction builds an action record for a case.
func NewModerationAction(caseID string, action policy.Action, payload map[string]any, actorID string) *ModerationAction {
	return &ModerationAction{
		ID:        uuid.NewString(),
		CaseID:    caseID,
		Action:    action,
		Payload:   payload,
		ActorID:   actorID,
		CreatedAt: time.Now().UTC(),
	}
}
