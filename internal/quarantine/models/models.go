// Package models defines the held-attachment review domain.
package models

import (
	"fmt"
	"time"
)

// Status is the review state of a held attachment.
type Status string

const (
	// StatusNeedsReview marks fresh holds awaiting a moderator.
	StatusNeedsReview Status = "needs_review"
	// StatusQuarantined marks holds escalated out of the review queue.
	StatusQuarantined Status = "quarantined"
	// StatusClean marks holds released without a verdict record.
	StatusClean Status = "clean"
	// StatusResolved marks holds closed by a moderator verdict.
	StatusResolved Status = "resolved"
)

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	switch s {
	case StatusNeedsReview, StatusQuarantined, StatusClean, StatusResolved:
		return true
	}
	return false
}

// Moderator verdicts accepted by Resolve.
const (
	VerdictBlocked   = "blocked"
	VerdictTombstone = "tombstone"
	VerdictClean     = "clean"
)

// Item is one attachment held for human safety review.
type Item struct {
	AttachmentID string             `json:"attachment_id"`
	SubjectType  string             `json:"subject_type"`
	SubjectID    string             `json:"subject_id"`
	SafetyStatus Status             `json:"safety_status"`
	SafetyScore  map[string]float64 `json:"safety_score,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// NewItem builds a held item in the needs_review state.
func NewItem(attachmentID, subjectType, subjectID string, scores map[string]float64, now time.Time) (*Item, error) {
	if attachmentID == "" {
		return nil, fmt.Errorf("attachment id is required")
	}
	if subjectType == "" || subjectID == "" {
		return nil, fmt.Errorf("subject is required")
	}
	return &Item{
		AttachmentID: attachmentID,
		SubjectType:  subjectType,
		SubjectID:    subjectID,
		SafetyStatus: StatusNeedsReview,
		SafetyScore:  scores,
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}, nil
}
