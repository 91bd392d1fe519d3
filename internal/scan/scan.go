// Package scan holds the persisted record of every content scan, shared by
// the text and URL scanners.
package scan

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Scanner kinds persisted on records.
const (
	KindText = "text"
	KindURL  = "url"
)

// Record is one completed scan. Scores is the per-category detector output
// for text scans; URL scans store the verdict details instead.
type Record struct {
	ID          string             `json:"id"`
	SubjectType string             `json:"subject_type"`
	SubjectID   string             `json:"subject_id"`
	Kind        string             `json:"kind"`
	Scores      map[string]float64 `json:"scores,omitempty"`
	Status      string             `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
}

// NewRecord builds a Record with a fresh id and timestamp.
func NewRecord(subjectType, subjectID, kind string, scores map[string]float64, status string) *Record {
	return &Record{
		ID:          uuid.NewString(),
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Kind:        kind,
		Scores:      scores,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}
}

// Store persists scan records.
type Store interface {
	Insert(ctx context.Context, r *Record) error
	BySubject(ctx context.Context, subjectType, subjectID string, limit int) ([]*Record, error)
}
