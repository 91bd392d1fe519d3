// Package pipeline wires the stream workers: ingress events through
// detectors and policy into enforcement, scanner results into enforcement,
// and applied decisions out to consumers.
package pipeline

import (
	"time"

	"vigil/internal/policy"
)

// IngressEvent is one raw report or content event read from the ingress
// stream. Label maps carry detector output already attached by the edge;
// Body and URLs feed the text and URL scan workers.
type IngressEvent struct {
	EventID     string            `json:"event_id"`
	SubjectType string            `json:"subject_type"`
	SubjectID   string            `json:"subject_id"`
	UserID      string            `json:"user_id,omitempty"`
	Surface     string            `json:"surface,omitempty"`
	Body        string            `json:"body,omitempty"`
	URLs        []string          `json:"urls,omitempty"`
	TextLabels  map[string]string `json:"text_labels,omitempty"`
	ImageLabels map[string]string `json:"image_labels,omitempty"`
	Signals     map[string]bool   `json:"signals,omitempty"`
	TrustScore  *int              `json:"trust_score,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// PolicySignals converts the wire labels into the policy engine's input.
func (e *IngressEvent) PolicySignals() policy.Signals {
	sig := policy.Signals{
		Text:  make(map[string]policy.Label, len(e.TextLabels)),
		Image: make(map[string]policy.Label, len(e.ImageLabels)),
		Bools: e.Signals,
	}
	for category, raw := range e.TextLabels {
		label, err := policy.ParseLabel(raw)
		if err != nil {
			label = policy.LabelUnknown
		}
		sig.Text[category] = label
	}
	for category, raw := range e.ImageLabels {
		label, err := policy.ParseLabel(raw)
		if err != nil {
			label = policy.LabelUnknown
		}
		sig.Image[category] = label
	}
	return sig
}

// ScanResult is one scanner verdict on the results stream.
type ScanResult struct {
	EventID         string             `json:"event_id"`
	SubjectType     string             `json:"subject_type"`
	SubjectID       string             `json:"subject_id"`
	Scanner         string             `json:"scanner"`
	Scores          map[string]float64 `json:"scores,omitempty"`
	Signals         map[string]bool    `json:"signals,omitempty"`
	Verdict         string             `json:"verdict,omitempty"`
	Status          string             `json:"status"`
	Level           int                `json:"level"`
	SuggestedAction string             `json:"suggested_action"`
	CreatedAt       time.Time          `json:"created_at"`
}

// DecisionRecord is one applied decision on the decisions stream,
// consumed by the actions worker and the owning domains.
type DecisionRecord struct {
	CaseID        string          `json:"case_id"`
	Decision      string          `json:"decision"`
	Severity      int             `json:"severity"`
	Reasons       []string        `json:"reasons,omitempty"`
	EventID       string          `json:"event_id,omitempty"`
	SubjectType   string          `json:"subject_type"`
	SubjectID     string          `json:"subject_id"`
	AppliedAction string          `json:"applied_action"`
	Signals       map[string]bool `json:"signals"`
	CreatedAt     time.Time       `json:"created_at"`
}
