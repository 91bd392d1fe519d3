// Package threshold maps raw detector output onto a small set of suggested
// enforcement actions via configured cut-points. It sits between the
// scanners and the enforcement engine and holds no state.
package threshold

import (
	"log/slog"
	"sort"

	"vigil/internal/policy"
	dErrors "vigil/pkg/domain-errors"
)

// Status summarizes how a scanned subject should be treated.
type Status string

const (
	StatusClean       Status = "clean"
	StatusFlagged     Status = "flagged"
	StatusNeedsReview Status = "needs_review"
	StatusQuarantined Status = "quarantined"
	StatusBlocked     Status = "blocked"
)

// Decision is the evaluator's verdict for one scan.
type Decision struct {
	Status Status `json:"status"`

	// Level is the ordinal severity of the decision, 0 (clean) to 4
	// (blocked). It maps directly onto case severity downstream.
	Level int `json:"level"`

	SuggestedAction policy.Action `json:"suggested_action"`

	// Category is the detector category that drove the decision, empty
	// for URL verdicts.
	Category string `json:"category,omitempty"`

	// Score is the driving score for text decisions.
	Score float64 `json:"score,omitempty"`
}

// CutPoints are ascending score boundaries. A score below Warn is clean;
// at or above Remove the subject is blocked outright.
type CutPoints struct {
	Warn      float64 `json:"warn"`
	Restrict  float64 `json:"restrict"`
	Tombstone float64 `json:"tombstone"`
	Remove    float64 `json:"remove"`
}

func (c CutPoints) valid() bool {
	return c.Warn <= c.Restrict && c.Restrict <= c.Tombstone && c.Tombstone <= c.Remove
}

// DefaultCutPoints are the baseline boundaries applied when a surface has
// no override.
func DefaultCutPoints() CutPoints {
	return CutPoints{Warn: 0.4, Restrict: 0.6, Tombstone: 0.8, Remove: 0.92}
}

// Evaluator maps detector scores and URL verdicts to decisions.
type Evaluator struct {
	defaults  CutPoints
	overrides map[string]CutPoints
	logger    *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = logger }
}

// WithSurfaceCutPoints overrides the cut-points for one surface.
func WithSurfaceCutPoints(surface string, c CutPoints) Option {
	return func(e *Evaluator) { e.overrides[surface] = c }
}

// WithDefaultCutPoints replaces the baseline cut-points.
func WithDefaultCutPoints(c CutPoints) Option {
	return func(e *Evaluator) { e.defaults = c }
}

// New constructs an Evaluator and validates every configured boundary set.
func New(opts ...Option) (*Evaluator, error) {
	e := &Evaluator{
		defaults:  DefaultCutPoints(),
		overrides: map[string]CutPoints{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if !e.defaults.valid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "default cut-points are not ascending")
	}
	for surface, c := range e.overrides {
		if !c.valid() {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "cut-points for surface %q are not ascending", surface)
		}
	}
	return e, nil
}

// EvaluateText maps per-category detector scores onto a decision. The
// highest-scoring category drives the verdict; ties break on category name
// so the result is deterministic. Monotonic: a higher driving score never
// produces a milder decision.
func (e *Evaluator) EvaluateText(scores map[string]float64, surface string) Decision {
	category, score := dominantCategory(scores)

	cuts := e.defaults
	if override, ok := e.overrides[surface]; ok {
		cuts = override
	}

	d := Decision{Category: category, Score: score}
	switch {
	case score < cuts.Warn:
		d.Status, d.Level, d.SuggestedAction = StatusClean, 0, policy.ActionNone
	case score < cuts.Restrict:
		d.Status, d.Level, d.SuggestedAction = StatusFlagged, 1, policy.ActionWarn
	case score < cuts.Tombstone:
		d.Status, d.Level, d.SuggestedAction = StatusNeedsReview, 2, policy.ActionRestrictCreate
	case score < cuts.Remove:
		d.Status, d.Level, d.SuggestedAction = StatusQuarantined, 3, policy.ActionTombstone
	default:
		d.Status, d.Level, d.SuggestedAction = StatusBlocked, 4, policy.ActionRemove
	}
	return d
}

// URL classifier verdicts.
const (
	VerdictAllowed    = "allowed"
	VerdictUnknown    = "unknown"
	VerdictSuspicious = "suspicious"
	VerdictMalicious  = "malicious"
	VerdictDenied     = "denied"
)

// EvaluateURL maps a categorical classifier verdict onto a decision.
// Unrecognized verdicts are treated as suspicious rather than clean so a
// classifier schema drift fails toward review, not toward allow.
func (e *Evaluator) EvaluateURL(verdict string) Decision {
	switch verdict {
	case VerdictAllowed, VerdictUnknown:
		return Decision{Status: StatusClean, Level: 0, SuggestedAction: policy.ActionNone}
	case VerdictSuspicious:
		return Decision{Status: StatusNeedsReview, Level: 2, SuggestedAction: policy.ActionRestrictCreate}
	case VerdictMalicious, VerdictDenied:
		return Decision{Status: StatusBlocked, Level: 4, SuggestedAction: policy.ActionRemove}
	default:
		if e.logger != nil {
			e.logger.Warn("unrecognized url verdict", "verdict", verdict)
		}
		return Decision{Status: StatusNeedsReview, Level: 2, SuggestedAction: policy.ActionRestrictCreate}
	}
}

func dominantCategory(scores map[string]float64) (string, float64) {
	categories := make([]string, 0, len(scores))
	for category := range scores {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var (
		winner string
		best   float64
	)
	for _, category := range categories {
		if scores[category] > best {
			winner = category
			best = scores[category]
		}
	}
	return winner, best
}
