package policy

import (
	"fmt"
	"strings"
)

// Label is an ordinal severity label on the fixed scale
// unknown < low < medium < high. Detector output is mapped onto this scale
// before policy evaluation.
type Label int

const (
	LabelUnknown Label = iota
	LabelLow
	LabelMedium
	LabelHigh
)

var labelNames = map[Label]string{
	LabelUnknown: "unknown",
	LabelLow:     "low",
	LabelMedium:  "medium",
	LabelHigh:    "high",
}

var labelValues = map[string]Label{
	"unknown": LabelUnknown,
	"low":     LabelLow,
	"medium":  LabelMedium,
	"high":    LabelHigh,
}

// ParseLabel maps a label name onto the ordinal scale.
func ParseLabel(s string) (Label, error) {
	l, ok := labelValues[strings.ToLower(s)]
	if !ok {
		return LabelUnknown, fmt.Errorf("unknown label %q", s)
	}
	return l, nil
}

// String returns the label name.
func (l Label) String() string {
	if name, ok := labelNames[l]; ok {
		return name
	}
	return "unknown"
}

// Action is the enforcement action a rule or threshold suggests.
type Action string

const (
	ActionNone           Action = "none"
	ActionWarn           Action = "warn"
	ActionShadowHide     Action = "shadow_hide"
	ActionRestrictCreate Action = "restrict_create"
	ActionTombstone      Action = "tombstone"
	ActionRemove         Action = "remove"
	ActionMute           Action = "mute"
	ActionBan            Action = "ban"
)

// IsValid checks if the action is one of the supported enum values.
func (a Action) IsValid() bool {
	switch a {
	case ActionNone, ActionWarn, ActionShadowHide, ActionRestrictCreate,
		ActionTombstone, ActionRemove, ActionMute, ActionBan:
		return true
	}
	return false
}

// String returns the string representation.
func (a Action) String() string { return string(a) }

// PredicateKind is the closed set of predicate variants. Evaluation switches
// exhaustively over this enum; an unrecognized kind makes the owning rule
// non-matching rather than failing the whole evaluation.
type PredicateKind int

const (
	PredicateUnknown PredicateKind = iota
	PredicateTextAnyOf
	PredicateImageAnyOf
	PredicateSignalsAllOf
	PredicateTrustBelow
)

// LabelThreshold is one "category>threshold" comparison. It holds when the
// observed label for Category is >= Min on the ordinal scale.
type LabelThreshold struct {
	Category string
	Min      Label
}

// Predicate is one clause of a rule's when-condition.
type Predicate struct {
	Kind PredicateKind

	// Thresholds applies to TextAnyOf / ImageAnyOf: true if any threshold
	// holds.
	Thresholds []LabelThreshold

	// Keys applies to SignalsAllOf: true iff every named boolean signal is
	// truthy.
	Keys []string

	// Trust applies to TrustBelow: true iff trust score < Trust.
	Trust int
}

// Effect is what a matching rule contributes to the decision.
type Effect struct {
	Action   Action
	Severity int
	Reason   string
	Payload  map[string]any
}

// Rule pairs a conjunction of predicates with an effect. Rules are evaluated
// independently; every rule's predicates must all hold for it to match.
type Rule struct {
	ID   string
	When []Predicate
	Then Effect
}

// Policy is an immutable, versioned ordered rule set. A new version
// supersedes; published policies are never edited in place.
type Policy struct {
	ID            string
	Version       int
	Rules         []Rule
	DefaultAction Action
}

// Signals is the observed evidence for one piece of content.
type Signals struct {
	// Text holds ordinal labels per text category (profanity, toxicity, ...).
	Text map[string]Label
	// Image holds ordinal labels per image category (nsfw, violence, ...).
	Image map[string]Label
	// Bools holds named boolean signals (dup_text, link_spam, ...).
	Bools map[string]bool
}

// Decision is the evaluated outcome consumed by the enforcement engine.
type Decision struct {
	Action   Action
	Severity int
	Payload  map[string]any
	Reasons  []string
}

// DefaultTrustScore is assumed when no trust score is known for the author.
const DefaultTrustScore = 50
