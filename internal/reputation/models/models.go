package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "vigil/pkg/domain-errors"
)

// Score bounds. Higher scores are worse: abuse signals add positive deltas,
// healthy participation subtracts.
const (
	ScoreMin = -100
	ScoreMax = 100
)

// Band is the ordinal trust classification derived from a reputation score:
// good < neutral < watch < risk < bad.
type Band string

const (
	BandGood    Band = "good"
	BandNeutral Band = "neutral"
	BandWatch   Band = "watch"
	BandRisk    Band = "risk"
	BandBad     Band = "bad"
)

// bandRank orders bands for comparisons; the string values themselves are
// what persists.
var bandRank = map[Band]int{
	BandGood:    0,
	BandNeutral: 1,
	BandWatch:   2,
	BandRisk:    3,
	BandBad:     4,
}

// IsValid checks if the band is one of the supported enum values.
func (b Band) IsValid() bool {
	_, ok := bandRank[b]
	return ok
}

// Rank returns the ordinal position of the band (good=0 .. bad=4).
func (b Band) Rank() int { return bandRank[b] }

// AtRisk reports whether the band is risk or bad, the bands that trigger
// forced shadow on sensitive surfaces and tighter velocity limits.
func (b Band) AtRisk() bool { return b == BandRisk || b == BandBad }

// Multiplier scales velocity window limits for the band. Risky bands get a
// fraction of the configured limit; good and neutral get the full limit.
func (b Band) Multiplier() float64 {
	switch b {
	case BandWatch:
		return 0.75
	case BandRisk:
		return 0.5
	case BandBad:
		return 0.25
	default:
		return 1.0
	}
}

// String returns the string representation.
func (b Band) String() string { return string(b) }

// BandForScore maps a score onto its band. Thresholds are fixed; scores are
// clamped to [ScoreMin, ScoreMax] before lookup.
func BandForScore(score int) Band {
	switch {
	case score <= -25:
		return BandGood
	case score < 25:
		return BandNeutral
	case score < 50:
		return BandWatch
	case score < 75:
		return BandRisk
	default:
		return BandBad
	}
}

// ClampScore bounds a score to the valid range.
func ClampScore(score int) int {
	if score < ScoreMin {
		return ScoreMin
	}
	if score > ScoreMax {
		return ScoreMax
	}
	return score
}

// Score is the per-user trust state. One row per user, mutated by event
// recording and decay sweeps, never deleted while the user exists.
type Score struct {
	UserID      string    `json:"user_id"`
	Score       int       `json:"score"`
	Band        Band      `json:"band"`
	LastEventAt time.Time `json:"last_event_at"`
}

// TrustScore projects the reputation score onto the 0..100 trust scale used
// by policy predicates (higher = more trusted). A zero reputation score maps
// to the default trust of 50.
func (s *Score) TrustScore() int {
	return (ScoreMax - s.Score) / 2
}

// Event is an append-only reputation fact. Events are never mutated.
type Event struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Surface   string         `json:"surface"`
	Kind      string         `json:"kind"`
	Delta     int            `json:"delta"`
	DeviceFP  string         `json:"device_fp,omitempty"`
	IP        string         `json:"ip,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Well-known event kinds recorded by the write gate.
const (
	KindVelocityTrip = "velocity_trip"
	KindHoneyTrip    = "honey_trip"
)

// NewEvent creates an Event with domain invariant validation.
func NewEvent(userID, surface, kind string, delta int) (*Event, error) {
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user_id cannot be empty")
	}
	if surface == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "surface cannot be empty")
	}
	if kind == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "kind cannot be empty")
	}
	return &Event{
		ID:        uuid.NewString(),
		UserID:    userID,
		Surface:   surface,
		Kind:      kind,
		Delta:     delta,
		CreatedAt: time.Now(),
	}, nil
}
