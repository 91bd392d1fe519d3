package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "vigil/pkg/domain-errors"
)

// Mode is the kind of restriction placed on a user for a scope.
type Mode string

const (
	// ModeCooldown blocks writes on the scope until it expires.
	ModeCooldown Mode = "cooldown"
	// ModeShadow lets writes proceed but keeps them invisible to others.
	ModeShadow Mode = "shadow"
	// ModeCaptchaRequired demands a solved captcha on the next attempt.
	ModeCaptchaRequired Mode = "captcha_required"
	// ModeLinkCooloff strips external links from new content.
	ModeLinkCooloff Mode = "link_cooloff"
)

// IsValid checks if the mode is one of the supported enum values.
func (m Mode) IsValid() bool {
	switch m {
	case ModeCooldown, ModeShadow, ModeCaptchaRequired, ModeLinkCooloff:
		return true
	}
	return false
}

// String returns the string representation.
func (m Mode) String() string { return string(m) }

// Restriction is one TTL'd flag on a user and scope. Rows accumulate: the
// ledger never merges overlapping restrictions, and flag aggregation takes
// the longest surviving expiry per mode.
type Restriction struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Scope      string     `json:"scope"`
	Mode       Mode       `json:"mode"`
	Reason     string     `json:"reason"`
	TTLSeconds int        `json:"ttl_seconds"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Active reports whether the restriction is in force at the given time.
// A nil expiry never lapses.
func (r *Restriction) Active(now time.Time) bool {
	return r.ExpiresAt == nil || r.ExpiresAt.After(now)
}

// New creates a Restriction with domain invariant validation. A zero ttl
// produces a restriction that never expires.
func New(userID, scope string, mode Mode, ttl time.Duration, reason, createdBy string) (*Restriction, error) {
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user_id cannot be empty")
	}
	if scope == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "scope cannot be empty")
	}
	if !mode.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid restriction mode")
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "reason cannot be empty")
	}
	if ttl < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "ttl cannot be negative")
	}

	now := time.Now()
	r := &Restriction{
		ID:         uuid.NewString(),
		UserID:     userID,
		Scope:      scope,
		Mode:       mode,
		Reason:     reason,
		TTLSeconds: int(ttl.Seconds()),
		CreatedBy:  createdBy,
		CreatedAt:  now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		r.ExpiresAt = &expires
	}
	return r, nil
}

// Flags is the aggregated restriction state for one user and scope, the
// single bundle write-path callers consume.
type Flags struct {
	// CooldownTTL is the remaining time on the longest surviving cooldown;
	// zero when no cooldown is active.
	CooldownTTL time.Duration `json:"cooldown_ttl"`

	ShadowActive    bool `json:"shadow_active"`
	CaptchaRequired bool `json:"captcha_required"`
	LinkCooloff     bool `json:"link_cooloff"`
}
