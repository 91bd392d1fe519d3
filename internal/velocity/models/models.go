package models

import (
	"fmt"
	"strings"
	"time"
)

// Window is one sliding rate window for a surface.
type Window struct {
	Name            string `json:"name"`
	Seconds         int    `json:"seconds"`
	Limit           int    `json:"limit"`
	CooldownMinutes int    `json:"cooldown_minutes"`
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return time.Duration(w.Seconds) * time.Second
}

// Cooldown returns the cooldown to apply when this window trips.
func (w Window) Cooldown() time.Duration {
	return time.Duration(w.CooldownMinutes) * time.Minute
}

// Trip is emitted when a window's post-increment count exceeds its effective
// (band-adjusted) limit.
type Trip struct {
	Surface  string        `json:"surface"`
	Window   string        `json:"window"`
	Limit    int           `json:"limit"`
	Count    int64         `json:"count"`
	Cooldown time.Duration `json:"cooldown"`
}

// EffectiveLimit applies a band multiplier to a window limit. Risky bands get
// a fraction of the configured limit, but never less than one so a single
// write is always observable.
func EffectiveLimit(limit int, multiplier float64) int {
	adjusted := int(float64(limit) * multiplier)
	if adjusted < 1 {
		return 1
	}
	return adjusted
}

// SanitizeKeySegment escapes delimiter characters in counter key segments to
// prevent collision attacks where user-controlled identifiers containing ':'
// could manipulate adjacent counters.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// CounterKey builds the counter key for (surface, user, window).
func CounterKey(surface, userID string, windowSeconds int) string {
	return fmt.Sprintf("vel:%s:%s:%d",
		SanitizeKeySegment(surface), SanitizeKeySegment(userID), windowSeconds)
}
