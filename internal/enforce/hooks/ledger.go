// Package hooks provides the built-in ActionHooks implementation backed by
// the restriction ledger. Content-level actions (tombstone, remove, warn)
// are left to the decisions stream consumers; user-level actions become
// ledger rows immediately.
package hooks

import (
	"context"
	"log/slog"
	"time"

	"vigil/internal/enforce/models"
	resmodels "vigil/internal/restriction/models"
)

// Default durations for ledger-backed actions. Payloads may override with a
// "ttl_hours" entry; a ban has no expiry.
const (
	defaultMuteTTL     = 24 * time.Hour
	defaultShadowTTL   = 24 * time.Hour
	defaultRestrictTTL = time.Hour
)

// RestrictionApplier is the slice of the restriction service the hooks use.
type RestrictionApplier interface {
	ApplyCooldown(ctx context.Context, userID, scope string, d time.Duration, reason, createdBy string) (*resmodels.Restriction, error)
	ApplyShadow(ctx context.Context, userID, scope string, d time.Duration, reason, createdBy string) (*resmodels.Restriction, error)
}

// LedgerHooks applies user-level enforcement actions as restriction rows.
// Because a restriction insert creates the row it needs, a target with no
// prior ledger presence is handled by construction; there is no update path
// to fail on.
type LedgerHooks struct {
	restrictions RestrictionApplier
	logger       *slog.Logger
}

// NewLedgerHooks creates hooks over the restriction ledger.
func NewLedgerHooks(restrictions RestrictionApplier, logger *slog.Logger) *LedgerHooks {
	return &LedgerHooks{restrictions: restrictions, logger: logger}
}

// Tombstone is a content action; the owning domain consumes it from the
// decisions stream.
func (h *LedgerHooks) Tombstone(context.Context, *models.Case, map[string]any) error { return nil }

// Remove is a content action; the owning domain consumes it from the
// decisions stream.
func (h *LedgerHooks) Remove(context.Context, *models.Case, map[string]any) error { return nil }

// Warn is delivered to the user by the notification consumer.
func (h *LedgerHooks) Warn(context.Context, *models.Case, map[string]any) error { return nil }

func (h *LedgerHooks) ShadowHide(ctx context.Context, c *models.Case, payload map[string]any) error {
	userID, ok := targetUser(c, payload)
	if !ok {
		return nil
	}
	_, err := h.restrictions.ApplyShadow(ctx, userID, scopeOf(payload), ttlOf(payload, defaultShadowTTL), "case "+c.CaseID+": "+c.Reason, "")
	return err
}

func (h *LedgerHooks) Mute(ctx context.Context, c *models.Case, payload map[string]any) error {
	userID, ok := targetUser(c, payload)
	if !ok {
		return nil
	}
	_, err := h.restrictions.ApplyShadow(ctx, userID, "message", ttlOf(payload, defaultMuteTTL), "case "+c.CaseID+": muted", "")
	return err
}

func (h *LedgerHooks) Ban(ctx context.Context, c *models.Case, payload map[string]any) error {
	userID, ok := targetUser(c, payload)
	if !ok {
		return nil
	}
	// Zero duration never expires; a ban holds until a moderator revokes it.
	_, err := h.restrictions.ApplyCooldown(ctx, userID, scopeOf(payload), 0, "case "+c.CaseID+": banned", "")
	return err
}

func (h *LedgerHooks) RestrictCreate(ctx context.Context, c *models.Case, payload map[string]any, expiresAt time.Time) error {
	userID, ok := targetUser(c, payload)
	if !ok {
		return nil
	}
	ttl := ttlOf(payload, defaultRestrictTTL)
	if !expiresAt.IsZero() {
		if remaining := time.Until(expiresAt); remaining > 0 {
			ttl = remaining
		}
	}
	_, err := h.restrictions.ApplyCooldown(ctx, userID, scopeOf(payload), ttl, "case "+c.CaseID+": creation restricted", "")
	return err
}

// targetUser resolves the user the action lands on: an explicit payload
// user_id wins, then a user subject. Content subjects with no user in the
// payload have nothing to restrict here.
func targetUser(c *models.Case, payload map[string]any) (string, bool) {
	if userID, ok := payload["user_id"].(string); ok && userID != "" {
		return userID, true
	}
	if c.SubjectType == "user" {
		return c.SubjectID, true
	}
	return "", false
}

func scopeOf(payload map[string]any) string {
	if scope, ok := payload["scope"].(string); ok && scope != "" {
		return scope
	}
	return "all"
}

// ttlOf reads a ttl_hours payload entry, tolerating the float64 that JSON
// decoding produces.
func ttlOf(payload map[string]any, fallback time.Duration) time.Duration {
	switch hours := payload["ttl_hours"].(type) {
	case int:
		if hours > 0 {
			return time.Duration(hours) * time.Hour
		}
	case float64:
		if hours > 0 {
			return time.Duration(hours * float64(time.Hour))
		}
	}
	return fallback
}
