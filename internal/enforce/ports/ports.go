// Package ports defines shared interfaces for the enforcement module.
// Interfaces are placed here when implemented outside the module to avoid
// import cycles.
package ports

import (
	"context"
	"time"

	"vigil/internal/enforce/models"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks ActionHooks

// ActionHooks is implemented by the owning domains (chat, communities,
// identity) for the subset of actions relevant to their entities. Hooks
// that target a membership context must tolerate the target not existing
// yet and fall back to create-then-set.
type ActionHooks interface {
	Tombstone(ctx context.Context, c *models.Case, payload map[string]any) error
	Remove(ctx context.Context, c *models.Case, payload map[string]any) error
	ShadowHide(ctx context.Context, c *models.Case, payload map[string]any) error
	Mute(ctx context.Context, c *models.Case, payload map[string]any) error
	Ban(ctx context.Context, c *models.Case, payload map[string]any) error
	Warn(ctx context.Context, c *models.Case, payload map[string]any) error
	RestrictCreate(ctx context.Context, c *models.Case, payload map[string]any, expiresAt time.Time) error
}

// NoopHooks implements ActionHooks with no side effects, for deployments
// where the owning domains consume the decisions stream instead of being
// called synchronously.
type NoopHooks struct{}

func (NoopHooks) Tombstone(context.Context, *models.Case, map[string]any) error  { return nil }
func (NoopHooks) Remove(context.Context, *models.Case, map[string]any) error     { return nil }
func (NoopHooks) ShadowHide(context.Context, *models.Case, map[string]any) error { return nil }
func (NoopHooks) Mute(context.Context, *models.Case, map[string]any) error       { return nil }
func (NoopHooks) Ban(context.Context, *models.Case, map[string]any) error        { return nil }
func (NoopHooks) Warn(context.Context, *models.Case, map[string]any) error       { return nil }
func (NoopHooks) RestrictCreate(context.Context, *models.Case, map[string]any, time.Time) error {
	return nil
}
