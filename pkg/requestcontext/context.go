// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services and handlers read them without
// importing net/http. Workers and tests inject what they need directly.
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	actorIDKey     struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyActorID     = actorIDKey{}
	ContextKeyClientIP    = clientIPKey{}
	ContextKeyUserAgent   = userAgentKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// ActorID retrieves the authenticated moderator or service identity from the
// context. Empty when not set.
func ActorID(ctx context.Context) string {
	if actorID, ok := ctx.Value(ContextKeyActorID).(string); ok {
		return actorID
	}
	return ""
}

// WithActorID injects an actor identity into the context.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ContextKeyActorID, actorID)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
// Useful for unit tests that don't run the full HTTP middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyClientIP, clientIP)
	ctx = context.WithValue(ctx, ContextKeyUserAgent, userAgent)
	return ctx
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context. Falls back to
// time.Now() for non-HTTP contexts like workers and tests.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Used by middleware, and
// by workers that need a consistent time within one batch.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
