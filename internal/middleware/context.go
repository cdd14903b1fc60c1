package middleware

import "context"

type contextKey string

const (
	requestIDKey contextKey = "requestID"
	clientIDKey  contextKey = "clientID"
	tierKey      contextKey = "tier"
)

// Tier is the caller's rate-limit and authorization class.
type Tier string

const (
	TierAnonymous     Tier = "anonymous"
	TierAuthenticated Tier = "authenticated"
)

// RequestIDFromContext returns the request id attached by RequestID, or
// "" if none was attached (e.g. in a handler unit test).
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ClientIDFromContext returns the authenticated OAuth client id, or ""
// for an anonymous caller.
func ClientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientIDKey).(string)
	return id
}

// WithClientID returns a new context with the given client id set.
// Exported for handler tests that need to simulate an authenticated
// caller without running the real auth middleware.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey, clientID)
}

// TierFromContext returns the caller's tier, defaulting to anonymous
// when auth middleware has not run.
func TierFromContext(ctx context.Context) Tier {
	t, ok := ctx.Value(tierKey).(Tier)
	if !ok {
		return TierAnonymous
	}
	return t
}

// WithTier returns a new context with the given tier set.
func WithTier(ctx context.Context, tier Tier) context.Context {
	return context.WithValue(ctx, tierKey, tier)
}
