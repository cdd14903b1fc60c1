package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/erc8004/agent-gateway/internal/apierror"
)

// TokenValidator validates a bearer-style credential — for REST this is
// the value passed as an API key, for MCP it's the Authorization header
// token — and reports the OAuth client it resolves to. Both slots are
// backed by the same access-token store; they differ only in how the
// surrounding middleware treats an absent or invalid credential.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (clientID string, ok bool, err error)
}

// APIKeyAuth extracts a credential: X-API-Key first, else an
// Authorization: Bearer header. A missing credential, or one that
// fails validation, downgrades silently to the anonymous tier rather
// than rejecting the request — listing routes stay open to anonymous
// callers; requireApiKey-gated routes enforce the stricter check
// themselves via RequireAuthenticated.
func APIKeyAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractCredential(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			clientID, ok, err := validator.ValidateToken(r.Context(), token)
			if err != nil || !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithTier(WithClientID(r.Context(), clientID), TierAuthenticated)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthenticated rejects requests that APIKeyAuth left anonymous.
// Use on protected endpoints only — most REST routes accept anonymous
// traffic at the (lower) rate-limit tier instead.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if TierFromContext(r.Context()) != TierAuthenticated {
			apierror.WriteError(w, apierror.Unauthorized("a valid API key is required for this endpoint"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MCPBearerAuth implements the MCP edge's dual-mode bearer: a missing
// Authorization header is anonymous scope (not an error), an invalid
// one is rejected outright, and a valid one is treated as an
// authenticated session.
func MCPBearerAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			clientID, ok, err := validator.ValidateToken(r.Context(), token)
			if err != nil || !ok {
				apierror.WriteError(w, apierror.Unauthorized("invalid or expired bearer token"))
				return
			}

			ctx := WithTier(WithClientID(r.Context(), clientID), TierAuthenticated)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractCredential(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return extractBearerToken(r)
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
