package middleware

import (
	"net/http"
	"strconv"

	"github.com/erc8004/agent-gateway/internal/apierror"
	"github.com/erc8004/agent-gateway/internal/ratelimit"
)

// limiterByTier selects the configured Limiter for a caller's tier.
// Built by the router from the three spec-mandated classes
// (anonymous/authenticated/mutation) sharing one backing Store.
type limiterByTier struct {
	Anonymous     *ratelimit.Limiter
	Authenticated *ratelimit.Limiter
	Mutation      *ratelimit.Limiter
}

// RateLimit returns middleware enforcing the per-tier sliding-window
// limit. The identity key is the client id when authenticated, else
// the proxy-set true-client-IP header (trueClientIPHeader) — spoofable
// forwarded headers are deliberately not consulted. A mutation request
// (POST/PUT/PATCH/DELETE) always uses the stricter mutation class
// regardless of tier. On a store failure the limiter fails closed
// (ratelimit.ErrStoreUnavailable), which this middleware renders as 500
// rather than letting the request through.
func RateLimit(limiters limiterByTier, trueClientIPHeader string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIDFromContext(r.Context())
			if key == "" {
				key = r.Header.Get(trueClientIPHeader)
			}
			if key == "" {
				key = r.RemoteAddr
			}

			limiter := limiters.Anonymous
			switch {
			case isMutation(r.Method):
				limiter = limiters.Mutation
			case TierFromContext(r.Context()) == TierAuthenticated:
				limiter = limiters.Authenticated
			}

			result, err := limiter.Allow(r.Context(), key)
			if err != nil {
				apierror.WriteError(w, apierror.Internal(err))
				return
			}
			if !result.Allowed {
				cfg := limiter.Config()
				w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
				apierror.WriteError(w, apierror.RateLimited(cfg.MaxRequests, cfg.Window.String()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// NewTieredLimiters builds the three spec-mandated limit classes
// against a single shared store.
func NewTieredLimiters(store ratelimit.Store) limiterByTier {
	return limiterByTier{
		Anonymous:     ratelimit.New(store, ratelimit.Anonymous),
		Authenticated: ratelimit.New(store, ratelimit.Authenticated),
		Mutation:      ratelimit.New(store, ratelimit.Mutation),
	}
}
