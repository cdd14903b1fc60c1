// Package router wires every HTTP surface — REST, MCP, and OAuth — onto
// a single chi.Mux behind the shared middleware chain.
package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/erc8004/agent-gateway/internal/events"
	"github.com/erc8004/agent-gateway/internal/handler"
	"github.com/erc8004/agent-gateway/internal/mcp"
	"github.com/erc8004/agent-gateway/internal/middleware"
	"github.com/erc8004/agent-gateway/internal/oauth"
)

// Dependencies holds all injected services needed by the router. Rate
// limiting is passed in pre-built (cmd/server wraps
// middleware.NewTieredLimiters through middleware.RateLimit) so this
// package never needs to name middleware's unexported limiter-by-tier
// type.
type Dependencies struct {
	Version        string
	AllowedOrigins []string

	Agents *handler.AgentsHandler
	Chains *handler.ChainsHandler
	Health *handler.HealthHandler
	Trust  *handler.TrustHandler
	Events *events.Bus

	MCP   *mcp.Service
	OAuth *oauth.Service

	Auth        middleware.TokenValidator
	RateLimit   func(http.Handler) http.Handler // nil disables rate limiting
	Metrics     *middleware.Metrics
	MetricsReg  *prometheus.Registry
	OAuthIssuer string
}

// New creates and configures the chi router with the full agent
// discovery surface: REST, MCP, and OAuth.
func New(deps *Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(deps.AllowedOrigins))
	r.Use(middleware.BodyLimit(middleware.DefaultBodyLimitBytes))
	if deps.Metrics != nil {
		r.Use(middleware.Monitoring(deps.Metrics))
	}

	r.Get("/api/v1/health", deps.Health.Check)
	if deps.MetricsReg != nil {
		r.Handle("/metrics", middleware.MetricsHandler(deps.MetricsReg))
	}

	r.Group(func(r chi.Router) {
		if deps.Auth != nil {
			r.Use(middleware.APIKeyAuth(deps.Auth))
		}
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit)
		}

		// Every route below gets a 30s write timeout except the two
		// SSE streams, which are expected to hold their writer open
		// indefinitely.
		timeout30s := middleware.Timeout(30 * time.Second)

		r.With(timeout30s).Get("/api/v1/agents", deps.Agents.ListAgents)
		r.With(timeout30s).Post("/api/v1/search", deps.Agents.Search)
		r.Post("/api/v1/search/stream", deps.Agents.StreamSearch)
		r.With(timeout30s).Get("/api/v1/agents/chains/stats", deps.Chains.Stats)
		r.With(timeout30s).Get("/api/v1/agents/{id}", deps.Agents.GetAgent)
		r.With(timeout30s).Get("/api/v1/agents/{id}/similar", deps.Agents.Similar)
		r.With(timeout30s).Get("/api/v1/agents/{id}/compatible", deps.Agents.Compatible)
		r.With(timeout30s).Get("/api/v1/agents/{id}/reputation", deps.Agents.Reputation)
		r.With(timeout30s).Get("/api/v1/agents/{id}/reputation/feedback", deps.Agents.ReputationFeedback)
		r.With(timeout30s).Post("/api/v1/agents/{id}/reputation/feedback", deps.Agents.SubmitFeedback)
		r.Get("/api/v1/events", (&handler.EventsHandler{Bus: deps.Events}).Stream)

		if deps.Trust != nil {
			r.With(timeout30s).Get("/api/v1/agents/{id}/trust", deps.Trust.Score)
			r.With(timeout30s).Get("/api/v1/trust/top", deps.Trust.TopTrusted)
		}
	})

	if deps.MCP != nil {
		r.Group(func(r chi.Router) {
			if deps.Auth != nil {
				r.Use(middleware.MCPBearerAuth(deps.Auth))
			}
			r.Method(http.MethodGet, "/mcp", mcp.Handler(deps.MCP))
			r.Method(http.MethodPost, "/mcp", mcp.Handler(deps.MCP))
			r.Method(http.MethodDelete, "/mcp", mcp.Handler(deps.MCP))
			r.Method(http.MethodGet, "/sse", mcp.SSEHandler(deps.MCP))
		})
		r.Method(http.MethodGet, "/mcp/schema.json", mcp.SchemaHandler(deps.MCP))
		r.Method(http.MethodGet, "/mcp/docs", mcp.DocsHandler())
	}

	if deps.OAuth != nil {
		r.Method(http.MethodPost, "/oauth/register", oauth.RegisterHandler(deps.OAuth))
		r.Method(http.MethodGet, "/oauth/authorize", oauth.AuthorizeHandler(deps.OAuth))
		r.Method(http.MethodPost, "/oauth/token", oauth.TokenHandler(deps.OAuth))
		r.Mount("/.well-known", oauth.MetadataHandler(deps.OAuthIssuer))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   map[string]string{"code": "NOT_FOUND", "message": "route not found"},
		})
	})

	return r
}
