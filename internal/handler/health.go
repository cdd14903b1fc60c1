package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/erc8004/agent-gateway/internal/apierror"
)

// Pinger is implemented by any backing store the health check reports
// on: the Postgres pool, the vector index client, the Neo4j trust
// graph driver, and the Redis cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves GET /api/v1/health. Dependencies are named so
// the response can report which specific backend is degraded rather
// than a single opaque up/down bit.
type HealthHandler struct {
	Version string
	Deps    map[string]Pinger
	Now     func() time.Time
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
}

// Check pings every registered dependency with a short timeout and
// reports "ok"/"degraded" per service. The overall status is
// "degraded" if any dependency fails, but the endpoint always returns
// 200 — callers read the body, not the status code, to decide
// readiness.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	services := make(map[string]string, len(h.Deps))
	overall := "ok"
	for name, dep := range h.Deps {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := dep.Ping(ctx)
		cancel()
		if err != nil {
			services[name] = "degraded"
			overall = "degraded"
			continue
		}
		services[name] = "ok"
	}

	apierror.WriteJSON(w, http.StatusOK, healthResponse{
		Status:    overall,
		Timestamp: now(),
		Version:   h.Version,
		Services:  services,
	})
}
