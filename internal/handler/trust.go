package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/erc8004/agent-gateway/internal/apierror"
	"github.com/erc8004/agent-gateway/internal/model"
	"github.com/erc8004/agent-gateway/internal/repository"
)

// TrustScoreLookup abstracts the Postgres-mirrored PageRank results so
// the trust routes never need a Neo4j round trip on the hot path.
type TrustScoreLookup interface {
	GetByAgentID(ctx context.Context, agentID string) (*model.TrustScore, error)
	TopTrusted(ctx context.Context, limit int) ([]model.TrustScore, error)
}

// TrustHandler serves the trust-graph score mirror.
type TrustHandler struct {
	Scores TrustScoreLookup
}

// Score serves GET /api/v1/agents/{id}/trust.
func (h *TrustHandler) Score(w http.ResponseWriter, r *http.Request) {
	id, err := agentIDFromPath(r)
	if err != nil {
		apierror.WriteError(w, apierror.Validation(err.Error()))
		return
	}
	score, err := h.Scores.GetByAgentID(r.Context(), id.String())
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		apierror.WriteError(w, err)
		return
	}
	if score == nil {
		apierror.WriteJSON(w, http.StatusOK, model.TrustScore{AgentID: id.String()})
		return
	}
	apierror.WriteJSON(w, http.StatusOK, score)
}

// TopTrusted serves GET /api/v1/trust/top.
func (h *TrustHandler) TopTrusted(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if n := parseIntPtr(r.URL.Query().Get("limit")); n != nil {
		limit = *n
	}
	scores, err := h.Scores.TopTrusted(r.Context(), limit)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	apierror.WriteJSON(w, http.StatusOK, map[string]any{"items": scores})
}
