package handler

import (
	"context"
	"net/http"

	"github.com/erc8004/agent-gateway/internal/apierror"
	"github.com/erc8004/agent-gateway/internal/model"
)

// ChainStatter reports per-chain registry counts. Implemented by
// chainsdk.Registry; duplicated here (rather than imported) so this
// package depends only on the shape it needs.
type ChainStatter interface {
	ChainStats(ctx context.Context) ([]model.ChainStat, error)
}

// ChainsHandler serves the chain-stats surface.
type ChainsHandler struct {
	Chains ChainStatter
}

// Stats serves GET /api/v1/agents/chains/stats.
func (h *ChainsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Chains.ChainStats(r.Context())
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	apierror.WriteJSON(w, http.StatusOK, map[string]any{"chains": stats})
}
