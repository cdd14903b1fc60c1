package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/erc8004/agent-gateway/internal/apierror"
	"github.com/erc8004/agent-gateway/internal/model"
)

// StreamSearch serves POST /api/v1/search/stream: the same filter
// vocabulary as Search, but reported progressively over SSE instead of
// a single JSON response. Event sequence per request: search_started,
// vector_results, then per item an enrichment_progress event followed
// by agent_enriched when the item's id parses and its detail lookup
// succeeds, then search_complete. If the search itself fails, a single
// error event follows search_started and the stream ends.
func (h *AgentsHandler) StreamSearch(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		apierror.WriteError(w, apierror.Internal(fmt.Errorf("handler: response writer does not support flushing")))
		return
	}

	var body searchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierror.WriteError(w, apierror.BadRequest("request body is not valid JSON"))
		return
	}
	params := body.toListParams()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sendSSE(w, flusher, "search_started", map[string]any{"query": params.Query})

	ctx := r.Context()
	res, err := h.Engine.Search(ctx, params)
	if err != nil {
		sendSSE(w, flusher, "error", map[string]string{"message": err.Error()})
		return
	}
	sendSSE(w, flusher, "vector_results", map[string]any{
		"count":      len(res.Items),
		"searchMode": res.SearchMode,
	})

	enriched := make([]model.AgentSummary, 0, len(res.Items))
	for i, item := range res.Items {
		select {
		case <-ctx.Done():
			return
		default:
		}

		sendSSE(w, flusher, "enrichment_progress", map[string]any{
			"agentId": item.ID,
			"index":   i + 1,
			"total":   len(res.Items),
		})

		id, parseErr := model.ParseAgentID(item.ID)
		if parseErr != nil {
			enriched = append(enriched, item)
			continue
		}
		detail, detailErr := h.Enrichment.GetAgentDetail(ctx, id.ChainID, id.TokenID)
		if detailErr != nil {
			enriched = append(enriched, item)
			continue
		}
		sendSSE(w, flusher, "agent_enriched", detail)
		enriched = append(enriched, item)
	}

	sendSSE(w, flusher, "search_complete", map[string]any{
		"items":      enriched,
		"nextCursor": res.NextCursor,
		"hasMore":    res.HasMore,
	})
}
