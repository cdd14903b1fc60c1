package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/erc8004/agent-gateway/internal/apierror"
	"github.com/erc8004/agent-gateway/internal/enrichment"
	"github.com/erc8004/agent-gateway/internal/model"
	"github.com/erc8004/agent-gateway/internal/search"
)

// Searcher abstracts the search engine for the listing and search
// routes.
type Searcher interface {
	ListAgents(ctx context.Context, p search.ListParams) (*search.Result, error)
	Search(ctx context.Context, p search.ListParams) (*search.Result, error)
	SimilarAgents(ctx context.Context, sourceAgentID string, limit int) (*search.Result, error)
	CompatibleAgents(ctx context.Context, sourceAgentID, direction string, limit int) (*search.Result, error)
}

// Enricher abstracts the detail-assembly service.
type Enricher interface {
	GetAgentDetail(ctx context.Context, chainID int64, tokenID string) (*enrichment.Detail, error)
}

// ReputationService abstracts feedback submission and lookup.
type ReputationService interface {
	AddFeedback(ctx context.Context, f model.Feedback) (string, error)
	FeedbackExistsByEASUID(ctx context.Context, easUID string) (bool, error)
	GetReputation(ctx context.Context, agentID string) (*model.Reputation, error)
	ListFeedback(ctx context.Context, agentID string, limit, offset int) ([]model.Feedback, error)
}

// AgentsHandler holds the collaborators the /api/v1/agents and
// /api/v1/search routes need.
type AgentsHandler struct {
	Engine     Searcher
	Enrichment Enricher
	Rep        ReputationService
}

func resultMeta(res *search.Result) map[string]any {
	return map[string]any{
		"nextCursor": res.NextCursor,
		"hasMore":    res.HasMore,
		"searchMode": res.SearchMode,
	}
}

// ListAgents serves GET /api/v1/agents.
func (h *AgentsHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	res, err := h.Engine.ListAgents(r.Context(), params)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	writeListResult(w, res)
}

// Search serves POST /api/v1/search.
func (h *AgentsHandler) Search(w http.ResponseWriter, r *http.Request) {
	var body searchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierror.WriteError(w, apierror.BadRequest("request body is not valid JSON"))
		return
	}
	res, err := h.Engine.Search(r.Context(), body.toListParams())
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	writeListResult(w, res)
}

func writeListResult(w http.ResponseWriter, res *search.Result) {
	type envelopeData struct {
		Items []model.AgentSummary `json:"items"`
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(struct {
		Success bool           `json:"success"`
		Data    envelopeData   `json:"data"`
		Meta    map[string]any `json:"meta"`
	}{
		Success: true,
		Data:    envelopeData{Items: res.Items},
		Meta:    resultMeta(res),
	})
}

func agentIDFromPath(r *http.Request) (model.AgentID, error) {
	raw := chi.URLParam(r, "id")
	return model.ParseAgentID(raw)
}

// GetAgent serves GET /api/v1/agents/{id}.
func (h *AgentsHandler) GetAgent(w http.ResponseWriter, r *http.Request) {
	id, err := agentIDFromPath(r)
	if err != nil {
		apierror.WriteError(w, apierror.Validation(err.Error()))
		return
	}
	detail, err := h.Enrichment.GetAgentDetail(r.Context(), id.ChainID, id.TokenID)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	apierror.WriteJSON(w, http.StatusOK, detail)
}

// Similar serves GET /api/v1/agents/{id}/similar.
func (h *AgentsHandler) Similar(w http.ResponseWriter, r *http.Request) {
	id, err := agentIDFromPath(r)
	if err != nil {
		apierror.WriteError(w, apierror.Validation(err.Error()))
		return
	}
	limit := 20
	if n := parseIntPtr(r.URL.Query().Get("limit")); n != nil {
		limit = *n
	}
	res, err := h.Engine.SimilarAgents(r.Context(), id.String(), limit)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	writeListResult(w, res)
}

// Compatible serves GET /api/v1/agents/{id}/compatible, with an
// optional ?direction=upstream|downstream query param (default
// downstream).
func (h *AgentsHandler) Compatible(w http.ResponseWriter, r *http.Request) {
	id, err := agentIDFromPath(r)
	if err != nil {
		apierror.WriteError(w, apierror.Validation(err.Error()))
		return
	}
	direction := r.URL.Query().Get("direction")
	if direction != "upstream" {
		direction = "downstream"
	}
	limit := 20
	if n := parseIntPtr(r.URL.Query().Get("limit")); n != nil {
		limit = *n
	}
	res, err := h.Engine.CompatibleAgents(r.Context(), id.String(), direction, limit)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	writeListResult(w, res)
}

// Reputation serves GET /api/v1/agents/{id}/reputation.
func (h *AgentsHandler) Reputation(w http.ResponseWriter, r *http.Request) {
	id, err := agentIDFromPath(r)
	if err != nil {
		apierror.WriteError(w, apierror.Validation(err.Error()))
		return
	}
	rep, err := h.Rep.GetReputation(r.Context(), id.String())
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	if rep == nil {
		apierror.WriteJSON(w, http.StatusOK, model.Reputation{AgentID: id.String()})
		return
	}
	apierror.WriteJSON(w, http.StatusOK, rep)
}

// ReputationFeedback serves GET /api/v1/agents/{id}/reputation/feedback.
func (h *AgentsHandler) ReputationFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := agentIDFromPath(r)
	if err != nil {
		apierror.WriteError(w, apierror.Validation(err.Error()))
		return
	}
	limit := search.ClampLimit(0)
	if n := parseIntPtr(r.URL.Query().Get("limit")); n != nil {
		limit = search.ClampLimit(*n)
	}
	offset := 0
	if n := parseIntPtr(r.URL.Query().Get("offset")); n != nil {
		offset = *n
	}
	rows, err := h.Rep.ListFeedback(r.Context(), id.String(), limit, offset)
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	apierror.WriteJSON(w, http.StatusOK, map[string]any{"items": rows})
}

// submitFeedbackBody is the POST /api/v1/agents/{id}/reputation/feedback body.
type submitFeedbackBody struct {
	Score       int      `json:"score"`
	Tags        []string `json:"tags,omitempty"`
	Context     string   `json:"context,omitempty"`
	FeedbackURI string   `json:"feedbackUri,omitempty"`
	Submitter   string   `json:"submitter"`
	EASUID      string   `json:"easUid,omitempty"`
}

// SubmitFeedback serves POST /api/v1/agents/{id}/reputation/feedback.
func (h *AgentsHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := agentIDFromPath(r)
	if err != nil {
		apierror.WriteError(w, apierror.Validation(err.Error()))
		return
	}
	var body submitFeedbackBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierror.WriteError(w, apierror.BadRequest("request body is not valid JSON"))
		return
	}
	if body.Score < 0 || body.Score > 100 {
		apierror.WriteError(w, apierror.Validation("score must be an integer between 0 and 100"))
		return
	}
	if body.Submitter == "" {
		apierror.WriteError(w, apierror.Validation("submitter is required"))
		return
	}

	if body.EASUID != "" {
		exists, err := h.Rep.FeedbackExistsByEASUID(r.Context(), body.EASUID)
		if err != nil {
			apierror.WriteError(w, err)
			return
		}
		if exists {
			apierror.WriteError(w, apierror.Validation("feedback for this EAS attestation has already been recorded"))
			return
		}
	}

	feedbackID, err := h.Rep.AddFeedback(r.Context(), model.Feedback{
		AgentID:     id.String(),
		ChainID:     id.ChainID,
		Score:       body.Score,
		Tags:        body.Tags,
		Context:     body.Context,
		FeedbackURI: body.FeedbackURI,
		Submitter:   body.Submitter,
		EASUID:      body.EASUID,
	})
	if err != nil {
		apierror.WriteError(w, err)
		return
	}
	apierror.WriteJSON(w, http.StatusCreated, map[string]string{"id": feedbackID})
}
