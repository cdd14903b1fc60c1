package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/erc8004/agent-gateway/internal/enrichment"
	"github.com/erc8004/agent-gateway/internal/model"
	"github.com/erc8004/agent-gateway/internal/search"
)

type fakeSearcher struct {
	result *search.Result
	err    error

	lastParams    search.ListParams
	lastDirection string
	lastLimit     int
}

func (f *fakeSearcher) ListAgents(ctx context.Context, p search.ListParams) (*search.Result, error) {
	f.lastParams = p
	return f.result, f.err
}

func (f *fakeSearcher) Search(ctx context.Context, p search.ListParams) (*search.Result, error) {
	f.lastParams = p
	return f.result, f.err
}

func (f *fakeSearcher) SimilarAgents(ctx context.Context, sourceAgentID string, limit int) (*search.Result, error) {
	f.lastLimit = limit
	return f.result, f.err
}

func (f *fakeSearcher) CompatibleAgents(ctx context.Context, sourceAgentID, direction string, limit int) (*search.Result, error) {
	f.lastDirection = direction
	f.lastLimit = limit
	return f.result, f.err
}

type fakeEnricher struct {
	detail *enrichment.Detail
	err    error
}

func (f *fakeEnricher) GetAgentDetail(ctx context.Context, chainID int64, tokenID string) (*enrichment.Detail, error) {
	return f.detail, f.err
}

type fakeReputationService struct {
	rep        *model.Reputation
	feedback   []model.Feedback
	exists     bool
	addedID    string
	addedErr   error
	lastInsert model.Feedback
}

func (f *fakeReputationService) AddFeedback(ctx context.Context, fb model.Feedback) (string, error) {
	f.lastInsert = fb
	return f.addedID, f.addedErr
}

func (f *fakeReputationService) FeedbackExistsByEASUID(ctx context.Context, easUID string) (bool, error) {
	return f.exists, nil
}

func (f *fakeReputationService) GetReputation(ctx context.Context, agentID string) (*model.Reputation, error) {
	return f.rep, nil
}

func (f *fakeReputationService) ListFeedback(ctx context.Context, agentID string, limit, offset int) ([]model.Feedback, error) {
	return f.feedback, nil
}

func newTestHandler() (*AgentsHandler, *fakeSearcher, *fakeEnricher, *fakeReputationService) {
	s := &fakeSearcher{result: &search.Result{Items: []model.AgentSummary{{ID: "1:1", Name: "agent"}}, SearchMode: "vector"}}
	e := &fakeEnricher{detail: &enrichment.Detail{AgentSummary: model.AgentSummary{ID: "1:1"}}}
	r := &fakeReputationService{}
	return &AgentsHandler{Engine: s, Enrichment: e, Rep: r}, s, e, r
}

func decodeEnvelope(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return out
}

func TestListAgents_Success(t *testing.T) {
	h, _, _, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents?limit=5", nil)
	rec := httptest.NewRecorder()

	h.ListAgents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	env := decodeEnvelope(t, rec.Body.Bytes())
	if env["success"] != true {
		t.Errorf("success = %v, want true", env["success"])
	}
}

func TestSearch_InvalidJSONReturns400(t *testing.T) {
	h, _, _, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	h.Search(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSearch_DefaultsMinScore(t *testing.T) {
	h, s, _, _ := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"query":"x"}`))
	rec := httptest.NewRecorder()

	h.Search(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if s.lastParams.MinScore == nil || *s.lastParams.MinScore != 0.3 {
		t.Errorf("MinScore = %v, want 0.3", s.lastParams.MinScore)
	}
}

func withChiParam(r *http.Request, key, value string) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, ctx))
}

func TestGetAgent_InvalidIDReturns400(t *testing.T) {
	h, _, _, _ := newTestHandler()
	req := withChiParam(httptest.NewRequest(http.MethodGet, "/api/v1/agents/bogus", nil), "id", "bogus")
	rec := httptest.NewRecorder()

	h.GetAgent(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetAgent_Success(t *testing.T) {
	h, _, _, _ := newTestHandler()
	req := withChiParam(httptest.NewRequest(http.MethodGet, "/api/v1/agents/1:1", nil), "id", "1:1")
	rec := httptest.NewRecorder()

	h.GetAgent(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCompatible_DefaultsToDownstream(t *testing.T) {
	h, s, _, _ := newTestHandler()
	req := withChiParam(httptest.NewRequest(http.MethodGet, "/api/v1/agents/1:1/compatible", nil), "id", "1:1")
	rec := httptest.NewRecorder()

	h.Compatible(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if s.lastDirection != "downstream" {
		t.Errorf("direction = %q, want downstream", s.lastDirection)
	}
}

func TestCompatible_AcceptsUpstream(t *testing.T) {
	h, s, _, _ := newTestHandler()
	req := withChiParam(httptest.NewRequest(http.MethodGet, "/api/v1/agents/1:1/compatible?direction=upstream", nil), "id", "1:1")
	req.URL.RawQuery = "direction=upstream"
	rec := httptest.NewRecorder()

	h.Compatible(rec, req)

	if s.lastDirection != "upstream" {
		t.Errorf("direction = %q, want upstream", s.lastDirection)
	}
}

func TestReputation_ZeroValueWhenNoRecord(t *testing.T) {
	h, _, _, _ := newTestHandler()
	req := withChiParam(httptest.NewRequest(http.MethodGet, "/api/v1/agents/1:1/reputation", nil), "id", "1:1")
	rec := httptest.NewRecorder()

	h.Reputation(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	env := decodeEnvelope(t, rec.Body.Bytes())
	data := env["data"].(map[string]any)
	if data["agentId"] != "1:1" {
		t.Errorf("agentId = %v, want 1:1", data["agentId"])
	}
}

func TestSubmitFeedback_RejectsOutOfRangeScore(t *testing.T) {
	h, _, _, _ := newTestHandler()
	body := `{"score":150,"submitter":"0xabc"}`
	req := withChiParam(httptest.NewRequest(http.MethodPost, "/api/v1/agents/1:1/reputation/feedback", strings.NewReader(body)), "id", "1:1")
	rec := httptest.NewRecorder()

	h.SubmitFeedback(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSubmitFeedback_RejectsMissingSubmitter(t *testing.T) {
	h, _, _, _ := newTestHandler()
	body := `{"score":80}`
	req := withChiParam(httptest.NewRequest(http.MethodPost, "/api/v1/agents/1:1/reputation/feedback", strings.NewReader(body)), "id", "1:1")
	rec := httptest.NewRecorder()

	h.SubmitFeedback(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSubmitFeedback_RejectsDuplicateEASUID(t *testing.T) {
	h, _, _, rep := newTestHandler()
	rep.exists = true
	body := `{"score":80,"submitter":"0xabc","easUid":"0xeas"}`
	req := withChiParam(httptest.NewRequest(http.MethodPost, "/api/v1/agents/1:1/reputation/feedback", strings.NewReader(body)), "id", "1:1")
	rec := httptest.NewRecorder()

	h.SubmitFeedback(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSubmitFeedback_Success(t *testing.T) {
	h, _, _, rep := newTestHandler()
	rep.addedID = "fb-1"
	body := `{"score":80,"submitter":"0xabc"}`
	req := withChiParam(httptest.NewRequest(http.MethodPost, "/api/v1/agents/1:1/reputation/feedback", strings.NewReader(body)), "id", "1:1")
	rec := httptest.NewRecorder()

	h.SubmitFeedback(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if rep.lastInsert.AgentID != "1:1" || rep.lastInsert.ChainID != 1 {
		t.Errorf("inserted feedback = %+v, want agentId 1:1 chainId 1", rep.lastInsert)
	}
}

func TestReputationFeedback_Success(t *testing.T) {
	h, _, _, rep := newTestHandler()
	rep.feedback = []model.Feedback{{ID: "a"}, {ID: "b"}}
	req := withChiParam(httptest.NewRequest(http.MethodGet, "/api/v1/agents/1:1/reputation/feedback", nil), "id", "1:1")
	rec := httptest.NewRecorder()

	h.ReputationFeedback(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
