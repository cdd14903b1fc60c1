package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erc8004/agent-gateway/internal/enrichment"
	"github.com/erc8004/agent-gateway/internal/events"
	"github.com/erc8004/agent-gateway/internal/handler"
	"github.com/erc8004/agent-gateway/internal/model"
	"github.com/erc8004/agent-gateway/internal/search"
)

type stubSearcher struct{}

func (stubSearcher) ListAgents(ctx context.Context, p search.ListParams) (*search.Result, error) {
	return &search.Result{}, nil
}
func (stubSearcher) Search(ctx context.Context, p search.ListParams) (*search.Result, error) {
	return &search.Result{}, nil
}
func (stubSearcher) SimilarAgents(ctx context.Context, sourceAgentID string, limit int) (*search.Result, error) {
	return &search.Result{}, nil
}
func (stubSearcher) CompatibleAgents(ctx context.Context, sourceAgentID, direction string, limit int) (*search.Result, error) {
	return &search.Result{}, nil
}

type stubEnricher struct{}

func (stubEnricher) GetAgentDetail(ctx context.Context, chainID int64, tokenID string) (*enrichment.Detail, error) {
	return &enrichment.Detail{}, nil
}

type stubReputation struct{}

func (stubReputation) AddFeedback(ctx context.Context, f model.Feedback) (string, error) {
	return "id", nil
}
func (stubReputation) FeedbackExistsByEASUID(ctx context.Context, easUID string) (bool, error) {
	return false, nil
}
func (stubReputation) GetReputation(ctx context.Context, agentID string) (*model.Reputation, error) {
	return nil, nil
}
func (stubReputation) ListFeedback(ctx context.Context, agentID string, limit, offset int) ([]model.Feedback, error) {
	return nil, nil
}

type stubChains struct{}

func (stubChains) ChainStats(ctx context.Context) ([]model.ChainStat, error) { return nil, nil }

type stubPinger struct{}

func (stubPinger) Ping(ctx context.Context) error { return nil }

type stubTrustScores struct{}

func (stubTrustScores) GetByAgentID(ctx context.Context, agentID string) (*model.TrustScore, error) {
	return nil, nil
}
func (stubTrustScores) TopTrusted(ctx context.Context, limit int) ([]model.TrustScore, error) {
	return nil, nil
}

func newTestRouter() http.Handler {
	deps := &Dependencies{
		Version:        "0.1.0",
		AllowedOrigins: []string{"https://example.com"},
		Agents:         &handler.AgentsHandler{Engine: stubSearcher{}, Enrichment: stubEnricher{}, Rep: stubReputation{}},
		Chains:         &handler.ChainsHandler{Chains: stubChains{}},
		Health:         &handler.HealthHandler{Version: "0.1.0", Deps: map[string]handler.Pinger{"postgres": stubPinger{}}},
		Trust:          &handler.TrustHandler{Scores: stubTrustScores{}},
		Events:         events.New(),
	}
	return New(deps)
}

func TestHealth_IsPublic(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var env struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Data.Status != "ok" {
		t.Errorf("status = %q, want ok", env.Data.Status)
	}
}

func TestListAgents_IsReachable(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestGetAgent_IsReachable(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents/1:1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestChainsStats_IsReachable(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents/chains/stats", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestTrustScore_IsReachable(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents/1:1/trust", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestTrustTop_IsReachable(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trust/top", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestUnknownRoute_Returns404(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nonexistent", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["success"] != false {
		t.Error("expected success=false for 404")
	}
}

func TestCORS_RejectsDisallowedOrigin(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/agents", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCORS_AllowsConfiguredOrigin(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/agents", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}
