package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/erc8004/agent-gateway/internal/enrichment"
	"github.com/erc8004/agent-gateway/internal/model"
	"github.com/erc8004/agent-gateway/internal/search"
)

type fakeSearcher struct {
	result *search.Result
	err    error
}

func (f *fakeSearcher) Search(ctx context.Context, p search.ListParams) (*search.Result, error) {
	return f.result, f.err
}

func (f *fakeSearcher) ListAgents(ctx context.Context, p search.ListParams) (*search.Result, error) {
	return f.result, f.err
}

type fakeGetter struct {
	detail *enrichment.Detail
	err    error
}

func (f *fakeGetter) GetAgentDetail(ctx context.Context, chainID int64, tokenID string) (*enrichment.Detail, error) {
	return f.detail, f.err
}

type fakeChains struct {
	stats []model.ChainStat
	err   error
}

func (f *fakeChains) ChainStats(ctx context.Context) ([]model.ChainStat, error) {
	return f.stats, f.err
}

type fakeSessions struct {
	sessions map[string]*model.MCPSession
	saveErr  error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]*model.MCPSession{}}
}

func (f *fakeSessions) Get(ctx context.Context, id string) (*model.MCPSession, bool, error) {
	s, ok := f.sessions[id]
	return s, ok, nil
}

func (f *fakeSessions) Save(ctx context.Context, s *model.MCPSession) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.sessions[s.SessionID] = s
	return nil
}

func (f *fakeSessions) Delete(ctx context.Context, id string) {
	delete(f.sessions, id)
}

func newTestService() (*Service, *fakeSearcher, *fakeGetter, *fakeChains, *fakeSessions) {
	searcher := &fakeSearcher{}
	getter := &fakeGetter{}
	chains := &fakeChains{}
	sessions := newFakeSessions()
	svc := New(searcher, getter, chains, sessions)
	svc.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return svc, searcher, getter, chains, sessions
}

func rawID(n int) json.RawMessage {
	b, _ := json.Marshal(n)
	return b
}

func TestDispatch_InitializeNegotiatesSupportedVersion(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	params, _ := json.Marshal(initializeParams{ProtocolVersion: "2025-11-25"})
	req := Request{JSONRPC: "2.0", ID: rawID(1), Method: "initialize", Params: params}

	resp, err := svc.Dispatch(context.Background(), req, "")
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error response: %+v", resp.Error)
	}
	result, ok := resp.Result.(initializeResult)
	if !ok {
		t.Fatalf("result type = %T, want initializeResult", resp.Result)
	}
	if result.ProtocolVersion != "2025-11-25" {
		t.Errorf("protocolVersion = %q, want 2025-11-25", result.ProtocolVersion)
	}
}

func TestDispatch_InitializeRejectsUnsupportedVersion(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	params, _ := json.Marshal(initializeParams{ProtocolVersion: "1999-01-01"})
	req := Request{JSONRPC: "2.0", ID: rawID(1), Method: "initialize", Params: params}

	resp, err := svc.Dispatch(context.Background(), req, "")
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("error = %+v, want code %d", resp.Error, CodeInvalidParams)
	}
}

func TestDispatch_NotificationProducesNoResponse(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	req := Request{JSONRPC: "2.0", Method: "notifications/initialized"}

	resp, err := svc.Dispatch(context.Background(), req, "")
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if resp != nil {
		t.Fatalf("expected nil response for a notification, got %+v", resp)
	}
}

func TestDispatch_UnknownMethodReturnsMethodNotFound(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	req := Request{JSONRPC: "2.0", ID: rawID(1), Method: "bogus/method"}

	resp, err := svc.Dispatch(context.Background(), req, "")
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Fatalf("error = %+v, want code %d", resp.Error, CodeMethodNotFound)
	}
}

func TestDispatch_ToolsList(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	req := Request{JSONRPC: "2.0", ID: rawID(1), Method: "tools/list"}

	resp, err := svc.Dispatch(context.Background(), req, "")
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	payload, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("result type = %T", resp.Result)
	}
	tools, ok := payload["tools"].([]Tool)
	if !ok || len(tools) != 4 {
		t.Fatalf("tools = %+v, want 4 tools", payload["tools"])
	}
}

func TestDispatch_ToolsCallSearchAgents(t *testing.T) {
	svc, searcher, _, _, _ := newTestService()
	searcher.result = &search.Result{Items: []model.AgentSummary{{ID: "1:1", Name: "Agent One"}}}

	args, _ := json.Marshal(searchAgentsArgs{Query: "trading bot"})
	params, _ := json.Marshal(toolCallParams{Name: "search_agents", Arguments: args})
	req := Request{JSONRPC: "2.0", ID: rawID(1), Method: "tools/call", Params: params}

	resp, err := svc.Dispatch(context.Background(), req, "")
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	content, ok := resp.Result.(toolContent)
	if !ok || len(content.Content) != 1 || content.Content[0].Type != "text" {
		t.Fatalf("content = %+v", resp.Result)
	}
}

func TestDispatch_ToolsCallSearchAgentsRequiresQuery(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	args, _ := json.Marshal(searchAgentsArgs{})
	params, _ := json.Marshal(toolCallParams{Name: "search_agents", Arguments: args})
	req := Request{JSONRPC: "2.0", ID: rawID(1), Method: "tools/call", Params: params}

	resp, err := svc.Dispatch(context.Background(), req, "")
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("error = %+v, want CodeInvalidParams", resp.Error)
	}
}

func TestDispatch_ToolsCallGetAgentUpstreamErrorIsIsError(t *testing.T) {
	svc, _, getter, _, _ := newTestService()
	getter.err = errors.New("boom")

	args, _ := json.Marshal(getAgentArgs{AgentID: "1:42"})
	params, _ := json.Marshal(toolCallParams{Name: "get_agent", Arguments: args})
	req := Request{JSONRPC: "2.0", ID: rawID(1), Method: "tools/call", Params: params}

	resp, err := svc.Dispatch(context.Background(), req, "")
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	content, ok := resp.Result.(toolContent)
	if !ok || !content.IsError {
		t.Fatalf("content = %+v, want an isError content block", resp.Result)
	}
}

func TestDispatch_ToolsCallUnknownToolIsInvalidParams(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	params, _ := json.Marshal(toolCallParams{Name: "does_not_exist"})
	req := Request{JSONRPC: "2.0", ID: rawID(1), Method: "tools/call", Params: params}

	resp, err := svc.Dispatch(context.Background(), req, "")
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("error = %+v, want CodeInvalidParams", resp.Error)
	}
}

func TestDispatch_ResourcesReadSkillsTaxonomy(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	params, _ := json.Marshal(map[string]string{"uri": uriSkillsTaxonomy})
	req := Request{JSONRPC: "2.0", ID: rawID(1), Method: "resources/read", Params: params}

	resp, err := svc.Dispatch(context.Background(), req, "")
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	contents, ok := resp.Result.(resourceContents)
	if !ok || len(contents.Contents) != 1 {
		t.Fatalf("result = %+v", resp.Result)
	}
}

func TestDispatch_ResourcesReadUnknownURI(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	params, _ := json.Marshal(map[string]string{"uri": "8004://nope"})
	req := Request{JSONRPC: "2.0", ID: rawID(1), Method: "resources/read", Params: params}

	resp, err := svc.Dispatch(context.Background(), req, "")
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("error = %+v, want CodeInvalidParams", resp.Error)
	}
}

func TestDispatch_PromptsGetExplainAgent(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	params, _ := json.Marshal(promptGetParams{Name: "explain-agent", Arguments: map[string]string{"agentId": "1:42"}})
	req := Request{JSONRPC: "2.0", ID: rawID(1), Method: "prompts/get", Params: params}

	resp, err := svc.Dispatch(context.Background(), req, "")
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	result, ok := resp.Result.(promptResult)
	if !ok || len(result.Messages) != 1 {
		t.Fatalf("result = %+v", resp.Result)
	}
}

func TestDispatch_PromptsGetCompareAgentsRequiresTwoIDs(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	params, _ := json.Marshal(promptGetParams{Name: "compare-agents", Arguments: map[string]string{"agentIds": "1:1"}})
	req := Request{JSONRPC: "2.0", ID: rawID(1), Method: "prompts/get", Params: params}

	resp, err := svc.Dispatch(context.Background(), req, "")
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Fatalf("error = %+v, want CodeInvalidParams", resp.Error)
	}
}

func TestOpenSessionAndTouchSession(t *testing.T) {
	svc, _, _, _, sessions := newTestService()

	session, err := svc.OpenSession(context.Background(), "2025-11-25")
	if err != nil {
		t.Fatalf("OpenSession error: %v", err)
	}
	if _, ok := sessions.sessions[session.SessionID]; !ok {
		t.Fatal("expected session to be saved")
	}

	ok, err := svc.TouchSession(context.Background(), session.SessionID)
	if err != nil || !ok {
		t.Fatalf("TouchSession = %v, %v, want true, nil", ok, err)
	}

	ok, err = svc.TouchSession(context.Background(), "unknown-session")
	if err != nil || ok {
		t.Fatalf("TouchSession(unknown) = %v, %v, want false, nil", ok, err)
	}
}

func TestEndSessionRemovesRecord(t *testing.T) {
	svc, _, _, _, sessions := newTestService()
	session, _ := svc.OpenSession(context.Background(), "2025-11-25")

	svc.EndSession(context.Background(), session.SessionID)

	if _, ok := sessions.sessions[session.SessionID]; ok {
		t.Fatal("expected session to be deleted")
	}
}
