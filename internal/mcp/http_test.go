package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestServiceForHTTP() *Service {
	svc, _, _, _, _ := newTestService()
	return svc
}

func TestServePost_InitializeOpensSession(t *testing.T) {
	svc := newTestServiceForHTTP()
	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-11-25"}}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	rec := httptest.NewRecorder()

	Handler(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	sessionID := rec.Header().Get(SessionHeader)
	if sessionID == "" {
		t.Fatal("expected Mcp-Session-Id header to be set")
	}
	if got := rec.Header().Get(ProtocolVersionHeader); got != "2025-11-25" {
		t.Errorf("protocol version header = %q", got)
	}

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestServePost_NotificationReturns202(t *testing.T) {
	svc := newTestServiceForHTTP()
	body := `{"jsonrpc":"2.0","method":"notifications/initialized"}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	rec := httptest.NewRecorder()

	Handler(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", rec.Body.String())
	}
}

func TestServePost_UnknownSessionReturnsEnvelopeError(t *testing.T) {
	svc := newTestServiceForHTTP()
	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set(SessionHeader, "nonexistent-session")
	rec := httptest.NewRecorder()

	Handler(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestServePost_MalformedJSONReturnsParseError(t *testing.T) {
	svc := newTestServiceForHTTP()
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	Handler(svc).ServeHTTP(rec, req)

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != CodeParseError {
		t.Fatalf("error = %+v, want CodeParseError", resp.Error)
	}
}

func TestServeDelete_RequiresSessionHeader(t *testing.T) {
	svc := newTestServiceForHTTP()
	req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
	rec := httptest.NewRecorder()

	Handler(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestServeDelete_EndsSession(t *testing.T) {
	svc := newTestServiceForHTTP()
	session, err := svc.OpenSession(context.Background(), "2025-11-25")
	if err != nil {
		t.Fatalf("OpenSession error: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
	req.Header.Set(SessionHeader, session.SessionID)
	rec := httptest.NewRecorder()

	Handler(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	ok, err := svc.TouchSession(context.Background(), session.SessionID)
	if err != nil || ok {
		t.Fatalf("TouchSession after delete = %v, %v, want false, nil", ok, err)
	}
}

func TestHandler_UnsupportedMethod(t *testing.T) {
	svc := newTestServiceForHTTP()
	req := httptest.NewRequest(http.MethodPut, "/mcp", nil)
	rec := httptest.NewRecorder()

	Handler(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if rec.Header().Get("Allow") == "" {
		t.Error("expected Allow header to be set")
	}
}

// flushRecorder adapts httptest.ResponseRecorder with an http.Flusher so
// serveSSE's flusher type assertion succeeds, the same shape
// net/http/httptest doesn't provide out of the box.
type flushRecorder struct {
	*httptest.ResponseRecorder
}

func (f *flushRecorder) Flush() {}

func TestSSEHandler_EmitsEndpointEvent(t *testing.T) {
	svc := newTestServiceForHTTP()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/sse", nil).WithContext(ctx)
	rec := &flushRecorder{httptest.NewRecorder()}

	SSEHandler(svc).ServeHTTP(rec, req)

	scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	var firstLine string
	if scanner.Scan() {
		firstLine = scanner.Text()
	}
	if firstLine != "event: endpoint" {
		t.Fatalf("first line = %q, want %q", firstLine, "event: endpoint")
	}
	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q", got)
	}
}
