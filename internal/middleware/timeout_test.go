package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTimeout_AllowsFastHandler(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := Timeout(50 * time.Millisecond)(inner)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestTimeout_SlowHandlerReturnsEnvelope(t *testing.T) {
	blockUntilDone := make(chan struct{})
	defer close(blockUntilDone)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-blockUntilDone:
		case <-time.After(time.Second):
		}
		w.WriteHeader(http.StatusOK)
	})
	handler := Timeout(10 * time.Millisecond)(inner)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if got := rec.Body.String(); got != timeoutBody {
		t.Errorf("body = %q, want %q", got, timeoutBody)
	}
}
