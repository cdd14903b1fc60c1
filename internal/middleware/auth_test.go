package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeTokenValidator struct {
	validTokens map[string]string
	err         error
}

func (f *fakeTokenValidator) ValidateToken(ctx context.Context, token string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	clientID, ok := f.validTokens[token]
	return clientID, ok, nil
}

func echoTierHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tier", string(TierFromContext(r.Context())))
		w.Header().Set("X-Client-ID", ClientIDFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuth_NoCredentialStaysAnonymous(t *testing.T) {
	validator := &fakeTokenValidator{validTokens: map[string]string{}}
	handler := APIKeyAuth(validator)(echoTierHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("X-Tier"); got != string(TierAnonymous) {
		t.Errorf("tier = %q, want %q", got, TierAnonymous)
	}
}

func TestAPIKeyAuth_InvalidKeyDowngradesToAnonymous(t *testing.T) {
	validator := &fakeTokenValidator{validTokens: map[string]string{}}
	handler := APIKeyAuth(validator)(echoTierHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil)
	req.Header.Set("X-API-Key", "bogus")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (invalid key should not 401 a listing route)", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("X-Tier"); got != string(TierAnonymous) {
		t.Errorf("tier = %q, want %q", got, TierAnonymous)
	}
}

func TestAPIKeyAuth_ValidKeyAuthenticates(t *testing.T) {
	validator := &fakeTokenValidator{validTokens: map[string]string{"good-key": "client-1"}}
	handler := APIKeyAuth(validator)(echoTierHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil)
	req.Header.Set("X-API-Key", "good-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Tier"); got != string(TierAuthenticated) {
		t.Errorf("tier = %q, want %q", got, TierAuthenticated)
	}
	if got := rec.Header().Get("X-Client-ID"); got != "client-1" {
		t.Errorf("client id = %q, want %q", got, "client-1")
	}
}

func TestAPIKeyAuth_FallsBackToBearerHeader(t *testing.T) {
	validator := &fakeTokenValidator{validTokens: map[string]string{"good-key": "client-2"}}
	handler := APIKeyAuth(validator)(echoTierHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil)
	req.Header.Set("Authorization", "Bearer good-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Tier"); got != string(TierAuthenticated) {
		t.Errorf("tier = %q, want %q", got, TierAuthenticated)
	}
}

func TestAPIKeyAuth_ValidatorErrorDowngradesToAnonymous(t *testing.T) {
	validator := &fakeTokenValidator{err: fmt.Errorf("store unavailable")}
	handler := APIKeyAuth(validator)(echoTierHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/agents", nil)
	req.Header.Set("X-API-Key", "good-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Tier"); got != string(TierAnonymous) {
		t.Errorf("tier = %q, want %q", got, TierAnonymous)
	}
}

func TestRequireAuthenticated_RejectsAnonymous(t *testing.T) {
	handler := RequireAuthenticated(echoTierHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/feedback", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthenticated_AllowsAuthenticated(t *testing.T) {
	handler := RequireAuthenticated(echoTierHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/feedback", nil)
	req = req.WithContext(WithTier(WithClientID(req.Context(), "client-1"), TierAuthenticated))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestMCPBearerAuth_MissingBearerStaysAnonymous(t *testing.T) {
	validator := &fakeTokenValidator{validTokens: map[string]string{}}
	handler := MCPBearerAuth(validator)(echoTierHandler())

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("X-Tier"); got != string(TierAnonymous) {
		t.Errorf("tier = %q, want %q", got, TierAnonymous)
	}
}

func TestMCPBearerAuth_InvalidBearerIs401(t *testing.T) {
	validator := &fakeTokenValidator{validTokens: map[string]string{}}
	handler := MCPBearerAuth(validator)(echoTierHandler())

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestMCPBearerAuth_ValidBearerAuthenticates(t *testing.T) {
	validator := &fakeTokenValidator{validTokens: map[string]string{"good-token": "client-3"}}
	handler := MCPBearerAuth(validator)(echoTierHandler())

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("X-Tier"); got != string(TierAuthenticated) {
		t.Errorf("tier = %q, want %q", got, TierAuthenticated)
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc123", "abc123"},
		{"bearer xyz", "xyz"},
		{"BEARER token", "token"},
		{"Basic dXNlcjpwYXNz", ""},
		{"Bearer", ""},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		got := extractBearerToken(r)
		if got != tt.want {
			t.Errorf("extractBearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
