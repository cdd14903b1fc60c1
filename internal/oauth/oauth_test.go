package oauth

import (
	"context"
	"testing"
	"time"

	"github.com/erc8004/agent-gateway/internal/model"
)

type fakeClients struct {
	clients map[string]*model.OAuthClient
	err     error
}

func newFakeClients() *fakeClients {
	return &fakeClients{clients: map[string]*model.OAuthClient{}}
}

func (f *fakeClients) CreateClient(ctx context.Context, c model.OAuthClient) error {
	if f.err != nil {
		return f.err
	}
	cp := c
	f.clients[c.ClientID] = &cp
	return nil
}

func (f *fakeClients) GetClient(ctx context.Context, clientID string) (*model.OAuthClient, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.clients[clientID]
	if !ok {
		return nil, nil
	}
	return c, nil
}

type fakeCodes struct {
	codes map[string]*model.AuthorizationCode
	err   error
}

func newFakeCodes() *fakeCodes {
	return &fakeCodes{codes: map[string]*model.AuthorizationCode{}}
}

func (f *fakeCodes) CreateAuthorizationCode(ctx context.Context, c model.AuthorizationCode) error {
	if f.err != nil {
		return f.err
	}
	cp := c
	f.codes[c.CodeHash] = &cp
	return nil
}

func (f *fakeCodes) ConsumeAuthorizationCode(ctx context.Context, codeHash string) (*model.AuthorizationCode, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.codes[codeHash]
	if !ok || c.Used {
		return nil, errNotFound
	}
	c.Used = true
	return c, nil
}

type fakeTokens struct {
	access  map[string]*model.AccessToken
	refresh map[string]*model.RefreshToken
	err     error
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{access: map[string]*model.AccessToken{}, refresh: map[string]*model.RefreshToken{}}
}

func (f *fakeTokens) CreateAccessToken(ctx context.Context, t model.AccessToken) error {
	if f.err != nil {
		return f.err
	}
	tp := t
	f.access[t.TokenHash] = &tp
	return nil
}

func (f *fakeTokens) GetAccessToken(ctx context.Context, tokenHash string) (*model.AccessToken, error) {
	t, ok := f.access[tokenHash]
	if !ok {
		return nil, errNotFound
	}
	return t, nil
}

func (f *fakeTokens) RevokeAccessToken(ctx context.Context, tokenHash string) error {
	if t, ok := f.access[tokenHash]; ok {
		t.Revoked = true
	}
	return nil
}

func (f *fakeTokens) CreateRefreshToken(ctx context.Context, t model.RefreshToken) error {
	if f.err != nil {
		return f.err
	}
	tp := t
	f.refresh[t.TokenHash] = &tp
	return nil
}

func (f *fakeTokens) GetRefreshToken(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	t, ok := f.refresh[tokenHash]
	if !ok {
		return nil, errNotFound
	}
	return t, nil
}

func (f *fakeTokens) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	if t, ok := f.refresh[tokenHash]; ok {
		t.Revoked = true
	}
	return nil
}

func (f *fakeTokens) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return 0, nil
}

type fakeNotFoundErr struct{}

func (fakeNotFoundErr) Error() string { return "not found" }

var errNotFound = fakeNotFoundErr{}

var ctxBG = context.Background()

func newTestService() (*Service, *fakeClients, *fakeCodes, *fakeTokens) {
	clients := newFakeClients()
	codes := newFakeCodes()
	tokens := newFakeTokens()
	svc := New(clients, codes, tokens)
	svc.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return svc, clients, codes, tokens
}

func TestValidateRedirectURI(t *testing.T) {
	cases := map[string]bool{
		"https://client.example.com/callback": true,
		"http://localhost:3000/callback":       true,
		"http://127.0.0.1:3000/callback":       true,
		"http://evil.example.com/callback":     false,
		"https://client.example.com/cb#frag":   false,
		"not a url at all \x7f":                false,
	}
	for uri, want := range cases {
		if got := validateRedirectURI(uri); got != want {
			t.Errorf("validateRedirectURI(%q) = %v, want %v", uri, got, want)
		}
	}
}

func TestMatchesRegisteredRedirect(t *testing.T) {
	client := &model.OAuthClient{RedirectURIs: []string{"https://client.example.com/cb"}}
	if !matchesRegisteredRedirect(client, "https://client.example.com/cb") {
		t.Fatal("expected exact match to succeed")
	}
	if matchesRegisteredRedirect(client, "https://client.example.com/cb/extra") {
		t.Fatal("expected prefix match to fail")
	}
}
