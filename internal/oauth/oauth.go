// Package oauth implements an OAuth 2.1 authorization server scoped to
// this gateway's MCP/REST edge: Dynamic Client Registration, the
// authorization-code grant with mandatory PKCE S256, and refresh-token
// rotation. Every credential is persisted as a SHA-256 base64url hash;
// plaintext is returned to the caller exactly once, at issuance.
package oauth

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/erc8004/agent-gateway/internal/model"
)

// ClientStore abstracts the registered-client repository.
type ClientStore interface {
	CreateClient(ctx context.Context, c model.OAuthClient) error
	GetClient(ctx context.Context, clientID string) (*model.OAuthClient, error)
}

// CodeStore abstracts the single-use authorization-code repository.
type CodeStore interface {
	CreateAuthorizationCode(ctx context.Context, c model.AuthorizationCode) error
	ConsumeAuthorizationCode(ctx context.Context, codeHash string) (*model.AuthorizationCode, error)
}

// TokenStore abstracts the hashed-at-rest access/refresh token
// repository.
type TokenStore interface {
	CreateAccessToken(ctx context.Context, t model.AccessToken) error
	GetAccessToken(ctx context.Context, tokenHash string) (*model.AccessToken, error)
	RevokeAccessToken(ctx context.Context, tokenHash string) error
	CreateRefreshToken(ctx context.Context, t model.RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// Service implements the authorization server's grant logic. It has no
// HTTP concerns of its own — those live in http.go — and depends only
// on the three small collaborator interfaces above, the repository's
// own concrete *OAuthRepo satisfying all three at once.
type Service struct {
	Clients ClientStore
	Codes   CodeStore
	Tokens  TokenStore
	Now     func() time.Time

	AuthCodeTTL     time.Duration
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// New builds a Service with the default TTLs from model.Default*TTL.
func New(clients ClientStore, codes CodeStore, tokens TokenStore) *Service {
	return &Service{
		Clients:         clients,
		Codes:           codes,
		Tokens:          tokens,
		Now:             time.Now,
		AuthCodeTTL:     model.DefaultAuthCodeTTL,
		AccessTokenTTL:  model.DefaultAccessTokenTTL,
		RefreshTokenTTL: model.DefaultRefreshTokenTTL,
	}
}

func newClientID() string { return "client_" + uuid.NewString() }

// validateRedirectURI enforces HTTPS with no fragment, except for the
// http://localhost / http://127.0.0.1 loopback exemption development
// clients rely on.
func validateRedirectURI(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Fragment != "" {
		return false
	}
	if u.Scheme == "https" {
		return true
	}
	if u.Scheme == "http" {
		host := u.Hostname()
		return host == "localhost" || host == "127.0.0.1"
	}
	return false
}

// matchesRegisteredRedirect reports whether uri is exactly one of the
// client's registered redirect URIs — no prefix or wildcard matching.
func matchesRegisteredRedirect(client *model.OAuthClient, uri string) bool {
	for _, registered := range client.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}
