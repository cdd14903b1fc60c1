package oauth

import (
	"context"
	"fmt"

	"github.com/erc8004/agent-gateway/internal/model"
)

// TokenRequest is the parsed POST /oauth/token body, covering both
// grant types this server supports.
type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	CodeVerifier string
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// TokenResponse is the RFC 6749 §5.1 successful token response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope,omitempty"`
}

// TokenError is an RFC 6749 §5.2 error response; always rendered as a
// 400 JSON body, never a redirect.
type TokenError struct {
	Code        string
	Description string
}

func (e *TokenError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Description) }

func invalidGrant(description string) *TokenError {
	return &TokenError{Code: "invalid_grant", Description: description}
}

func invalidClient(description string) *TokenError {
	return &TokenError{Code: "invalid_client", Description: description}
}

// Exchange handles POST /oauth/token for both grant_type values this
// server accepts: authorization_code and refresh_token.
func (s *Service) Exchange(ctx context.Context, req TokenRequest) (*TokenResponse, *TokenError) {
	client, err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}

	switch req.GrantType {
	case "authorization_code":
		return s.exchangeAuthorizationCode(ctx, client, req)
	case "refresh_token":
		return s.exchangeRefreshToken(ctx, client, req)
	default:
		return nil, &TokenError{Code: "unsupported_grant_type", Description: "grant_type must be authorization_code or refresh_token"}
	}
}

func (s *Service) authenticateClient(ctx context.Context, clientID, clientSecret string) (*model.OAuthClient, *TokenError) {
	if clientID == "" {
		return nil, invalidClient("client_id is required")
	}
	client, err := s.Clients.GetClient(ctx, clientID)
	if err != nil || client == nil {
		return nil, invalidClient("unknown client_id")
	}
	if !secretMatches(clientSecret, client.ClientSecretHash) {
		return nil, invalidClient("client authentication failed")
	}
	return client, nil
}

func (s *Service) exchangeAuthorizationCode(ctx context.Context, client *model.OAuthClient, req TokenRequest) (*TokenResponse, *TokenError) {
	if req.Code == "" {
		return nil, invalidGrant("code is required")
	}
	if req.CodeVerifier == "" {
		return nil, invalidGrant("code_verifier is required")
	}

	code, err := s.Codes.ConsumeAuthorizationCode(ctx, hashToken(req.Code))
	if err != nil {
		return nil, invalidGrant("authorization code is invalid, expired, or already used")
	}
	if code.ClientID != client.ClientID {
		return nil, invalidGrant("authorization code was not issued to this client")
	}
	if s.Now().After(code.ExpiresAt) {
		return nil, invalidGrant("authorization code has expired")
	}
	if req.RedirectURI != code.RedirectURI {
		return nil, invalidGrant("redirect_uri does not match the value used at authorization time")
	}
	if !verifyPKCE(req.CodeVerifier, code.CodeChallenge) {
		return nil, invalidGrant("code_verifier does not match code_challenge")
	}

	return s.issueTokenPair(ctx, client.ClientID, code.UserID, code.Scope)
}

func (s *Service) exchangeRefreshToken(ctx context.Context, client *model.OAuthClient, req TokenRequest) (*TokenResponse, *TokenError) {
	if req.RefreshToken == "" {
		return nil, invalidGrant("refresh_token is required")
	}

	hash := hashToken(req.RefreshToken)
	stored, err := s.Tokens.GetRefreshToken(ctx, hash)
	if err != nil || stored == nil {
		return nil, invalidGrant("refresh token is invalid")
	}
	if stored.ClientID != client.ClientID {
		return nil, invalidGrant("refresh token was not issued to this client")
	}
	if stored.Revoked || s.Now().After(stored.ExpiresAt) {
		return nil, invalidGrant("refresh token has been revoked or expired")
	}

	if err := s.Tokens.RevokeRefreshToken(ctx, hash); err != nil {
		return nil, &TokenError{Code: "server_error", Description: "failed to rotate refresh token"}
	}
	return s.issueTokenPair(ctx, client.ClientID, stored.UserID, stored.Scope)
}

func (s *Service) issueTokenPair(ctx context.Context, clientID, userID, scope string) (*TokenResponse, *TokenError) {
	accessPlain, accessHash, err := newToken()
	if err != nil {
		return nil, &TokenError{Code: "server_error", Description: "failed to generate access token"}
	}
	refreshPlain, refreshHash, err := newToken()
	if err != nil {
		return nil, &TokenError{Code: "server_error", Description: "failed to generate refresh token"}
	}

	now := s.Now()
	access := model.AccessToken{
		TokenHash: accessHash,
		ClientID:  clientID,
		UserID:    userID,
		Scope:     scope,
		ExpiresAt: now.Add(s.AccessTokenTTL),
		CreatedAt: now,
	}
	if err := s.Tokens.CreateAccessToken(ctx, access); err != nil {
		return nil, &TokenError{Code: "server_error", Description: "failed to persist access token"}
	}

	refresh := model.RefreshToken{
		TokenHash: refreshHash,
		ClientID:  clientID,
		UserID:    userID,
		Scope:     scope,
		ExpiresAt: now.Add(s.RefreshTokenTTL),
		CreatedAt: now,
	}
	if err := s.Tokens.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, &TokenError{Code: "server_error", Description: "failed to persist refresh token"}
	}

	return &TokenResponse{
		AccessToken:  accessPlain,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTokenTTL.Seconds()),
		RefreshToken: refreshPlain,
		Scope:        scope,
	}, nil
}

// ValidateToken implements middleware.TokenValidator: it looks up a
// presented bearer token by its hash and rejects it if unknown,
// revoked, or expired.
func (s *Service) ValidateToken(ctx context.Context, token string) (string, bool, error) {
	stored, err := s.Tokens.GetAccessToken(ctx, hashToken(token))
	if err != nil {
		return "", false, nil
	}
	if stored.Revoked || s.Now().After(stored.ExpiresAt) {
		return "", false, nil
	}
	return stored.ClientID, true, nil
}

// CleanupExpiredTokens sweeps access tokens, refresh tokens, and
// authorization codes past their expiry. Intended to run from a
// periodic maintenance loop, not the request path.
func (s *Service) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return s.Tokens.CleanupExpiredTokens(ctx)
}
