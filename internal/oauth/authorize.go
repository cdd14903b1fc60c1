package oauth

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/erc8004/agent-gateway/internal/model"
)

// AuthorizeRequest is the parsed GET /oauth/authorize query.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	UserID              string // resolved by whatever authenticates the resource owner upstream
}

// AuthorizeError distinguishes a pre-validation failure, which has no
// trustworthy redirect_uri to bounce back to and must render an HTML
// error page, from a post-validation failure, which redirects to the
// client with error/error_description/state per RFC 6749 §4.1.2.1.
type AuthorizeError struct {
	Code        string
	Description string
	PreRedirect bool
	RedirectURI string
	State       string
}

func (e *AuthorizeError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Description) }

func preRedirectError(code, description string) *AuthorizeError {
	return &AuthorizeError{Code: code, Description: description, PreRedirect: true}
}

func postRedirectError(code, description, redirectURI, state string) *AuthorizeError {
	return &AuthorizeError{Code: code, Description: description, RedirectURI: redirectURI, State: state}
}

// RedirectURL builds the error-carrying redirect target for a
// post-validation AuthorizeError.
func (e *AuthorizeError) RedirectURL() string {
	u, _ := url.Parse(e.RedirectURI)
	q := u.Query()
	q.Set("error", e.Code)
	q.Set("error_description", e.Description)
	if e.State != "" {
		q.Set("state", e.State)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Authorize validates an authorization request and, on success, issues
// a single-use code bound to the PKCE challenge, returning the
// redirect URL the caller should send the resource owner's
// user-agent to.
func (s *Service) Authorize(ctx context.Context, req AuthorizeRequest) (string, *AuthorizeError) {
	if req.ClientID == "" {
		return "", preRedirectError("invalid_request", "client_id is required")
	}
	client, err := s.Clients.GetClient(ctx, req.ClientID)
	if err != nil || client == nil {
		return "", preRedirectError("invalid_request", "unknown client_id")
	}
	if req.RedirectURI == "" || !matchesRegisteredRedirect(client, req.RedirectURI) {
		return "", preRedirectError("invalid_request", "redirect_uri does not match a registered URI for this client")
	}

	// Every failure from here on can be safely reported to a redirect_uri
	// we've just confirmed belongs to the client.
	if req.ResponseType != "code" {
		return "", postRedirectError("unsupported_response_type", "only response_type=code is supported", req.RedirectURI, req.State)
	}
	if req.CodeChallenge == "" {
		return "", postRedirectError("invalid_request", "code_challenge is required", req.RedirectURI, req.State)
	}
	if req.CodeChallengeMethod != "S256" {
		return "", postRedirectError("invalid_request", "only code_challenge_method=S256 is supported", req.RedirectURI, req.State)
	}

	plaintext, hash, genErr := newToken()
	if genErr != nil {
		return "", postRedirectError("server_error", "failed to generate authorization code", req.RedirectURI, req.State)
	}
	code := model.AuthorizationCode{
		CodeHash:            hash,
		ClientID:            client.ClientID,
		RedirectURI:         req.RedirectURI,
		Scope:               req.Scope,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		UserID:              req.UserID,
		ExpiresAt:           s.Now().Add(s.AuthCodeTTL),
		CreatedAt:           s.Now(),
	}
	if err := s.Codes.CreateAuthorizationCode(ctx, code); err != nil {
		return "", postRedirectError("server_error", "failed to persist authorization code", req.RedirectURI, req.State)
	}

	u, _ := url.Parse(req.RedirectURI)
	q := u.Query()
	q.Set("code", plaintext)
	if req.State != "" {
		q.Set("state", req.State)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// NewAnonymousUserID is used when the gateway authorizes a request
// without a distinct resource-owner login step — every MCP client
// acting through this server is otherwise indistinguishable.
func NewAnonymousUserID() string { return "anon_" + uuid.NewString() }
