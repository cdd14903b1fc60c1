package oauth

import (
	"context"
	"fmt"

	"github.com/erc8004/agent-gateway/internal/model"
)

// RegisterRequest is the RFC 7591 Dynamic Client Registration body.
type RegisterRequest struct {
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
}

// RegisterResponse echoes the registration back with the issued
// credential. ClientSecret is plaintext and returned exactly once.
type RegisterResponse struct {
	ClientID                string   `json:"client_id"`
	ClientSecret            string   `json:"client_secret"`
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	ClientIDIssuedAt        int64    `json:"client_id_issued_at"`
}

// RegisterError is a pre-authentication DCR failure, rendered as a
// plain 400 JSON body per RFC 7591 §3.2.2 rather than redirected
// anywhere (there is no redirect_uri to trust yet).
type RegisterError struct {
	Code        string
	Description string
}

func (e *RegisterError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Description) }

func invalidClientMetadata(description string) *RegisterError {
	return &RegisterError{Code: "invalid_client_metadata", Description: description}
}

var defaultGrantTypes = []string{"authorization_code", "refresh_token"}

// RegisterClient validates and persists a new OAuth client, per RFC
// 7591. grant_types defaults to authorization_code + refresh_token
// when omitted; token_endpoint_auth_method defaults to
// client_secret_basic.
func (s *Service) RegisterClient(ctx context.Context, req RegisterRequest) (*RegisterResponse, *RegisterError) {
	if req.ClientName == "" {
		return nil, invalidClientMetadata("client_name is required")
	}
	if len(req.RedirectURIs) == 0 {
		return nil, invalidClientMetadata("redirect_uris must contain at least one URI")
	}
	for _, uri := range req.RedirectURIs {
		if !validateRedirectURI(uri) {
			return nil, invalidClientMetadata(fmt.Sprintf("redirect_uri %q must be HTTPS with no fragment (http://localhost or http://127.0.0.1 excepted)", uri))
		}
	}

	grantTypes := req.GrantTypes
	if len(grantTypes) == 0 {
		grantTypes = defaultGrantTypes
	}
	authMethod := req.TokenEndpointAuthMethod
	if authMethod == "" {
		authMethod = "client_secret_basic"
	}

	secret, secretHash, err := newToken()
	if err != nil {
		return nil, &RegisterError{Code: "server_error", Description: "failed to generate client secret"}
	}

	now := s.Now()
	client := model.OAuthClient{
		ClientID:                newClientID(),
		ClientSecretHash:        secretHash,
		ClientName:              req.ClientName,
		RedirectURIs:            req.RedirectURIs,
		GrantTypes:              grantTypes,
		TokenEndpointAuthMethod: authMethod,
		CreatedAt:               now,
	}
	if err := s.Clients.CreateClient(ctx, client); err != nil {
		return nil, &RegisterError{Code: "server_error", Description: "failed to persist client"}
	}

	return &RegisterResponse{
		ClientID:                client.ClientID,
		ClientSecret:            secret,
		ClientName:              client.ClientName,
		RedirectURIs:            client.RedirectURIs,
		GrantTypes:              client.GrantTypes,
		TokenEndpointAuthMethod: client.TokenEndpointAuthMethod,
		ClientIDIssuedAt:        now.Unix(),
	}, nil
}
