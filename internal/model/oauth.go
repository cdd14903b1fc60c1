package model

import "time"

// OAuthClient is a Dynamic Client Registration record (RFC 7591).
type OAuthClient struct {
	ClientID                string    `json:"clientId"`
	ClientSecretHash        string    `json:"-"`
	ClientName              string    `json:"clientName"`
	RedirectURIs            []string  `json:"redirectUris"`
	GrantTypes              []string  `json:"grantTypes"`
	TokenEndpointAuthMethod string    `json:"tokenEndpointAuthMethod"`
	CreatedAt               time.Time `json:"createdAt"`
}

// AuthorizationCode is single-use and validated on
// (codeHash, clientId, redirectUri, used=0, expires>now).
type AuthorizationCode struct {
	CodeHash            string
	ClientID            string
	RedirectURI         string
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod string
	UserID              string
	Used                bool
	ExpiresAt           time.Time
	CreatedAt           time.Time
}

// AccessToken is stored only as a SHA-256 base64url hash of the issued token.
type AccessToken struct {
	TokenHash string
	ClientID  string
	UserID    string
	Scope     string
	Revoked   bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// RefreshToken mirrors AccessToken; rotation revokes the presented token
// and issues a fresh access+refresh pair.
type RefreshToken struct {
	TokenHash string
	ClientID  string
	UserID    string
	Scope     string
	Revoked   bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Default OAuth TTLs.
const (
	DefaultAuthCodeTTL     = 600 * time.Second
	DefaultAccessTokenTTL  = 3600 * time.Second
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)
