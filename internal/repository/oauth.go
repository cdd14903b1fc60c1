package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/erc8004/agent-gateway/internal/model"
)

// OAuthRepo persists Dynamic Client Registration clients, single-use
// authorization codes, and hashed-at-rest access/refresh tokens.
type OAuthRepo struct {
	pool *pgxpool.Pool
}

func NewOAuthRepo(pool *pgxpool.Pool) *OAuthRepo {
	return &OAuthRepo{pool: pool}
}

func (r *OAuthRepo) CreateClient(ctx context.Context, c model.OAuthClient) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO oauth_clients
			(client_id, client_secret_hash, client_name, redirect_uris, grant_types,
			 token_endpoint_auth_method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ClientID, c.ClientSecretHash, c.ClientName, pq.Array(c.RedirectURIs),
		pq.Array(c.GrantTypes), c.TokenEndpointAuthMethod, c.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("repository.OAuth.CreateClient: %w", err)
	}
	return nil
}

func (r *OAuthRepo) GetClient(ctx context.Context, clientID string) (*model.OAuthClient, error) {
	var c model.OAuthClient
	err := r.pool.QueryRow(ctx, `
		SELECT client_id, client_secret_hash, client_name, redirect_uris, grant_types,
		       token_endpoint_auth_method, created_at
		FROM oauth_clients WHERE client_id = $1`, clientID,
	).Scan(&c.ClientID, &c.ClientSecretHash, &c.ClientName, pq.Array(&c.RedirectURIs),
		pq.Array(&c.GrantTypes), &c.TokenEndpointAuthMethod, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository.OAuth.GetClient: %w", err)
	}
	return &c, nil
}

func (r *OAuthRepo) CreateAuthorizationCode(ctx context.Context, c model.AuthorizationCode) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO oauth_codes
			(code_hash, client_id, redirect_uri, scope, code_challenge,
			 code_challenge_method, user_id, used, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8, $9)`,
		c.CodeHash, c.ClientID, c.RedirectURI, c.Scope, c.CodeChallenge,
		c.CodeChallengeMethod, c.UserID, c.ExpiresAt.UTC(), c.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("repository.OAuth.CreateAuthorizationCode: %w", err)
	}
	return nil
}

// ConsumeAuthorizationCode atomically marks a code used and returns
// its row, failing if it was already used — enforcing single-use
// without a read-then-write race.
func (r *OAuthRepo) ConsumeAuthorizationCode(ctx context.Context, codeHash string) (*model.AuthorizationCode, error) {
	var c model.AuthorizationCode
	err := r.pool.QueryRow(ctx, `
		UPDATE oauth_codes SET used = true
		WHERE code_hash = $1 AND used = false
		RETURNING code_hash, client_id, redirect_uri, scope, code_challenge,
		          code_challenge_method, user_id, expires_at, created_at`,
		codeHash,
	).Scan(&c.CodeHash, &c.ClientID, &c.RedirectURI, &c.Scope, &c.CodeChallenge,
		&c.CodeChallengeMethod, &c.UserID, &c.ExpiresAt, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository.OAuth.ConsumeAuthorizationCode: %w", err)
	}
	c.Used = true
	return &c, nil
}

func (r *OAuthRepo) CreateAccessToken(ctx context.Context, t model.AccessToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO oauth_access_tokens (token_hash, client_id, user_id, scope, revoked, expires_at, created_at)
		VALUES ($1, $2, $3, $4, false, $5, $6)`,
		t.TokenHash, t.ClientID, t.UserID, t.Scope, t.ExpiresAt.UTC(), t.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("repository.OAuth.CreateAccessToken: %w", err)
	}
	return nil
}

func (r *OAuthRepo) GetAccessToken(ctx context.Context, tokenHash string) (*model.AccessToken, error) {
	var t model.AccessToken
	err := r.pool.QueryRow(ctx, `
		SELECT token_hash, client_id, user_id, scope, revoked, expires_at, created_at
		FROM oauth_access_tokens WHERE token_hash = $1`, tokenHash,
	).Scan(&t.TokenHash, &t.ClientID, &t.UserID, &t.Scope, &t.Revoked, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository.OAuth.GetAccessToken: %w", err)
	}
	return &t, nil
}

func (r *OAuthRepo) RevokeAccessToken(ctx context.Context, tokenHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE oauth_access_tokens SET revoked = true WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("repository.OAuth.RevokeAccessToken: %w", err)
	}
	return nil
}

func (r *OAuthRepo) CreateRefreshToken(ctx context.Context, t model.RefreshToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO oauth_refresh_tokens (token_hash, client_id, user_id, scope, revoked, expires_at, created_at)
		VALUES ($1, $2, $3, $4, false, $5, $6)`,
		t.TokenHash, t.ClientID, t.UserID, t.Scope, t.ExpiresAt.UTC(), t.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("repository.OAuth.CreateRefreshToken: %w", err)
	}
	return nil
}

// GetRefreshToken looks up a refresh token by its hash. The caller is
// responsible for rejecting it if Revoked or past ExpiresAt (expired
// refresh tokens are rejected outright rather than silently refused by
// a WHERE clause; see DESIGN.md), so this method does not filter on
// expiry itself.
func (r *OAuthRepo) GetRefreshToken(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.pool.QueryRow(ctx, `
		SELECT token_hash, client_id, user_id, scope, revoked, expires_at, created_at
		FROM oauth_refresh_tokens WHERE token_hash = $1`, tokenHash,
	).Scan(&t.TokenHash, &t.ClientID, &t.UserID, &t.Scope, &t.Revoked, &t.ExpiresAt, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository.OAuth.GetRefreshToken: %w", err)
	}
	return &t, nil
}

func (r *OAuthRepo) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE oauth_refresh_tokens SET revoked = true WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("repository.OAuth.RevokeRefreshToken: %w", err)
	}
	return nil
}

// CleanupExpiredTokens deletes access/refresh tokens and authorization
// codes past their expiry, run periodically by a maintenance job
// rather than the request path.
func (r *OAuthRepo) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	var total int64

	for _, q := range []string{
		`DELETE FROM oauth_access_tokens WHERE expires_at < $1`,
		`DELETE FROM oauth_refresh_tokens WHERE expires_at < $1`,
		`DELETE FROM oauth_codes WHERE expires_at < $1`,
	} {
		tag, err := r.pool.Exec(ctx, q, now)
		if err != nil {
			return total, fmt.Errorf("repository.OAuth.CleanupExpiredTokens: %w", err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}
