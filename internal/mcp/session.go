package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/erc8004/agent-gateway/internal/model"
)

// sessionKeyPrefix namespaces MCP session records in the shared cache.
const sessionKeyPrefix = "mcp:session:"

// KV is the slice of *cache.Cache this package actually calls, kept
// small so session tests don't need a live Redis connection.
type KV interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	Invalidate(ctx context.Context, keys ...string)
}

// SessionStore persists MCP session records with a sliding TTL: every
// Save resets the 1-hour window, so an active conversation never
// expires mid-stream.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*model.MCPSession, bool, error)
	Save(ctx context.Context, session *model.MCPSession) error
	Delete(ctx context.Context, sessionID string)
}

// CacheSessionStore backs SessionStore with the gateway's shared cache,
// the same store enrichment and search results ride on.
type CacheSessionStore struct {
	kv KV
}

// NewSessionStore wraps a cache-backed KV as a SessionStore.
func NewSessionStore(kv KV) *CacheSessionStore {
	return &CacheSessionStore{kv: kv}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// NewSessionID mints a fresh session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

func (s *CacheSessionStore) Get(ctx context.Context, sessionID string) (*model.MCPSession, bool, error) {
	var session model.MCPSession
	found, err := s.kv.Get(ctx, sessionKey(sessionID), &session)
	if err != nil || !found {
		return nil, found, err
	}
	return &session, true, nil
}

func (s *CacheSessionStore) Save(ctx context.Context, session *model.MCPSession) error {
	s.kv.Set(ctx, sessionKey(session.SessionID), session, model.MCPSessionTTL)
	return nil
}

func (s *CacheSessionStore) Delete(ctx context.Context, sessionID string) {
	s.kv.Invalidate(ctx, sessionKey(sessionID))
}
