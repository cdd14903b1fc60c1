// Package cache provides Redis-backed response caching for the
// gateway's read paths, keyed by resource type and a stable hash of
// normalized request parameters.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL classes per resource type.
const (
	TTLAgentsList     = 300 * time.Second
	TTLAgentDetail    = 300 * time.Second
	TTLClassification = 86400 * time.Second
	TTLChainStats     = 900 * time.Second
	TTLTaxonomy       = 3600 * time.Second
	TTLSearch         = 300 * time.Second
	TTLIPFSMetadata   = 3600 * time.Second
	TTLPaginationSet  = 300 * time.Second
)

// Namespace scopes keys by resource type, e.g. "agents:list", "search".
type Namespace string

const (
	NamespaceAgentsList     Namespace = "agents:list"
	NamespaceAgentDetail    Namespace = "agents:detail"
	NamespaceClassification Namespace = "classification"
	NamespaceChainStats     Namespace = "chain-stats"
	NamespaceTaxonomy       Namespace = "taxonomy"
	NamespaceSearch         Namespace = "search"
	NamespaceIPFSMetadata   Namespace = "ipfs-metadata"
	NamespacePagination     Namespace = "pagination"
)

// Cache wraps a Redis client with namespaced, JSON-marshaled get/set.
type Cache struct {
	client *redis.Client
}

// New wraps an existing Redis client.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// NewClient builds a go-redis client from a connection URL, e.g.
// "redis://localhost:6379/0".
func NewClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache.NewClient: parse url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Key builds a deterministic "namespace:StableHash(params)" key.
// StableHash sorts params by key before hashing so callers do not
// need to pre-sort their own maps for a stable key.
func Key(ns Namespace, params map[string]any) string {
	return fmt.Sprintf("%s:%s", ns, StableHash(params))
}

// StableHash returns a deterministic hex digest of params, independent
// of map iteration order or key insertion order.
func StableHash(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v;", k, params[k])
	}

	h := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%x", h[:16])
}

// Get unmarshals the cached value for key into dest. It reports a miss
// (false, nil) both when the key is absent and when Redis itself is
// unreachable — a cache outage degrades to a cache miss, never a
// request failure.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		slog.Warn("cache: get degraded", "key", key, "error", err)
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("cache.Get: unmarshal %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key with the given TTL. Failures are logged,
// not propagated — caching is an optimization, never a correctness
// dependency.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		slog.Warn("cache: set marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		slog.Warn("cache: set degraded", "key", key, "error", err)
	}
}

// Invalidate deletes one or more keys outright, used when a write
// (e.g. a new classification) makes a cached response stale.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("cache: invalidate degraded", "keys", keys, "error", err)
	}
}

// InvalidateNamespace deletes every key under a namespace prefix, used
// when an agent's record changes in a way that could affect any
// listing (e.g. reputation recalculation).
func (c *Cache) InvalidateNamespace(ctx context.Context, ns Namespace) {
	pattern := string(ns) + ":*"
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		slog.Warn("cache: invalidate namespace scan degraded", "namespace", ns, "error", err)
		return
	}
	c.Invalidate(ctx, keys...)
}
