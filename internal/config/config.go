// Package config loads the gateway's configuration from environment
// variables into a single immutable struct — typed env lookups with
// defaults and a handful of required keys, no config library.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. Immutable after Load().
type Config struct {
	Port        int
	Environment string

	DatabaseURL      string
	DatabaseMaxConns int

	RedisURL string

	QdrantHost       string
	QdrantPort       int
	QdrantUseTLS     bool
	QdrantCollection string

	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	PubSubProjectID     string
	ClassificationTopic string

	CORSOrigins []string

	RateLimitAnonymousRPM     int
	RateLimitAuthenticatedRPM int
	RateLimitMutationRPM      int

	BodySizeLimitBytes int64

	MinScoreDefault float64

	OAuthAuthCodeTTL     time.Duration
	OAuthAccessTokenTTL  time.Duration
	OAuthRefreshTokenTTL time.Duration

	IPFSGatewayURL   string
	IPFSFetchTimeout time.Duration

	MCPSessionTTL time.Duration

	Version string
}

// Load reads configuration from environment variables. DATABASE_URL is
// required, and NEO4J_PASSWORD is required whenever ENVIRONMENT is not
// "development"; everything else has a sensible default.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("config.Load: DATABASE_URL is required")
	}

	cfg := &Config{
		Port:                      envInt("PORT", 8080),
		Environment:               envStr("ENVIRONMENT", "development"),
		DatabaseURL:               dbURL,
		DatabaseMaxConns:          envInt("DATABASE_MAX_CONNS", 25),
		RedisURL:                  envStr("REDIS_URL", "redis://localhost:6379/0"),
		QdrantHost:                envStr("QDRANT_HOST", "localhost"),
		QdrantPort:                envInt("QDRANT_PORT", 6334),
		QdrantUseTLS:              envBool("QDRANT_USE_TLS", false),
		QdrantCollection:          envStr("QDRANT_COLLECTION", "agents"),
		Neo4jURI:                  envStr("NEO4J_URI", "neo4j://localhost:7687"),
		Neo4jUser:                 envStr("NEO4J_USER", "neo4j"),
		Neo4jPassword:             envStr("NEO4J_PASSWORD", ""),
		PubSubProjectID:           envStr("GOOGLE_CLOUD_PROJECT", ""),
		ClassificationTopic:       envStr("CLASSIFICATION_TOPIC", "agent-classification-jobs"),
		CORSOrigins:               envList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		RateLimitAnonymousRPM:     envInt("RATE_LIMIT_ANONYMOUS_RPM", 60),
		RateLimitAuthenticatedRPM: envInt("RATE_LIMIT_AUTHENTICATED_RPM", 300),
		RateLimitMutationRPM:      envInt("RATE_LIMIT_MUTATION_RPM", 10),
		BodySizeLimitBytes:        int64(envInt("BODY_SIZE_LIMIT_BYTES", 100*1024)),
		MinScoreDefault:           envFloat("MIN_SCORE_DEFAULT", 0.3),
		OAuthAuthCodeTTL:          envDuration("OAUTH_AUTH_CODE_TTL", 600*time.Second),
		OAuthAccessTokenTTL:       envDuration("OAUTH_ACCESS_TOKEN_TTL", 3600*time.Second),
		OAuthRefreshTokenTTL:      envDuration("OAUTH_REFRESH_TOKEN_TTL", 30*24*time.Hour),
		IPFSGatewayURL:            envStr("IPFS_GATEWAY_URL", "https://ipfs.io/ipfs/"),
		IPFSFetchTimeout:          envDuration("IPFS_FETCH_TIMEOUT", 3*time.Second),
		MCPSessionTTL:             envDuration("MCP_SESSION_TTL", time.Hour),
		Version:                   envStr("VERSION", "0.1.0"),
	}

	if cfg.Environment != "development" && cfg.Neo4jPassword == "" {
		return nil, fmt.Errorf("config.Load: NEO4J_PASSWORD is required in %s environment", cfg.Environment)
	}

	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
