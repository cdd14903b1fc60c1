package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/erc8004/agent-gateway/internal/cache"
	"github.com/erc8004/agent-gateway/internal/chainsdk"
	"github.com/erc8004/agent-gateway/internal/circuitbreaker"
	"github.com/erc8004/agent-gateway/internal/classify"
	"github.com/erc8004/agent-gateway/internal/config"
	"github.com/erc8004/agent-gateway/internal/enrichment"
	"github.com/erc8004/agent-gateway/internal/events"
	"github.com/erc8004/agent-gateway/internal/handler"
	"github.com/erc8004/agent-gateway/internal/ipfsgw"
	"github.com/erc8004/agent-gateway/internal/mcp"
	"github.com/erc8004/agent-gateway/internal/middleware"
	"github.com/erc8004/agent-gateway/internal/oauth"
	"github.com/erc8004/agent-gateway/internal/queue"
	"github.com/erc8004/agent-gateway/internal/ratelimit"
	"github.com/erc8004/agent-gateway/internal/repository"
	"github.com/erc8004/agent-gateway/internal/reputation"
	"github.com/erc8004/agent-gateway/internal/router"
	"github.com/erc8004/agent-gateway/internal/search"
	"github.com/erc8004/agent-gateway/internal/vectorindex"
)

// Version is reported by the health endpoint and in the startup log.
const Version = "0.1.0"

// app holds every long-lived collaborator that needs an explicit
// shutdown step, so run() has one place to tear things down, in
// wiring order: the Postgres pool, then Redis, then the publisher.
type app struct {
	handler  http.Handler
	tokenSvc *oauth.Service

	pool        *pgxpool.Pool
	redisClient *redis.Client
	publisher   queue.Publisher
}

func build(ctx context.Context, cfg *config.Config) (*app, error) {
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	feedbackRepo := repository.NewFeedbackRepo(pool)
	reputationRepo := repository.NewReputationRepo(pool)
	classificationRepo := repository.NewClassificationRepo(pool)
	oauthRepo := repository.NewOAuthRepo(pool)
	trustScoreRepo := repository.NewTrustScoreRepo(pool)

	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	kv := cache.New(redisClient)

	reg := prometheus.NewRegistry()
	cbMetrics := circuitbreaker.NewMetrics(reg)
	indexBreaker := circuitbreaker.New("qdrant", circuitbreaker.Config{}, cbMetrics)
	chainBreaker := circuitbreaker.New("chain-sdk", circuitbreaker.Config{}, cbMetrics)

	index, err := vectorindex.NewQdrantIndex(vectorindex.Config{
		Host:   cfg.QdrantHost,
		Port:   cfg.QdrantPort,
		UseTLS: cfg.QdrantUseTLS,
	}, indexBreaker)
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}

	registry := chainsdk.NewStubRegistry()

	var publisher queue.Publisher = queue.NoopPublisher{}
	if cfg.PubSubProjectID != "" {
		pub, err := queue.NewPubSubPublisher(ctx, cfg.PubSubProjectID, cfg.ClassificationTopic)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		publisher = pub
	}

	repService := reputation.New(feedbackRepo, reputationRepo)

	searchEngine := &search.Engine{
		Index:           index,
		Registry:        registry,
		Embedder:        classify.NewStubEmbedder(),
		Reputation:      repService,
		Classification:  classificationRepo,
		IndexBreaker:    indexBreaker,
		ChainBreaker:    chainBreaker,
		DefaultMinScore: cfg.MinScoreDefault,
	}

	enrichmentSvc := &enrichment.Service{
		Registry:       registry,
		IPFS:           ipfsgw.New(cfg.IPFSGatewayURL, cfg.IPFSFetchTimeout),
		Classification: classificationRepo,
		Reputation:     reputationRepo,
		Publisher:      publisher,
		ChainBreaker:   chainBreaker,
	}

	sessions := mcp.NewSessionStore(kv)
	mcpSvc := mcp.New(searchEngine, enrichmentSvc, registry, sessions)

	oauthSvc := oauth.New(oauthRepo, oauthRepo, oauthRepo)
	oauthSvc.AuthCodeTTL = cfg.OAuthAuthCodeTTL
	oauthSvc.AccessTokenTTL = cfg.OAuthAccessTokenTTL
	oauthSvc.RefreshTokenTTL = cfg.OAuthRefreshTokenTTL

	limiters := middleware.NewTieredLimiters(ratelimit.NewRedisStore(redisClient, "ratelimit"))
	rateLimitMW := middleware.RateLimit(limiters, "True-Client-IP")

	metrics := middleware.NewMetrics(reg)

	agentsHandler := &handler.AgentsHandler{
		Engine:     searchEngine,
		Enrichment: enrichmentSvc,
		Rep:        repService,
	}
	chainsHandler := &handler.ChainsHandler{Chains: registry}
	trustHandler := &handler.TrustHandler{Scores: trustScoreRepo}
	healthHandler := &handler.HealthHandler{
		Version: Version,
		Deps: map[string]handler.Pinger{
			"postgres": pingerFunc(pool.Ping),
			"redis":    pingerFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		},
	}
	eventBus := events.New()

	r := router.New(&router.Dependencies{
		Version:        Version,
		AllowedOrigins: cfg.CORSOrigins,
		Agents:         agentsHandler,
		Chains:         chainsHandler,
		Health:         healthHandler,
		Trust:          trustHandler,
		Events:         eventBus,
		MCP:            mcpSvc,
		OAuth:          oauthSvc,
		Auth:           oauthSvc,
		RateLimit:      rateLimitMW,
		Metrics:        metrics,
		MetricsReg:     reg,
		OAuthIssuer:    fmt.Sprintf("http://localhost:%d", cfg.Port),
	})

	return &app{
		handler:     r,
		tokenSvc:    oauthSvc,
		pool:        pool,
		redisClient: redisClient,
		publisher:   publisher,
	}, nil
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// cleanupTokensLoop periodically sweeps expired OAuth grants so the
// tokens table doesn't grow without bound.
func cleanupTokensLoop(ctx context.Context, svc *oauth.Service) {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.CleanupExpiredTokens(ctx)
			if err != nil {
				log.Printf("token cleanup: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("token cleanup: removed %d expired grant(s)", n)
			}
		}
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	go cleanupTokensLoop(ctx, a.tokenSvc)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      a.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("agent-gateway v%s starting on port %d", Version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("received signal %s, shutting down gracefully", sig)
	case err := <-errCh:
		cancel()
		return fmt.Errorf("server error: %w", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	a.pool.Close()
	a.redisClient.Close()
	if err := a.publisher.Close(); err != nil {
		log.Printf("close queue publisher: %v", err)
	}

	log.Println("server stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
