// Command trustgraph-rebuild runs one pass of the trust graph rebuild
// (mirror feedback into Neo4j edges, run PageRank, replace the
// Postgres score mirror) and exits. It is meant to be invoked by a
// scheduler, not run as a long-lived process.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/erc8004/agent-gateway/internal/config"
	"github.com/erc8004/agent-gateway/internal/repository"
	"github.com/erc8004/agent-gateway/internal/trustgraph"
)

func run() error {
	timeout := flag.Duration("timeout", 5*time.Minute, "maximum time to allow the rebuild to run")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Neo4jPassword == "" {
		return fmt.Errorf("NEO4J_PASSWORD is required to rebuild the trust graph")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	edges, err := trustgraph.NewEdgeStore(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	if err != nil {
		return fmt.Errorf("connect neo4j: %w", err)
	}
	defer func() {
		if err := edges.Close(context.Background()); err != nil {
			log.Printf("close neo4j: %v", err)
		}
	}()

	svc := trustgraph.New(
		edges,
		repository.NewFeedbackRepo(pool),
		repository.NewTrustGraphStateRepo(pool),
		repository.NewTrustScoreRepo(pool),
	)

	start := time.Now()
	if err := svc.RebuildTrustGraph(ctx); err != nil {
		if errors.Is(err, trustgraph.ErrAlreadyComputing) {
			log.Println("rebuild already in progress, nothing to do")
			return nil
		}
		return fmt.Errorf("rebuild trust graph: %w", err)
	}

	log.Printf("trust graph rebuilt in %s", time.Since(start))
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
