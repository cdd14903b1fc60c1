package trustgraph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/erc8004/agent-gateway/internal/model"
)

// EdgeStore persists `(:Wallet)-[:FED_BACK]->(:Agent)` edges and
// reports the graph shape PageRank needs: every edge plus each
// wallet's out-degree.
type EdgeStore struct {
	driver neo4j.DriverWithContext
}

// NewEdgeStore dials uri with basic auth. The driver itself pools
// connections; callers should keep one EdgeStore for the process
// lifetime and Close it on shutdown.
func NewEdgeStore(uri, username, password string) (*EdgeStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("trustgraph: dial neo4j: %w", err)
	}
	return &EdgeStore{driver: driver}, nil
}

func (s *EdgeStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// UpsertEdge writes or updates a (wallet -> agent) edge, keeping the
// max weight across any prior write for the same pair ("max-merge on
// (from, to)").
func (s *EdgeStore) UpsertEdge(ctx context.Context, edge model.TrustEdge) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `
			MERGE (w:Wallet {address: $from})
			MERGE (a:Agent {id: $to})
			MERGE (w)-[e:FED_BACK]->(a)
			ON CREATE SET e.weight = $weight, e.feedbackId = $feedbackId
			ON MATCH SET e.weight = CASE WHEN $weight > e.weight THEN $weight ELSE e.weight END,
			             e.feedbackId = CASE WHEN $weight > e.weight THEN $feedbackId ELSE e.feedbackId END`,
			map[string]any{
				"from":       edge.FromWallet,
				"to":         edge.ToAgentID,
				"weight":     edge.Weight,
				"feedbackId": edge.FeedbackID,
			})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("trustgraph: upsert edge %s->%s: %w", edge.FromWallet, edge.ToAgentID, err)
	}
	return nil
}

// graphEdge is one edge as read back for the PageRank pass.
type graphEdge struct {
	FromWallet string
	ToAgentID  string
	Weight     float64
}

// AllEdges returns every FED_BACK edge currently in the graph.
func (s *EdgeStore) AllEdges(ctx context.Context) ([]graphEdge, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, `
			MATCH (w:Wallet)-[e:FED_BACK]->(a:Agent)
			RETURN w.address AS wallet, a.id AS agent, e.weight AS weight`, nil)
		if err != nil {
			return nil, err
		}

		var edges []graphEdge
		for records.Next(ctx) {
			rec := records.Record()
			wallet, _ := rec.Get("wallet")
			agent, _ := rec.Get("agent")
			weight, _ := rec.Get("weight")
			edges = append(edges, graphEdge{
				FromWallet: wallet.(string),
				ToAgentID:  agent.(string),
				Weight:     weight.(float64),
			})
		}
		return edges, records.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("trustgraph: read edges: %w", err)
	}
	return result.([]graphEdge), nil
}
