// Package trustgraph maintains the wallet-to-agent feedback graph
// persisted in Neo4j, an in-process PageRank pass over it, and a
// single-writer rebuild state machine mirrored into Postgres.
package trustgraph

import (
	"context"
	"fmt"
	"time"

	"github.com/erc8004/agent-gateway/internal/model"
)

// FeedbackSource reads the raw feedback rows the edge build iterates.
type FeedbackSource interface {
	AllSubmitterScores(ctx context.Context) ([]model.TrustEdge, error)
}

// StateStore enforces the idle/computing/completed/failed state
// machine via a single compare-and-set UPDATE.
type StateStore interface {
	TryBeginComputing(ctx context.Context) (bool, error)
	Complete(ctx context.Context) error
	Fail(ctx context.Context) error
}

// ScoreMirror persists the PageRank results into Postgres for
// cheap reads on the hot request path.
type ScoreMirror interface {
	ReplaceAll(ctx context.Context, scores []model.TrustScore) error
}

// GraphStore abstracts the Neo4j-backed edge graph so Service can be
// tested without a live database. *EdgeStore implements this.
type GraphStore interface {
	UpsertEdge(ctx context.Context, edge model.TrustEdge) error
	AllEdges(ctx context.Context) ([]graphEdge, error)
}

// ErrAlreadyComputing is returned when a rebuild is already in flight;
// the caller should treat this as a no-op, not a failure.
var ErrAlreadyComputing = fmt.Errorf("trustgraph: rebuild already in progress")

// Service orchestrates the two-phase rebuild: edge build (mirrored
// into Neo4j as the feedback rows are iterated) then PageRank over the
// resulting graph.
type Service struct {
	Edges    GraphStore
	Feedback FeedbackSource
	State    StateStore
	Scores   ScoreMirror
	Now      func() time.Time
}

func New(edges GraphStore, feedback FeedbackSource, state StateStore, scores ScoreMirror) *Service {
	return &Service{Edges: edges, Feedback: feedback, State: state, Scores: scores, Now: time.Now}
}

// RebuildTrustGraph recomputes the trust graph end to end: mirror
// feedback into edges, run PageRank, and replace the persisted scores.
// It refuses to run concurrently with another rebuild (TryBeginComputing
// is a single compare-and-set UPDATE, not an in-process lock, so this
// holds across replicas) and always leaves the state machine in
// completed or failed, never stuck in computing.
func (s *Service) RebuildTrustGraph(ctx context.Context) error {
	began, err := s.State.TryBeginComputing(ctx)
	if err != nil {
		return fmt.Errorf("trustgraph.RebuildTrustGraph: begin: %w", err)
	}
	if !began {
		return ErrAlreadyComputing
	}

	if err := s.rebuild(ctx); err != nil {
		if failErr := s.State.Fail(ctx); failErr != nil {
			return fmt.Errorf("trustgraph.RebuildTrustGraph: %w (and failed to record failure: %v)", err, failErr)
		}
		return fmt.Errorf("trustgraph.RebuildTrustGraph: %w", err)
	}

	if err := s.State.Complete(ctx); err != nil {
		return fmt.Errorf("trustgraph.RebuildTrustGraph: complete: %w", err)
	}
	return nil
}

func (s *Service) rebuild(ctx context.Context) error {
	edges, err := s.Feedback.AllSubmitterScores(ctx)
	if err != nil {
		return fmt.Errorf("read feedback: %w", err)
	}
	for _, e := range edges {
		if err := s.Edges.UpsertEdge(ctx, e); err != nil {
			return fmt.Errorf("upsert edge: %w", err)
		}
	}

	graphEdges, err := s.Edges.AllEdges(ctx)
	if err != nil {
		return fmt.Errorf("read graph: %w", err)
	}

	results := runPageRank(graphEdges)
	if len(results) == 0 {
		return s.Scores.ReplaceAll(ctx, nil)
	}

	maxRaw := 0.0
	for _, r := range results {
		if r.RawPageRank > maxRaw {
			maxRaw = r.RawPageRank
		}
	}

	now := s.Now()
	scores := make([]model.TrustScore, len(results))
	for i, r := range results {
		scores[i] = model.TrustScore{
			AgentID:     r.AgentID,
			RawPageRank: r.RawPageRank,
			Score:       normalizedScore(r.RawPageRank, maxRaw),
			InDegree:    r.InDegree,
			Iteration:   r.Iterations,
			ComputedAt:  now,
		}
	}

	if err := s.Scores.ReplaceAll(ctx, scores); err != nil {
		return fmt.Errorf("replace scores: %w", err)
	}
	return nil
}
