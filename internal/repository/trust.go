package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erc8004/agent-gateway/internal/model"
)

// TrustScoreRepo mirrors Neo4j's computed PageRank results into
// Postgres for cheap reads on the hot request path — getTrustScore and
// getTopTrusted never need a graph round trip.
type TrustScoreRepo struct {
	pool *pgxpool.Pool
}

func NewTrustScoreRepo(pool *pgxpool.Pool) *TrustScoreRepo {
	return &TrustScoreRepo{pool: pool}
}

// ReplaceAll atomically swaps the mirror to a fresh rebuild's results.
func (r *TrustScoreRepo) ReplaceAll(ctx context.Context, scores []model.TrustScore) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository.TrustScore.ReplaceAll: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE trust_scores`); err != nil {
		return fmt.Errorf("repository.TrustScore.ReplaceAll: truncate: %w", err)
	}

	batch := &pgx.Batch{}
	for _, s := range scores {
		batch.Queue(`
			INSERT INTO trust_scores (agent_id, raw_pagerank, trust_score, in_degree, iteration, computed_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			s.AgentID, s.RawPageRank, s.Score, s.InDegree, s.Iteration, s.ComputedAt.UTC())
	}
	br := tx.SendBatch(ctx, batch)
	for range scores {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("repository.TrustScore.ReplaceAll: insert: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("repository.TrustScore.ReplaceAll: close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository.TrustScore.ReplaceAll: commit: %w", err)
	}
	return nil
}

func (r *TrustScoreRepo) GetByAgentID(ctx context.Context, agentID string) (*model.TrustScore, error) {
	var s model.TrustScore
	err := r.pool.QueryRow(ctx, `
		SELECT agent_id, raw_pagerank, trust_score, in_degree, iteration, computed_at
		FROM trust_scores WHERE agent_id = $1`, agentID,
	).Scan(&s.AgentID, &s.RawPageRank, &s.Score, &s.InDegree, &s.Iteration, &s.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository.TrustScore.GetByAgentID: %w", err)
	}
	return &s, nil
}

// TopTrusted returns the top-N agents by trust score, descending.
func (r *TrustScoreRepo) TopTrusted(ctx context.Context, limit int) ([]model.TrustScore, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT agent_id, raw_pagerank, trust_score, in_degree, iteration, computed_at
		FROM trust_scores ORDER BY trust_score DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("repository.TrustScore.TopTrusted: %w", err)
	}
	defer rows.Close()

	var out []model.TrustScore
	for rows.Next() {
		var s model.TrustScore
		if err := rows.Scan(&s.AgentID, &s.RawPageRank, &s.Score, &s.InDegree, &s.Iteration, &s.ComputedAt); err != nil {
			return nil, fmt.Errorf("repository.TrustScore.TopTrusted: scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TrustGraphStateRepo enforces the single-writer PageRank rebuild
// state machine via a compare-and-set UPDATE rather than an in-process
// lock — multiple gateway instances may attempt a rebuild concurrently.
type TrustGraphStateRepo struct {
	pool *pgxpool.Pool
}

func NewTrustGraphStateRepo(pool *pgxpool.Pool) *TrustGraphStateRepo {
	return &TrustGraphStateRepo{pool: pool}
}

// TryBeginComputing atomically transitions the singleton state row to
// "computing" unless it is already computing, returning false without
// error if another rebuild is in flight.
func (r *TrustGraphStateRepo) TryBeginComputing(ctx context.Context) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE trust_graph_state SET status = $1
		WHERE id = 1 AND status != $1`, model.TrustGraphComputing)
	if err != nil {
		return false, fmt.Errorf("repository.TrustGraphState.TryBeginComputing: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *TrustGraphStateRepo) Complete(ctx context.Context) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE trust_graph_state SET status = $1 WHERE id = 1`, model.TrustGraphCompleted)
	if err != nil {
		return fmt.Errorf("repository.TrustGraphState.Complete: %w", err)
	}
	return nil
}

func (r *TrustGraphStateRepo) Fail(ctx context.Context) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE trust_graph_state SET status = $1 WHERE id = 1`, model.TrustGraphFailed)
	if err != nil {
		return fmt.Errorf("repository.TrustGraphState.Fail: %w", err)
	}
	return nil
}

func (r *TrustGraphStateRepo) Status(ctx context.Context) (model.TrustGraphStatus, error) {
	var status string
	err := r.pool.QueryRow(ctx, `SELECT status FROM trust_graph_state WHERE id = 1`).Scan(&status)
	if err != nil {
		return "", fmt.Errorf("repository.TrustGraphState.Status: %w", err)
	}
	return model.TrustGraphStatus(status), nil
}
