package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/erc8004/agent-gateway/internal/model"
)

// FeedbackRepo persists append-only feedback submissions.
type FeedbackRepo struct {
	pool *pgxpool.Pool
}

func NewFeedbackRepo(pool *pgxpool.Pool) *FeedbackRepo {
	return &FeedbackRepo{pool: pool}
}

// ExistsByEASUID reports whether an EAS attestation has already been
// ingested, so on-chain attestation sync does not double-count a
// feedback row it has already mirrored.
func (r *FeedbackRepo) ExistsByEASUID(ctx context.Context, easUID string) (bool, error) {
	if easUID == "" {
		return false, nil
	}
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM feedback WHERE eas_uid = $1)`, easUID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repository.Feedback.ExistsByEASUID: %w", err)
	}
	return exists, nil
}

// Insert appends a feedback row and returns its generated id.
func (r *FeedbackRepo) Insert(ctx context.Context, f model.Feedback) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO feedback
			(id, agent_id, chain_id, score, tags, context, feedback_uri, submitter, eas_uid, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10)`,
		id, f.AgentID, f.ChainID, f.Score, pq.Array(f.Tags), f.Context, f.FeedbackURI,
		f.Submitter, f.EASUID, f.SubmittedAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("repository.Feedback.Insert: %w", err)
	}
	return id, nil
}

// ListByAgent returns every feedback row for an agent, most recent first.
func (r *FeedbackRepo) ListByAgent(ctx context.Context, agentID string, limit, offset int) ([]model.Feedback, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, agent_id, chain_id, score, tags, COALESCE(context, ''),
		       COALESCE(feedback_uri, ''), submitter, COALESCE(eas_uid, ''), submitted_at
		FROM feedback WHERE agent_id = $1
		ORDER BY submitted_at DESC LIMIT $2 OFFSET $3`, agentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("repository.Feedback.ListByAgent: %w", err)
	}
	defer rows.Close()

	var out []model.Feedback
	for rows.Next() {
		var f model.Feedback
		if err := rows.Scan(&f.ID, &f.AgentID, &f.ChainID, &f.Score, pq.Array(&f.Tags),
			&f.Context, &f.FeedbackURI, &f.Submitter, &f.EASUID, &f.SubmittedAt); err != nil {
			return nil, fmt.Errorf("repository.Feedback.ListByAgent: scan: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ScoresForAgent returns every raw 0-100 score for an agent, the input
// to recalculateReputation.
func (r *FeedbackRepo) ScoresForAgent(ctx context.Context, agentID string) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT score FROM feedback WHERE agent_id = $1`, agentID)
	if err != nil {
		return nil, fmt.Errorf("repository.Feedback.ScoresForAgent: %w", err)
	}
	defer rows.Close()

	var scores []int
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("repository.Feedback.ScoresForAgent: scan: %w", err)
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// AllSubmitterScores returns every feedback row as a trust-graph edge,
// implementing trustgraph.FeedbackSource. Feedback scores are stored
// on the 0-100 scale; since that scale is itself NormalizeFiveScale's
// linear image of the 1-5 attestation scale, the five-point equivalent
// is recovered as score/25+1 before applying model.TrustEdgeWeight.
func (r *FeedbackRepo) AllSubmitterScores(ctx context.Context) ([]model.TrustEdge, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, agent_id, submitter, score FROM feedback`)
	if err != nil {
		return nil, fmt.Errorf("repository.Feedback.AllSubmitterScores: %w", err)
	}
	defer rows.Close()

	var out []model.TrustEdge
	for rows.Next() {
		var id, agentID, submitter string
		var score int
		if err := rows.Scan(&id, &agentID, &submitter, &score); err != nil {
			return nil, fmt.Errorf("repository.Feedback.AllSubmitterScores: scan: %w", err)
		}
		fivePoint := score/25 + 1
		out = append(out, model.TrustEdge{
			FromWallet: submitter,
			ToAgentID:  agentID,
			Weight:     model.TrustEdgeWeight(fivePoint),
			FeedbackID: id,
		})
	}
	return out, rows.Err()
}

// ReputationRepo persists the one-row-per-agent aggregate.
type ReputationRepo struct {
	pool *pgxpool.Pool
}

func NewReputationRepo(pool *pgxpool.Pool) *ReputationRepo {
	return &ReputationRepo{pool: pool}
}

func (r *ReputationRepo) Upsert(ctx context.Context, rep model.Reputation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reputations
			(agent_id, feedback_count, average_score, low_count, medium_count, high_count, last_calculated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (agent_id) DO UPDATE SET
			feedback_count = EXCLUDED.feedback_count,
			average_score = EXCLUDED.average_score,
			low_count = EXCLUDED.low_count,
			medium_count = EXCLUDED.medium_count,
			high_count = EXCLUDED.high_count,
			last_calculated_at = EXCLUDED.last_calculated_at`,
		rep.AgentID, rep.FeedbackCount, rep.AverageScore, rep.LowCount, rep.MediumCount,
		rep.HighCount, rep.LastCalculatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("repository.Reputation.Upsert: %w", err)
	}
	return nil
}

func (r *ReputationRepo) GetByAgentID(ctx context.Context, agentID string) (*model.Reputation, error) {
	var rep model.Reputation
	err := r.pool.QueryRow(ctx, `
		SELECT agent_id, feedback_count, average_score, low_count, medium_count, high_count, last_calculated_at
		FROM reputations WHERE agent_id = $1`, agentID,
	).Scan(&rep.AgentID, &rep.FeedbackCount, &rep.AverageScore, &rep.LowCount,
		&rep.MediumCount, &rep.HighCount, &rep.LastCalculatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository.Reputation.GetByAgentID: %w", err)
	}
	return &rep, nil
}
