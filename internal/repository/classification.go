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

// ErrNotFound is returned when a lookup by primary key finds no row.
var ErrNotFound = errors.New("repository: not found")

// ClassificationRepo persists per-agent OASF classification records.
type ClassificationRepo struct {
	pool *pgxpool.Pool
}

func NewClassificationRepo(pool *pgxpool.Pool) *ClassificationRepo {
	return &ClassificationRepo{pool: pool}
}

// Upsert writes the classification, replacing any existing record for
// the agent. Confidence is trusted as already computed by the caller
// (model.MeanConfidence) — the repository does not recompute it.
func (r *ClassificationRepo) Upsert(ctx context.Context, c model.Classification) error {
	skillSlugs, skillConf, skillReason := flattenItems(c.Skills)
	domainSlugs, domainConf, domainReason := flattenItems(c.Domains)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO classifications
			(agent_id, skill_slugs, skill_confidences, skill_reasonings,
			 domain_slugs, domain_confidences, domain_reasonings,
			 confidence, model_version, classified_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (agent_id) DO UPDATE SET
			skill_slugs = EXCLUDED.skill_slugs,
			skill_confidences = EXCLUDED.skill_confidences,
			skill_reasonings = EXCLUDED.skill_reasonings,
			domain_slugs = EXCLUDED.domain_slugs,
			domain_confidences = EXCLUDED.domain_confidences,
			domain_reasonings = EXCLUDED.domain_reasonings,
			confidence = EXCLUDED.confidence,
			model_version = EXCLUDED.model_version,
			updated_at = EXCLUDED.updated_at`,
		c.AgentID, pq.Array(skillSlugs), pq.Array(skillConf), pq.Array(skillReason),
		pq.Array(domainSlugs), pq.Array(domainConf), pq.Array(domainReason),
		c.Confidence, c.ModelVersion, c.ClassifiedAt.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("repository.Classification.Upsert: %w", err)
	}
	return nil
}

func (r *ClassificationRepo) GetByAgentID(ctx context.Context, agentID string) (*model.Classification, error) {
	var c model.Classification
	var skillSlugs, skillReason, domainSlugs, domainReason []string
	var skillConf, domainConf []float64

	err := r.pool.QueryRow(ctx, `
		SELECT agent_id, skill_slugs, skill_confidences, skill_reasonings,
		       domain_slugs, domain_confidences, domain_reasonings,
		       confidence, model_version, classified_at, updated_at
		FROM classifications WHERE agent_id = $1`, agentID,
	).Scan(&c.AgentID, pq.Array(&skillSlugs), pq.Array(&skillConf), pq.Array(&skillReason),
		pq.Array(&domainSlugs), pq.Array(&domainConf), pq.Array(&domainReason),
		&c.Confidence, &c.ModelVersion, &c.ClassifiedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository.Classification.GetByAgentID: %w", err)
	}

	c.Skills = unflattenItems(skillSlugs, skillConf, skillReason)
	c.Domains = unflattenItems(domainSlugs, domainConf, domainReason)
	return &c, nil
}

// ExistsForAgents returns the subset of ids that already have a
// classification record, used to cap the unclassified backlog at 10
// per listing.
func (r *ClassificationRepo) ExistsForAgents(ctx context.Context, agentIDs []string) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT agent_id FROM classifications WHERE agent_id = ANY($1)`, pq.Array(agentIDs))
	if err != nil {
		return nil, fmt.Errorf("repository.Classification.ExistsForAgents: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("repository.Classification.ExistsForAgents: scan: %w", err)
		}
		found[id] = true
	}
	return found, rows.Err()
}

func flattenItems(items []model.ClassificationItem) (slugs []string, confidences []float64, reasonings []string) {
	for _, it := range items {
		slugs = append(slugs, it.Slug)
		confidences = append(confidences, it.Confidence)
		reasonings = append(reasonings, it.Reasoning)
	}
	return
}

func unflattenItems(slugs []string, confidences []float64, reasonings []string) []model.ClassificationItem {
	items := make([]model.ClassificationItem, len(slugs))
	for i, slug := range slugs {
		var reasoning string
		if i < len(reasonings) {
			reasoning = reasonings[i]
		}
		var confidence float64
		if i < len(confidences) {
			confidence = confidences[i]
		}
		items[i] = model.ClassificationItem{Slug: slug, Confidence: confidence, Reasoning: reasoning}
	}
	return items
}
