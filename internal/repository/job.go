package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erc8004/agent-gateway/internal/model"
)

// ClassificationJobRepo persists the classification queue's job
// bookkeeping row — at most one active (pending/processing) job per
// agent, enforced by a partial unique index in the migration.
type ClassificationJobRepo struct {
	pool *pgxpool.Pool
}

func NewClassificationJobRepo(pool *pgxpool.Pool) *ClassificationJobRepo {
	return &ClassificationJobRepo{pool: pool}
}

// HasActiveJob reports whether agentID already has a pending or
// processing job, used to avoid re-enqueuing duplicates.
func (r *ClassificationJobRepo) HasActiveJob(ctx context.Context, agentID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM classification_jobs WHERE agent_id = $1 AND status IN ('pending','processing'))`,
		agentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repository.ClassificationJob.HasActiveJob: %w", err)
	}
	return exists, nil
}

// Create inserts a new pending job and returns its id.
func (r *ClassificationJobRepo) Create(ctx context.Context, agentID string) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO classification_jobs (id, agent_id, status, attempts, created_at)
		VALUES ($1, $2, $3, 0, $4)`,
		id, agentID, model.JobPending, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("repository.ClassificationJob.Create: %w", err)
	}
	return id, nil
}

func (r *ClassificationJobRepo) MarkProcessing(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE classification_jobs SET status = $1, attempts = attempts + 1 WHERE id = $2`,
		model.JobProcessing, id)
	if err != nil {
		return fmt.Errorf("repository.ClassificationJob.MarkProcessing: %w", err)
	}
	return nil
}

func (r *ClassificationJobRepo) MarkCompleted(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE classification_jobs SET status = $1, processed_at = $2 WHERE id = $3`,
		model.JobCompleted, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("repository.ClassificationJob.MarkCompleted: %w", err)
	}
	return nil
}

func (r *ClassificationJobRepo) MarkFailed(ctx context.Context, id string, cause error) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE classification_jobs SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		model.JobFailed, cause.Error(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("repository.ClassificationJob.MarkFailed: %w", err)
	}
	return nil
}

func (r *ClassificationJobRepo) Get(ctx context.Context, id string) (*model.ClassificationJob, error) {
	var j model.ClassificationJob
	var status string
	err := r.pool.QueryRow(ctx, `
		SELECT id, agent_id, status, attempts, COALESCE(error, ''), created_at, processed_at
		FROM classification_jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.AgentID, &status, &j.Attempts, &j.Error, &j.CreatedAt, &j.ProcessedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository.ClassificationJob.Get: %w", err)
	}
	j.Status = model.JobStatus(status)
	return &j, nil
}
