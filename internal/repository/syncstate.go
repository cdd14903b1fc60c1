package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erc8004/agent-gateway/internal/model"
)

// SyncStateRepo tracks the relational mirror's last-synced block per
// chain, the cursor consumers poll against.
type SyncStateRepo struct {
	pool *pgxpool.Pool
}

func NewSyncStateRepo(pool *pgxpool.Pool) *SyncStateRepo {
	return &SyncStateRepo{pool: pool}
}

func (r *SyncStateRepo) GetByChainID(ctx context.Context, chainID int64) (*model.SyncState, error) {
	var s model.SyncState
	err := r.pool.QueryRow(ctx,
		`SELECT chain_id, last_synced_block, last_synced_at FROM sync_state WHERE chain_id = $1`,
		chainID,
	).Scan(&s.ChainID, &s.LastSyncedBlock, &s.LastSyncedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repository.SyncState.GetByChainID: %w", err)
	}
	return &s, nil
}

func (r *SyncStateRepo) Upsert(ctx context.Context, chainID int64, lastSyncedBlock uint64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sync_state (chain_id, last_synced_block, last_synced_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (chain_id) DO UPDATE SET
			last_synced_block = EXCLUDED.last_synced_block,
			last_synced_at = EXCLUDED.last_synced_at`,
		chainID, lastSyncedBlock, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("repository.SyncState.Upsert: %w", err)
	}
	return nil
}

func (r *SyncStateRepo) ListAll(ctx context.Context) ([]model.SyncState, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT chain_id, last_synced_block, last_synced_at FROM sync_state ORDER BY chain_id`)
	if err != nil {
		return nil, fmt.Errorf("repository.SyncState.ListAll: %w", err)
	}
	defer rows.Close()

	var out []model.SyncState
	for rows.Next() {
		var s model.SyncState
		if err := rows.Scan(&s.ChainID, &s.LastSyncedBlock, &s.LastSyncedAt); err != nil {
			return nil, fmt.Errorf("repository.SyncState.ListAll: scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
