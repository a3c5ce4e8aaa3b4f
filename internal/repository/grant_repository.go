package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contestbox/reward-engine/internal/model"
)

// GrantRepository persists fulfilled prize grants, including issued API-key
// codes.
type GrantRepository struct {
	pool PoolInterface
}

// NewGrantRepository creates a new GrantRepository with the given pool.
func NewGrantRepository(pool *pgxpool.Pool) *GrantRepository {
	return &GrantRepository{pool: pool}
}

// NewGrantRepositoryWithPool creates a GrantRepository with a custom pool
// interface. Primarily used for testing.
func NewGrantRepositoryWithPool(pool PoolInterface) *GrantRepository {
	return &GrantRepository{pool: pool}
}

// SaveGrant inserts one grant row. Idempotent on the grant ID: fulfillment
// retries after a timeout cannot duplicate a grant.
func (r *GrantRepository) SaveGrant(ctx context.Context, grant *model.Grant) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO grants (id, user_id, entry_id, kind, api_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		grant.ID, grant.UserID, grant.EntryID, string(grant.Kind), grant.APIKey, grant.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert grant: %w", err)
	}
	return nil
}

// EntryCounts returns granted-unit counts per entry. Grant rows are never
// pruned, so this is the durable consumption record used at boot to
// recompute remaining finite stock.
func (r *GrantRepository) EntryCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT entry_id, COUNT(*) FROM grants GROUP BY entry_id`)
	if err != nil {
		return nil, fmt.Errorf("count grants: %w", err)
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var entryID string
		var n int64
		if err := rows.Scan(&entryID, &n); err != nil {
			return nil, fmt.Errorf("scan grant count: %w", err)
		}
		counts[entryID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grant counts: %w", err)
	}
	return counts, nil
}

// GrantsByUser returns a user's grants, newest first.
func (r *GrantRepository) GrantsByUser(ctx context.Context, userID string) ([]*model.Grant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, entry_id, kind, api_key, created_at
		 FROM grants WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("get grants for %s: %w", userID, err)
	}
	defer rows.Close()

	var grants []*model.Grant
	for rows.Next() {
		var g model.Grant
		var kind string
		if err := rows.Scan(&g.ID, &g.UserID, &g.EntryID, &kind, &g.APIKey, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		g.Kind = model.PrizeKind(kind)
		grants = append(grants, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grants: %w", err)
	}

	if grants == nil {
		grants = []*model.Grant{}
	}
	return grants, nil
}
