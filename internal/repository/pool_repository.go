package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contestbox/reward-engine/internal/model"
	"github.com/contestbox/reward-engine/pkg/database"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	database.TxQuerier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PoolRepository persists prize pools, entries, reel configurations and
// payout rules. The config store is the runtime authority; these tables are
// durability and boot-time hydration.
type PoolRepository struct {
	pool PoolInterface
}

// NewPoolRepository creates a new PoolRepository with the given pool.
func NewPoolRepository(pool *pgxpool.Pool) *PoolRepository {
	return &PoolRepository{pool: pool}
}

// NewPoolRepositoryWithPool creates a PoolRepository with a custom pool
// interface. Primarily used for testing.
func NewPoolRepositoryWithPool(pool PoolInterface) *PoolRepository {
	return &PoolRepository{pool: pool}
}

// SavePool upserts a pool and replaces its entry list in one transaction.
func (r *PoolRepository) SavePool(ctx context.Context, pool *model.PrizePool, entries []*model.PrizeEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	_, err = tx.Exec(ctx,
		`INSERT INTO prize_pools (id, name, cost_points, daily_limit, once_per_user, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   cost_points = EXCLUDED.cost_points,
		   daily_limit = EXCLUDED.daily_limit,
		   once_per_user = EXCLUDED.once_per_user,
		   is_active = EXCLUDED.is_active`,
		pool.ID, pool.Name, pool.CostPoints, pool.DailyLimit, pool.OncePerUser, pool.IsActive)
	if err != nil {
		return fmt.Errorf("upsert pool: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM prize_entries WHERE pool_id = $1`, pool.ID)
	if err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}

	for _, e := range entries {
		if err := upsertEntry(ctx, tx, e); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// SaveEntry upserts a single prize entry.
func (r *PoolRepository) SaveEntry(ctx context.Context, entry *model.PrizeEntry) error {
	return upsertEntry(ctx, r.pool, entry)
}

func upsertEntry(ctx context.Context, q database.TxQuerier, e *model.PrizeEntry) error {
	_, err := q.Exec(ctx,
		`INSERT INTO prize_entries
		   (id, pool_id, name, kind, weight, stock, is_rare, is_enabled,
		    point_amount, item_type, item_count, badge_key, api_key_policy)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   kind = EXCLUDED.kind,
		   weight = EXCLUDED.weight,
		   stock = EXCLUDED.stock,
		   is_rare = EXCLUDED.is_rare,
		   is_enabled = EXCLUDED.is_enabled,
		   point_amount = EXCLUDED.point_amount,
		   item_type = EXCLUDED.item_type,
		   item_count = EXCLUDED.item_count,
		   badge_key = EXCLUDED.badge_key,
		   api_key_policy = EXCLUDED.api_key_policy`,
		e.ID, e.PoolID, e.Name, string(e.Kind), e.Weight, e.Stock, e.IsRare, e.IsEnabled,
		e.PointAmount, e.ItemType, e.ItemCount, e.BadgeKey, e.APIKeyPolicy)
	if err != nil {
		return fmt.Errorf("upsert entry %s: %w", e.ID, err)
	}
	return nil
}

// DeleteEntry removes one prize entry.
func (r *PoolRepository) DeleteEntry(ctx context.Context, poolID, entryID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM prize_entries WHERE pool_id = $1 AND id = $2`, poolID, entryID)
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", entryID, err)
	}
	return nil
}

// SaveReelConfig upserts a reel configuration (symbols as JSONB) and
// replaces its payout rules in one transaction.
func (r *PoolRepository) SaveReelConfig(ctx context.Context, cfg *model.ReelConfig, rules []*model.PayoutRule) error {
	symbols, err := json.Marshal(cfg.Symbols)
	if err != nil {
		return fmt.Errorf("marshal symbols: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO reel_configs (id, name, reel_count, symbols)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   reel_count = EXCLUDED.reel_count,
		   symbols = EXCLUDED.symbols`,
		cfg.ID, cfg.Name, cfg.ReelCount, symbols)
	if err != nil {
		return fmt.Errorf("upsert reel config: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM payout_rules WHERE reel_config_id = $1`, cfg.ID)
	if err != nil {
		return fmt.Errorf("clear rules: %w", err)
	}

	for _, rule := range rules {
		_, err = tx.Exec(ctx,
			`INSERT INTO payout_rules
			   (id, reel_config_id, priority, pattern, match_count, symbol_key,
			    jackpot_only, multiplier, flat_bonus, is_enabled)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			rule.ID, rule.ReelConfigID, rule.Priority, string(rule.Pattern), rule.MatchCount,
			rule.SymbolKey, rule.JackpotOnly, rule.Multiplier, rule.FlatBonus, rule.IsEnabled)
		if err != nil {
			return fmt.Errorf("insert rule %s: %w", rule.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// Configuration is the full persisted configuration, loaded at boot.
type Configuration struct {
	Pools   []*model.PrizePool
	Entries map[string][]*model.PrizeEntry // by pool ID
	Reels   []*model.ReelConfig
	Rules   map[string][]*model.PayoutRule // by reel config ID
}

// LoadAll reads the whole persisted configuration for boot hydration.
func (r *PoolRepository) LoadAll(ctx context.Context) (*Configuration, error) {
	cfg := &Configuration{
		Entries: map[string][]*model.PrizeEntry{},
		Rules:   map[string][]*model.PayoutRule{},
	}
	if err := r.loadPools(ctx, cfg); err != nil {
		return nil, err
	}
	if err := r.loadEntries(ctx, cfg); err != nil {
		return nil, err
	}
	if err := r.loadReels(ctx, cfg); err != nil {
		return nil, err
	}
	if err := r.loadRules(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r *PoolRepository) loadPools(ctx context.Context, cfg *Configuration) error {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, cost_points, daily_limit, once_per_user, is_active, created_at
		 FROM prize_pools ORDER BY created_at`)
	if err != nil {
		return fmt.Errorf("load pools: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.PrizePool
		if err := rows.Scan(&p.ID, &p.Name, &p.CostPoints, &p.DailyLimit, &p.OncePerUser, &p.IsActive, &p.CreatedAt); err != nil {
			return fmt.Errorf("scan pool: %w", err)
		}
		cfg.Pools = append(cfg.Pools, &p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate pools: %w", err)
	}
	return nil
}

func (r *PoolRepository) loadEntries(ctx context.Context, cfg *Configuration) error {
	rows, err := r.pool.Query(ctx,
		`SELECT id, pool_id, name, kind, weight, stock, is_rare, is_enabled,
		        point_amount, item_type, item_count, badge_key, api_key_policy, created_at
		 FROM prize_entries ORDER BY created_at`)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e model.PrizeEntry
		var kind string
		if err := rows.Scan(&e.ID, &e.PoolID, &e.Name, &kind, &e.Weight, &e.Stock, &e.IsRare, &e.IsEnabled,
			&e.PointAmount, &e.ItemType, &e.ItemCount, &e.BadgeKey, &e.APIKeyPolicy, &e.CreatedAt); err != nil {
			return fmt.Errorf("scan entry: %w", err)
		}
		e.Kind = model.PrizeKind(kind)
		cfg.Entries[e.PoolID] = append(cfg.Entries[e.PoolID], &e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate entries: %w", err)
	}
	return nil
}

func (r *PoolRepository) loadReels(ctx context.Context, cfg *Configuration) error {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, reel_count, symbols, created_at FROM reel_configs ORDER BY created_at`)
	if err != nil {
		return fmt.Errorf("load reel configs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rc model.ReelConfig
		var symbols []byte
		if err := rows.Scan(&rc.ID, &rc.Name, &rc.ReelCount, &symbols, &rc.CreatedAt); err != nil {
			return fmt.Errorf("scan reel config: %w", err)
		}
		if err := json.Unmarshal(symbols, &rc.Symbols); err != nil {
			return fmt.Errorf("unmarshal symbols for %s: %w", rc.ID, err)
		}
		cfg.Reels = append(cfg.Reels, &rc)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate reel configs: %w", err)
	}
	return nil
}

func (r *PoolRepository) loadRules(ctx context.Context, cfg *Configuration) error {
	rows, err := r.pool.Query(ctx,
		`SELECT id, reel_config_id, priority, pattern, match_count, symbol_key,
		        jackpot_only, multiplier, flat_bonus, is_enabled, created_at
		 FROM payout_rules ORDER BY priority`)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rule model.PayoutRule
		var pattern string
		if err := rows.Scan(&rule.ID, &rule.ReelConfigID, &rule.Priority, &pattern, &rule.MatchCount,
			&rule.SymbolKey, &rule.JackpotOnly, &rule.Multiplier, &rule.FlatBonus, &rule.IsEnabled, &rule.CreatedAt); err != nil {
			return fmt.Errorf("scan rule: %w", err)
		}
		rule.Pattern = model.PatternKind(pattern)
		cfg.Rules[rule.ReelConfigID] = append(cfg.Rules[rule.ReelConfigID], &rule)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rules: %w", err)
	}
	return nil
}
