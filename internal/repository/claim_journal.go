package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contestbox/reward-engine/internal/model"
)

// ClaimJournal persists committed claim records. Records are append-only;
// the in-memory claim guard is the runtime arbiter and is hydrated from the
// journal at boot.
type ClaimJournal struct {
	pool PoolInterface
}

// NewClaimJournal creates a new ClaimJournal with the given pool.
func NewClaimJournal(pool *pgxpool.Pool) *ClaimJournal {
	return &ClaimJournal{pool: pool}
}

// NewClaimJournalWithPool creates a ClaimJournal with a custom pool
// interface. Primarily used for testing.
func NewClaimJournalWithPool(pool PoolInterface) *ClaimJournal {
	return &ClaimJournal{pool: pool}
}

// Append inserts one claim record. The insert is idempotent on the record
// ID so the caller's retry loop cannot duplicate a row.
func (j *ClaimJournal) Append(ctx context.Context, rec *model.ClaimRecord) error {
	_, err := j.pool.Exec(ctx,
		`INSERT INTO claim_records (id, user_id, pool_id, entry_id, period_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.UserID, rec.PoolID, rec.EntryID, rec.PeriodKey, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert claim record: %w", err)
	}
	return nil
}

// PeriodCount is one hydration row: how many committed claims a user holds
// against a pool in a period.
type PeriodCount struct {
	UserID    string
	PoolID    string
	PeriodKey string
	Count     int
}

// CountsForPeriods returns per-(user, pool, period) claim counts for the
// given period keys. Pass claim.LifetimePeriod to include once-ever claims.
func (j *ClaimJournal) CountsForPeriods(ctx context.Context, periodKeys []string) ([]PeriodCount, error) {
	rows, err := j.pool.Query(ctx,
		`SELECT user_id, pool_id, period_key, COUNT(*)
		 FROM claim_records
		 WHERE period_key = ANY($1)
		 GROUP BY user_id, pool_id, period_key`,
		periodKeys)
	if err != nil {
		return nil, fmt.Errorf("count claim records: %w", err)
	}
	defer rows.Close()

	var counts []PeriodCount
	for rows.Next() {
		var c PeriodCount
		if err := rows.Scan(&c.UserID, &c.PoolID, &c.PeriodKey, &c.Count); err != nil {
			return nil, fmt.Errorf("scan claim count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claim counts: %w", err)
	}
	return counts, nil
}

// PruneBefore deletes daily-bucketed records whose period sorts before day.
// Lifetime records (empty period key) are kept forever.
func (j *ClaimJournal) PruneBefore(ctx context.Context, day string) (int64, error) {
	tag, err := j.pool.Exec(ctx,
		`DELETE FROM claim_records WHERE period_key <> '' AND period_key < $1`, day)
	if err != nil {
		return 0, fmt.Errorf("prune claim records: %w", err)
	}
	return tag.RowsAffected(), nil
}
