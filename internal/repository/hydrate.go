package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/contestbox/reward-engine/internal/engine/claim"
	"github.com/contestbox/reward-engine/internal/engine/configstore"
	"github.com/contestbox/reward-engine/internal/engine/stock"
)

// Hydrate rebuilds the in-memory engine state from the database at boot:
// publishes the persisted configuration to the config store, recomputes
// remaining finite stock from the grants table, and seeds the claim guard
// with today's and lifetime claim counts.
func Hydrate(
	ctx context.Context,
	pools *PoolRepository,
	journal *ClaimJournal,
	grants *GrantRepository,
	store *configstore.Store,
	ledger *stock.Ledger,
	guard *claim.Guard,
	now time.Time,
) error {
	cfg, err := pools.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	for _, p := range cfg.Pools {
		if err := store.UpsertPool(p, cfg.Entries[p.ID]); err != nil {
			// A pool persisted in an inconsistent state must not block the
			// rest of the boot; it stays unpublished until an admin fixes it.
			log.Error().Err(err).Str("pool_id", p.ID).Msg("skipping inconsistent persisted pool")
		}
	}
	for _, rc := range cfg.Reels {
		if err := store.UpsertReelConfig(rc, cfg.Rules[rc.ID]); err != nil {
			log.Error().Err(err).Str("reel_config_id", rc.ID).Msg("skipping inconsistent persisted reel config")
		}
	}

	// Remaining finite stock = configured stock minus granted units. The
	// grants table is the durable consumption record here: claim records are
	// pruned once their day passes, grant rows never are.
	entryCounts, err := grants.EntryCounts(ctx)
	if err != nil {
		return fmt.Errorf("load grant counts: %w", err)
	}
	for _, entries := range cfg.Entries {
		for _, e := range entries {
			if e.Stock == nil {
				continue
			}
			remaining := *e.Stock - entryCounts[e.ID]
			if remaining < 0 {
				remaining = 0
			}
			ledger.Publish(e.ID, &remaining)
		}
	}

	counts, err := journal.CountsForPeriods(ctx, []string{claim.DayKey(now), claim.LifetimePeriod})
	if err != nil {
		return fmt.Errorf("load claim counts: %w", err)
	}
	for _, c := range counts {
		guard.Hydrate(c.UserID, c.PoolID, c.PeriodKey, c.Count)
	}

	log.Info().
		Int("pools", len(cfg.Pools)).
		Int("reel_configs", len(cfg.Reels)).
		Int("claim_counters", len(counts)).
		Msg("engine state hydrated from database")
	return nil
}
