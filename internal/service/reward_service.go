package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/contestbox/reward-engine/internal/engine/claim"
	"github.com/contestbox/reward-engine/internal/engine/configstore"
	"github.com/contestbox/reward-engine/internal/engine/draw"
	"github.com/contestbox/reward-engine/internal/engine/fulfillment"
	"github.com/contestbox/reward-engine/internal/engine/reel"
	"github.com/contestbox/reward-engine/internal/engine/stock"
	"github.com/contestbox/reward-engine/internal/engine/wallet"
	"github.com/contestbox/reward-engine/internal/model"
)

// Fulfiller hands committed outcomes to the asynchronous prize-fulfillment
// worker.
type Fulfiller interface {
	Enqueue(req fulfillment.Request)
}

// ClaimJournal persists committed claim records. The in-memory claim guard
// is the runtime arbiter; the journal is durability and boot hydration.
type ClaimJournal interface {
	Append(ctx context.Context, rec *model.ClaimRecord) error
}

// ConfigRepository persists admin configuration writes behind the config
// store.
type ConfigRepository interface {
	SavePool(ctx context.Context, pool *model.PrizePool, entries []*model.PrizeEntry) error
	SaveEntry(ctx context.Context, entry *model.PrizeEntry) error
	DeleteEntry(ctx context.Context, poolID, entryID string) error
	SaveReelConfig(ctx context.Context, cfg *model.ReelConfig, rules []*model.PayoutRule) error
}

// RewardService orchestrates the allocation engine: it composes the wallet
// debit, claim reservation and stock decrement saga for draws, and the
// debit-sample-score-credit sequence for spins.
type RewardService struct {
	store     *configstore.Store
	ledger    *stock.Ledger
	guard     *claim.Guard
	wallet    wallet.Wallet
	fulfiller Fulfiller
	journal   ClaimJournal
	configs   ConfigRepository

	rnd        draw.Rand
	maxRetries int
	now        func() time.Time
}

// NewRewardService wires the engine components together. journal and
// configs may be nil in standalone mode; fulfiller must not be.
func NewRewardService(
	store *configstore.Store,
	ledger *stock.Ledger,
	guard *claim.Guard,
	w wallet.Wallet,
	fulfiller Fulfiller,
	journal ClaimJournal,
	configs ConfigRepository,
	maxRetries int,
) *RewardService {
	if maxRetries < 1 {
		maxRetries = 3
	}
	return &RewardService{
		store:      store,
		ledger:     ledger,
		guard:      guard,
		wallet:     w,
		fulfiller:  fulfiller,
		journal:    journal,
		configs:    configs,
		rnd:        draw.DefaultRand,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// WithRand replaces the random source. Primarily used for testing.
func (s *RewardService) WithRand(rnd draw.Rand) *RewardService {
	s.rnd = rnd
	return s
}

// WithNow replaces the clock. Primarily used for testing period boundaries.
func (s *RewardService) WithNow(now func() time.Time) *RewardService {
	s.now = now
	return s
}

// Draw resolves one weighted draw against a pool for a user.
//
// The saga order is: conditional debit -> availability check -> claim
// reservation -> stock decrement (bounded retry) -> async journal +
// fulfillment. Each failure path compensates every step already applied, so
// a failed draw never consumes balance, stock or a claim slot. The
// availability check runs before the reservation on purpose: an empty pool
// must not burn a user's daily attempt.
func (s *RewardService) Draw(ctx context.Context, userID, poolID string) (*model.PrizeView, error) {
	snap := s.store.Snapshot() // pinned for the whole draw

	pool := snap.Pool(poolID)
	if pool == nil {
		return nil, ErrPoolNotFound
	}
	if !pool.IsActive {
		return nil, ErrPoolInactive
	}

	if err := s.wallet.Debit(ctx, userID, pool.CostPoints); err != nil {
		if errors.Is(err, wallet.ErrInsufficientBalance) {
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("debit draw cost: %w", err)
	}

	refund := func() {
		if pool.CostPoints == 0 {
			return
		}
		if err := s.wallet.Credit(ctx, userID, pool.CostPoints); err != nil {
			log.Error().Err(err).
				Str("user_id", userID).
				Str("pool_id", poolID).
				Int64("amount", pool.CostPoints).
				Msg("failed to refund draw cost")
		}
	}

	live := draw.Live(snap.Entries(poolID), s.ledger)
	if len(live) == 0 {
		refund()
		return nil, ErrNoStock
	}
	if draw.TotalWeight(live) <= 0 {
		refund()
		return nil, ErrConfigInconsistent
	}

	periodKey, release, err := s.reserve(userID, pool)
	if err != nil {
		refund()
		return nil, err
	}

	entry, ok := s.allocate(snap, poolID, live)
	if !ok {
		// Lost every race to concurrently completing draws: surface as
		// NoStock, with full compensation.
		release()
		refund()
		return nil, ErrNoStock
	}

	s.commit(userID, poolID, periodKey, entry)

	return &model.PrizeView{
		EntryID:     entry.ID,
		Name:        entry.Name,
		Kind:        entry.Kind,
		PointAmount: entry.PointAmount,
		ItemType:    entry.ItemType,
		ItemCount:   entry.ItemCount,
		BadgeKey:    entry.BadgeKey,
		IsRare:      entry.IsRare,
	}, nil
}

// reserve takes the pool's claim slot for the user, if the pool is limited.
// It returns the period key the reservation was made under and a release
// function for saga compensation (a no-op for unlimited pools).
func (s *RewardService) reserve(userID string, pool *model.PrizePool) (string, func(), error) {
	noop := func() {}

	switch {
	case pool.OncePerUser:
		if !s.guard.TryReserveOnce(userID, pool.ID) {
			return "", noop, ErrAlreadyClaimed
		}
		return claim.LifetimePeriod, func() {
			s.guard.Release(userID, pool.ID, claim.LifetimePeriod)
		}, nil

	case pool.DailyLimit != nil:
		day := claim.DayKey(s.now())
		if !s.guard.TryReserve(userID, pool.ID, *pool.DailyLimit, day) {
			return "", noop, ErrDailyLimitExceeded
		}
		return day, func() {
			s.guard.Release(userID, pool.ID, day)
		}, nil
	}

	return claim.DayKey(s.now()), noop, nil
}

// allocate picks an entry from the live set and decrements its stock,
// retrying against the refreshed availability set when another draw
// exhausts the selected entry first. The retry count is bounded; callers
// treat exhaustion as NoStock.
func (s *RewardService) allocate(snap *configstore.Snapshot, poolID string, live []*model.PrizeEntry) (*model.PrizeEntry, bool) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		entry := draw.Pick(live, s.rnd)
		if entry == nil {
			return nil, false
		}
		if s.ledger.TryDecrement(entry.ID) {
			return entry, true
		}

		// The selected entry ran out between sampling and decrement;
		// recompute the live set from the same pinned snapshot.
		live = draw.Live(snap.Entries(poolID), s.ledger)
		if len(live) == 0 {
			return nil, false
		}
	}

	log.Warn().
		Str("pool_id", poolID).
		Int("retries", s.maxRetries).
		Msg("draw allocation lost all retries to concurrent exhaustion")
	return nil, false
}

// commit finishes a resolved draw: journal the claim and enqueue the grant.
// Both run after the stock/wallet state is committed and neither can fail
// the draw.
func (s *RewardService) commit(userID, poolID, periodKey string, entry *model.PrizeEntry) {
	if s.journal != nil {
		rec := &model.ClaimRecord{
			ID:        uuid.NewString(),
			UserID:    userID,
			PoolID:    poolID,
			EntryID:   entry.ID,
			PeriodKey: periodKey,
			CreatedAt: s.now().UTC(),
		}
		go s.appendClaim(rec)
	}

	s.fulfiller.Enqueue(fulfillment.Request{UserID: userID, Entry: entry})

	log.Info().
		Str("user_id", userID).
		Str("pool_id", poolID).
		Str("entry_id", entry.ID).
		Str("kind", string(entry.Kind)).
		Bool("is_rare", entry.IsRare).
		Msg("draw resolved")
}

// appendClaim persists one claim record with bounded retries. Journal
// failures never affect the committed draw.
func (s *RewardService) appendClaim(rec *model.ClaimRecord) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	err := backoff.Retry(func() error {
		return s.journal.Append(context.Background(), rec)
	}, bo)
	if err != nil {
		log.Error().Err(err).
			Str("claim_id", rec.ID).
			Str("user_id", rec.UserID).
			Str("pool_id", rec.PoolID).
			Msg("failed to journal claim record")
	}
}

// Spin resolves one slot-machine spin: debit the stake, draw the reels,
// score the combination, credit the payout. The debit is fully applied
// before any credit so no transient negative-then-positive balance is
// observable.
func (s *RewardService) Spin(ctx context.Context, userID, reelConfigID string, stake int64) (*model.SpinResponse, error) {
	if stake <= 0 {
		return nil, ErrInvalidRequest
	}

	snap := s.store.Snapshot()
	cfg := snap.Reel(reelConfigID)
	if cfg == nil {
		return nil, ErrReelConfigNotFound
	}
	rules := snap.Rules(reelConfigID)
	if len(rules) == 0 {
		return nil, ErrConfigInconsistent
	}

	if err := s.wallet.Debit(ctx, userID, stake); err != nil {
		if errors.Is(err, wallet.ErrInsufficientBalance) {
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("debit stake: %w", err)
	}

	refund := func() {
		if err := s.wallet.Credit(ctx, userID, stake); err != nil {
			log.Error().Err(err).
				Str("user_id", userID).
				Int64("stake", stake).
				Msg("failed to refund spin stake")
		}
	}

	reelCount := cfg.ReelCount
	if reelCount < 1 {
		reelCount = 3
	}

	symbols := reel.Sample(cfg, reelCount, s.rnd)
	if symbols == nil {
		refund()
		return nil, ErrConfigInconsistent
	}

	rule := reel.Score(symbols, rules)
	if rule == nil {
		// A well-formed rule set ends with a DEFAULT rule; treat the gap as
		// an admin configuration problem, not a loss.
		refund()
		return nil, ErrConfigInconsistent
	}

	payout := reel.Payout(stake, rule)
	if payout > 0 {
		if err := s.wallet.Credit(ctx, userID, payout); err != nil {
			// The spin is already resolved and the stake spent. Hand the
			// credit to the fulfillment retry path instead of failing the
			// spin and losing the payout.
			log.Error().Err(err).
				Str("user_id", userID).
				Int64("payout", payout).
				Msg("payout credit failed, deferring to fulfillment")
			s.fulfiller.Enqueue(fulfillment.Request{
				UserID: userID,
				Entry: &model.PrizeEntry{
					ID:          "spin-payout-" + rule.ID,
					Name:        "spin payout",
					Kind:        model.KindPoints,
					PointAmount: payout,
				},
			})
		}
	}

	keys := make([]string, len(symbols))
	for i, sym := range symbols {
		keys[i] = sym.Key
	}

	log.Info().
		Str("user_id", userID).
		Str("reel_config_id", reelConfigID).
		Strs("symbols", keys).
		Str("rule_id", rule.ID).
		Int64("stake", stake).
		Int64("payout", payout).
		Msg("spin resolved")

	return &model.SpinResponse{
		Symbols:    keys,
		RuleID:     rule.ID,
		Multiplier: rule.Multiplier,
		Payout:     payout,
	}, nil
}

// Probabilities returns the admin analytics view of a pool: per-entry draw
// probability computed over the exact live set the allocator samples from.
// Sold-out entries appear with probability 0 and sold_out=true; stock 0 is
// a normal state, not a configuration error.
func (s *RewardService) Probabilities(_ context.Context, poolID string) ([]model.EntryProbability, error) {
	snap := s.store.Snapshot()
	if snap.Pool(poolID) == nil {
		return nil, ErrPoolNotFound
	}

	entries := snap.Entries(poolID)
	live := draw.Live(entries, s.ledger)
	probs := draw.Probabilities(live)

	out := make([]model.EntryProbability, 0, len(entries))
	for _, e := range entries {
		remaining, _ := s.ledger.Remaining(e.ID)
		soldOut := !e.Unlimited() && remaining != nil && *remaining == 0
		out = append(out, model.EntryProbability{
			EntryID:     e.ID,
			Name:        e.Name,
			Weight:      e.Weight,
			Probability: probs[e.ID],
			Remaining:   remaining,
			SoldOut:     soldOut,
			IsEnabled:   e.IsEnabled,
		})
	}
	return out, nil
}
