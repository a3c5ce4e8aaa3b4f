package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/contestbox/reward-engine/internal/engine/configstore"
	"github.com/contestbox/reward-engine/internal/model"
)

// CreatePool validates and publishes a pool with its entries, then persists
// it. Publication happens first because the config store is the validation
// authority; a persistence failure leaves the config live but not durable
// and is surfaced to the admin for retry.
func (s *RewardService) CreatePool(ctx context.Context, req *model.CreatePoolRequest) error {
	if req == nil || req.CostPoints == nil {
		return ErrInvalidRequest
	}

	pool := &model.PrizePool{
		ID:          req.ID,
		Name:        req.Name,
		CostPoints:  *req.CostPoints,
		DailyLimit:  req.DailyLimit,
		OncePerUser: req.OncePerUser,
		IsActive:    req.IsActive,
		CreatedAt:   time.Now().UTC(),
	}

	entries := make([]*model.PrizeEntry, 0, len(req.Entries))
	for i := range req.Entries {
		entry, err := entryFromRequest(pool.ID, &req.Entries[i])
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	if err := s.store.UpsertPool(pool, entries); err != nil {
		return translateConfigErr(err)
	}

	if s.configs != nil {
		if err := s.configs.SavePool(ctx, pool, entries); err != nil {
			return fmt.Errorf("persist pool: %w", err)
		}
	}
	return nil
}

// UpsertEntry creates or updates one prize entry in an existing pool.
func (s *RewardService) UpsertEntry(ctx context.Context, poolID string, req *model.UpsertEntryRequest) error {
	if req == nil {
		return ErrInvalidRequest
	}

	entry, err := entryFromRequest(poolID, req)
	if err != nil {
		return err
	}

	if err := s.store.UpsertEntry(poolID, entry); err != nil {
		return translateConfigErr(err)
	}

	if s.configs != nil {
		if err := s.configs.SaveEntry(ctx, entry); err != nil {
			return fmt.Errorf("persist entry: %w", err)
		}
	}
	return nil
}

// DeleteEntry removes one prize entry from a pool.
func (s *RewardService) DeleteEntry(ctx context.Context, poolID, entryID string) error {
	if err := s.store.DeleteEntry(poolID, entryID); err != nil {
		return translateConfigErr(err)
	}

	if s.configs != nil {
		if err := s.configs.DeleteEntry(ctx, poolID, entryID); err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
	}
	return nil
}

// CreateReelConfig validates and publishes a reel configuration with its
// payout rules, then persists it.
func (s *RewardService) CreateReelConfig(ctx context.Context, req *model.CreateReelConfigRequest) error {
	if req == nil {
		return ErrInvalidRequest
	}

	reelCount := req.ReelCount
	if reelCount < 1 {
		reelCount = 3
	}

	cfg := &model.ReelConfig{
		ID:        req.ID,
		Name:      req.Name,
		ReelCount: reelCount,
		CreatedAt: time.Now().UTC(),
	}
	for _, sym := range req.Symbols {
		if sym.Weight == nil {
			return ErrInvalidRequest
		}
		cfg.Symbols = append(cfg.Symbols, model.Symbol{
			Key:        sym.Key,
			Weight:     *sym.Weight,
			Multiplier: sym.Multiplier,
			IsJackpot:  sym.IsJackpot,
		})
	}

	rules := make([]*model.PayoutRule, 0, len(req.Rules))
	for _, r := range req.Rules {
		if r.Priority == nil {
			return ErrInvalidRequest
		}
		if !r.Pattern.Valid() {
			return ErrConfigInconsistent
		}
		rules = append(rules, &model.PayoutRule{
			ID:           r.ID,
			ReelConfigID: cfg.ID,
			Priority:     *r.Priority,
			Pattern:      r.Pattern,
			MatchCount:   r.MatchCount,
			SymbolKey:    r.SymbolKey,
			JackpotOnly:  r.JackpotOnly,
			Multiplier:   r.Multiplier,
			FlatBonus:    r.FlatBonus,
			IsEnabled:    r.IsEnabled,
			CreatedAt:    time.Now().UTC(),
		})
	}

	if err := s.store.UpsertReelConfig(cfg, rules); err != nil {
		return translateConfigErr(err)
	}

	if s.configs != nil {
		if err := s.configs.SaveReelConfig(ctx, cfg, rules); err != nil {
			return fmt.Errorf("persist reel config: %w", err)
		}
	}
	return nil
}

// Credit adds points to a user wallet. Admin surface for seeding balances.
func (s *RewardService) Credit(ctx context.Context, userID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidRequest
	}
	if err := s.wallet.Credit(ctx, userID, amount); err != nil {
		return fmt.Errorf("credit wallet: %w", err)
	}
	return nil
}

// Balance returns a user's current point balance.
func (s *RewardService) Balance(ctx context.Context, userID string) (int64, error) {
	return s.wallet.Balance(ctx, userID)
}

// Restock increments an entry's live stock counter.
func (s *RewardService) Restock(_ context.Context, entryID string, delta int64) error {
	if delta <= 0 {
		return ErrInvalidRequest
	}
	if s.store.Snapshot().Entry(entryID) == nil {
		return ErrPoolNotFound
	}
	s.ledger.Restock(entryID, delta)
	return nil
}

func entryFromRequest(poolID string, req *model.UpsertEntryRequest) (*model.PrizeEntry, error) {
	if req.Weight == nil {
		return nil, ErrInvalidRequest
	}
	if !req.Kind.Valid() {
		return nil, ErrConfigInconsistent
	}
	return &model.PrizeEntry{
		ID:           req.ID,
		PoolID:       poolID,
		Name:         req.Name,
		Kind:         req.Kind,
		Weight:       *req.Weight,
		Stock:        req.Stock,
		IsRare:       req.IsRare,
		IsEnabled:    req.IsEnabled,
		PointAmount:  req.PointAmount,
		ItemType:     req.ItemType,
		ItemCount:    req.ItemCount,
		BadgeKey:     req.BadgeKey,
		APIKeyPolicy: req.APIKeyPolicy,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func translateConfigErr(err error) error {
	switch {
	case errors.Is(err, configstore.ErrInconsistent):
		return ErrConfigInconsistent
	case errors.Is(err, configstore.ErrNotFound):
		return ErrPoolNotFound
	default:
		return err
	}
}
