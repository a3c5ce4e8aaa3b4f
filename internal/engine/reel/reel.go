// Package reel implements the slot-machine side of the engine: independent
// weighted symbol sampling per reel, plus ordered payout-rule scoring of the
// drawn combination. Symbols are probability-only and carry no inventory, so
// there is no stock contention here.
package reel

import (
	"github.com/shopspring/decimal"

	"github.com/contestbox/reward-engine/internal/engine/draw"
	"github.com/contestbox/reward-engine/internal/model"
)

// Sample draws count symbols, each independently sampled from the full
// weighted symbol distribution of the reel configuration. Returns nil when
// the configuration carries no positive weight.
func Sample(cfg *model.ReelConfig, count int, rnd draw.Rand) []model.Symbol {
	var total float64
	for _, s := range cfg.Symbols {
		if s.Weight > 0 {
			total += s.Weight
		}
	}
	if total <= 0 || count <= 0 {
		return nil
	}

	out := make([]model.Symbol, 0, count)
	for i := 0; i < count; i++ {
		target := rnd() * total
		var cum float64
		picked := -1
		for j, s := range cfg.Symbols {
			if s.Weight <= 0 {
				continue
			}
			cum += s.Weight
			if target < cum {
				picked = j
				break
			}
		}
		if picked < 0 {
			// Upper-bound float edge: take the last weighted symbol.
			for j := len(cfg.Symbols) - 1; j >= 0; j-- {
				if cfg.Symbols[j].Weight > 0 {
					picked = j
					break
				}
			}
		}
		out = append(out, cfg.Symbols[picked])
	}
	return out
}

// Score evaluates the drawn combination against the rules in the order they
// are stored (ascending priority) and returns the first matching rule.
// Exactly one rule applies per spin; returns nil only when no rule matches,
// which a well-formed configuration prevents by ending with a DEFAULT rule.
func Score(symbols []model.Symbol, rules []*model.PayoutRule) *model.PayoutRule {
	for _, r := range rules {
		if matches(symbols, r) {
			return r
		}
	}
	return nil
}

func matches(symbols []model.Symbol, r *model.PayoutRule) bool {
	switch r.Pattern {
	case model.PatternNOfAKind:
		return nOfAKind(symbols, r)
	case model.PatternContainsJackpot:
		for _, s := range symbols {
			if s.IsJackpot {
				return true
			}
		}
		return false
	case model.PatternDefault:
		return true
	}
	return false
}

func nOfAKind(symbols []model.Symbol, r *model.PayoutRule) bool {
	counts := map[string]int{}
	jackpot := map[string]bool{}
	for _, s := range symbols {
		counts[s.Key]++
		jackpot[s.Key] = s.IsJackpot
	}

	if r.SymbolKey != "" {
		return counts[r.SymbolKey] >= r.MatchCount
	}

	for key, n := range counts {
		if r.JackpotOnly && !jackpot[key] {
			continue
		}
		if n >= r.MatchCount {
			return true
		}
	}
	return false
}

// Payout applies the matched rule to the stake: stake x multiplier plus the
// flat bonus, truncated to whole points. Penalty rules can push the raw
// value negative; the credited payout is clamped at zero since the stake was
// already debited up front.
func Payout(stake int64, rule *model.PayoutRule) int64 {
	if rule == nil {
		return 0
	}
	raw := rule.Multiplier.Mul(decimal.NewFromInt(stake)).IntPart() + rule.FlatBonus
	if raw < 0 {
		return 0
	}
	return raw
}
