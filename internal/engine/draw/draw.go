// Package draw implements the weighted single-draw selection core shared by
// the lottery, gacha and easter-egg flows. It is pure computation over a
// pinned configuration snapshot; stock mutation lives in the stock ledger.
package draw

import (
	"math/rand"

	"github.com/contestbox/reward-engine/internal/model"
)

// Rand yields a uniform value in [0, 1). The allocator injects its own
// source; tests inject deterministic values.
type Rand func() float64

// DefaultRand draws from math/rand's shared source.
func DefaultRand() float64 {
	return rand.Float64()
}

// StockView is the read side of the stock ledger needed to compute the live
// distribution.
type StockView interface {
	InStock(entryID string) bool
}

// Live filters a snapshot's entry list down to the set the allocator may
// actually select from: enabled entries with remaining (or unlimited) stock.
// Entries whose counters reached zero disappear here for every draw that has
// not yet sampled.
func Live(entries []*model.PrizeEntry, view StockView) []*model.PrizeEntry {
	live := make([]*model.PrizeEntry, 0, len(entries))
	for _, e := range entries {
		if !e.IsEnabled {
			continue
		}
		if !view.InStock(e.ID) {
			continue
		}
		live = append(live, e)
	}
	return live
}

// TotalWeight sums the weights of the given entries.
func TotalWeight(entries []*model.PrizeEntry) float64 {
	var total float64
	for _, e := range entries {
		total += e.Weight
	}
	return total
}

// Pick selects one entry from the live set by cumulative weight: a uniform
// value in [0, totalWeight) lands in exactly one entry's range. Zero-weight
// entries have zero-width ranges and are never selected. Returns nil when
// the set is empty or carries no positive weight.
func Pick(entries []*model.PrizeEntry, rnd Rand) *model.PrizeEntry {
	total := TotalWeight(entries)
	if total <= 0 {
		return nil
	}

	target := rnd() * total
	var cum float64
	for _, e := range entries {
		cum += e.Weight
		if target < cum {
			return e
		}
	}

	// Floating-point edge: target landed on the upper bound. Fall back to
	// the last entry with positive weight.
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Weight > 0 {
			return entries[i]
		}
	}
	return nil
}

// Probabilities returns the normalized draw probability per live entry,
// probability(e) = weight(e) / totalWeight. This is the exact distribution
// Pick samples from, exposed for the admin analytics surface.
func Probabilities(entries []*model.PrizeEntry) map[string]float64 {
	probs := make(map[string]float64, len(entries))
	total := TotalWeight(entries)
	if total <= 0 {
		return probs
	}
	for _, e := range entries {
		probs[e.ID] = e.Weight / total
	}
	return probs
}
