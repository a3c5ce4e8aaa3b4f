package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PrizeKind is the closed set of prize variants a PrizeEntry can grant.
// New kinds require a new constant and a fulfillment case, not a plugin.
type PrizeKind string

const (
	KindPoints  PrizeKind = "POINTS"
	KindItem    PrizeKind = "ITEM"
	KindBadge   PrizeKind = "BADGE"
	KindAPIKey  PrizeKind = "API_KEY"
	KindNothing PrizeKind = "NOTHING"
)

// Valid reports whether k is one of the known prize kinds.
func (k PrizeKind) Valid() bool {
	switch k {
	case KindPoints, KindItem, KindBadge, KindAPIKey, KindNothing:
		return true
	}
	return false
}

// PrizePool is a named collection of prize entries drawn against.
type PrizePool struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CostPoints int64     `json:"cost_points"`
	DailyLimit *int      `json:"daily_limit"`   // nil = unlimited draws per day
	OncePerUser bool     `json:"once_per_user"` // easter-egg pattern: one success ever
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"-"`
}

// PrizeEntry belongs to exactly one pool. Stock nil means unlimited;
// stock 0 means temporarily absent from the draw regardless of weight.
type PrizeEntry struct {
	ID        string    `json:"id"`
	PoolID    string    `json:"pool_id"`
	Name      string    `json:"name"`
	Kind      PrizeKind `json:"kind"`
	Weight    float64   `json:"weight"`
	Stock     *int64    `json:"stock"`
	IsRare    bool      `json:"is_rare"`
	IsEnabled bool      `json:"is_enabled"`

	// Kind-specific payload. Only the fields for the entry's kind are set.
	PointAmount  int64  `json:"point_amount,omitempty"`
	ItemType     string `json:"item_type,omitempty"`
	ItemCount    int    `json:"item_count,omitempty"`
	BadgeKey     string `json:"badge_key,omitempty"`
	APIKeyPolicy string `json:"api_key_policy,omitempty"`

	CreatedAt time.Time `json:"-"`
}

// Unlimited reports whether the entry has no finite stock.
func (e *PrizeEntry) Unlimited() bool { return e.Stock == nil }

// Symbol is one weighted reel symbol. Symbols are probability-only;
// they carry no inventory.
type Symbol struct {
	Key        string          `json:"key"`
	Weight     float64         `json:"weight"`
	Multiplier decimal.Decimal `json:"multiplier"`
	IsJackpot  bool            `json:"is_jackpot"`
}

// ReelConfig is an ordered symbol list shared across all reels of a spin.
type ReelConfig struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ReelCount int       `json:"reel_count"`
	Symbols   []Symbol  `json:"symbols"`
	CreatedAt time.Time `json:"-"`
}

// PatternKind is the closed set of payout-rule patterns.
type PatternKind string

const (
	// PatternNOfAKind matches when at least MatchCount drawn symbols are
	// identical. SymbolKey restricts the match to one symbol; JackpotOnly
	// restricts it to jackpot-flagged symbols.
	PatternNOfAKind PatternKind = "N_OF_A_KIND"
	// PatternContainsJackpot matches when any drawn symbol is jackpot-flagged.
	PatternContainsJackpot PatternKind = "CONTAINS_JACKPOT"
	// PatternDefault always matches. Every rule set should end with one.
	PatternDefault PatternKind = "DEFAULT"
)

// Valid reports whether p is one of the known pattern kinds.
func (p PatternKind) Valid() bool {
	switch p {
	case PatternNOfAKind, PatternContainsJackpot, PatternDefault:
		return true
	}
	return false
}

// PayoutRule converts a drawn symbol combination into a payout. Rules are
// evaluated in ascending Priority order; the first matching rule applies.
// Negative or zero multipliers express penalties and losses.
type PayoutRule struct {
	ID           string          `json:"id"`
	ReelConfigID string          `json:"reel_config_id"`
	Priority     int             `json:"priority"`
	Pattern      PatternKind     `json:"pattern"`
	MatchCount   int             `json:"match_count,omitempty"`
	SymbolKey    string          `json:"symbol_key,omitempty"`
	JackpotOnly  bool            `json:"jackpot_only,omitempty"`
	Multiplier   decimal.Decimal `json:"multiplier"`
	FlatBonus    int64           `json:"flat_bonus,omitempty"`
	IsEnabled    bool            `json:"is_enabled"`
	CreatedAt    time.Time       `json:"-"`
}

// ClaimRecord journals one committed draw for (user, pool, period).
// Records are append-only; time-bucketed records may be pruned after
// their bucket expires.
type ClaimRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	PoolID    string    `json:"pool_id"`
	EntryID   string    `json:"entry_id"`
	PeriodKey string    `json:"period_key"` // UTC day, or "" for once-ever pools
	CreatedAt time.Time `json:"created_at"`
}

// Grant journals one fulfilled (or pending) prize grant.
type Grant struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	EntryID   string    `json:"entry_id"`
	Kind      PrizeKind `json:"kind"`
	APIKey    string    `json:"api_key,omitempty"` // set for KindAPIKey
	CreatedAt time.Time `json:"created_at"`
}
