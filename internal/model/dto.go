package model

import "github.com/shopspring/decimal"

// DrawRequest is the DTO for POST /api/draws.
type DrawRequest struct {
	UserID string `json:"user_id" validate:"required,notblank,printascii,max=255"`
	PoolID string `json:"pool_id" validate:"required,notblank,printascii,max=255"`
}

// DrawResponse reports the outcome of a draw. HasStock distinguishes an
// exhausted pool from other rejections (limit, balance) for failed draws.
type DrawResponse struct {
	Success  bool       `json:"success"`
	HasStock bool       `json:"has_stock"`
	Prize    *PrizeView `json:"prize,omitempty"`
	Message  string     `json:"message"`
}

// PrizeView is the user-facing projection of a resolved prize entry.
type PrizeView struct {
	EntryID     string    `json:"entry_id"`
	Name        string    `json:"name"`
	Kind        PrizeKind `json:"kind"`
	PointAmount int64     `json:"point_amount,omitempty"`
	ItemType    string    `json:"item_type,omitempty"`
	ItemCount   int       `json:"item_count,omitempty"`
	BadgeKey    string    `json:"badge_key,omitempty"`
	IsRare      bool      `json:"is_rare"`
}

// SpinRequest is the DTO for POST /api/spins.
type SpinRequest struct {
	UserID       string `json:"user_id" validate:"required,notblank,printascii,max=255"`
	ReelConfigID string `json:"reel_config_id" validate:"required,notblank,printascii,max=255"`
	Stake        *int64 `json:"stake" validate:"required,gte=1"`
}

// SpinResponse reports one spin: the drawn symbols, the matched rule and
// the resulting payout already credited to the wallet.
type SpinResponse struct {
	Symbols    []string        `json:"symbols"`
	RuleID     string          `json:"rule_id"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Payout     int64           `json:"payout"`
	Message    string          `json:"message"`
}

// CreatePoolRequest is the admin DTO for creating a prize pool.
type CreatePoolRequest struct {
	ID          string               `json:"id" validate:"required,notblank,printascii,max=255"`
	Name        string               `json:"name" validate:"required,notblank,max=255"`
	CostPoints  *int64               `json:"cost_points" validate:"required,gte=0"`
	DailyLimit  *int                 `json:"daily_limit" validate:"omitempty,gte=1"`
	OncePerUser bool                 `json:"once_per_user"`
	IsActive    bool                 `json:"is_active"`
	Entries     []UpsertEntryRequest `json:"entries" validate:"omitempty,dive"`
}

// UpsertEntryRequest is the admin DTO for creating or updating a prize entry.
type UpsertEntryRequest struct {
	ID           string    `json:"id" validate:"required,notblank,printascii,max=255"`
	Name         string    `json:"name" validate:"required,notblank,max=255"`
	Kind         PrizeKind `json:"kind" validate:"required"`
	Weight       *float64  `json:"weight" validate:"required,gte=0"`
	Stock        *int64    `json:"stock" validate:"omitempty,gte=0"`
	IsRare       bool      `json:"is_rare"`
	IsEnabled    bool      `json:"is_enabled"`
	PointAmount  int64     `json:"point_amount" validate:"gte=0"`
	ItemType     string    `json:"item_type" validate:"max=255"`
	ItemCount    int       `json:"item_count" validate:"gte=0"`
	BadgeKey     string    `json:"badge_key" validate:"max=255"`
	APIKeyPolicy string    `json:"api_key_policy" validate:"max=255"`
}

// CreateReelConfigRequest is the admin DTO for creating a reel configuration
// together with its payout rules.
type CreateReelConfigRequest struct {
	ID        string              `json:"id" validate:"required,notblank,printascii,max=255"`
	Name      string              `json:"name" validate:"required,notblank,max=255"`
	ReelCount int                 `json:"reel_count" validate:"omitempty,gte=1,lte=10"`
	Symbols   []SymbolRequest     `json:"symbols" validate:"required,min=1,dive"`
	Rules     []PayoutRuleRequest `json:"rules" validate:"required,min=1,dive"`
}

// SymbolRequest is the admin DTO for one reel symbol.
type SymbolRequest struct {
	Key        string          `json:"key" validate:"required,notblank,printascii,max=64"`
	Weight     *float64        `json:"weight" validate:"required,gt=0"`
	Multiplier decimal.Decimal `json:"multiplier"`
	IsJackpot  bool            `json:"is_jackpot"`
}

// PayoutRuleRequest is the admin DTO for one payout rule.
type PayoutRuleRequest struct {
	ID          string          `json:"id" validate:"required,notblank,printascii,max=255"`
	Priority    *int            `json:"priority" validate:"required"`
	Pattern     PatternKind     `json:"pattern" validate:"required"`
	MatchCount  int             `json:"match_count" validate:"omitempty,gte=2"`
	SymbolKey   string          `json:"symbol_key" validate:"max=64"`
	JackpotOnly bool            `json:"jackpot_only"`
	Multiplier  decimal.Decimal `json:"multiplier"`
	FlatBonus   int64           `json:"flat_bonus"`
	IsEnabled   bool            `json:"is_enabled"`
}

// CreditRequest is the admin DTO for crediting a user wallet.
type CreditRequest struct {
	UserID string `json:"user_id" validate:"required,notblank,printascii,max=255"`
	Amount *int64 `json:"amount" validate:"required,gte=1"`
}

// RestockRequest is the admin DTO for topping up an entry's live stock.
type RestockRequest struct {
	Delta *int64 `json:"delta" validate:"required,gte=1"`
}

// EntryProbability is one row of the admin probability listing. Probability
// is computed over the same live entry set the allocator draws from.
type EntryProbability struct {
	EntryID     string  `json:"entry_id"`
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`
	Probability float64 `json:"probability"`
	Remaining   *int64  `json:"remaining"` // nil = unlimited
	SoldOut     bool    `json:"sold_out"`
	IsEnabled   bool    `json:"is_enabled"`
}
