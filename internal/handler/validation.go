package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// fieldNames maps struct field names to their JSON names for error messages.
var fieldNames = map[string]string{
	"UserID":       "user_id",
	"PoolID":       "pool_id",
	"ReelConfigID": "reel_config_id",
	"Stake":        "stake",
	"Amount":       "amount",
	"Delta":        "delta",
	"CostPoints":   "cost_points",
	"DailyLimit":   "daily_limit",
	"ReelCount":    "reel_count",
	"Symbols":      "symbols",
	"Rules":        "rules",
	"Entries":      "entries",
	"Weight":       "weight",
	"Stock":        "stock",
	"Priority":     "priority",
	"Pattern":      "pattern",
	"MatchCount":   "match_count",
	"SymbolKey":    "symbol_key",
	"Key":          "key",
	"ID":           "id",
	"Name":         "name",
	"Kind":         "kind",
}

// formatValidationError converts the first validator error into a stable,
// user-facing message.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid request"
	}

	fe := ve[0]
	field, ok := fieldNames[fe.Field()]
	if !ok {
		field = strings.ToLower(fe.Field())
	}

	switch fe.Tag() {
	case "required":
		return "invalid request: " + field + " is required"
	case "notblank":
		return "invalid request: " + field + " cannot be whitespace only"
	case "printascii":
		return "invalid request: " + field + " contains non-printable characters"
	case "max":
		return "invalid request: " + field + " exceeds maximum length of " + fe.Param()
	case "min":
		return "invalid request: " + field + " needs at least " + fe.Param() + " items"
	case "gte":
		return "invalid request: " + field + " must be at least " + fe.Param()
	case "gt":
		return "invalid request: " + field + " must be greater than " + fe.Param()
	case "lte":
		return "invalid request: " + field + " must be at most " + fe.Param()
	}
	return "invalid request: " + field + " is invalid"
}
