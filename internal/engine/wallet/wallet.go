// Package wallet defines the point-balance access used by the allocators.
// The balance itself is owned by the account subsystem; the engine only
// needs an atomic conditional debit and a credit, composed saga-style with
// stock and claim mutations.
package wallet

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientBalance is returned by Debit when the balance cannot
	// cover the amount. The balance is left untouched.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount is returned for negative debit/credit amounts.
	ErrInvalidAmount = errors.New("invalid amount")
)

// Wallet is the debit/credit surface of the account subsystem. Debit is a
// single atomic check-and-debit: two simultaneous draws can never both
// afford one balance's worth of points.
type Wallet interface {
	Debit(ctx context.Context, userID string, amount int64) error
	Credit(ctx context.Context, userID string, amount int64) error
	Balance(ctx context.Context, userID string) (int64, error)
}
