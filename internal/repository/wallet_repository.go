package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contestbox/reward-engine/internal/engine/wallet"
)

// WalletRepository is the Postgres-backed wallet.Wallet. The conditional
// UPDATE makes the check-and-debit a single atomic statement, so two
// simultaneous draws can never both spend one balance's worth of points.
type WalletRepository struct {
	pool PoolInterface
}

// NewWalletRepository creates a new WalletRepository with the given pool.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

// NewWalletRepositoryWithPool creates a WalletRepository with a custom pool
// interface. Primarily used for testing.
func NewWalletRepositoryWithPool(pool PoolInterface) *WalletRepository {
	return &WalletRepository{pool: pool}
}

// Debit atomically checks and debits the balance.
// Returns wallet.ErrInsufficientBalance when the row is missing or the
// balance cannot cover the amount; either way nothing is mutated.
func (r *WalletRepository) Debit(ctx context.Context, userID string, amount int64) error {
	if amount < 0 {
		return wallet.ErrInvalidAmount
	}
	if amount == 0 {
		return nil
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE wallets SET balance = balance - $2 WHERE user_id = $1 AND balance >= $2`,
		userID, amount)
	if err != nil {
		return fmt.Errorf("debit wallet %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return wallet.ErrInsufficientBalance
	}
	return nil
}

// Credit adds amount to the balance, creating the wallet row on first use.
func (r *WalletRepository) Credit(ctx context.Context, userID string, amount int64) error {
	if amount < 0 {
		return wallet.ErrInvalidAmount
	}
	if amount == 0 {
		return nil
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO wallets (user_id, balance) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET balance = wallets.balance + EXCLUDED.balance`,
		userID, amount)
	if err != nil {
		return fmt.Errorf("credit wallet %s: %w", userID, err)
	}
	return nil
}

// Balance returns the current balance; unknown users have balance 0.
func (r *WalletRepository) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx,
		`SELECT balance FROM wallets WHERE user_id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get wallet balance %s: %w", userID, err)
	}
	return balance, nil
}
