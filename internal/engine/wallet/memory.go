package wallet

import (
	"context"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v2"
)

// Memory is an in-process Wallet backed by an arena of atomic balance
// cells. It serves tests and single-node deployments; the Postgres-backed
// implementation lives in internal/repository.
type Memory struct {
	balances *xsync.MapOf[string, *int64]
}

// NewMemory creates an empty in-memory wallet. Unknown users have balance 0.
func NewMemory() *Memory {
	return &Memory{balances: xsync.NewMapOf[*int64]()}
}

func (m *Memory) cell(userID string) *int64 {
	c, _ := m.balances.LoadOrCompute(userID, func() *int64 { return new(int64) })
	return c
}

// Debit atomically checks and debits the balance in one CAS.
func (m *Memory) Debit(_ context.Context, userID string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	if amount == 0 {
		return nil
	}
	c := m.cell(userID)
	for {
		cur := atomic.LoadInt64(c)
		if cur < amount {
			return ErrInsufficientBalance
		}
		if atomic.CompareAndSwapInt64(c, cur, cur-amount) {
			return nil
		}
	}
}

// Credit adds amount to the balance.
func (m *Memory) Credit(_ context.Context, userID string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	if amount == 0 {
		return nil
	}
	atomic.AddInt64(m.cell(userID), amount)
	return nil
}

// Balance returns the current balance. Point-in-time read for display;
// spending decisions go through Debit.
func (m *Memory) Balance(_ context.Context, userID string) (int64, error) {
	c, ok := m.balances.Load(userID)
	if !ok {
		return 0, nil
	}
	return atomic.LoadInt64(c), nil
}
