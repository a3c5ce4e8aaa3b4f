package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contestbox/reward-engine/internal/engine/wallet"
)

// mockRow implements pgx.Row for testing QueryRow-based methods.
type mockRow struct {
	scanFn func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.scanFn != nil {
		return m.scanFn(dest...)
	}
	return nil
}

// mockPool implements PoolInterface for testing.
type mockPool struct {
	execFn     func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	beginFn    func(ctx context.Context) (pgx.Tx, error)
}

func (m *mockPool) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	if m.execFn != nil {
		return m.execFn(ctx, sql, arguments...)
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (m *mockPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFn != nil {
		return m.queryRowFn(ctx, sql, args...)
	}
	return &mockRow{}
}

func (m *mockPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, sql, args...)
	}
	return nil, errors.New("query not mocked")
}

func (m *mockPool) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginFn != nil {
		return m.beginFn(ctx)
	}
	return nil, errors.New("begin not mocked")
}

func TestWalletRepository_Debit_Success(t *testing.T) {
	var capturedSQL string
	var capturedArgs []any

	mock := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			capturedSQL = sql
			capturedArgs = arguments
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}

	repo := NewWalletRepositoryWithPool(mock)
	err := repo.Debit(context.Background(), "user-1", 30)

	require.NoError(t, err)
	assert.Contains(t, capturedSQL, "UPDATE wallets")
	assert.Contains(t, capturedSQL, "balance >= $2")
	assert.Equal(t, "user-1", capturedArgs[0])
	assert.Equal(t, int64(30), capturedArgs[1])
}

func TestWalletRepository_Debit_InsufficientBalance(t *testing.T) {
	mock := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			// Zero rows affected: the conditional UPDATE found no row to touch.
			return pgconn.NewCommandTag("UPDATE 0"), nil
		},
	}

	repo := NewWalletRepositoryWithPool(mock)
	err := repo.Debit(context.Background(), "user-1", 9999)

	require.Error(t, err)
	assert.True(t, errors.Is(err, wallet.ErrInsufficientBalance))
}

func TestWalletRepository_Debit_ZeroAmountSkipsDatabase(t *testing.T) {
	mock := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			t.Fatal("zero debit must not hit the database")
			return pgconn.CommandTag{}, nil
		},
	}

	repo := NewWalletRepositoryWithPool(mock)
	require.NoError(t, repo.Debit(context.Background(), "user-1", 0))
}

func TestWalletRepository_Debit_NegativeAmount(t *testing.T) {
	repo := NewWalletRepositoryWithPool(&mockPool{})
	err := repo.Debit(context.Background(), "user-1", -5)

	require.Error(t, err)
	assert.True(t, errors.Is(err, wallet.ErrInvalidAmount))
}

func TestWalletRepository_Credit_UpsertsRow(t *testing.T) {
	var capturedSQL string

	mock := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			capturedSQL = sql
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}

	repo := NewWalletRepositoryWithPool(mock)
	err := repo.Credit(context.Background(), "user-1", 100)

	require.NoError(t, err)
	assert.Contains(t, capturedSQL, "INSERT INTO wallets")
	assert.Contains(t, capturedSQL, "ON CONFLICT (user_id)")
}

func TestWalletRepository_Balance_UnknownUserIsZero(t *testing.T) {
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error {
				return pgx.ErrNoRows
			}}
		},
	}

	repo := NewWalletRepositoryWithPool(mock)
	balance, err := repo.Balance(context.Background(), "ghost")

	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestWalletRepository_Balance_Success(t *testing.T) {
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error {
				*(dest[0].(*int64)) = 250
				return nil
			}}
		},
	}

	repo := NewWalletRepositoryWithPool(mock)
	balance, err := repo.Balance(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, int64(250), balance)
}

func TestWalletRepository_Balance_DatabaseError(t *testing.T) {
	dbErr := errors.New("connection refused")
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error {
				return dbErr
			}}
		},
	}

	repo := NewWalletRepositoryWithPool(mock)
	_, err := repo.Balance(context.Background(), "user-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "get wallet balance")
}
