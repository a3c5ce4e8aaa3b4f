package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contestbox/reward-engine/internal/model"
)

func TestGrantRepository_SaveGrant_Success(t *testing.T) {
	var capturedSQL string
	var capturedArgs []any

	mock := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			capturedSQL = sql
			capturedArgs = arguments
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}

	repo := NewGrantRepositoryWithPool(mock)
	grant := &model.Grant{
		ID:        "grant-1",
		UserID:    "user-1",
		EntryID:   "entry-1",
		Kind:      model.KindAPIKey,
		APIKey:    "key-abc",
		CreatedAt: time.Now(),
	}

	err := repo.SaveGrant(context.Background(), grant)

	require.NoError(t, err)
	assert.Contains(t, capturedSQL, "INSERT INTO grants")
	assert.Contains(t, capturedSQL, "ON CONFLICT (id) DO NOTHING")
	assert.Equal(t, "grant-1", capturedArgs[0])
	assert.Equal(t, "API_KEY", capturedArgs[3])
	assert.Equal(t, "key-abc", capturedArgs[4])
}

func TestGrantRepository_SaveGrant_DatabaseError(t *testing.T) {
	mock := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, errors.New("connection refused")
		},
	}

	repo := NewGrantRepositoryWithPool(mock)
	err := repo.SaveGrant(context.Background(), &model.Grant{ID: "grant-1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert grant")
}
