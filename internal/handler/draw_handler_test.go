package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contestbox/reward-engine/internal/model"
	"github.com/contestbox/reward-engine/internal/service"
	"github.com/contestbox/reward-engine/internal/validator"
)

// mockDrawService is a mock implementation of DrawServiceInterface.
type mockDrawService struct {
	drawFn func(ctx context.Context, userID, poolID string) (*model.PrizeView, error)
}

func (m *mockDrawService) Draw(ctx context.Context, userID, poolID string) (*model.PrizeView, error) {
	if m.drawFn != nil {
		return m.drawFn(ctx, userID, poolID)
	}
	return &model.PrizeView{}, nil
}

func setupDrawTestApp(mockSvc *mockDrawService) *fiber.App {
	app := fiber.New()
	h := NewDrawHandler(mockSvc, validator.New())
	app.Post("/api/draws", h.Draw)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestDraw_Success(t *testing.T) {
	mockSvc := &mockDrawService{
		drawFn: func(ctx context.Context, userID, poolID string) (*model.PrizeView, error) {
			assert.Equal(t, "user_001", userID)
			assert.Equal(t, "summer-pool", poolID)
			return &model.PrizeView{
				EntryID:     "entry-1",
				Name:        "100 points",
				Kind:        model.KindPoints,
				PointAmount: 100,
			}, nil
		},
	}
	app := setupDrawTestApp(mockSvc)

	resp := postJSON(t, app, "/api/draws", `{"user_id": "user_001", "pool_id": "summer-pool"}`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result model.DrawResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Success)
	assert.True(t, result.HasStock)
	require.NotNil(t, result.Prize)
	assert.Equal(t, "entry-1", result.Prize.EntryID)
	assert.Equal(t, int64(100), result.Prize.PointAmount)
}

func TestDraw_NothingPrizeIsNotSuccess(t *testing.T) {
	mockSvc := &mockDrawService{
		drawFn: func(ctx context.Context, userID, poolID string) (*model.PrizeView, error) {
			return &model.PrizeView{EntryID: "entry-miss", Kind: model.KindNothing}, nil
		},
	}
	app := setupDrawTestApp(mockSvc)

	resp := postJSON(t, app, "/api/draws", `{"user_id": "user_001", "pool_id": "summer-pool"}`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result model.DrawResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.False(t, result.Success)
	assert.True(t, result.HasStock)
	assert.Equal(t, "better luck next time", result.Message)

	// A committed miss still carries the resolved prize; that is what
	// distinguishes it from a rejected attempt.
	require.NotNil(t, result.Prize)
	assert.Equal(t, model.KindNothing, result.Prize.Kind)
}

func TestDraw_NoStockIs200WithFlag(t *testing.T) {
	mockSvc := &mockDrawService{
		drawFn: func(ctx context.Context, userID, poolID string) (*model.PrizeView, error) {
			return nil, service.ErrNoStock
		},
	}
	app := setupDrawTestApp(mockSvc)

	resp := postJSON(t, app, "/api/draws", `{"user_id": "user_001", "pool_id": "summer-pool"}`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result model.DrawResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.False(t, result.Success)
	assert.False(t, result.HasStock)
	assert.Nil(t, result.Prize)
}

func TestDraw_PoolNotFound(t *testing.T) {
	mockSvc := &mockDrawService{
		drawFn: func(ctx context.Context, userID, poolID string) (*model.PrizeView, error) {
			return nil, service.ErrPoolNotFound
		},
	}
	app := setupDrawTestApp(mockSvc)

	resp := postJSON(t, app, "/api/draws", `{"user_id": "user_001", "pool_id": "ghost"}`)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "prize pool not found", result["error"])
}

func TestDraw_InsufficientBalance(t *testing.T) {
	mockSvc := &mockDrawService{
		drawFn: func(ctx context.Context, userID, poolID string) (*model.PrizeView, error) {
			return nil, service.ErrInsufficientBalance
		},
	}
	app := setupDrawTestApp(mockSvc)

	resp := postJSON(t, app, "/api/draws", `{"user_id": "user_001", "pool_id": "summer-pool"}`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result model.DrawResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.False(t, result.Success)
	assert.True(t, result.HasStock)
	assert.Nil(t, result.Prize)
	assert.Equal(t, "insufficient balance", result.Message)
}

func TestDraw_DailyLimitExceeded(t *testing.T) {
	mockSvc := &mockDrawService{
		drawFn: func(ctx context.Context, userID, poolID string) (*model.PrizeView, error) {
			return nil, service.ErrDailyLimitExceeded
		},
	}
	app := setupDrawTestApp(mockSvc)

	resp := postJSON(t, app, "/api/draws", `{"user_id": "user_001", "pool_id": "summer-pool"}`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result model.DrawResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.False(t, result.Success)
	assert.True(t, result.HasStock)
	assert.Nil(t, result.Prize)
	assert.Equal(t, "daily draw limit exceeded", result.Message)
}

func TestDraw_AlreadyClaimed(t *testing.T) {
	mockSvc := &mockDrawService{
		drawFn: func(ctx context.Context, userID, poolID string) (*model.PrizeView, error) {
			return nil, service.ErrAlreadyClaimed
		},
	}
	app := setupDrawTestApp(mockSvc)

	resp := postJSON(t, app, "/api/draws", `{"user_id": "user_001", "pool_id": "easter-egg"}`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result model.DrawResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.False(t, result.Success)
	assert.True(t, result.HasStock)
	assert.Nil(t, result.Prize)
	assert.Equal(t, "prize already claimed", result.Message)
}

func TestDraw_MissingUserID(t *testing.T) {
	app := setupDrawTestApp(&mockDrawService{})

	resp := postJSON(t, app, "/api/draws", `{"pool_id": "summer-pool"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "invalid request: user_id is required", result["error"])
}

func TestDraw_BlankPoolID(t *testing.T) {
	app := setupDrawTestApp(&mockDrawService{})

	resp := postJSON(t, app, "/api/draws", `{"user_id": "user_001", "pool_id": "   "}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "invalid request: pool_id cannot be whitespace only", result["error"])
}

func TestDraw_ControlCharacterUserID(t *testing.T) {
	// Identifiers flow into NUL-separated claim counter keys, so a NUL in
	// the user ID must never reach the service.
	app := setupDrawTestApp(&mockDrawService{
		drawFn: func(ctx context.Context, userID, poolID string) (*model.PrizeView, error) {
			t.Fatal("draw must not run for an identifier with control characters")
			return nil, nil
		},
	})

	resp := postJSON(t, app, "/api/draws", `{"user_id": "user\u0000evil", "pool_id": "summer-pool"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "invalid request: user_id contains non-printable characters", result["error"])
}

func TestDraw_MalformedBody(t *testing.T) {
	app := setupDrawTestApp(&mockDrawService{})

	resp := postJSON(t, app, "/api/draws", `{"user_id": `)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
