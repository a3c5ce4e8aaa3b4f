package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/contestbox/reward-engine/internal/model"
	"github.com/contestbox/reward-engine/internal/service"
)

// AdminServiceInterface defines the interface for configuration and wallet
// administration.
type AdminServiceInterface interface {
	CreatePool(ctx context.Context, req *model.CreatePoolRequest) error
	UpsertEntry(ctx context.Context, poolID string, req *model.UpsertEntryRequest) error
	DeleteEntry(ctx context.Context, poolID, entryID string) error
	CreateReelConfig(ctx context.Context, req *model.CreateReelConfigRequest) error
	Probabilities(ctx context.Context, poolID string) ([]model.EntryProbability, error)
	Credit(ctx context.Context, userID string, amount int64) error
	Balance(ctx context.Context, userID string) (int64, error)
	Restock(ctx context.Context, entryID string, delta int64) error
}

// GrantLister reads a user's fulfilled prize grants.
type GrantLister interface {
	GrantsByUser(ctx context.Context, userID string) ([]*model.Grant, error)
}

// AdminHandler handles HTTP requests for pool, reel and wallet administration.
type AdminHandler struct {
	service   AdminServiceInterface
	grants    GrantLister
	validator *validator.Validate
}

// NewAdminHandler creates a new AdminHandler. grants may be nil when grant
// history is not exposed.
func NewAdminHandler(svc AdminServiceInterface, grants GrantLister, v *validator.Validate) *AdminHandler {
	return &AdminHandler{service: svc, grants: grants, validator: v}
}

// CreatePool handles POST /api/pools requests.
func (h *AdminHandler) CreatePool(c *fiber.Ctx) error {
	var req model.CreatePoolRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	if err := h.service.CreatePool(c.Context(), &req); err != nil {
		return h.configError(c, err, "failed to create pool")
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("pool_id", req.ID).
		Int("entries", len(req.Entries)).
		Msg("pool created")
	return c.Status(fiber.StatusCreated).Send(nil)
}

// UpsertEntry handles PUT /api/pools/:id/entries requests.
func (h *AdminHandler) UpsertEntry(c *fiber.Ctx) error {
	poolID := c.Params("id")
	var req model.UpsertEntryRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	if err := h.service.UpsertEntry(c.Context(), poolID, &req); err != nil {
		return h.configError(c, err, "failed to upsert entry")
	}
	return c.Status(fiber.StatusOK).Send(nil)
}

// DeleteEntry handles DELETE /api/pools/:id/entries/:entryID requests.
func (h *AdminHandler) DeleteEntry(c *fiber.Ctx) error {
	poolID := c.Params("id")
	entryID := c.Params("entryID")

	if err := h.service.DeleteEntry(c.Context(), poolID, entryID); err != nil {
		return h.configError(c, err, "failed to delete entry")
	}
	return c.Status(fiber.StatusOK).Send(nil)
}

// CreateReelConfig handles POST /api/reels requests.
func (h *AdminHandler) CreateReelConfig(c *fiber.Ctx) error {
	var req model.CreateReelConfigRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	if err := h.service.CreateReelConfig(c.Context(), &req); err != nil {
		return h.configError(c, err, "failed to create reel config")
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("reel_config_id", req.ID).
		Int("symbols", len(req.Symbols)).
		Int("rules", len(req.Rules)).
		Msg("reel config created")
	return c.Status(fiber.StatusCreated).Send(nil)
}

// Probabilities handles GET /api/pools/:id/probabilities requests.
func (h *AdminHandler) Probabilities(c *fiber.Ctx) error {
	poolID := c.Params("id")

	probs, err := h.service.Probabilities(c.Context(), poolID)
	if err != nil {
		if errors.Is(err, service.ErrPoolNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "prize pool not found"})
		}
		return h.configError(c, err, "failed to list probabilities")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"pool_id": poolID, "entries": probs})
}

// Credit handles POST /api/wallets/credit requests.
func (h *AdminHandler) Credit(c *fiber.Ctx) error {
	var req model.CreditRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	if err := h.service.Credit(c.Context(), req.UserID, *req.Amount); err != nil {
		return h.configError(c, err, "failed to credit wallet")
	}
	return c.Status(fiber.StatusOK).Send(nil)
}

// Balance handles GET /api/wallets/:userID requests.
func (h *AdminHandler) Balance(c *fiber.Ctx) error {
	userID := c.Params("userID")

	balance, err := h.service.Balance(c.Context(), userID)
	if err != nil {
		return h.configError(c, err, "failed to read balance")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"user_id": userID, "balance": balance})
}

// Restock handles POST /api/entries/:id/restock requests.
func (h *AdminHandler) Restock(c *fiber.Ctx) error {
	entryID := c.Params("id")
	var req model.RestockRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	if err := h.service.Restock(c.Context(), entryID, *req.Delta); err != nil {
		if errors.Is(err, service.ErrPoolNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "prize entry not found"})
		}
		return h.configError(c, err, "failed to restock entry")
	}
	return c.Status(fiber.StatusOK).Send(nil)
}

// Grants handles GET /api/users/:userID/grants requests.
func (h *AdminHandler) Grants(c *fiber.Ctx) error {
	if h.grants == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "grant history not available"})
	}
	userID := c.Params("userID")

	grants, err := h.grants.GrantsByUser(c.Context(), userID)
	if err != nil {
		return h.configError(c, err, "failed to list grants")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"user_id": userID, "grants": grants})
}

// configError maps shared admin error cases to HTTP responses.
func (h *AdminHandler) configError(c *fiber.Ctx, err error, msg string) error {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	case errors.Is(err, service.ErrConfigInconsistent):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "configuration is inconsistent"})
	case errors.Is(err, service.ErrPoolNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "prize pool not found"})
	}

	log.Error().
		Err(err).
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg(msg)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}
