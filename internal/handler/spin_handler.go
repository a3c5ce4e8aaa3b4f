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

// SpinServiceInterface defines the interface for slot-machine spin logic.
type SpinServiceInterface interface {
	Spin(ctx context.Context, userID, reelConfigID string, stake int64) (*model.SpinResponse, error)
}

// SpinHandler handles HTTP requests for slot-machine spins.
type SpinHandler struct {
	service   SpinServiceInterface
	validator *validator.Validate
}

// NewSpinHandler creates a new SpinHandler with the given service and validator.
func NewSpinHandler(svc SpinServiceInterface, v *validator.Validate) *SpinHandler {
	return &SpinHandler{service: svc, validator: v}
}

// Spin handles POST /api/spins requests. A losing spin is a 200 response;
// the payout field carries the result.
func (h *SpinHandler) Spin(c *fiber.Ctx) error {
	var req model.SpinRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	result, err := h.service.Spin(c.Context(), req.UserID, req.ReelConfigID, *req.Stake)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReelConfigNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "reel configuration not found"})
		case errors.Is(err, service.ErrInsufficientBalance):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "insufficient balance"})
		case errors.Is(err, service.ErrInvalidRequest):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: stake must be at least 1"})
		case errors.Is(err, service.ErrConfigInconsistent):
			log.Error().
				Str("request_id", c.GetRespHeader("X-Request-ID")).
				Str("reel_config_id", req.ReelConfigID).
				Msg("spin rejected: inconsistent reel configuration")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "reel configuration is inconsistent"})
		}

		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("user_id", req.UserID).
			Str("reel_config_id", req.ReelConfigID).
			Msg("failed to resolve spin")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	if result.Payout > 0 {
		result.Message = "payout credited"
	} else {
		result.Message = "no win"
	}

	return c.Status(fiber.StatusOK).JSON(result)
}
