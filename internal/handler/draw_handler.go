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

// DrawServiceInterface defines the interface for draw business logic.
type DrawServiceInterface interface {
	Draw(ctx context.Context, userID, poolID string) (*model.PrizeView, error)
}

// DrawHandler handles HTTP requests for prize draws.
type DrawHandler struct {
	service   DrawServiceInterface
	validator *validator.Validate
}

// NewDrawHandler creates a new DrawHandler with the given service and validator.
func NewDrawHandler(svc DrawServiceInterface, v *validator.Validate) *DrawHandler {
	return &DrawHandler{service: svc, validator: v}
}

// Draw handles POST /api/draws requests to resolve one weighted draw.
//
// Every outcome of a well-formed draw is a 200 response; the body's success
// and has_stock flags carry it. A committed draw (including a NOTHING miss,
// which consumes the attempt) carries the prize; rejections for balance or
// claim limits come back with success=false, has_stock=true and no prize.
// Only malformed requests and unknown or broken pools map to error statuses.
func (h *DrawHandler) Draw(c *fiber.Ctx) error {
	var req model.DrawRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	prize, err := h.service.Draw(c.Context(), req.UserID, req.PoolID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPoolNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "prize pool not found"})
		case errors.Is(err, service.ErrPoolInactive):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "prize pool is not active"})
		case errors.Is(err, service.ErrInsufficientBalance):
			return c.Status(fiber.StatusOK).JSON(model.DrawResponse{
				Success:  false,
				HasStock: true,
				Message:  "insufficient balance",
			})
		case errors.Is(err, service.ErrDailyLimitExceeded):
			return c.Status(fiber.StatusOK).JSON(model.DrawResponse{
				Success:  false,
				HasStock: true,
				Message:  "daily draw limit exceeded",
			})
		case errors.Is(err, service.ErrAlreadyClaimed):
			return c.Status(fiber.StatusOK).JSON(model.DrawResponse{
				Success:  false,
				HasStock: true,
				Message:  "prize already claimed",
			})
		case errors.Is(err, service.ErrNoStock):
			return c.Status(fiber.StatusOK).JSON(model.DrawResponse{
				Success:  false,
				HasStock: false,
				Message:  "all prizes are gone",
			})
		case errors.Is(err, service.ErrConfigInconsistent):
			log.Error().
				Str("request_id", c.GetRespHeader("X-Request-ID")).
				Str("pool_id", req.PoolID).
				Msg("draw rejected: inconsistent pool configuration")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "pool configuration is inconsistent"})
		}

		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("user_id", req.UserID).
			Str("pool_id", req.PoolID).
			Msg("failed to resolve draw")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	msg := "prize awarded"
	if prize.Kind == model.KindNothing {
		msg = "better luck next time"
	}

	return c.Status(fiber.StatusOK).JSON(model.DrawResponse{
		Success:  prize.Kind != model.KindNothing,
		HasStock: true,
		Prize:    prize,
		Message:  msg,
	})
}
