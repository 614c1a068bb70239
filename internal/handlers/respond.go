package handlers

import (
	"errors"

	"nexus/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

// Every response uses the same envelope: {status, description, data}. On
// failure, data carries {message, error}.

func respondSuccess(c *fiber.Ctx, code int, description string, data interface{}) error {
	return c.Status(code).JSON(fiber.Map{
		"status":      "success",
		"description": description,
		"data":        data,
	})
}

func respondError(c *fiber.Ctx, err error, message string) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"status":      "error",
		"description": message,
		"data": fiber.Map{
			"message": message,
			"error":   err.Error(),
		},
	})
}

// statusFor maps the error taxonomy to HTTP status codes. State conflicts
// against entity status (invalid state) stay 400; losing a competing write
// (claim conflict, duplicate rating) is 409.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, apperr.ErrInvalidState):
		return fiber.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperr.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, apperr.ErrConflict):
		return fiber.StatusConflict
	default:
		// Includes upstream provider failures and anything unexpected.
		return fiber.StatusInternalServerError
	}
}

// callerID extracts the authenticated user's id set by the JWT middleware.
func callerID(c *fiber.Ctx) string {
	if id, ok := c.Locals("user_id").(string); ok {
		return id
	}
	return ""
}
