package handlers

import (
	"errors"

	"college-progress-service/services"
	"college-progress-service/utils"

	"github.com/gofiber/fiber/v2"
)

// respondError maps service error kinds onto HTTP statuses.
func respondError(c *fiber.Ctx, log *utils.Logger, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrBadRequest):
		status = fiber.StatusBadRequest
	}

	if status == fiber.StatusInternalServerError {
		log.Error("[HTTP] request failed", "path", c.Path(), "error", err)
		return c.Status(status).JSON(fiber.Map{
			"error": "internal error",
			"cause": err.Error(),
		})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
