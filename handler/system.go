package handler

import (
	"context"
	"time"

	"onam_fest/utils"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := h.Orders.Ping(ctx); err != nil {
		utils.Log.Warnw("health check failed", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "degraded",
			"database": "disconnected",
		})
	}
	return c.JSON(fiber.Map{
		"status":   "ok",
		"database": "connected",
		"uptime":   int64(time.Since(h.started).Seconds()),
	})
}

func (h *Handler) PublicConfig(c *fiber.Ctx) error {
	return utils.SuccessResponse(c, fiber.StatusOK, h.public)
}

// CSRFToken returns the token the csrf middleware stored for this request.
func (h *Handler) CSRFToken(c *fiber.Ctx) error {
	token, _ := c.Locals("csrf").(string)
	return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{"csrfToken": token})
}
