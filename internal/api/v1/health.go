package v1

import (
	fiber "github.com/gofiber/fiber/v2"
)

// RegisterHealthRoutes wires the liveness probe.
func RegisterHealthRoutes(r fiber.Router) {
	r.Get("/health", HealthCheck)
}

// @Summary Health check
// @Description Check if the event service is alive
// @Tags health
// @Produce plain
// @Success 200 {string} string "ok"
// @Router /health [get]
func HealthCheck(c *fiber.Ctx) error { return c.SendString("ok") }
