package v1

import (
	"strings"

	"workfit-event-service-golang/internal/ratelimit"
	"workfit-event-service-golang/internal/store"

	fiber "github.com/gofiber/fiber/v2"
)

// Export limit: 5 requests per rolling 24 hours per admin.
const (
	exportMaxRequests   = 5
	exportWindowSeconds = 24 * 60 * 60
)

// AdminAPI groups the operational endpoints: DLT replay, data export and
// rate-limit inspection.
type AdminAPI struct {
	Limiter *ratelimit.Limiter
	Users   *store.UserStore
	Replay  func() // triggers one DLT replay pass in the background
}

// Đăng ký các route "admin"
func (a *AdminAPI) RegisterAdminRoutes(r fiber.Router) {
	r.Post("/dlt/replay", a.triggerReplay)
	r.Get("/export", a.exportData)
	r.Get("/rate-limit", a.inspectRateLimit)
}

// @Summary Trigger a dead-letter replay pass
// @Description Drains the dead-letter topics once, outside the cron schedule
// @Tags admin
// @Produce json
// @Success 202 {object} map[string]interface{}
// @Router /admin/dlt/replay [post]
func (a *AdminAPI) triggerReplay(c *fiber.Ctx) error {
	go a.Replay()
	return c.Status(202).JSON(fiber.Map{"message": "replay started"})
}

// @Summary Export user data
// @Description Heavy endpoint, limited to 5 requests per admin per 24h
// @Tags admin
// @Produce json
// @Param admin query string true "Admin identifier"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Router /admin/export [get]
func (a *AdminAPI) exportData(c *fiber.Ctx) error {
	admin := strings.TrimSpace(c.Query("admin"))
	if admin == "" {
		return c.Status(400).JSON(fiber.Map{"error": "admin required"})
	}

	key := ratelimit.OperationKey("admin_export", admin)
	if !a.Limiter.Allow(c.Context(), key, exportMaxRequests, exportWindowSeconds) {
		retryAfter := a.Limiter.ResetAfter(c.Context(), key)
		return c.Status(429).JSON(fiber.Map{
			"error":        "export limit reached, try again later",
			"retryAfterMs": retryAfter.Milliseconds(),
		})
	}

	count, err := a.Users.CountUsers(c.Context())
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"message":   "export queued",
		"userCount": count,
		"remaining": a.Limiter.Remaining(c.Context(), key, exportMaxRequests),
	})
}

// @Summary Inspect a rate-limit counter
// @Tags admin
// @Produce json
// @Param operation query string true "Operation name"
// @Param subject query string true "Subject (user, email, ...)"
// @Param max query int false "Window maximum (default 10)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /admin/rate-limit [get]
func (a *AdminAPI) inspectRateLimit(c *fiber.Ctx) error {
	operation := strings.TrimSpace(c.Query("operation"))
	subject := strings.TrimSpace(c.Query("subject"))
	if operation == "" || subject == "" {
		return c.Status(400).JSON(fiber.Map{"error": "operation and subject required"})
	}
	max := c.QueryInt("max", 10)

	key := ratelimit.OperationKey(operation, subject)
	return c.JSON(fiber.Map{
		"key":          key,
		"remaining":    a.Limiter.Remaining(c.Context(), key, max),
		"resetAfterMs": a.Limiter.ResetAfter(c.Context(), key).Milliseconds(),
	})
}
