package v1

import (
	"strconv"
	"strings"

	"workfit-event-service-golang/internal/notification"
	"workfit-event-service-golang/internal/store"

	fiber "github.com/gofiber/fiber/v2"
)

// NotificationAPI serves the in-app notification inbox plus a small
// introspection surface over the delivery chain.
type NotificationAPI struct {
	Store        *store.NotificationStore
	Orchestrator *notification.Orchestrator
}

// Đăng ký các route "notifications"
func (a *NotificationAPI) RegisterNotificationRoutes(r fiber.Router) {
	r.Get("/", a.listNotifications)
	r.Patch("/:id/read", a.markRead)
	r.Get("/strategies", a.listStrategies)
}

// @Summary List in-app notifications
// @Description Returns stored notifications for a recipient, newest first
// @Tags notifications
// @Produce json
// @Param email query string true "Recipient email"
// @Param limit query int false "Max results (default 50)"
// @Success 200 {array} store.Notification
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /notifications [get]
func (a *NotificationAPI) listNotifications(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		return c.Status(400).JSON(fiber.Map{"error": "email required"})
	}
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	list, err := a.Store.ListByRecipient(c.Context(), email, int64(limit))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(list)
}

// @Summary Mark a notification read
// @Tags notifications
// @Produce json
// @Param id path string true "Notification event ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /notifications/{id}/read [patch]
func (a *NotificationAPI) markRead(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := a.Store.MarkRead(c.Context(), id); err != nil {
		if err == store.ErrNotFound {
			return c.Status(404).JSON(fiber.Map{"error": "notification not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "marked read"})
}

// @Summary List registered delivery strategies
// @Description Shows the strategy chain in priority order
// @Tags notifications
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /notifications/strategies [get]
func (a *NotificationAPI) listStrategies(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"strategies": a.Orchestrator.Registered()})
}
