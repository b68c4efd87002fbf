package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/momentumblock/pcl-proxy/internal/cors"
	"github.com/momentumblock/pcl-proxy/internal/models"
	"github.com/momentumblock/pcl-proxy/internal/queue"
)

// NotifyHandler accepts booking-created pings from the widget and hands
// them to the notify workers. The caller gets its 202 before any relay
// happens; the relay's outcome never reaches it.
type NotifyHandler struct {
	cfg   *models.Config
	queue *queue.NotificationsQueue
}

func NewNotifyHandler(cfg *models.Config, q *queue.NotificationsQueue) *NotifyHandler {
	return &NotifyHandler{cfg: cfg, queue: q}
}

func (h *NotifyHandler) Handle(c *fiber.Ctx) error {
	cors.Apply(c, cors.Wildcard)

	switch c.Method() {
	case fiber.MethodOptions:
		return c.SendStatus(http.StatusNoContent)
	case fiber.MethodPost:
	default:
		return c.Status(http.StatusMethodNotAllowed).
			JSON(fiber.Map{"ok": false, "error": "method_not_allowed"})
	}

	if !h.cfg.NotifyPathConfigured() {
		return c.Status(http.StatusInternalServerError).
			JSON(fiber.Map{"ok": false, "error": "missing_env"})
	}

	// An unparsable body counts as an empty one here; the only field that
	// matters is the booking id.
	var req struct {
		BookingID string `json:"booking_id"`
	}
	_ = json.Unmarshal(c.Body(), &req)

	bookingID := strings.TrimSpace(req.BookingID)
	if bookingID == "" {
		return c.Status(http.StatusBadRequest).
			JSON(fiber.Map{"ok": false, "error": "missing_booking_id"})
	}

	evt := models.NotificationEvent{
		ID:        uuid.NewString(),
		Type:      "booking_created",
		BookingID: bookingID,
	}
	if err := h.queue.Publish(evt); err != nil {
		// Best-effort channel: drop, log, still acknowledge.
		log.Errorf("dropping notification %s for booking %s: %v", evt.ID, bookingID, err)
	}

	return c.Status(http.StatusAccepted).JSON(fiber.Map{"ok": true})
}
