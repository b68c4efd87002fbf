package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/momentumblock/pcl-proxy/internal/cors"
	"github.com/momentumblock/pcl-proxy/internal/models"
	"github.com/momentumblock/pcl-proxy/internal/services"
)

// CheckoutHandler is the payment-initiation surface. It mirrors the
// caller's origin (credentialed CORS) and returns hard HTTP errors, unlike
// the general-forwarding surface.
type CheckoutHandler struct {
	cfg      *models.Config
	checkout *services.CheckoutService
}

func NewCheckoutHandler(cfg *models.Config, checkout *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{cfg: cfg, checkout: checkout}
}

func (h *CheckoutHandler) Handle(c *fiber.Ctx) error {
	cors.Apply(c, cors.MirrorOrigin)

	switch c.Method() {
	case fiber.MethodOptions:
		return c.SendStatus(http.StatusNoContent)
	case fiber.MethodPost:
	default:
		return c.Status(http.StatusMethodNotAllowed).
			JSON(fiber.Map{"ok": false, "error": "method_not_allowed"})
	}

	if !h.cfg.CheckoutPathConfigured() {
		return c.Status(http.StatusInternalServerError).
			JSON(fiber.Map{"ok": false, "error": "missing_env"})
	}

	req, err := models.ParseCheckoutRequest(c.Body())
	if err != nil {
		return c.Status(http.StatusBadRequest).
			JSON(fiber.Map{"ok": false, "error": "bad_json"})
	}
	if req.BookingID == "" {
		return c.Status(http.StatusBadRequest).
			JSON(fiber.Map{"ok": false, "error": "missing_booking_id"})
	}

	// Deliberately not the request context: a disconnecting caller must
	// not cancel an already-dispatched session creation.
	url, err := h.checkout.CreateSession(context.Background(), req)
	if err != nil {
		var pe *services.ProcessorError
		if errors.As(err, &pe) {
			return c.Status(http.StatusBadGateway).
				JSON(fiber.Map{"ok": false, "error": "stripe_error", "details": pe.Details})
		}
		return c.Status(http.StatusBadGateway).
			JSON(fiber.Map{"ok": false, "error": "stripe_fetch_failed", "details": err.Error()})
	}

	return c.JSON(fiber.Map{"ok": true, "url": url})
}
