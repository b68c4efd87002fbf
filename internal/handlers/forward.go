package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/momentumblock/pcl-proxy/internal/cors"
	"github.com/momentumblock/pcl-proxy/internal/models"
	"github.com/momentumblock/pcl-proxy/internal/routing"
	"github.com/momentumblock/pcl-proxy/internal/services"
)

// ForwardHandler is the general-forwarding surface: it routes a logical
// operation to a script backend and relays the reply untouched. Its policy
// is always-valid-JSON: configuration and upstream failures come back as a
// soft 200 {ok:false, ...} so legacy callers' parsing stays uniform; only
// caller mistakes earn a real 4xx.
type ForwardHandler struct {
	table     *routing.Table
	forwarder *services.Forwarder
}

func NewForwardHandler(table *routing.Table, forwarder *services.Forwarder) *ForwardHandler {
	return &ForwardHandler{table: table, forwarder: forwarder}
}

func (h *ForwardHandler) Handle(c *fiber.Ctx) error {
	cors.Apply(c, cors.Wildcard)

	switch c.Method() {
	case fiber.MethodOptions:
		return c.SendStatus(http.StatusNoContent)
	case fiber.MethodPost:
	default:
		return c.Status(http.StatusMethodNotAllowed).
			JSON(fiber.Map{"ok": false, "error": "method_not_allowed"})
	}

	body := c.Body()
	var req models.ForwardRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return c.Status(http.StatusBadRequest).
				JSON(fiber.Map{"ok": false, "error": "bad_json"})
		}
	}

	target, err := h.table.Resolve(req.Fn, req.Target)
	if err != nil {
		var nc *routing.NotConfiguredError
		if errors.As(err, &nc) {
			return c.JSON(fiber.Map{"ok": false, "error": "endpoint_not_configured", "details": err.Error()})
		}
		return c.Status(http.StatusBadRequest).
			JSON(fiber.Map{"ok": false, "error": "routing_unresolved", "details": req.Fn})
	}

	res, err := h.forwarder.Forward(context.Background(), target, body, fiber.MIMEApplicationJSON)
	if err != nil {
		return c.JSON(fiber.Map{"ok": false, "error": "upstream_error", "details": err.Error()})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(res.Status).Send(res.Body)
}
