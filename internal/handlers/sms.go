package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/momentumblock/pcl-proxy/internal/models"
	"github.com/momentumblock/pcl-proxy/internal/services"
)

const (
	smsAckReceived = "<Response><Message>OK</Message></Response>"
	smsAckDefault  = "<Response><Message>Thanks, we got your message.</Message></Response>"
)

// SMSHandler translates the inbound form-encoded SMS webhook to JSON for
// the script backend and translates the reply back to the XML ack the
// sender expects. It answers 200 even on junk input so the sender does not
// retry endlessly.
type SMSHandler struct {
	cfg       *models.Config
	forwarder *services.Forwarder
}

func NewSMSHandler(cfg *models.Config, forwarder *services.Forwarder) *SMSHandler {
	return &SMSHandler{cfg: cfg, forwarder: forwarder}
}

func (h *SMSHandler) Handle(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.Status(http.StatusMethodNotAllowed).SendString("Method Not Allowed")
	}

	form := parseForm(c.Body())
	if form["From"] == "" || form["Body"] == "" {
		return sendXML(c, smsAckReceived)
	}

	if h.cfg.SMSBackendURL == "" {
		log.Error("inbound SMS received but no SMS backend configured")
		return sendXML(c, smsAckDefault)
	}

	payload, err := json.Marshal(fiber.Map{"fn": "twilio_inbound", "form": form})
	if err != nil {
		return sendXML(c, smsAckDefault)
	}

	res, err := h.forwarder.Forward(context.Background(), h.cfg.SMSBackendURL, payload, fiber.MIMEApplicationJSON)
	if err != nil || len(bytes.TrimSpace(res.Body)) == 0 {
		return sendXML(c, smsAckDefault)
	}
	return sendXML(c, string(res.Body))
}

// parseForm flattens an x-www-form-urlencoded body to first values.
func parseForm(body []byte) map[string]string {
	form := map[string]string{}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return form
	}
	for k := range values {
		form[k] = values.Get(k)
	}
	return form
}

func sendXML(c *fiber.Ctx, body string) error {
	c.Set(fiber.HeaderContentType, "text/xml")
	return c.SendString(body)
}
