package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the process reads from the environment. It is
// built once in main and never mutated afterwards.
type Config struct {
	StripeKey      string
	StripeAPIBase  string
	SuccessURLBase string
	CancelURLBase  string

	BookingURL   string
	SecondaryURL string
	ManageURL    string
	FallbackURL  string

	RelayURL      string
	RelaySecret   string
	SMSBackendURL string

	NumNotifyWorkers int
	ForwardTimeout   time.Duration
	CheckoutTimeout  time.Duration
}

// CheckoutPathConfigured reports whether the payment-initiation surface has
// the configuration it cannot run without.
func (c *Config) CheckoutPathConfigured() bool {
	return c.StripeKey != "" && c.SuccessURLBase != "" && c.CancelURLBase != ""
}

// NotifyPathConfigured reports whether the booking-created relay has a
// destination and shared secret.
func (c *Config) NotifyPathConfigured() bool {
	return c.RelayURL != "" && c.RelaySecret != ""
}

// Addon is an optional extra the widget sends alongside a booking.
type Addon struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// CheckoutRequest is the parsed payment-initiation body. Numeric fields are
// already clamped to their minimum valid value; checkout must not fail over
// a cosmetic input error.
type CheckoutRequest struct {
	BookingID     string
	CustomerEmail string
	Bags          int
	Days          int
	Addons        []Addon
}

// ForwardRequest carries the routing fields of a general-forwarding body.
// The remaining operation-specific fields are passed through as raw bytes
// and never re-serialized.
type ForwardRequest struct {
	Fn     string `json:"fn"`
	Target string `json:"target"`
}

// NotificationEvent is what the notify worker delivers to the relay.
type NotificationEvent struct {
	ID        string `json:"-"`
	Type      string `json:"type"`
	BookingID string `json:"booking_id"`
}

// ParseCheckoutRequest decodes a checkout body the way the widget sends it:
// the envelope must be JSON, but bags/days tolerate numbers, numeric strings
// or garbage (clamped to 1), and a malformed addons field is treated as
// empty rather than an error.
func ParseCheckoutRequest(body []byte) (*CheckoutRequest, error) {
	req := &CheckoutRequest{Bags: 1, Days: 1}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}

	var raw struct {
		BookingID     string          `json:"booking_id"`
		CustomerEmail string          `json:"customer_email"`
		Bags          json.RawMessage `json:"bags"`
		Days          json.RawMessage `json:"days"`
		Addons        json.RawMessage `json:"addons"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	req.BookingID = strings.TrimSpace(raw.BookingID)
	req.CustomerEmail = strings.TrimSpace(raw.CustomerEmail)
	req.Bags = clampPositive(numberOr(raw.Bags, 1))
	req.Days = clampPositive(numberOr(raw.Days, 1))

	if len(raw.Addons) > 0 {
		var addons []Addon
		if err := json.Unmarshal(raw.Addons, &addons); err == nil {
			req.Addons = addons
		}
	}
	return req, nil
}

// numberOr reads a JSON number or a numeric string, falling back to def.
func numberOr(raw json.RawMessage, def int) int {
	if len(raw) == 0 {
		return def
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return int(f)
		}
	}
	return def
}

func clampPositive(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
