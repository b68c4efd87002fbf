package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/momentumblock/pcl-proxy/internal/models"
	"github.com/momentumblock/pcl-proxy/internal/pricing"
)

// Stripe caps display names; anything longer is cut before transmission.
const maxLineItemName = 120

const sessionsPath = "/v1/checkout/sessions"

// IdempotencyKey derives the stable key for a booking. Repeated
// session-creation calls for the same booking inside Stripe's idempotency
// window return the original session instead of a second charge target.
func IdempotencyKey(bookingID string) string {
	return "pcl:checkout:" + bookingID
}

// ProcessorError is a rejection from Stripe itself: an error body or a
// non-200 status.
type ProcessorError struct {
	Details any
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("stripe rejected the session: %v", e.Details)
}

// ProcessorUnreachableError is a transport failure before Stripe answered.
type ProcessorUnreachableError struct {
	Cause error
}

func (e *ProcessorUnreachableError) Error() string {
	return "stripe call failed: " + e.Cause.Error()
}

func (e *ProcessorUnreachableError) Unwrap() error {
	return e.Cause
}

// CheckoutService creates Stripe Checkout sessions for validated booking
// requests. It makes exactly one processor call per invocation and never
// retries; the idempotency key absorbs duplicates at the processor.
type CheckoutService struct {
	cfg        *models.Config
	httpClient *http.Client
}

func NewCheckoutService(cfg *models.Config) *CheckoutService {
	return &CheckoutService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.CheckoutTimeout},
	}
}

type lineItem struct {
	name        string
	amountCents int64
}

// CreateSession quotes the booking, builds the session request and asks
// Stripe for a redirect URL.
func (s *CheckoutService) CreateSession(ctx context.Context, req *models.CheckoutRequest) (string, error) {
	form := s.buildForm(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.StripeAPIBase+sessionsPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &ProcessorUnreachableError{Cause: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.StripeKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Idempotency-Key", IdempotencyKey(req.BookingID))

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		log.Errorf("stripe session call failed for booking %s: %v", req.BookingID, err)
		return "", &ProcessorUnreachableError{Cause: err}
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProcessorUnreachableError{Cause: err}
	}

	var session struct {
		URL   string `json:"url"`
		Error *struct {
			Type    string `json:"type"`
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(text, &session); err != nil {
		return "", &ProcessorError{Details: string(text)}
	}
	if resp.StatusCode != http.StatusOK || session.Error != nil {
		log.Errorf("stripe rejected session for booking %s, status %d", req.BookingID, resp.StatusCode)
		if session.Error != nil {
			return "", &ProcessorError{Details: session.Error}
		}
		return "", &ProcessorError{Details: string(text)}
	}

	log.Infof("created checkout session for booking %s", req.BookingID)
	return session.URL, nil
}

// buildForm assembles the form-encoded session request: one line item for
// the quoted pass, one per positive add-on.
func (s *CheckoutService) buildForm(req *models.CheckoutRequest) url.Values {
	quote := pricing.PriceFor(req.Bags, req.Days)
	items := []lineItem{{
		name: fmt.Sprintf("%s — %d %s — %d %s",
			pricing.PassName(req.Bags),
			req.Bags, plural(req.Bags, "bag", "bags"),
			req.Days, plural(req.Days, "day", "days")),
		amountCents: int64(quote.Total) * 100,
	}}
	for _, a := range req.Addons {
		if a.Amount <= 0 {
			continue
		}
		name := a.Label
		if name == "" {
			name = a.ID
		}
		if name == "" {
			name = "Add-on"
		}
		items = append(items, lineItem{
			name:        name,
			amountCents: int64(a.Amount*100 + 0.5),
		})
	}

	form := url.Values{}
	form.Set("mode", "payment")
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}
	bid := url.QueryEscape(req.BookingID)
	form.Set("success_url", s.cfg.SuccessURLBase+"?paid=1&bid="+bid+"&session_id={CHECKOUT_SESSION_ID}")
	form.Set("cancel_url", s.cfg.CancelURLBase+"?cancel=1&bid="+bid)
	form.Set("metadata[booking_id]", req.BookingID)
	for i, it := range items {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[price_data][currency]", "usd")
		form.Set(prefix+"[price_data][product_data][name]", truncate(it.name, maxLineItemName))
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(it.amountCents, 10))
		form.Set(prefix+"[quantity]", "1")
	}
	return form
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
