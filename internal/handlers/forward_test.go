package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/momentumblock/pcl-proxy/internal/models"
	"github.com/momentumblock/pcl-proxy/internal/routing"
	"github.com/momentumblock/pcl-proxy/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newForwardApp(t *testing.T, cfg *models.Config) *fiber.App {
	t.Helper()
	table, err := routing.NewTable(cfg)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{Immutable: true})
	h := NewForwardHandler(table, services.NewForwarder(2*time.Second))
	app.All("/forward", h.Handle)
	return app
}

func postForward(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/forward", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestForwardPreflightIsWildcard(t *testing.T) {
	app := newForwardApp(t, &models.Config{BookingURL: "http://a.invalid"})

	req := httptest.NewRequest(fiber.MethodOptions, "/forward", nil)
	req.Header.Set(fiber.HeaderOrigin, "https://anywhere.example")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Empty(t, resp.Header.Get(fiber.HeaderAccessControlAllowCredentials))
	assert.Contains(t, resp.Header.Get(fiber.HeaderVary), "Origin")
}

func TestForwardRelaysUpstreamReply(t *testing.T) {
	var seen []byte
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true,"slots":["9am","1pm"]}`))
	}))
	defer upstream.Close()

	app := newForwardApp(t, &models.Config{BookingURL: upstream.URL})
	body := `{"fn":"availability","date":"2026-09-01"}`
	resp := postForward(t, app, body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	got, _ := io.ReadAll(resp.Body)
	assert.Equal(t, `{"ok":true,"slots":["9am","1pm"]}`, string(got))
	// The body reaches the upstream byte for byte, extra fields included.
	assert.Equal(t, body, string(seen))
	// The relayed reply carries the same wildcard policy as preflight.
	assert.Equal(t, "*", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Contains(t, resp.Header.Get(fiber.HeaderVary), "Origin")
}

func TestForwardMirrorsUpstreamErrorStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"ok":false,"error":"slot_taken"}`))
	}))
	defer upstream.Close()

	app := newForwardApp(t, &models.Config{BookingURL: upstream.URL})
	resp := postForward(t, app, `{"fn":"book"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestForwardNormalizesTransportFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close()

	app := newForwardApp(t, &models.Config{BookingURL: upstream.URL})
	resp := postForward(t, app, `{"fn":"book"}`)

	// Soft 200: the browser always gets parseable JSON.
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	envelope := decodeEnvelope(t, resp)
	assert.Equal(t, false, envelope["ok"])
	assert.Equal(t, "upstream_error", envelope["error"])
}

func TestForwardRoutingFailures(t *testing.T) {
	t.Run("unknown operation without fallback is a 400", func(t *testing.T) {
		app := newForwardApp(t, &models.Config{BookingURL: "http://a.invalid"})
		resp := postForward(t, app, `{"fn":"mystery_op"}`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		envelope := decodeEnvelope(t, resp)
		assert.Equal(t, "routing_unresolved", envelope["error"])
		assert.Equal(t, "mystery_op", envelope["details"])
	})

	t.Run("unconfigured endpoint fails closed with a soft 200", func(t *testing.T) {
		app := newForwardApp(t, &models.Config{
			BookingURL:  "http://a.invalid",
			FallbackURL: "http://fallback.invalid",
		})
		resp := postForward(t, app, `{"fn":"manage_lookup"}`)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		envelope := decodeEnvelope(t, resp)
		assert.Equal(t, false, envelope["ok"])
		assert.Equal(t, "endpoint_not_configured", envelope["error"])
	})

	t.Run("bad json is a 400", func(t *testing.T) {
		app := newForwardApp(t, &models.Config{BookingURL: "http://a.invalid"})
		resp := postForward(t, app, `{"fn":`)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "bad_json", decodeEnvelope(t, resp)["error"])
	})
}

func TestForwardTargetOverride(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"via":"override"}`))
	}))
	defer upstream.Close()

	// fn maps to the booking group, but the explicit target wins.
	app := newForwardApp(t, &models.Config{BookingURL: "http://a.invalid"})
	resp := postForward(t, app, `{"fn":"book","target":"`+upstream.URL+`"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	got, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(got), "override")
}
