package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwarderPassesThroughVerbatim(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
		// Deliberately not canonical JSON formatting.
		w.Write([]byte(`{"ok":true,  "weird":   "spacing"}`))
	}))
	defer upstream.Close()

	f := NewForwarder(5 * time.Second)
	body := []byte(`{"fn":"book","when":"tomorrow"}`)
	res, err := f.Forward(context.Background(), upstream.URL, body, "application/json")
	require.NoError(t, err)

	assert.Equal(t, body, gotBody)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, `{"ok":true,  "weird":   "spacing"}`, string(res.Body))
}

func TestForwarderMirrorsUpstreamStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"no availability"}`))
	}))
	defer upstream.Close()

	f := NewForwarder(5 * time.Second)
	res, err := f.Forward(context.Background(), upstream.URL, []byte(`{}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
}

func TestForwarderFollowsRedirects(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"via":"redirect"}`))
	}))
	defer final.Close()

	redirecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusFound)
	}))
	defer redirecting.Close()

	f := NewForwarder(5 * time.Second)
	res, err := f.Forward(context.Background(), redirecting.URL, []byte(`{}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, string(res.Body), "redirect")
}

func TestForwarderTimesOutWithinBound(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer upstream.Close()

	f := NewForwarder(100 * time.Millisecond)
	start := time.Now()
	_, err := f.Forward(context.Background(), upstream.URL, []byte(`{}`), "application/json")
	elapsed := time.Since(start)

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Less(t, elapsed, time.Second, "timeout must abort well before the upstream answers")
}

func TestForwarderWrapsTransportErrors(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close() // nothing is listening anymore

	f := NewForwarder(time.Second)
	_, err := f.Forward(context.Background(), upstream.URL, []byte(`{}`), "application/json")
	var ue *UpstreamError
	assert.ErrorAs(t, err, &ue)
}
