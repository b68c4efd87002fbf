package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// UpstreamError wraps a transport failure (timeout, refused connection)
// talking to a script backend. The handler boundary turns it into the
// normalized {ok:false, error:"upstream_error"} envelope; a browser caller
// must always get parseable JSON.
type UpstreamError struct {
	Cause error
}

func (e *UpstreamError) Error() string {
	return "upstream call failed: " + e.Cause.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// ForwardResult is the upstream's reply, untouched. Body is the raw text;
// re-encoding it would risk corrupting upstream-specific formatting.
type ForwardResult struct {
	Status int
	Body   []byte
}

// Forwarder relays a request verbatim to a resolved upstream within a
// bounded wall-clock timeout. Redirects are followed; the script backends
// answer through a 302 to their result document.
type Forwarder struct {
	httpClient *http.Client
}

func NewForwarder(timeout time.Duration) *Forwarder {
	return &Forwarder{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Forward POSTs body to url as-is and reads the full reply.
func (f *Forwarder) Forward(ctx context.Context, url string, body []byte, contentType string) (*ForwardResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &UpstreamError{Cause: err}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		log.Errorf("forward to %s failed: %v", url, err)
		return nil, &UpstreamError{Cause: err}
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Cause: err}
	}

	// Inspection only. The caller gets the raw text either way.
	if json.Valid(text) {
		log.Infof("forwarded to %s, status %d, %d bytes of JSON", url, resp.StatusCode, len(text))
	} else {
		log.Infof("forwarded to %s, status %d, %d bytes (non-JSON)", url, resp.StatusCode, len(text))
	}

	return &ForwardResult{Status: resp.StatusCode, Body: text}, nil
}
