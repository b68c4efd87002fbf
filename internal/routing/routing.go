// Package routing maps logical operation names to upstream backends. The
// table is built once at startup from configuration and is read-only
// afterwards.
package routing

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/momentumblock/pcl-proxy/internal/models"
)

// Endpoint identifies an upstream backend. The tags double as the explicit
// target override values the widget may send.
type Endpoint string

const (
	EndpointBooking   Endpoint = "A"
	EndpointSecondary Endpoint = "B"
	EndpointManage    Endpoint = "C"
)

// Operation groups. The manage group is read-intent and must never be
// served by the write-capable booking backend.
var groupOps = map[Endpoint][]string{
	EndpointBooking: {
		"ping", "config", "availability", "book", "checkout", "confirm",
	},
	EndpointSecondary: {},
	EndpointManage: {
		"manage_lookup", "manage_update_address", "manage_catalog",
		"extras_checkout", "extras_confirm",
	},
}

// UnresolvedError means the operation matched no group and no fallback is
// configured. The request goes nowhere.
type UnresolvedError struct {
	Fn string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("routing unresolved for operation %q", e.Fn)
}

// NotConfiguredError means the operation's endpoint has no URL. Resolution
// fails closed instead of borrowing another backend.
type NotConfiguredError struct {
	Endpoint Endpoint
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("endpoint %s not configured", e.Endpoint)
}

// Table resolves operations to upstream URLs.
type Table struct {
	urls     map[Endpoint]string
	ops      map[string]Endpoint
	fallback string
}

// NewTable builds the route table. An operation listed under more than one
// endpoint is a configuration error; it must be caught here, never resolved
// ambiguously at request time.
func NewTable(cfg *models.Config) (*Table, error) {
	ops := make(map[string]Endpoint)
	for ep, names := range groupOps {
		for _, fn := range names {
			if prev, dup := ops[fn]; dup {
				return nil, fmt.Errorf("operation %q mapped to both %s and %s", fn, prev, ep)
			}
			ops[fn] = ep
		}
	}
	return &Table{
		urls: map[Endpoint]string{
			EndpointBooking:   cfg.BookingURL,
			EndpointSecondary: cfg.SecondaryURL,
			EndpointManage:    cfg.ManageURL,
		},
		ops:      ops,
		fallback: cfg.FallbackURL,
	}, nil
}

// Resolve picks the upstream URL for an operation. An absolute-URL target
// override is used verbatim (ops/testing escape hatch); a known endpoint
// tag selects that backend; otherwise the operation's group decides, then
// the process-wide fallback.
func (t *Table) Resolve(fn, target string) (string, error) {
	target = strings.TrimSpace(target)
	if isAbsoluteURL(target) {
		return target, nil
	}
	if target != "" {
		if u, ok := t.urls[Endpoint(target)]; ok {
			if u == "" {
				return "", &NotConfiguredError{Endpoint: Endpoint(target)}
			}
			return u, nil
		}
		// Unknown tags fall through to group classification.
	}

	fn = strings.TrimSpace(fn)
	if ep, ok := t.ops[fn]; ok {
		u := t.urls[ep]
		if u == "" {
			return "", &NotConfiguredError{Endpoint: ep}
		}
		return u, nil
	}

	if t.fallback != "" {
		return t.fallback, nil
	}
	return "", &UnresolvedError{Fn: fn}
}

func isAbsoluteURL(s string) bool {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}
