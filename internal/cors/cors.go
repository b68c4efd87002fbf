// Package cors computes the CORS headers for the edge surfaces. Two
// policies coexist: the legacy surfaces answer any origin with a wildcard,
// while the checkout surface mirrors the caller's origin so credentialed
// requests work. The policy belongs to the operation group, not the
// process, so headers are applied per handler rather than by a global
// middleware.
package cors

import "github.com/gofiber/fiber/v2"

type Policy int

const (
	// Wildcard allows any origin without credentials.
	Wildcard Policy = iota
	// MirrorOrigin echoes the caller's origin and allows credentials.
	MirrorOrigin
)

const defaultAllowHeaders = "Content-Type"

// Headers returns the header set for an origin and the headers it asked
// for. requestedHeaders is only present on preflight; an empty value falls
// back to the minimal content-type-only set. The Vary entries keep caches
// from conflating responses across origins.
func Headers(p Policy, origin, requestedHeaders string) map[string]string {
	allowOrigin := "*"
	if p == MirrorOrigin && origin != "" {
		allowOrigin = origin
	}
	if requestedHeaders == "" {
		requestedHeaders = defaultAllowHeaders
	}

	h := map[string]string{
		fiber.HeaderAccessControlAllowOrigin:  allowOrigin,
		fiber.HeaderAccessControlAllowMethods: "POST, OPTIONS",
		fiber.HeaderAccessControlAllowHeaders: requestedHeaders,
		fiber.HeaderVary:                      "Origin, Access-Control-Request-Headers, Access-Control-Request-Method",
	}
	if p == MirrorOrigin {
		h[fiber.HeaderAccessControlAllowCredentials] = "true"
	}
	return h
}

// Apply sets the policy's headers on the response.
func Apply(c *fiber.Ctx, p Policy) {
	origin := c.Get(fiber.HeaderOrigin)
	requested := c.Get(fiber.HeaderAccessControlRequestHeaders)
	for k, v := range Headers(p, origin, requested) {
		c.Set(k, v)
	}
}
