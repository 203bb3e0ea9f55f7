package middleware

import (
	"github.com/labstack/echo/v4"
)

// SecurityHeaders sets the security response headers on every request. The
// API serves member registration data, medical records and payment flows, so
// responses are never cacheable and browsers get a locked-down policy set.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			// Prevent MIME type sniffing
			h.Set("X-Content-Type-Options", "nosniff")

			// Prevent clickjacking
			h.Set("X-Frame-Options", "DENY")

			// Rely on Content-Security-Policy instead of the legacy
			// browser XSS filter.
			h.Set("X-XSS-Protection", "0")

			// Strict CSP for a JSON API: deny all resource loading and
			// frame embedding.
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

			// HSTS for 1 year including subdomains.
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")

			// Never leak URLs (which may carry CPFs or record IDs) through
			// the Referer header.
			h.Set("Referrer-Policy", "no-referrer")

			// Disable browser features the API never uses.
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			// Responses carry member and clinical data; keep them out of
			// shared caches.
			h.Set("Cache-Control", "no-store")

			return next(c)
		}
	}
}
