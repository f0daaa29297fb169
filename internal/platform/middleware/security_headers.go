package middleware

import (
	"github.com/labstack/echo/v4"
)

var apiSecurityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "no-referrer"},
	// Responses carry patient records.
	{"Cache-Control", "no-store"},
}

// SecurityHeaders sets the headers of a JSON-only API on every response.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for _, kv := range apiSecurityHeaders {
				h.Set(kv[0], kv[1])
			}
			return next(c)
		}
	}
}
