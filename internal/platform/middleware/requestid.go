package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = echo.HeaderXRequestID

// RequestID keeps an incoming X-Request-ID or generates one, exposes it as
// c.Get("request_id"), echoes it on the response, and attaches a request
// scoped zerolog logger to the request context.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(RequestIDHeader)
			if rid == "" || len(rid) > 128 {
				rid = uuid.NewString()
			}

			c.Set("request_id", rid)
			c.Response().Header().Set(RequestIDHeader, rid)

			ctx := c.Request().Context()
			logger := zerolog.Ctx(ctx).With().Str("request_id", rid).Logger()
			c.SetRequest(c.Request().WithContext(logger.WithContext(ctx)))

			return next(c)
		}
	}
}
