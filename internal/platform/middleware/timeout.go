package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout bounds each request with a context deadline. Handlers run on
// the calling goroutine and stores give up when the context expires, so a raw
// deadline error coming back is answered with 504. Zero disables it.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if timeout <= 0 {
			return next
		}
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if err == nil || !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if c.Response().Committed {
				return nil
			}
			return c.JSON(http.StatusGatewayTimeout, map[string]string{
				"message": "request exceeded " + timeout.String(),
			})
		}
	}
}
