package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const panicStackSize = 8 << 10

// Recovery turns a handler panic into a 500 and logs it with the request id
// set by RequestID. http.ErrAbortHandler is re-raised for net/http.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if e, ok := r.(error); ok && errors.Is(e, http.ErrAbortHandler) {
					panic(r)
				}

				stack := make([]byte, panicStackSize)
				stack = stack[:runtime.Stack(stack, false)]
				rid, _ := c.Get("request_id").(string)

				logger.Error().
					Str("request_id", rid).
					Str("method", c.Request().Method).
					Str("route", c.Path()).
					Str("panic", fmt.Sprint(r)).
					Bytes("stack", stack).
					Msg("handler panicked")

				err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}()
			return next(c)
		}
	}
}
