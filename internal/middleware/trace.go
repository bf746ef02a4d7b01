package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type traceKey struct{}

const traceContextKey = "trace_id"

// Trace tags every request with a trace id, reusing X-Request-ID when the
// caller sends one. The id is echoed back and attached to the request
// context so reward events can be correlated with decisions.
func Trace() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}

			c.Set(traceContextKey, id)
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			ctx := context.WithValue(c.Request().Context(), traceKey{}, id)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func TraceID(c echo.Context) string {
	id, _ := c.Get(traceContextKey).(string)
	return id
}

func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
