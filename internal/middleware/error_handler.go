package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"adaptiveRouter/pkg/logger"

	jsonres "adaptiveRouter/pkg/response"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders errors that escaped a handler in the same envelope
// the middlewares use.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		message = fmt.Sprint(he.Message)
	}

	if code >= http.StatusInternalServerError {
		logger.Error("request_failed",
			"error", err,
			"method", c.Request().Method,
			"path", c.Path(),
			"trace_id", TraceID(c),
		)
	}

	body := jsonres.Error(errorCode(code), message, nil)
	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, body)
	}
	if writeErr != nil {
		logger.Warn("error_response_failed", "error", writeErr)
	}
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	default:
		if status >= http.StatusInternalServerError {
			return "INTERNAL_ERROR"
		}
		return "REQUEST_ERROR"
	}
}
