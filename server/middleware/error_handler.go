package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/hrygo/flashdeck/server/internal/errors"
)

// ErrorStatus returns the HTTP status an error is reported with.
func ErrorStatus(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

// ErrorHandler writes errors as an AppError JSON envelope.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code := apperrors.ErrCodeInternal
			switch he.Code {
			case http.StatusBadRequest:
				code = apperrors.ErrCodeInvalidArgument
			case http.StatusNotFound, http.StatusMethodNotAllowed:
				code = apperrors.ErrCodeNotFound
			case http.StatusTooManyRequests:
				code = apperrors.ErrCodeRateLimitExceeded
			}
			appErr = apperrors.Wrap(err, code, fmt.Sprint(he.Message))
		} else {
			appErr = apperrors.Internal("internal error", err)
		}
	}

	status := ErrorStatus(err)
	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, appErr)
	}
	if writeErr != nil {
		slog.Error("failed to write error response", "error", writeErr)
	}
}
