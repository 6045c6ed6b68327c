package middleware

import (
	"log/slog"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "github.com/hrygo/flashdeck/server/internal/errors"
	"github.com/hrygo/flashdeck/server/internal/observability"
)

const (
	// HeaderRequestID carries the request id in both directions.
	HeaderRequestID = "X-Request-ID"
	// HeaderUserID selects the profile a request acts for.
	HeaderUserID = "X-Flashdeck-User"

	// DefaultUserID is used when a request names no profile.
	DefaultUserID int32 = 1
)

// RequestLogger attaches a RequestContext to each request, logs its outcome and records
// it in metrics.
func RequestLogger(logger *slog.Logger, metrics *observability.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			route := req.Method + " " + c.Path()
			reqCtx := observability.NewRequestContextWithID(logger,
				req.Header.Get(HeaderRequestID), req.Method, c.Path(), UserID(c))
			c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), reqCtx)))
			c.Response().Header().Set(HeaderRequestID, reqCtx.RequestID)

			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = ErrorStatus(err)
			}
			failed := status >= 500

			attrs := []slog.Attr{
				slog.Int(observability.LogFieldStatus, status),
				slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
			}
			switch {
			case failed && err != nil:
				attrs = append(attrs, slog.String(observability.LogFieldErrorCode,
					string(apperrors.GetCodeFromError(err, apperrors.ErrCodeInternal))))
				reqCtx.Error("request failed", err, attrs...)
			case err != nil:
				attrs = append(attrs, slog.String("error", err.Error()))
				reqCtx.Info("request rejected", attrs...)
			default:
				reqCtx.Debug("request served", attrs...)
			}

			if metrics != nil {
				metrics.RecordRequest(route, reqCtx.Duration(), failed)
			}
			return err
		}
	}
}

// UserID returns the profile named by the request, or DefaultUserID.
func UserID(c echo.Context) int32 {
	raw := c.Request().Header.Get(HeaderUserID)
	if raw == "" {
		return DefaultUserID
	}
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return DefaultUserID
	}
	return int32(id)
}
