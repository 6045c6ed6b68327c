package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/hrygo/flashdeck/server/internal/errors"
)

// MetricsOverviewResponse represents the overview response of system metrics
type MetricsOverviewResponse struct {
	TotalRequests int64   `json:"total_requests"`
	SuccessRate   float64 `json:"success_rate"`
	P50LatencyMs  int64   `json:"p50_latency_ms"`
	P95LatencyMs  int64   `json:"p95_latency_ms"`
	ErrorCount    int64   `json:"error_count"`
	Routes        int     `json:"routes"`
}

// GetMetricsOverview returns the request metrics collected since start.
// GET /api/v1/system/metrics
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	if s.Metrics == nil {
		return apperrors.ServiceUnavailable("metrics are disabled")
	}
	snapshot := s.Metrics.Snapshot()
	return c.JSON(http.StatusOK, MetricsOverviewResponse{
		TotalRequests: snapshot.RequestTotal,
		SuccessRate:   snapshot.SuccessRate(),
		P50LatencyMs:  snapshot.P50.Milliseconds(),
		P95LatencyMs:  snapshot.P95.Milliseconds(),
		ErrorCount:    snapshot.RequestFailed,
		Routes:        len(snapshot.Routes),
	})
}
