package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// MetricsOverviewResponse represents the overview response of turn metrics since start.
type MetricsOverviewResponse struct {
	TotalTurns   int64                   `json:"total_turns"`
	SuccessRate  float64                 `json:"success_rate"`
	Replies      int64                   `json:"replies"`
	P50LatencyMs int64                   `json:"p50_latency_ms"`
	P95LatencyMs int64                   `json:"p95_latency_ms"`
	ErrorCount   int64                   `json:"error_count"`
	Modes        map[string]ModeOverview `json:"modes"`
}

type ModeOverview struct {
	Turns        int64 `json:"turns"`
	Errors       int64 `json:"errors"`
	AvgLatencyMs int64 `json:"avg_latency_ms"`
}

// GetMetricsOverview returns the turn metrics overview
// GET /api/v1/system/metrics/overview
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	snapshot := s.Metrics.Snapshot()
	modes := make(map[string]ModeOverview, len(snapshot.Modes))
	for mode, m := range snapshot.Modes {
		modes[mode] = ModeOverview{Turns: m.TurnCount, Errors: m.ErrorCount, AvgLatencyMs: m.AverageDuration}
	}
	return c.JSON(http.StatusOK, MetricsOverviewResponse{
		TotalTurns:   snapshot.TurnTotal,
		SuccessRate:  snapshot.SuccessRate(),
		Replies:      snapshot.Replies,
		P50LatencyMs: snapshot.P50.Milliseconds(),
		P95LatencyMs: snapshot.P95.Milliseconds(),
		ErrorCount:   snapshot.TurnFailed,
		Modes:        modes,
	})
}
