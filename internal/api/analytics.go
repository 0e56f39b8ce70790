package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"approval-orchestrator/backend/pkg/models"
)

// AnalyticsOverview returns workflow/approval counts and averages
// (GET /analytics/overview)
func (s *Server) AnalyticsOverview(c echo.Context) error {
	overview, err := s.Store.Overview(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, overview)
}

// AnalyticsResponseTimes returns daily average response times
// (GET /analytics/response-times?days=30)
func (s *Server) AnalyticsResponseTimes(c echo.Context) error {
	days := intQueryParam(c, "days", 30)
	buckets, err := s.Store.ResponseTimesByDay(c.Request().Context(), days)
	if err != nil {
		return httpError(err)
	}
	if buckets == nil {
		buckets = []models.ResponseTimeBucket{}
	}
	return c.JSON(http.StatusOK, buckets)
}

// AnalyticsTopApprovers ranks approvers by recent activity
// (GET /analytics/top-approvers?days=30&limit=10)
func (s *Server) AnalyticsTopApprovers(c echo.Context) error {
	days := intQueryParam(c, "days", 30)
	limit := intQueryParam(c, "limit", 10)
	stats, err := s.Store.TopApprovers(c.Request().Context(), days, limit)
	if err != nil {
		return httpError(err)
	}
	if stats == nil {
		stats = []models.ApproverStats{}
	}
	return c.JSON(http.StatusOK, stats)
}

// AnalyticsChannels returns approval distribution by channel
// (GET /analytics/channels)
func (s *Server) AnalyticsChannels(c echo.Context) error {
	usage, err := s.Store.ChannelBreakdown(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	if usage == nil {
		usage = []models.ChannelUsage{}
	}
	return c.JSON(http.StatusOK, usage)
}

func intQueryParam(c echo.Context, name string, fallback int) int {
	v := c.QueryParam(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
