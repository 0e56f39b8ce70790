// Package api contains the HTTP handlers for the approval orchestrator.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"approval-orchestrator/backend/internal/logging"
	"approval-orchestrator/backend/internal/realtime"
	"approval-orchestrator/backend/internal/repository"
	"approval-orchestrator/backend/internal/services"
)

// Server holds the dependencies for the API server.
type Server struct {
	Workflows *services.WorkflowService
	Approvals *services.ApprovalService
	Store     repository.Store
	Hub       *realtime.Hub
	Logger    *logging.Logger
}

// NewServer creates a new Server.
func NewServer(workflows *services.WorkflowService, approvals *services.ApprovalService, store repository.Store, hub *realtime.Hub, logger *logging.Logger) *Server {
	return &Server{Workflows: workflows, Approvals: approvals, Store: store, Hub: hub, Logger: logger}
}

// Register mounts all routes on the echo instance.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.HandleHealth)

	e.POST("/workflows", s.CreateWorkflow)
	e.GET("/workflows", s.ListWorkflows)
	e.GET("/workflows/:workflow_id", s.GetWorkflow)
	e.POST("/workflows/:workflow_id/approvals", s.CreateApproval)

	e.GET("/approvals", s.ListApprovals)
	e.GET("/approvals/:approval_id", s.GetApproval)
	e.POST("/approvals/:approval_id/respond", s.RespondApproval)

	e.POST("/workflow-rollbacks/:workflow_id/rollback", s.RollbackWorkflow)
	e.GET("/workflow-rollbacks/:workflow_id/history", s.RollbackHistory)

	e.GET("/analytics/overview", s.AnalyticsOverview)
	e.GET("/analytics/response-times", s.AnalyticsResponseTimes)
	e.GET("/analytics/top-approvers", s.AnalyticsTopApprovers)
	e.GET("/analytics/channels", s.AnalyticsChannels)

	if s.Hub != nil {
		e.GET("/ws/workflows/:workflow_id", s.Hub.ServeWorkflow)
		e.GET("/ws/approvals/:approval_id", s.Hub.ServeApproval)
	}

	e.GET("/openapi.yaml", SpecHandler)
	e.GET("/docs", DocsHandler)
}

// HealthStatus represents the health check response.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// HandleHealth returns basic health status (always 200 OK).
func (s *Server) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   "approval-orchestrator",
		Version:   "1.0.0",
	})
}

// httpError maps domain errors onto HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, services.ErrWorkflowNotFound),
		errors.Is(err, services.ErrApprovalNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrAlreadyResolved),
		errors.Is(err, services.ErrNotRollbackable):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidDecision):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
