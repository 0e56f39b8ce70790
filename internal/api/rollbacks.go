package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"approval-orchestrator/backend/pkg/models"
)

type rollbackRequest struct {
	Reason              string                      `json:"reason"`
	RolledBackBy        string                      `json:"rolled_back_by"`
	CompensationActions []models.CompensationAction `json:"compensation_actions"`
}

// RollbackWorkflow rolls back a running or paused workflow
// (POST /workflow-rollbacks/:workflow_id/rollback)
func (s *Server) RollbackWorkflow(c echo.Context) error {
	ctx := c.Request().Context()

	var req rollbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if req.Reason == "" || req.RolledBackBy == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "reason and rolled_back_by are required")
	}

	wf, err := s.Workflows.Rollback(ctx, c.Param("workflow_id"), req.Reason, req.RolledBackBy, req.CompensationActions)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "Workflow rolled back",
		"workflow": wf,
	})
}

// RollbackHistory returns a workflow's rollback records, newest first
// (GET /workflow-rollbacks/:workflow_id/history)
func (s *Server) RollbackHistory(c echo.Context) error {
	history, err := s.Workflows.RollbackHistory(c.Request().Context(), c.Param("workflow_id"))
	if err != nil {
		return httpError(err)
	}
	if history == nil {
		history = []*models.WorkflowRollback{}
	}
	return c.JSON(http.StatusOK, history)
}
