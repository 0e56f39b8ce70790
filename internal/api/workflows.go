package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"approval-orchestrator/backend/internal/services"
	"approval-orchestrator/backend/pkg/models"
)

type createWorkflowRequest struct {
	Name    string                 `json:"name"`
	Context map[string]interface{} `json:"context"`
}

// CreateWorkflow creates a workflow
// (POST /workflows)
func (s *Server) CreateWorkflow(c echo.Context) error {
	ctx := c.Request().Context()

	var req createWorkflowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	wf, err := s.Workflows.Create(ctx, req.Name, req.Context)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, wf)
}

// ListWorkflows returns all workflows, newest first
// (GET /workflows)
func (s *Server) ListWorkflows(c echo.Context) error {
	workflows, err := s.Workflows.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	if workflows == nil {
		workflows = []*models.Workflow{}
	}
	return c.JSON(http.StatusOK, workflows)
}

// GetWorkflow returns a single workflow
// (GET /workflows/:workflow_id)
func (s *Server) GetWorkflow(c echo.Context) error {
	wf, err := s.Workflows.Get(c.Request().Context(), c.Param("workflow_id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, wf)
}

type createApprovalRequest struct {
	StepName       string                 `json:"step_name"`
	AssignedTo     string                 `json:"assigned_to"`
	UISchema       map[string]interface{} `json:"ui_schema"`
	TimeoutMinutes int                    `json:"timeout_minutes"`
	Channel        string                 `json:"channel"`
}

// CreateApproval adds an approval step to a workflow
// (POST /workflows/:workflow_id/approvals)
func (s *Server) CreateApproval(c echo.Context) error {
	ctx := c.Request().Context()

	var req createApprovalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if req.StepName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "step_name is required")
	}

	step, err := s.Approvals.Create(ctx, services.CreateApprovalParams{
		WorkflowID:     c.Param("workflow_id"),
		StepName:       req.StepName,
		AssignedTo:     req.AssignedTo,
		UISchema:       req.UISchema,
		TimeoutMinutes: req.TimeoutMinutes,
		Channel:        models.Channel(req.Channel),
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, step)
}
