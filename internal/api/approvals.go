package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"approval-orchestrator/backend/internal/repository"
	"approval-orchestrator/backend/pkg/models"
)

// GetApproval returns approval details
// (GET /approvals/:approval_id)
func (s *Server) GetApproval(c echo.Context) error {
	step, err := s.Approvals.Get(c.Request().Context(), c.Param("approval_id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, step)
}

// ListApprovals returns approvals with optional status/workflow filters
// (GET /approvals?status=&workflow_id=)
func (s *Server) ListApprovals(c echo.Context) error {
	filter := repository.ApprovalFilter{
		Status:     models.ApprovalStatus(c.QueryParam("status")),
		WorkflowID: c.QueryParam("workflow_id"),
	}
	steps, err := s.Approvals.List(c.Request().Context(), filter)
	if err != nil {
		return httpError(err)
	}
	if steps == nil {
		steps = []*models.ApprovalStep{}
	}
	return c.JSON(http.StatusOK, steps)
}

type respondRequest struct {
	Decision string                 `json:"decision"`
	Feedback map[string]interface{} `json:"feedback"`
}

// RespondApproval records a human decision on a pending approval
// (POST /approvals/:approval_id/respond)
func (s *Server) RespondApproval(c echo.Context) error {
	ctx := c.Request().Context()

	var req respondRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	decision := models.Decision(req.Decision)
	if !decision.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, `decision must be "approve" or "reject"`)
	}

	step, err := s.Approvals.Respond(ctx, c.Param("approval_id"), decision, req.Feedback)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "Approval " + req.Decision,
		"approval": step,
	})
}
