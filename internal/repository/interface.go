package repository

import (
	"context"
	"errors"
	"time"

	"approval-orchestrator/backend/pkg/models"
)

// ErrNotFound is returned when an entity id does not resolve.
var ErrNotFound = errors.New("not found")

// ApprovalFilter narrows approval listings. Zero values mean "no filter".
type ApprovalFilter struct {
	Status     models.ApprovalStatus
	WorkflowID string
}

// Store is the durable store consumed by the engines. Each method is a single
// atomic statement except ApplyRollback, which wraps the audit insert and the
// workflow status update in one transaction.
type Store interface {
	// Workflows
	CreateWorkflow(ctx context.Context, w *models.Workflow) error
	GetWorkflow(ctx context.Context, id string) (*models.Workflow, error)
	ListWorkflows(ctx context.Context) ([]*models.Workflow, error)
	// PauseWorkflow unconditionally pauses a workflow unless it is already
	// rolled back (terminal).
	PauseWorkflow(ctx context.Context, id string) error
	// RecomputeWorkflowStatus re-derives a workflow's status from its
	// current step set in a single statement: any pending step pauses the
	// workflow, none resumes it. Rolled-back workflows are never touched.
	RecomputeWorkflowStatus(ctx context.Context, id string) error
	// ApplyRollback appends the rollback audit record and flips the
	// workflow to rolled_back atomically.
	ApplyRollback(ctx context.Context, rb *models.WorkflowRollback) error
	ListRollbacks(ctx context.Context, workflowID string) ([]*models.WorkflowRollback, error)

	// Approval steps
	CreateApproval(ctx context.Context, s *models.ApprovalStep) error
	GetApproval(ctx context.Context, id string) (*models.ApprovalStep, error)
	ListApprovalsByWorkflow(ctx context.Context, workflowID string) ([]*models.ApprovalStep, error)
	ListApprovals(ctx context.Context, f ApprovalFilter) ([]*models.ApprovalStep, error)
	// ResolveApproval records a human decision on a still-pending step.
	// Returns ErrNotFound when no pending step with that id exists.
	ResolveApproval(ctx context.Context, id string, status models.ApprovalStatus, response map[string]interface{}) error
	// MarkApprovalTimedOut resolves a still-pending step as timed out.
	MarkApprovalTimedOut(ctx context.Context, id string) error
	DeleteApproval(ctx context.Context, id string) error
	// ListExpiredApprovals returns pending steps whose deadline has passed.
	ListExpiredApprovals(ctx context.Context, now time.Time) ([]*models.ApprovalStep, error)

	// Reporting aggregates (presentation-only)
	Overview(ctx context.Context) (*models.AnalyticsOverview, error)
	ResponseTimesByDay(ctx context.Context, days int) ([]models.ResponseTimeBucket, error)
	TopApprovers(ctx context.Context, days, limit int) ([]models.ApproverStats, error)
	ChannelBreakdown(ctx context.Context) ([]models.ChannelUsage, error)
}
