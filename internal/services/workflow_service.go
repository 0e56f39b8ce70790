package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"approval-orchestrator/backend/internal/logging"
	"approval-orchestrator/backend/internal/notify"
	"approval-orchestrator/backend/internal/repository"
	"approval-orchestrator/backend/pkg/models"
)

// WorkflowService owns workflow creation, lookup, and the rollback protocol
// including compensation-action dispatch.
type WorkflowService struct {
	store   repository.Store
	gateway notify.Gateway
	events  Events
	logger  *logging.Logger
}

// NewWorkflowService creates a new WorkflowService.
func NewWorkflowService(store repository.Store, gateway notify.Gateway, events Events, logger *logging.Logger) *WorkflowService {
	if events == nil {
		events = NoopEvents{}
	}
	return &WorkflowService{store: store, gateway: gateway, events: events, logger: logger}
}

// Create inserts a workflow with status=running.
func (s *WorkflowService) Create(ctx context.Context, name string, wfContext map[string]interface{}) (*models.Workflow, error) {
	wf := &models.Workflow{
		ID:      uuid.New().String(),
		Name:    name,
		Context: wfContext,
	}
	if err := s.store.CreateWorkflow(ctx, wf); err != nil {
		return nil, err
	}
	return wf, nil
}

// Get retrieves a workflow by id.
func (s *WorkflowService) Get(ctx context.Context, id string) (*models.Workflow, error) {
	wf, err := s.store.GetWorkflow(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrWorkflowNotFound
	}
	return wf, err
}

// List returns all workflows, newest first.
func (s *WorkflowService) List(ctx context.Context) ([]*models.Workflow, error) {
	return s.store.ListWorkflows(ctx)
}

// Rollback invalidates a running or paused workflow: it appends an audit
// record and flips the workflow to rolled_back atomically, then executes the
// compensation-action list once per approved or pending step. Rolled-back is
// terminal; a second rollback fails with ErrNotRollbackable and triggers no
// second compensation pass.
func (s *WorkflowService) Rollback(ctx context.Context, workflowID, reason, rolledBackBy string, actions []models.CompensationAction) (*models.Workflow, error) {
	wf, err := s.store.GetWorkflow(ctx, workflowID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrWorkflowNotFound
	}
	if err != nil {
		return nil, err
	}
	if wf.Status != models.WorkflowRunning && wf.Status != models.WorkflowPaused {
		return nil, ErrNotRollbackable
	}

	rb := &models.WorkflowRollback{
		ID:                  uuid.New().String(),
		WorkflowID:          wf.ID,
		RolledBackFromStep:  string(wf.Status),
		RolledBackToStep:    models.RolledBackToMarker,
		Reason:              reason,
		RolledBackBy:        rolledBackBy,
		CompensationActions: actions,
	}
	if err := s.store.ApplyRollback(ctx, rb); err != nil {
		return nil, err
	}

	// Compensation is best-effort and runs after the state change is
	// durable. Rejected and timed-out steps carry nothing to compensate.
	steps, err := s.store.ListApprovalsByWorkflow(ctx, wf.ID)
	if err != nil {
		s.logger.Error("listing steps for rollback of workflow %s: %v", wf.ID, err)
	}
	for _, step := range steps {
		if step.Status != models.ApprovalApproved && step.Status != models.ApprovalPending {
			continue
		}
		s.executeCompensationActions(ctx, step, wf, rb)
	}

	if err := s.gateway.SendWorkflowRollbackNotification(ctx, wf, rb); err != nil {
		s.logger.Error("workflow rollback notification failed for %s: %v", wf.ID, err)
	}

	updated, err := s.store.GetWorkflow(ctx, wf.ID)
	if err != nil {
		return nil, err
	}
	s.events.WorkflowUpdated(wf.ID)
	return updated, nil
}

// RollbackHistory returns a workflow's rollback records, newest first.
func (s *WorkflowService) RollbackHistory(ctx context.Context, workflowID string) ([]*models.WorkflowRollback, error) {
	if _, err := s.store.GetWorkflow(ctx, workflowID); errors.Is(err, repository.ErrNotFound) {
		return nil, ErrWorkflowNotFound
	} else if err != nil {
		return nil, err
	}
	return s.store.ListRollbacks(ctx, workflowID)
}

func (s *WorkflowService) executeCompensationActions(ctx context.Context, step *models.ApprovalStep, wf *models.Workflow, rb *models.WorkflowRollback) {
	for _, action := range rb.CompensationActions {
		switch action.Type() {
		case models.ActionNotifyStakeholders:
			message := action.Message()
			if message == "" {
				message = fmt.Sprintf("Approval %q has been rolled back", step.StepName)
			}
			if err := s.gateway.SendRollbackNotification(ctx, step, wf, rb, message); err != nil {
				s.logger.Error("rollback notification failed for step %s: %v", step.ID, err)
			}
		case models.ActionReverse:
			s.reverseAction(step)
		case models.ActionUpdateSystem:
			// extension point: push the rollback into downstream systems
			s.logger.Info("updating external systems for rolled back step %s", step.StepName)
		default:
			s.logger.Warn("unknown compensation action %q on workflow %s, skipping", action.Type(), wf.ID)
		}
	}
}

// reverseAction is an extension point. It currently only recognizes a couple
// of step-name patterns and records the intent to reverse them.
func (s *WorkflowService) reverseAction(step *models.ApprovalStep) {
	name := strings.ToLower(step.StepName)
	if strings.Contains(name, "deploy") {
		s.logger.Info("reverting deployment from approval %s", step.ID)
	}
	if strings.Contains(name, "purchase") {
		s.logger.Info("cancelling purchase from approval %s", step.ID)
	}
}
