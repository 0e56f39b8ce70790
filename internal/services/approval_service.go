package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"approval-orchestrator/backend/internal/logging"
	"approval-orchestrator/backend/internal/notify"
	"approval-orchestrator/backend/internal/repository"
	"approval-orchestrator/backend/pkg/models"
)

// DefaultTimeoutMinutes is applied when an approval request names no timeout.
const DefaultTimeoutMinutes = 60

// ApprovalService owns creation, lookup, and response recording for approval
// steps. Every step mutation re-derives the owning workflow's status.
type ApprovalService struct {
	store   repository.Store
	gateway notify.Gateway
	events  Events
	logger  *logging.Logger
}

// NewApprovalService creates a new ApprovalService.
func NewApprovalService(store repository.Store, gateway notify.Gateway, events Events, logger *logging.Logger) *ApprovalService {
	if events == nil {
		events = NoopEvents{}
	}
	return &ApprovalService{store: store, gateway: gateway, events: events, logger: logger}
}

// CreateApprovalParams are the caller-supplied fields of a new step.
type CreateApprovalParams struct {
	WorkflowID     string
	StepName       string
	AssignedTo     string
	UISchema       map[string]interface{}
	TimeoutMinutes int
	Channel        models.Channel
}

// Create inserts a pending step, pauses the owning workflow, and dispatches
// the approval request over the step's channel. Notification failures are
// logged and never roll back the created step.
func (s *ApprovalService) Create(ctx context.Context, p CreateApprovalParams) (*models.ApprovalStep, error) {
	wf, err := s.store.GetWorkflow(ctx, p.WorkflowID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrWorkflowNotFound
	}
	if err != nil {
		return nil, err
	}

	if p.TimeoutMinutes <= 0 {
		p.TimeoutMinutes = DefaultTimeoutMinutes
	}
	if p.Channel == "" {
		p.Channel = models.ChannelWeb
	}
	timeoutAt := time.Now().Add(time.Duration(p.TimeoutMinutes) * time.Minute)

	step := &models.ApprovalStep{
		ID:         uuid.New().String(),
		WorkflowID: wf.ID,
		StepName:   p.StepName,
		AssignedTo: p.AssignedTo,
		UISchema:   p.UISchema,
		TimeoutAt:  &timeoutAt,
		Channel:    p.Channel,
	}
	if err := s.store.CreateApproval(ctx, step); err != nil {
		return nil, err
	}

	// A new pending step always pauses the workflow, regardless of what
	// else is outstanding.
	if err := s.store.PauseWorkflow(ctx, wf.ID); err != nil {
		return nil, err
	}

	if err := s.gateway.SendApprovalRequest(ctx, step, wf); err != nil {
		s.logger.Error("approval request notification failed for step %s: %v", step.ID, err)
	}

	s.events.ApprovalUpdated(step)
	s.events.WorkflowUpdated(wf.ID)
	return step, nil
}

// Get retrieves an approval step by id.
func (s *ApprovalService) Get(ctx context.Context, id string) (*models.ApprovalStep, error) {
	step, err := s.store.GetApproval(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrApprovalNotFound
	}
	return step, err
}

// ListByWorkflow returns a workflow's steps in request order.
func (s *ApprovalService) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.ApprovalStep, error) {
	return s.store.ListApprovalsByWorkflow(ctx, workflowID)
}

// List returns steps matching the filter, newest first.
func (s *ApprovalService) List(ctx context.Context, f repository.ApprovalFilter) ([]*models.ApprovalStep, error) {
	return s.store.ListApprovals(ctx, f)
}

// Respond records a human decision on a pending step, re-derives the owning
// workflow's status, and notifies the step's channel. A second response to an
// already-resolved step is rejected.
func (s *ApprovalService) Respond(ctx context.Context, id string, decision models.Decision, feedback map[string]interface{}) (*models.ApprovalStep, error) {
	if !decision.Valid() {
		return nil, ErrInvalidDecision
	}

	step, err := s.store.GetApproval(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrApprovalNotFound
	}
	if err != nil {
		return nil, err
	}
	if step.Resolved() {
		return nil, ErrAlreadyResolved
	}

	if feedback == nil {
		feedback = map[string]interface{}{}
	}
	err = s.store.ResolveApproval(ctx, id, decision.Status(), feedback)
	if errors.Is(err, repository.ErrNotFound) {
		// lost the race against a concurrent respond or the expiry sweep
		return nil, ErrAlreadyResolved
	}
	if err != nil {
		return nil, err
	}

	if err := s.store.RecomputeWorkflowStatus(ctx, step.WorkflowID); err != nil {
		return nil, err
	}

	step, err = s.store.GetApproval(ctx, id)
	if err != nil {
		return nil, err
	}

	wf, err := s.store.GetWorkflow(ctx, step.WorkflowID)
	if err != nil {
		s.logger.Error("loading workflow %s after respond: %v", step.WorkflowID, err)
	} else if err := s.gateway.SendDecisionNotification(ctx, step, wf, decision); err != nil {
		s.logger.Error("decision notification failed for step %s: %v", step.ID, err)
	}

	s.events.ApprovalUpdated(step)
	s.events.WorkflowUpdated(step.WorkflowID)
	return step, nil
}
