package services

import "approval-orchestrator/backend/pkg/models"

// Events is the realtime push side-channel the engines emit to after every
// mutation. Delivery is one-way; the engines never depend on it.
type Events interface {
	ApprovalUpdated(step *models.ApprovalStep)
	WorkflowUpdated(workflowID string)
}

// NoopEvents discards all events. Used when no realtime hub is attached.
type NoopEvents struct{}

func (NoopEvents) ApprovalUpdated(*models.ApprovalStep) {}

func (NoopEvents) WorkflowUpdated(string) {}
