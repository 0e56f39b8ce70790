package models

import (
	"time"
)

// WorkflowStatus is the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowRunning    WorkflowStatus = "running"
	WorkflowPaused     WorkflowStatus = "paused"
	WorkflowRolledBack WorkflowStatus = "rolled_back"
)

// Workflow is a named unit of work containing zero or more ordered approval
// steps. Status is derived from the aggregate state of its steps: any pending
// step pauses the workflow, none resumes it. rolled_back is terminal.
type Workflow struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Status         WorkflowStatus         `json:"status"`
	Context        map[string]interface{} `json:"context"`
	RollbackReason *string                `json:"rollback_reason,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// NotificationEmails returns the recipients listed in the workflow context
// under "notification_emails", if any. Used for workflow-level rollback
// notifications where no single approval step applies.
func (w *Workflow) NotificationEmails() []string {
	raw, ok := w.Context["notification_emails"].([]interface{})
	if !ok {
		return nil
	}
	var emails []string
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			emails = append(emails, s)
		}
	}
	return emails
}
