package models

import (
	"time"
)

// Compensation action types understood by the workflow engine. Unknown types
// are logged and skipped, not treated as errors.
const (
	ActionNotifyStakeholders = "notify_stakeholders"
	ActionReverse            = "reverse_action"
	ActionUpdateSystem       = "update_system"
)

// CompensationAction is a remedial action descriptor executed against
// affected approval steps when a workflow is rolled back. It is kept as an
// open document so arbitrary per-type parameters round-trip through storage.
type CompensationAction map[string]interface{}

// Type returns the action type tag, or "" when absent.
func (a CompensationAction) Type() string {
	s, _ := a["type"].(string)
	return s
}

// Message returns the human message attached to the action, if any.
func (a CompensationAction) Message() string {
	s, _ := a["message"].(string)
	return s
}

// Target returns the target attached to the action, if any.
func (a CompensationAction) Target() string {
	s, _ := a["target"].(string)
	return s
}

// RolledBackToMarker is the fixed value recorded as rolled_back_to_step on
// every rollback audit record.
const RolledBackToMarker = "rolled_back"

// WorkflowRollback is an append-only audit record of a workflow rollback.
// Immutable once created.
type WorkflowRollback struct {
	ID                  string               `json:"id"`
	WorkflowID          string               `json:"workflow_id"`
	RolledBackFromStep  string               `json:"rolled_back_from_step"`
	RolledBackToStep    string               `json:"rolled_back_to_step"`
	Reason              string               `json:"reason"`
	RolledBackBy        string               `json:"rolled_back_by"`
	CompensationActions []CompensationAction `json:"compensation_actions"`
	CreatedAt           time.Time            `json:"created_at"`
}
