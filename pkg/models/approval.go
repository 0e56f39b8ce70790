package models

import (
	"time"
)

// ApprovalStatus is the lifecycle state of an approval step.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
	ApprovalTimedOut ApprovalStatus = "timed_out"
)

// Channel is the delivery medium for an approval request.
type Channel string

const (
	ChannelWeb   Channel = "web"
	ChannelEmail Channel = "email"
	ChannelSlack Channel = "slack"
)

// Decision is a human response to a pending approval step.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Valid reports whether the decision is one of the accepted values.
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// Status returns the approval status a decision resolves to.
func (d Decision) Status() ApprovalStatus {
	if d == DecisionApprove {
		return ApprovalApproved
	}
	return ApprovalRejected
}

// ApprovalStep is a single human decision point within a workflow, bound to a
// channel and a deadline. RespondedAt is set exactly once, when the step
// leaves pending; it is nil iff the step is still pending.
type ApprovalStep struct {
	ID           string                 `json:"id"`
	WorkflowID   string                 `json:"workflow_id"`
	StepName     string                 `json:"step_name"`
	Status       ApprovalStatus         `json:"status"`
	AssignedTo   string                 `json:"assigned_to"`
	UISchema     map[string]interface{} `json:"ui_schema"`
	ResponseData map[string]interface{} `json:"response_data"`
	RequestedAt  time.Time              `json:"requested_at"`
	RespondedAt  *time.Time             `json:"responded_at,omitempty"`
	TimeoutAt    *time.Time             `json:"timeout_at,omitempty"`
	Channel      Channel                `json:"channel"`
}

// Resolved reports whether the step has left the pending state.
func (s *ApprovalStep) Resolved() bool {
	return s.Status != ApprovalPending
}
