package services

import "errors"

// Domain error definitions. NotFound and invalid-state conditions are
// checked before any mutation, so callers either see a durable state change
// or no change at all.
var (
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrApprovalNotFound = errors.New("approval not found")
	ErrInvalidDecision  = errors.New(`decision must be "approve" or "reject"`)
	ErrAlreadyResolved  = errors.New("approval has already been resolved")
	ErrNotRollbackable  = errors.New("can only rollback paused or running workflows")
)
