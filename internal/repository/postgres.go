package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"approval-orchestrator/backend/pkg/models"
)

// PostgresStore is a PostgreSQL implementation of the Store interface.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const workflowColumns = "id, name, status, context, rollback_reason, created_at, updated_at"

const approvalColumns = "id, workflow_id, step_name, status, assigned_to, ui_schema, response_data, requested_at, responded_at, timeout_at, channel"

const rollbackColumns = "id, workflow_id, rolled_back_from_step, rolled_back_to_step, reason, rolled_back_by, compensation_actions, created_at"

// CreateWorkflow inserts a workflow with status=running and returns it
// hydrated with the server-assigned timestamps.
func (s *PostgresStore) CreateWorkflow(ctx context.Context, w *models.Workflow) error {
	doc, err := marshalDoc(w.Context)
	if err != nil {
		return fmt.Errorf("encode workflow context: %w", err)
	}
	row := s.db.QueryRow(ctx,
		"INSERT INTO workflows (id, name, context) VALUES ($1, $2, $3) RETURNING status, created_at, updated_at",
		w.ID, w.Name, doc)
	if err := row.Scan(&w.Status, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return err
	}
	if w.Context == nil {
		w.Context = map[string]interface{}{}
	}
	return nil
}

// GetWorkflow retrieves a workflow by id.
func (s *PostgresStore) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	row := s.db.QueryRow(ctx, "SELECT "+workflowColumns+" FROM workflows WHERE id = $1", id)
	return scanWorkflow(row)
}

// ListWorkflows returns all workflows, newest first.
func (s *PostgresStore) ListWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := s.db.Query(ctx, "SELECT "+workflowColumns+" FROM workflows ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workflows []*models.Workflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, w)
	}
	return workflows, rows.Err()
}

// PauseWorkflow sets a workflow's status to paused. Rolled-back workflows are
// terminal and left untouched.
func (s *PostgresStore) PauseWorkflow(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx,
		"UPDATE workflows SET status = 'paused', updated_at = now() WHERE id = $1 AND status <> 'rolled_back'",
		id)
	return err
}

// RecomputeWorkflowStatus derives the workflow status from its current step
// set in one statement, so concurrent resolutions cannot interleave a stale
// read-then-write.
func (s *PostgresStore) RecomputeWorkflowStatus(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE workflows
		SET status = CASE WHEN EXISTS (
			SELECT 1 FROM approval_steps WHERE workflow_id = $1 AND status = 'pending'
		) THEN 'paused' ELSE 'running' END,
		updated_at = now()
		WHERE id = $1 AND status <> 'rolled_back'`,
		id)
	return err
}

// ApplyRollback appends the audit record and marks the workflow rolled back
// in a single transaction, so observers never see one without the other.
func (s *PostgresStore) ApplyRollback(ctx context.Context, rb *models.WorkflowRollback) error {
	actions := rb.CompensationActions
	if actions == nil {
		actions = []models.CompensationAction{}
	}
	doc, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("encode compensation actions: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO workflow_rollbacks
			(id, workflow_id, rolled_back_from_step, rolled_back_to_step, reason, rolled_back_by, compensation_actions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		rb.ID, rb.WorkflowID, rb.RolledBackFromStep, rb.RolledBackToStep, rb.Reason, rb.RolledBackBy, doc)
	if err := row.Scan(&rb.CreatedAt); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		"UPDATE workflows SET status = 'rolled_back', rollback_reason = $2, updated_at = now() WHERE id = $1",
		rb.WorkflowID, rb.Reason); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListRollbacks returns the rollback history of a workflow, newest first.
func (s *PostgresStore) ListRollbacks(ctx context.Context, workflowID string) ([]*models.WorkflowRollback, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+rollbackColumns+" FROM workflow_rollbacks WHERE workflow_id = $1 ORDER BY created_at DESC",
		workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rollbacks []*models.WorkflowRollback
	for rows.Next() {
		var (
			rb      models.WorkflowRollback
			reason  *string
			by      *string
			actions []byte
		)
		if err := rows.Scan(&rb.ID, &rb.WorkflowID, &rb.RolledBackFromStep, &rb.RolledBackToStep,
			&reason, &by, &actions, &rb.CreatedAt); err != nil {
			return nil, err
		}
		if reason != nil {
			rb.Reason = *reason
		}
		if by != nil {
			rb.RolledBackBy = *by
		}
		if err := json.Unmarshal(actions, &rb.CompensationActions); err != nil {
			return nil, fmt.Errorf("decode compensation actions: %w", err)
		}
		if rb.CompensationActions == nil {
			rb.CompensationActions = []models.CompensationAction{}
		}
		rollbacks = append(rollbacks, &rb)
	}
	return rollbacks, rows.Err()
}

// CreateApproval inserts a pending approval step and returns it hydrated.
func (s *PostgresStore) CreateApproval(ctx context.Context, step *models.ApprovalStep) error {
	ui, err := marshalDoc(step.UISchema)
	if err != nil {
		return fmt.Errorf("encode ui schema: %w", err)
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO approval_steps (id, workflow_id, step_name, assigned_to, ui_schema, timeout_at, channel)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING status, requested_at`,
		step.ID, step.WorkflowID, step.StepName, step.AssignedTo, ui, step.TimeoutAt, step.Channel)
	if err := row.Scan(&step.Status, &step.RequestedAt); err != nil {
		return err
	}
	if step.UISchema == nil {
		step.UISchema = map[string]interface{}{}
	}
	if step.ResponseData == nil {
		step.ResponseData = map[string]interface{}{}
	}
	return nil
}

// GetApproval retrieves an approval step by id.
func (s *PostgresStore) GetApproval(ctx context.Context, id string) (*models.ApprovalStep, error) {
	row := s.db.QueryRow(ctx, "SELECT "+approvalColumns+" FROM approval_steps WHERE id = $1", id)
	return scanApproval(row)
}

// ListApprovalsByWorkflow returns a workflow's steps in creation order.
func (s *PostgresStore) ListApprovalsByWorkflow(ctx context.Context, workflowID string) ([]*models.ApprovalStep, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+approvalColumns+" FROM approval_steps WHERE workflow_id = $1 ORDER BY requested_at",
		workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectApprovals(rows)
}

// ListApprovals returns steps matching the filter, newest first.
func (s *PostgresStore) ListApprovals(ctx context.Context, f ApprovalFilter) ([]*models.ApprovalStep, error) {
	sql := "SELECT " + approvalColumns + " FROM approval_steps WHERE 1=1"
	var args []interface{}
	if f.Status != "" {
		args = append(args, f.Status)
		sql += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.WorkflowID != "" {
		args = append(args, f.WorkflowID)
		sql += fmt.Sprintf(" AND workflow_id = $%d", len(args))
	}
	sql += " ORDER BY requested_at DESC"

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectApprovals(rows)
}

// ResolveApproval records a decision on a pending step; the status guard
// makes a second resolution a no-op reported as ErrNotFound.
func (s *PostgresStore) ResolveApproval(ctx context.Context, id string, status models.ApprovalStatus, response map[string]interface{}) error {
	doc, err := marshalDoc(response)
	if err != nil {
		return fmt.Errorf("encode response data: %w", err)
	}
	tag, err := s.db.Exec(ctx,
		"UPDATE approval_steps SET status = $2, response_data = $3, responded_at = now() WHERE id = $1 AND status = 'pending'",
		id, status, doc)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkApprovalTimedOut resolves a pending step as timed out, stamping
// responded_at. Response data is left at its default.
func (s *PostgresStore) MarkApprovalTimedOut(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE approval_steps SET status = 'timed_out', responded_at = now() WHERE id = $1 AND status = 'pending'",
		id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteApproval hard-deletes a step (expiry sweep delete policy).
func (s *PostgresStore) DeleteApproval(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM approval_steps WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExpiredApprovals returns pending steps whose deadline has passed.
func (s *PostgresStore) ListExpiredApprovals(ctx context.Context, now time.Time) ([]*models.ApprovalStep, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+approvalColumns+" FROM approval_steps WHERE status = 'pending' AND timeout_at IS NOT NULL AND timeout_at <= $1 ORDER BY timeout_at",
		now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectApprovals(rows)
}

func scanWorkflow(row pgx.Row) (*models.Workflow, error) {
	var (
		w   models.Workflow
		doc []byte
	)
	err := row.Scan(&w.ID, &w.Name, &w.Status, &doc, &w.RollbackReason, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if w.Context, err = unmarshalDoc(doc); err != nil {
		return nil, fmt.Errorf("decode workflow context: %w", err)
	}
	return &w, nil
}

func scanApproval(row pgx.Row) (*models.ApprovalStep, error) {
	var (
		step       models.ApprovalStep
		assignedTo *string
		ui, resp   []byte
	)
	err := row.Scan(&step.ID, &step.WorkflowID, &step.StepName, &step.Status, &assignedTo,
		&ui, &resp, &step.RequestedAt, &step.RespondedAt, &step.TimeoutAt, &step.Channel)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if assignedTo != nil {
		step.AssignedTo = *assignedTo
	}
	if step.UISchema, err = unmarshalDoc(ui); err != nil {
		return nil, fmt.Errorf("decode ui schema: %w", err)
	}
	if step.ResponseData, err = unmarshalDoc(resp); err != nil {
		return nil, fmt.Errorf("decode response data: %w", err)
	}
	return &step, nil
}

func collectApprovals(rows pgx.Rows) ([]*models.ApprovalStep, error) {
	var steps []*models.ApprovalStep
	for rows.Next() {
		step, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func marshalDoc(m map[string]interface{}) ([]byte, error) {
	if m == nil {
		m = map[string]interface{}{}
	}
	return json.Marshal(m)
}

func unmarshalDoc(b []byte) (map[string]interface{}, error) {
	if len(b) == 0 {
		return map[string]interface{}{}, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]interface{}{}
	}
	return m, nil
}
