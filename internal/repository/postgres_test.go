package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"approval-orchestrator/backend/pkg/models"
)

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	store := NewPostgresStore(pool)
	if err := store.InitSchema(ctx); err != nil {
		t.Fatal(err)
	}

	newWorkflow := func(t *testing.T, name string, wfContext map[string]interface{}) *models.Workflow {
		t.Helper()
		wf := &models.Workflow{ID: uuid.New().String(), Name: name, Context: wfContext}
		require.NoError(t, store.CreateWorkflow(ctx, wf))
		return wf
	}

	newApproval := func(t *testing.T, workflowID, stepName string, timeoutAt *time.Time) *models.ApprovalStep {
		t.Helper()
		step := &models.ApprovalStep{
			ID:         uuid.New().String(),
			WorkflowID: workflowID,
			StepName:   stepName,
			Channel:    models.ChannelWeb,
			TimeoutAt:  timeoutAt,
		}
		require.NoError(t, store.CreateApproval(ctx, step))
		return step
	}

	t.Run("Create and Get workflow", func(t *testing.T) {
		wf := newWorkflow(t, "deploy v1", map[string]interface{}{"env": "prod"})
		assert.Equal(t, models.WorkflowRunning, wf.Status)
		assert.False(t, wf.CreatedAt.IsZero())

		got, err := store.GetWorkflow(ctx, wf.ID)
		require.NoError(t, err)
		assert.Equal(t, wf.ID, got.ID)
		assert.Equal(t, "deploy v1", got.Name)
		assert.Equal(t, models.WorkflowRunning, got.Status)
		assert.Equal(t, "prod", got.Context["env"])
		assert.Nil(t, got.RollbackReason)
	})

	t.Run("Get missing workflow", func(t *testing.T) {
		_, err := store.GetWorkflow(ctx, uuid.New().String())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Approval orphan rejected", func(t *testing.T) {
		step := &models.ApprovalStep{
			ID:         uuid.New().String(),
			WorkflowID: uuid.New().String(),
			StepName:   "orphan",
			Channel:    models.ChannelWeb,
		}
		assert.Error(t, store.CreateApproval(ctx, step))
	})

	t.Run("Pause and recompute status", func(t *testing.T) {
		wf := newWorkflow(t, "status derivation", nil)
		step := newApproval(t, wf.ID, "sign-off", nil)
		assert.Equal(t, models.ApprovalPending, step.Status)

		require.NoError(t, store.PauseWorkflow(ctx, wf.ID))
		got, err := store.GetWorkflow(ctx, wf.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WorkflowPaused, got.Status)

		// Resolving the only pending step resumes the workflow.
		require.NoError(t, store.ResolveApproval(ctx, step.ID, models.ApprovalApproved, map[string]interface{}{"comment": "lgtm"}))
		require.NoError(t, store.RecomputeWorkflowStatus(ctx, wf.ID))
		got, err = store.GetWorkflow(ctx, wf.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WorkflowRunning, got.Status)

		resolved, err := store.GetApproval(ctx, step.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ApprovalApproved, resolved.Status)
		assert.Equal(t, "lgtm", resolved.ResponseData["comment"])
		require.NotNil(t, resolved.RespondedAt)
	})

	t.Run("Recompute keeps paused while a sibling is pending", func(t *testing.T) {
		wf := newWorkflow(t, "two steps", nil)
		first := newApproval(t, wf.ID, "first", nil)
		newApproval(t, wf.ID, "second", nil)
		require.NoError(t, store.PauseWorkflow(ctx, wf.ID))

		require.NoError(t, store.ResolveApproval(ctx, first.ID, models.ApprovalRejected, nil))
		require.NoError(t, store.RecomputeWorkflowStatus(ctx, wf.ID))

		got, err := store.GetWorkflow(ctx, wf.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WorkflowPaused, got.Status)
	})

	t.Run("Resolve is single-shot", func(t *testing.T) {
		wf := newWorkflow(t, "single shot", nil)
		step := newApproval(t, wf.ID, "once", nil)

		require.NoError(t, store.ResolveApproval(ctx, step.ID, models.ApprovalApproved, nil))
		err := store.ResolveApproval(ctx, step.ID, models.ApprovalRejected, nil)
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := store.GetApproval(ctx, step.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ApprovalApproved, got.Status)
	})

	t.Run("MarkApprovalTimedOut only touches pending", func(t *testing.T) {
		wf := newWorkflow(t, "timeouts", nil)
		step := newApproval(t, wf.ID, "slow", nil)

		require.NoError(t, store.MarkApprovalTimedOut(ctx, step.ID))
		got, err := store.GetApproval(ctx, step.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ApprovalTimedOut, got.Status)
		require.NotNil(t, got.RespondedAt)

		assert.ErrorIs(t, store.MarkApprovalTimedOut(ctx, step.ID), ErrNotFound)
	})

	t.Run("ListExpiredApprovals", func(t *testing.T) {
		wf := newWorkflow(t, "expiry", nil)
		past := time.Now().Add(-time.Hour)
		future := time.Now().Add(time.Hour)
		expired := newApproval(t, wf.ID, "expired", &past)
		newApproval(t, wf.ID, "alive", &future)
		newApproval(t, wf.ID, "no deadline", nil)

		steps, err := store.ListExpiredApprovals(ctx, time.Now())
		require.NoError(t, err)

		var ids []string
		for _, s := range steps {
			if s.WorkflowID == wf.ID {
				ids = append(ids, s.ID)
			}
		}
		assert.Equal(t, []string{expired.ID}, ids)
	})

	t.Run("ListApprovals filter", func(t *testing.T) {
		wf := newWorkflow(t, "filters", nil)
		a := newApproval(t, wf.ID, "a", nil)
		b := newApproval(t, wf.ID, "b", nil)
		require.NoError(t, store.ResolveApproval(ctx, a.ID, models.ApprovalApproved, nil))

		pending, err := store.ListApprovals(ctx, ApprovalFilter{Status: models.ApprovalPending, WorkflowID: wf.ID})
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, b.ID, pending[0].ID)

		all, err := store.ListApprovals(ctx, ApprovalFilter{WorkflowID: wf.ID})
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("ApplyRollback is atomic and audited", func(t *testing.T) {
		wf := newWorkflow(t, "rollback me", nil)
		rb := &models.WorkflowRollback{
			ID:                 uuid.New().String(),
			WorkflowID:         wf.ID,
			RolledBackFromStep: string(models.WorkflowRunning),
			RolledBackToStep:   models.RolledBackToMarker,
			Reason:             "bad deploy",
			RolledBackBy:       "ops",
			CompensationActions: []models.CompensationAction{
				{"type": models.ActionNotifyStakeholders, "message": "deploy reverted"},
			},
		}
		require.NoError(t, store.ApplyRollback(ctx, rb))
		assert.False(t, rb.CreatedAt.IsZero())

		got, err := store.GetWorkflow(ctx, wf.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WorkflowRolledBack, got.Status)
		require.NotNil(t, got.RollbackReason)
		assert.Equal(t, "bad deploy", *got.RollbackReason)

		history, err := store.ListRollbacks(ctx, wf.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, rb.ID, history[0].ID)
		require.Len(t, history[0].CompensationActions, 1)
		assert.Equal(t, models.ActionNotifyStakeholders, history[0].CompensationActions[0].Type())
		assert.Equal(t, "deploy reverted", history[0].CompensationActions[0].Message())

		// Terminal: neither pause nor recompute moves a rolled-back workflow.
		require.NoError(t, store.PauseWorkflow(ctx, wf.ID))
		require.NoError(t, store.RecomputeWorkflowStatus(ctx, wf.ID))
		got, err = store.GetWorkflow(ctx, wf.ID)
		require.NoError(t, err)
		assert.Equal(t, models.WorkflowRolledBack, got.Status)
	})

	t.Run("DeleteApproval", func(t *testing.T) {
		wf := newWorkflow(t, "deletions", nil)
		step := newApproval(t, wf.ID, "gone", nil)

		require.NoError(t, store.DeleteApproval(ctx, step.ID))
		_, err := store.GetApproval(ctx, step.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, store.DeleteApproval(ctx, step.ID), ErrNotFound)
	})

	t.Run("Analytics aggregates", func(t *testing.T) {
		overview, err := store.Overview(ctx)
		require.NoError(t, err)
		assert.Greater(t, overview.TotalWorkflows, 0)
		assert.Greater(t, overview.TotalApprovals, 0)

		_, err = store.ResponseTimesByDay(ctx, 30)
		assert.NoError(t, err)

		_, err = store.TopApprovers(ctx, 30, 10)
		assert.NoError(t, err)

		usage, err := store.ChannelBreakdown(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, usage)
	})
}
