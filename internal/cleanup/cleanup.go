// Package cleanup runs the expiry sweep: a periodic reconciliation that
// resolves pending approval steps whose deadline has passed and re-derives
// the owning workflow's status.
package cleanup

import (
	"context"
	"time"

	"approval-orchestrator/backend/internal/logging"
	"approval-orchestrator/backend/pkg/models"
)

// Store is the slice of the durable store the sweep needs.
type Store interface {
	ListExpiredApprovals(ctx context.Context, now time.Time) ([]*models.ApprovalStep, error)
	MarkApprovalTimedOut(ctx context.Context, id string) error
	DeleteApproval(ctx context.Context, id string) error
	RecomputeWorkflowStatus(ctx context.Context, id string) error
}

// DefaultInterval between sweep runs.
const DefaultInterval = 5 * time.Minute

// Job is the periodic sweep. It runs once immediately on Start, then on the
// fixed interval until Stop. Nothing it encounters is fatal: errors are
// logged per row and per iteration, and the timer continues.
type Job struct {
	store         Store
	logger        *logging.Logger
	interval      time.Duration
	deleteExpired bool

	stop chan struct{}
	done chan struct{}
}

// New creates a sweep job. interval <= 0 falls back to DefaultInterval. When
// deleteExpired is set, expired steps are hard-deleted instead of being
// marked timed_out.
func New(store Store, logger *logging.Logger, interval time.Duration, deleteExpired bool) *Job {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Job{
		store:         store,
		logger:        logger,
		interval:      interval,
		deleteExpired: deleteExpired,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start launches the sweep loop in the background.
func (j *Job) Start(ctx context.Context) {
	j.logger.Info("starting cleanup job: interval=%s deleteExpired=%v", j.interval, j.deleteExpired)
	go j.loop(ctx)
}

// Stop halts the sweep and waits for any in-flight run to finish.
func (j *Job) Stop() {
	close(j.stop)
	<-j.done
}

func (j *Job) loop(ctx context.Context) {
	defer close(j.done)

	j.runOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			j.runOnce(ctx)
		case <-j.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (j *Job) runOnce(ctx context.Context) {
	expired, err := j.store.ListExpiredApprovals(ctx, time.Now())
	if err != nil {
		j.logger.Error("cleanup: listing expired approvals: %v", err)
		return
	}
	if len(expired) == 0 {
		return
	}
	j.logger.Info("cleanup: found %d expired approval(s)", len(expired))

	for _, step := range expired {
		if j.deleteExpired {
			if err := j.store.DeleteApproval(ctx, step.ID); err != nil {
				j.logger.Error("cleanup: deleting approval %s: %v", step.ID, err)
				continue
			}
			j.logger.Info("cleanup: deleted expired approval %s", step.ID)
		} else {
			if err := j.store.MarkApprovalTimedOut(ctx, step.ID); err != nil {
				j.logger.Error("cleanup: marking approval %s timed out: %v", step.ID, err)
				continue
			}
			j.logger.Info("cleanup: marked approval %s as timed_out", step.ID)
		}

		if err := j.store.RecomputeWorkflowStatus(ctx, step.WorkflowID); err != nil {
			j.logger.Error("cleanup: updating workflow %s status: %v", step.WorkflowID, err)
		}
	}
}
