package cleanup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"approval-orchestrator/backend/internal/logging"
	"approval-orchestrator/backend/pkg/models"
)

type sweepStore struct {
	mu          sync.Mutex
	expired     []*models.ApprovalStep
	markErr     map[string]error
	marked      []string
	deleted     []string
	recomputed  []string
	listCalls   int
	listErrOnce error
}

func (s *sweepStore) ListExpiredApprovals(_ context.Context, _ time.Time) ([]*models.ApprovalStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErrOnce != nil {
		err := s.listErrOnce
		s.listErrOnce = nil
		return nil, err
	}
	return s.expired, nil
}

func (s *sweepStore) MarkApprovalTimedOut(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.markErr[id]; err != nil {
		return err
	}
	s.marked = append(s.marked, id)
	return nil
}

func (s *sweepStore) DeleteApproval(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *sweepStore) RecomputeWorkflowStatus(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputed = append(s.recomputed, id)
	return nil
}

func expiredStep(id, workflowID string) *models.ApprovalStep {
	past := time.Now().Add(-time.Hour)
	return &models.ApprovalStep{
		ID:         id,
		WorkflowID: workflowID,
		Status:     models.ApprovalPending,
		TimeoutAt:  &past,
	}
}

func TestRunOnceMarksTimedOut(t *testing.T) {
	store := &sweepStore{
		expired: []*models.ApprovalStep{
			expiredStep("a", "wf-1"),
			expiredStep("b", "wf-2"),
		},
	}
	job := New(store, logging.NewLogger(), time.Minute, false)

	job.runOnce(context.Background())

	assert.Equal(t, []string{"a", "b"}, store.marked)
	assert.Empty(t, store.deleted)
	assert.Equal(t, []string{"wf-1", "wf-2"}, store.recomputed)
}

func TestRunOnceDeletePolicy(t *testing.T) {
	store := &sweepStore{
		expired: []*models.ApprovalStep{expiredStep("a", "wf-1")},
	}
	job := New(store, logging.NewLogger(), time.Minute, true)

	job.runOnce(context.Background())

	assert.Equal(t, []string{"a"}, store.deleted)
	assert.Empty(t, store.marked)
	assert.Equal(t, []string{"wf-1"}, store.recomputed)
}

func TestRunOnceContinuesPastRowErrors(t *testing.T) {
	store := &sweepStore{
		expired: []*models.ApprovalStep{
			expiredStep("broken", "wf-1"),
			expiredStep("fine", "wf-2"),
		},
		markErr: map[string]error{"broken": errors.New("boom")},
	}
	job := New(store, logging.NewLogger(), time.Minute, false)

	job.runOnce(context.Background())

	// The failed row is skipped without touching its workflow; the rest of
	// the batch still runs.
	assert.Equal(t, []string{"fine"}, store.marked)
	assert.Equal(t, []string{"wf-2"}, store.recomputed)
}

func TestStartRunsImmediatelyAndStops(t *testing.T) {
	store := &sweepStore{}
	job := New(store, logging.NewLogger(), time.Hour, false)

	job.Start(context.Background())

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.listCalls >= 1
	}, time.Second, 10*time.Millisecond)

	job.Stop()
}

func TestLoopSurvivesListError(t *testing.T) {
	store := &sweepStore{
		listErrOnce: errors.New("db down"),
		expired:     []*models.ApprovalStep{expiredStep("a", "wf-1")},
	}
	job := New(store, logging.NewLogger(), 20*time.Millisecond, false)

	job.Start(context.Background())
	defer job.Stop()

	// First run fails, the next tick succeeds.
	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.marked) >= 1
	}, time.Second, 10*time.Millisecond)
}

func TestIntervalFallback(t *testing.T) {
	job := New(&sweepStore{}, logging.NewLogger(), 0, false)
	assert.Equal(t, DefaultInterval, job.interval)
}
