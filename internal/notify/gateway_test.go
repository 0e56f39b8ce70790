package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"approval-orchestrator/backend/internal/config"
	"approval-orchestrator/backend/internal/logging"
	"approval-orchestrator/backend/pkg/models"
)

func TestDispatcherSkipsUnconfiguredChannels(t *testing.T) {
	d := NewDispatcher(&config.Config{}, logging.NewLogger())
	step, wf := sampleStep()

	// Nothing configured: every channel degrades to a logged no-op.
	assert.NoError(t, d.SendApprovalRequest(context.Background(), step, wf))
	assert.NoError(t, d.SendDecisionNotification(context.Background(), step, wf, models.DecisionApprove))
	assert.NoError(t, d.SendRollbackNotification(context.Background(), step, wf, &models.WorkflowRollback{}, "msg"))
	assert.NoError(t, d.SendWorkflowRollbackNotification(context.Background(), wf, &models.WorkflowRollback{}))
}

func TestDispatcherWebChannelIsSilent(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Slack.WebhookURL = srv.URL
	d := NewDispatcher(cfg, logging.NewLogger())

	step, wf := sampleStep()
	step.Channel = models.ChannelWeb
	require.NoError(t, d.SendApprovalRequest(context.Background(), step, wf))
	assert.Zero(t, hits)
}

func TestDispatcherRoutesSlackChannel(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Slack.WebhookURL = srv.URL
	d := NewDispatcher(cfg, logging.NewLogger())

	step, wf := sampleStep()
	require.NoError(t, d.SendApprovalRequest(context.Background(), step, wf))
	assert.Equal(t, 1, hits)
}
