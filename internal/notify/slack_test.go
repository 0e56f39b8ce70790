package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"approval-orchestrator/backend/pkg/models"
)

func captureWebhook(t *testing.T, status int) (*SlackWebhook, *[]slackPayload) {
	t.Helper()
	var payloads []slackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var p slackPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		payloads = append(payloads, p)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return NewSlackWebhook(srv.URL, "http://frontend.local"), &payloads
}

func sampleStep() (*models.ApprovalStep, *models.Workflow) {
	timeoutAt := time.Now().Add(time.Hour)
	step := &models.ApprovalStep{
		ID:          "step-1",
		WorkflowID:  "wf-1",
		StepName:    "Deploy sign-off",
		Status:      models.ApprovalPending,
		AssignedTo:  "alice",
		RequestedAt: time.Now(),
		TimeoutAt:   &timeoutAt,
		Channel:     models.ChannelSlack,
	}
	wf := &models.Workflow{
		ID:      "wf-1",
		Name:    "Production Deploy",
		Status:  models.WorkflowPaused,
		Context: map[string]interface{}{"env": "prod"},
	}
	return step, wf
}

func TestApprovalRequestPayload(t *testing.T) {
	hook, payloads := captureWebhook(t, http.StatusOK)
	step, wf := sampleStep()

	require.NoError(t, hook.ApprovalRequest(context.Background(), step, wf))
	require.Len(t, *payloads, 1)

	p := (*payloads)[0]
	assert.Equal(t, "Approval required: Deploy sign-off", p.Text)
	require.NotEmpty(t, p.Blocks)
	assert.Equal(t, "header", p.Blocks[0].Type)

	actions := p.Blocks[len(p.Blocks)-1]
	require.Equal(t, "actions", actions.Type)
	require.Len(t, actions.Elements, 3)
	assert.Equal(t, "http://frontend.local/approvals/step-1?decision=approve", actions.Elements[0].URL)
	assert.Equal(t, "http://frontend.local/approvals/step-1?decision=reject", actions.Elements[1].URL)
	assert.Equal(t, "http://frontend.local/approvals/step-1", actions.Elements[2].URL)
}

func TestDecisionPayloadIncludesFeedback(t *testing.T) {
	hook, payloads := captureWebhook(t, http.StatusOK)
	step, wf := sampleStep()
	step.Status = models.ApprovalApproved
	step.ResponseData = map[string]interface{}{"comment": "ship it"}

	require.NoError(t, hook.Decision(context.Background(), step, wf, models.DecisionApprove))
	require.Len(t, *payloads, 1)

	p := (*payloads)[0]
	assert.Contains(t, p.Text, "approved")

	last := p.Blocks[len(p.Blocks)-1]
	require.NotNil(t, last.Text)
	assert.Contains(t, last.Text.Text, "ship it")
}

func TestWorkflowRollbackPayload(t *testing.T) {
	hook, payloads := captureWebhook(t, http.StatusOK)
	_, wf := sampleStep()
	rb := &models.WorkflowRollback{
		ID:           "rb-1",
		WorkflowID:   wf.ID,
		Reason:       "regression found",
		RolledBackBy: "ops",
	}

	require.NoError(t, hook.WorkflowRollback(context.Background(), wf, rb))
	require.Len(t, *payloads, 1)

	p := (*payloads)[0]
	assert.Equal(t, "Workflow rolled back: Production Deploy", p.Text)
	require.NotNil(t, p.Blocks[1].Text)
	assert.Contains(t, p.Blocks[1].Text.Text, "regression found")
	assert.Contains(t, p.Blocks[1].Text.Text, "ops")
}

func TestRollbackDescribesCompensationActions(t *testing.T) {
	hook, payloads := captureWebhook(t, http.StatusOK)
	step, wf := sampleStep()
	rb := &models.WorkflowRollback{
		Reason:       "bad data",
		RolledBackBy: "ops",
		CompensationActions: []models.CompensationAction{
			{"type": models.ActionNotifyStakeholders, "message": "everyone told"},
			{"type": models.ActionReverse, "target": "release 1.2"},
			{"type": models.ActionUpdateSystem},
		},
	}

	require.NoError(t, hook.Rollback(context.Background(), step, wf, rb, "approval reversed"))
	require.Len(t, *payloads, 1)

	p := (*payloads)[0]
	last := p.Blocks[len(p.Blocks)-1]
	require.NotNil(t, last.Text)
	assert.Contains(t, last.Text.Text, "everyone told")
	assert.Contains(t, last.Text.Text, "release 1.2")
	assert.Contains(t, last.Text.Text, "System updated")
}

func TestPostReportsWebhookFailure(t *testing.T) {
	hook, _ := captureWebhook(t, http.StatusInternalServerError)
	step, wf := sampleStep()

	err := hook.ApprovalRequest(context.Background(), step, wf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slack webhook failed")
}
