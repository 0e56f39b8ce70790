package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"approval-orchestrator/backend/pkg/models"
)

// SlackWebhook posts Block Kit messages to an incoming-webhook URL. The
// client timeout bounds every outbound call so a slow webhook cannot hang a
// request or a sweep iteration.
type SlackWebhook struct {
	url         string
	frontendURL string
	client      *http.Client
}

// NewSlackWebhook creates a SlackWebhook for the given webhook URL.
func NewSlackWebhook(url, frontendURL string) *SlackWebhook {
	return &SlackWebhook{
		url:         url,
		frontendURL: frontendURL,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type     string    `json:"type"`
	Text     slackText `json:"text"`
	URL      string    `json:"url"`
	ActionID string    `json:"action_id"`
}

func header(text string) slackBlock {
	return slackBlock{Type: "header", Text: &slackText{Type: "plain_text", Text: text}}
}

func section(markdown string) slackBlock {
	return slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: markdown}}
}

func button(label, url, actionID string) slackElement {
	return slackElement{Type: "button", Text: slackText{Type: "plain_text", Text: label}, URL: url, ActionID: actionID}
}

func codeBlock(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "```{}```"
	}
	return "```" + string(b) + "```"
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04 MST")
}

// ApprovalRequest delivers a human-actionable approval request with
// approve/reject/view buttons pointing at the web frontend.
func (s *SlackWebhook) ApprovalRequest(ctx context.Context, step *models.ApprovalStep, wf *models.Workflow) error {
	timeout := "none"
	if step.TimeoutAt != nil {
		timeout = formatTime(*step.TimeoutAt)
	}
	base := s.frontendURL + "/approvals/" + step.ID
	payload := slackPayload{
		Text: "Approval required: " + step.StepName,
		Blocks: []slackBlock{
			header("Approval required: " + step.StepName),
			section(fmt.Sprintf("*Workflow:* %s\n*Assigned to:* %s\n*Requested:* %s\n*Timeout:* %s",
				wf.Name, step.AssignedTo, formatTime(step.RequestedAt), timeout)),
			section("*Context:*\n" + codeBlock(wf.Context)),
			{
				Type: "actions",
				Elements: []slackElement{
					button("Approve", base+"?decision=approve", "approve"),
					button("Reject", base+"?decision=reject", "reject"),
					button("View details", base, "view_details"),
				},
			},
		},
	}
	return s.post(ctx, payload)
}

// Decision notifies the channel that a step has been resolved.
func (s *SlackWebhook) Decision(ctx context.Context, step *models.ApprovalStep, wf *models.Workflow, decision models.Decision) error {
	status := string(decision.Status())
	payload := slackPayload{
		Text: fmt.Sprintf("Decision: %s %s", step.StepName, status),
		Blocks: []slackBlock{
			header(fmt.Sprintf("Approval %s: %s", status, step.StepName)),
			section(fmt.Sprintf("*Workflow:* %s\n*Decision:* %s\n*By:* %s\n*When:* %s",
				wf.Name, status, step.AssignedTo, formatTime(time.Now()))),
		},
	}
	if len(step.ResponseData) > 0 {
		payload.Blocks = append(payload.Blocks, section("*Feedback:*\n"+codeBlock(step.ResponseData)))
	}
	return s.post(ctx, payload)
}

// Rollback notifies the channel that a step's workflow was rolled back.
func (s *SlackWebhook) Rollback(ctx context.Context, step *models.ApprovalStep, wf *models.Workflow, rb *models.WorkflowRollback, message string) error {
	payload := slackPayload{
		Text: "Rollback: " + step.StepName,
		Blocks: []slackBlock{
			header("Approval rolled back"),
			section(fmt.Sprintf("*Approval:* %s\n*Workflow:* %s\n*Reason:* %s\n*Rolled back by:* %s\n*When:* %s",
				step.StepName, wf.Name, message, rb.RolledBackBy, formatTime(time.Now()))),
			section("*Impact:* This approval decision has been reversed. Please disregard the previous approval."),
		},
	}
	if len(rb.CompensationActions) > 0 {
		payload.Blocks = append(payload.Blocks, section("*Compensation actions:*\n"+describeActions(rb.CompensationActions)))
	}
	return s.post(ctx, payload)
}

// WorkflowRollback announces a workflow-level rollback.
func (s *SlackWebhook) WorkflowRollback(ctx context.Context, wf *models.Workflow, rb *models.WorkflowRollback) error {
	payload := slackPayload{
		Text: "Workflow rolled back: " + wf.Name,
		Blocks: []slackBlock{
			header("Workflow rolled back"),
			section(fmt.Sprintf("*Workflow:* %s\n*Reason:* %s\n*Rolled back by:* %s\n*When:* %s",
				wf.Name, rb.Reason, rb.RolledBackBy, formatTime(time.Now()))),
			section("*Status:* The entire workflow has been rolled back. All approvals in this workflow have been invalidated."),
		},
	}
	if len(wf.Context) > 0 {
		payload.Blocks = append(payload.Blocks, section("*Original context:*\n"+codeBlock(wf.Context)))
	}
	return s.post(ctx, payload)
}

func describeActions(actions []models.CompensationAction) string {
	var buf bytes.Buffer
	for _, a := range actions {
		switch a.Type() {
		case models.ActionNotifyStakeholders:
			msg := a.Message()
			if msg == "" {
				msg = "Stakeholders notified"
			}
			fmt.Fprintf(&buf, "• %s\n", msg)
		case models.ActionReverse:
			target := a.Target()
			if target == "" {
				target = "Action reversed"
			}
			fmt.Fprintf(&buf, "• %s\n", target)
		case models.ActionUpdateSystem:
			buf.WriteString("• System updated\n")
		default:
			fmt.Fprintf(&buf, "• %s\n", a.Type())
		}
	}
	return buf.String()
}

func (s *SlackWebhook) post(ctx context.Context, payload slackPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack webhook failed: %s: %s", resp.Status, msg)
	}
	return nil
}
