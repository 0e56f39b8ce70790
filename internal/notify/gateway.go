// Package notify delivers approval-request, decision, and rollback messages
// to humans over the channel an approval step is bound to. Delivery is
// best-effort from the engines' point of view: they log failures and move on.
package notify

import (
	"context"

	"approval-orchestrator/backend/internal/config"
	"approval-orchestrator/backend/internal/logging"
	"approval-orchestrator/backend/pkg/models"
)

// Gateway is the capability the engines invoke to reach approvers.
type Gateway interface {
	SendApprovalRequest(ctx context.Context, step *models.ApprovalStep, wf *models.Workflow) error
	SendDecisionNotification(ctx context.Context, step *models.ApprovalStep, wf *models.Workflow, decision models.Decision) error
	SendRollbackNotification(ctx context.Context, step *models.ApprovalStep, wf *models.Workflow, rb *models.WorkflowRollback, message string) error
	// SendWorkflowRollbackNotification is the workflow-level variant used
	// when no single step applies. Skipped when no recipient resolves.
	SendWorkflowRollbackNotification(ctx context.Context, wf *models.Workflow, rb *models.WorkflowRollback) error
}

// Dispatcher routes each message to the implementation matching the step's
// channel. Unconfigured channels are skipped with a log, never an error.
type Dispatcher struct {
	slack  *SlackWebhook
	email  *EmailSender
	logger *logging.Logger
}

// NewDispatcher builds a Dispatcher from configuration. Slack requires a
// webhook URL, email an SMTP host; each integration is enabled independently.
func NewDispatcher(cfg *config.Config, logger *logging.Logger) *Dispatcher {
	d := &Dispatcher{logger: logger}
	if cfg.Slack.WebhookURL != "" {
		d.slack = NewSlackWebhook(cfg.Slack.WebhookURL, cfg.Frontend.BaseURL)
	}
	if cfg.Email.Host != "" {
		d.email = NewEmailSender(cfg.Email, cfg.Frontend.BaseURL)
	}
	return d
}

func (d *Dispatcher) SendApprovalRequest(ctx context.Context, step *models.ApprovalStep, wf *models.Workflow) error {
	switch step.Channel {
	case models.ChannelSlack:
		if d.slack == nil {
			d.logger.Info("slack webhook not configured, skipping approval request %s", step.ID)
			return nil
		}
		return d.slack.ApprovalRequest(ctx, step, wf)
	case models.ChannelEmail:
		if d.email == nil {
			d.logger.Info("email not configured, skipping approval request %s", step.ID)
			return nil
		}
		return d.email.ApprovalRequest(ctx, step, wf)
	default:
		// web approvals surface in the dashboard only
		return nil
	}
}

func (d *Dispatcher) SendDecisionNotification(ctx context.Context, step *models.ApprovalStep, wf *models.Workflow, decision models.Decision) error {
	switch step.Channel {
	case models.ChannelSlack:
		if d.slack == nil {
			d.logger.Info("slack webhook not configured, skipping decision notification %s", step.ID)
			return nil
		}
		return d.slack.Decision(ctx, step, wf, decision)
	case models.ChannelEmail:
		if d.email == nil {
			d.logger.Info("email not configured, skipping decision notification %s", step.ID)
			return nil
		}
		return d.email.Decision(ctx, step, wf, decision)
	default:
		return nil
	}
}

func (d *Dispatcher) SendRollbackNotification(ctx context.Context, step *models.ApprovalStep, wf *models.Workflow, rb *models.WorkflowRollback, message string) error {
	switch step.Channel {
	case models.ChannelSlack:
		if d.slack == nil {
			d.logger.Info("slack webhook not configured, skipping rollback notification %s", step.ID)
			return nil
		}
		return d.slack.Rollback(ctx, step, wf, rb, message)
	case models.ChannelEmail:
		if d.email == nil {
			d.logger.Info("email not configured, skipping rollback notification %s", step.ID)
			return nil
		}
		return d.email.Rollback(ctx, step, wf, rb, message)
	default:
		d.logger.Info("no rollback notification channel for step %s (channel %s)", step.ID, step.Channel)
		return nil
	}
}

func (d *Dispatcher) SendWorkflowRollbackNotification(ctx context.Context, wf *models.Workflow, rb *models.WorkflowRollback) error {
	if d.slack != nil {
		if err := d.slack.WorkflowRollback(ctx, wf, rb); err != nil {
			return err
		}
	}
	if d.email != nil {
		recipients := wf.NotificationEmails()
		if len(recipients) == 0 && d.email.cfg.Admin != "" {
			recipients = []string{d.email.cfg.Admin}
		}
		if len(recipients) == 0 {
			d.logger.Info("no recipients for workflow rollback %s, skipping email", wf.ID)
			return nil
		}
		return d.email.WorkflowRollback(ctx, wf, rb, recipients)
	}
	return nil
}
