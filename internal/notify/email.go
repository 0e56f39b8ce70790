package notify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"approval-orchestrator/backend/internal/config"
	"approval-orchestrator/backend/pkg/models"
)

// EmailSender delivers plain-text notifications over SMTP. Connections are
// deadline-bounded so a stuck mail server cannot hang the caller.
type EmailSender struct {
	cfg         config.EmailConfig
	frontendURL string
	dialTimeout time.Duration
}

// NewEmailSender creates an EmailSender from SMTP settings.
func NewEmailSender(cfg config.EmailConfig, frontendURL string) *EmailSender {
	return &EmailSender{cfg: cfg, frontendURL: frontendURL, dialTimeout: 10 * time.Second}
}

// ApprovalRequest emails the assignee an actionable approval request.
func (e *EmailSender) ApprovalRequest(ctx context.Context, step *models.ApprovalStep, wf *models.Workflow) error {
	timeout := "none"
	if step.TimeoutAt != nil {
		timeout = formatTime(*step.TimeoutAt)
	}
	base := e.frontendURL + "/approvals/" + step.ID
	body := fmt.Sprintf(
		"Approval required: %s\n\nWorkflow: %s\nAssigned to: %s\nRequested: %s\nTimeout: %s\n\nContext:\n%s\n\nApprove: %s?decision=approve\nReject: %s?decision=reject\nView: %s\n",
		step.StepName, wf.Name, step.AssignedTo, formatTime(step.RequestedAt), timeout,
		indentJSON(wf.Context), base, base, base)
	return e.send(ctx, []string{step.AssignedTo}, "Approval required: "+step.StepName, body)
}

// Decision emails the assignee the recorded decision, including feedback.
func (e *EmailSender) Decision(ctx context.Context, step *models.ApprovalStep, wf *models.Workflow, decision models.Decision) error {
	status := string(decision.Status())
	body := fmt.Sprintf("Approval %s: %s\n\nWorkflow: %s\nDecision: %s\nBy: %s\nWhen: %s\n",
		status, step.StepName, wf.Name, status, step.AssignedTo, formatTime(time.Now()))
	if len(step.ResponseData) > 0 {
		body += "\nFeedback:\n" + indentJSON(step.ResponseData) + "\n"
	}
	return e.send(ctx, []string{step.AssignedTo}, fmt.Sprintf("Approval %s: %s", status, step.StepName), body)
}

// Rollback emails the assignee that the step's workflow was rolled back.
func (e *EmailSender) Rollback(ctx context.Context, step *models.ApprovalStep, wf *models.Workflow, rb *models.WorkflowRollback, message string) error {
	body := fmt.Sprintf(
		"Approval rolled back: %s\n\nWorkflow: %s\nReason: %s\nRolled back by: %s\nWhen: %s\n\nImpact: This approval decision has been reversed.\n",
		step.StepName, wf.Name, message, rb.RolledBackBy, formatTime(time.Now()))
	if len(rb.CompensationActions) > 0 {
		body += "\nCompensation actions:\n" + indentJSON(rb.CompensationActions) + "\n"
	}
	return e.send(ctx, []string{step.AssignedTo}, "Rollback: "+step.StepName, body)
}

// WorkflowRollback emails the workflow-level rollback announcement to the
// given recipients.
func (e *EmailSender) WorkflowRollback(ctx context.Context, wf *models.Workflow, rb *models.WorkflowRollback, to []string) error {
	body := fmt.Sprintf(
		"Workflow rolled back: %s\n\nReason: %s\nRolled back by: %s\nWhen: %s\n\nContext:\n%s\n",
		wf.Name, rb.Reason, rb.RolledBackBy, formatTime(time.Now()), indentJSON(wf.Context))
	return e.send(ctx, to, "Workflow rolled back: "+wf.Name, body)
}

func indentJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (e *EmailSender) from() string {
	if e.cfg.From != "" {
		return e.cfg.From
	}
	return e.cfg.Username
}

func (e *EmailSender) send(ctx context.Context, to []string, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)

	dialer := net.Dialer{Timeout: e.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(30 * time.Second))
	}

	client, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: e.cfg.Host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if e.cfg.Username != "" {
		auth := smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(e.from()); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		e.from(), strings.Join(to, ", "), subject, body)
	if _, err := w.Write([]byte(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
