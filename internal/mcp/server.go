package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"approval-orchestrator/backend/internal/services"
	"approval-orchestrator/backend/pkg/models"
)

// Server exposes the workflow and approval engines as MCP tools so agents
// can drive approvals programmatically.
type Server struct {
	mcpServer *server.MCPServer
	workflows *services.WorkflowService
	approvals *services.ApprovalService
}

// NewServer creates a new Server.
func NewServer(workflows *services.WorkflowService, approvals *services.ApprovalService) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Approval Orchestrator",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		workflows: workflows,
		approvals: approvals,
	}

	s.registerTools()
	return s
}

// GetMCPServer returns the underlying MCP server.
func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_workflows",
			mcp.WithDescription("List all approval workflows, newest first"),
		),
		s.handleListWorkflows,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_workflow",
			mcp.WithDescription("Get a single workflow by id"),
			mcp.WithString("workflow_id", mcp.Required(), mcp.Description("The workflow ID")),
		),
		s.handleGetWorkflow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"create_workflow",
			mcp.WithDescription("Create a new approval workflow"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Workflow name")),
		),
		s.handleCreateWorkflow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"request_approval",
			mcp.WithDescription("Add a pending approval step to a workflow; this pauses the workflow"),
			mcp.WithString("workflow_id", mcp.Required(), mcp.Description("The owning workflow ID")),
			mcp.WithString("step_name", mcp.Required(), mcp.Description("Name of the decision point")),
			mcp.WithString("assigned_to", mcp.Description("Recipient identifier for the step's channel")),
			mcp.WithString("channel", mcp.Description("Delivery channel: web, email, or slack (default web)")),
			mcp.WithNumber("timeout_minutes", mcp.Description("Minutes before the step times out (default 60)")),
		),
		s.handleRequestApproval,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"respond_approval",
			mcp.WithDescription("Record a decision on a pending approval step"),
			mcp.WithString("approval_id", mcp.Required(), mcp.Description("The approval step ID")),
			mcp.WithString("decision", mcp.Required(), mcp.Description(`"approve" or "reject"`)),
		),
		s.handleRespondApproval,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"rollback_workflow",
			mcp.WithDescription("Roll back a running or paused workflow with a reason"),
			mcp.WithString("workflow_id", mcp.Required(), mcp.Description("The workflow ID")),
			mcp.WithString("reason", mcp.Required(), mcp.Description("Why the workflow is rolled back")),
			mcp.WithString("rolled_back_by", mcp.Required(), mcp.Description("Actor performing the rollback")),
		),
		s.handleRollbackWorkflow,
	)
}

func (s *Server) handleListWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflows, err := s.workflows.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list workflows: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(workflows)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGetWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	workflowID, ok := args["workflow_id"].(string)
	if !ok || workflowID == "" {
		return mcp.NewToolResultError("Missing required parameter: workflow_id"), nil
	}

	wf, err := s.workflows.Get(ctx, workflowID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get workflow: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(wf)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleCreateWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return mcp.NewToolResultError("Missing required parameter: name"), nil
	}

	wfContext, _ := args["context"].(map[string]interface{})

	wf, err := s.workflows.Create(ctx, name, wfContext)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create workflow: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(wf)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleRequestApproval(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	workflowID, ok := args["workflow_id"].(string)
	if !ok || workflowID == "" {
		return mcp.NewToolResultError("Missing required parameter: workflow_id"), nil
	}
	stepName, ok := args["step_name"].(string)
	if !ok || stepName == "" {
		return mcp.NewToolResultError("Missing required parameter: step_name"), nil
	}

	assignedTo, _ := args["assigned_to"].(string)
	channel, _ := args["channel"].(string)
	timeoutMinutes, _ := args["timeout_minutes"].(float64)

	step, err := s.approvals.Create(ctx, services.CreateApprovalParams{
		WorkflowID:     workflowID,
		StepName:       stepName,
		AssignedTo:     assignedTo,
		TimeoutMinutes: int(timeoutMinutes),
		Channel:        models.Channel(channel),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to request approval: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(step)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleRespondApproval(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	approvalID, ok := args["approval_id"].(string)
	if !ok || approvalID == "" {
		return mcp.NewToolResultError("Missing required parameter: approval_id"), nil
	}
	decision, ok := args["decision"].(string)
	if !ok || decision == "" {
		return mcp.NewToolResultError("Missing required parameter: decision"), nil
	}

	feedback, _ := args["feedback"].(map[string]interface{})

	step, err := s.approvals.Respond(ctx, approvalID, models.Decision(decision), feedback)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to respond: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(step)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleRollbackWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	workflowID, ok := args["workflow_id"].(string)
	if !ok || workflowID == "" {
		return mcp.NewToolResultError("Missing required parameter: workflow_id"), nil
	}
	reason, ok := args["reason"].(string)
	if !ok || reason == "" {
		return mcp.NewToolResultError("Missing required parameter: reason"), nil
	}
	rolledBackBy, ok := args["rolled_back_by"].(string)
	if !ok || rolledBackBy == "" {
		return mcp.NewToolResultError("Missing required parameter: rolled_back_by"), nil
	}

	wf, err := s.workflows.Rollback(ctx, workflowID, reason, rolledBackBy, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to rollback: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(wf)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// MountHTTPHandlers mounts the MCP SSE endpoints on the given mux.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
