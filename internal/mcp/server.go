// Package mcp exposes the pipeline engine as MCP tools for agent clients.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"talentpipe/internal/auth"
	"talentpipe/internal/repository"
	"talentpipe/internal/services"
)

type Server struct {
	mcpServer *server.MCPServer
	checklist *services.ChecklistService
	engine    *services.Engine
	resolver  *services.Resolver
	store     repository.Store
}

func NewServer(checklist *services.ChecklistService, engine *services.Engine, resolver *services.Resolver, store repository.Store) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Hiring Pipeline",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		checklist: checklist,
		engine:    engine,
		resolver:  resolver,
		store:     store,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_checklist",
			mcp.WithDescription("List the gating tasks of a submission's current stage with their completion state"),
			mcp.WithString("submission_id", mcp.Required(), mcp.Description("The submission to inspect")),
		),
		s.handleGetChecklist,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"complete_task",
			mcp.WithDescription("Mark a gating task complete for a submission on behalf of the authenticated caller"),
			mcp.WithString("submission_id", mcp.Required(), mcp.Description("The submission the task gates")),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("The task to complete")),
			mcp.WithString("notes", mcp.Description("Optional free-text note")),
		),
		s.handleCompleteTask,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"advance_submission",
			mcp.WithDescription("Advance a submission to a later stage of its resolved workflow"),
			mcp.WithString("submission_id", mcp.Required(), mcp.Description("The submission to advance")),
			mcp.WithString("target_stage_key", mcp.Required(), mcp.Description("Key of the target stage")),
		),
		s.handleAdvance,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"resolve_workflow",
			mcp.WithDescription("Show which workflow applies to a submission"),
			mcp.WithString("submission_id", mcp.Required(), mcp.Description("The submission to resolve")),
		),
		s.handleResolveWorkflow,
	)
}

func stringArg(request mcp.CallToolRequest, name string) (string, bool) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return "", false
	}
	v, ok := args[name].(string)
	return v, ok && v != ""
}

func (s *Server) handleGetChecklist(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	submissionID, ok := stringArg(request, "submission_id")
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: submission_id"), nil
	}

	cl, err := s.checklist.BuildChecklist(ctx, submissionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to build checklist: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(cl)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleCompleteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	submissionID, ok := stringArg(request, "submission_id")
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: submission_id"), nil
	}
	taskID, ok := stringArg(request, "task_id")
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: task_id"), nil
	}
	var notes *string
	if n, ok := stringArg(request, "notes"); ok {
		notes = &n
	}

	// The actor is the authenticated caller, not a tool argument; the role
	// gate cannot be bypassed by naming someone else.
	actor, ok := auth.FromContext(ctx)
	if !ok {
		return mcp.NewToolResultError("Authentication required"), nil
	}
	tc, err := s.checklist.CompleteTask(ctx, submissionID, taskID, actor, notes)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to complete task: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(tc)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleAdvance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	submissionID, ok := stringArg(request, "submission_id")
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: submission_id"), nil
	}
	targetStageKey, ok := stringArg(request, "target_stage_key")
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: target_stage_key"), nil
	}

	res, err := s.engine.Advance(ctx, submissionID, targetStageKey)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to advance: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(res)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleResolveWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	submissionID, ok := stringArg(request, "submission_id")
	if !ok {
		return mcp.NewToolResultError("Missing required parameter: submission_id"), nil
	}

	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load submission: %v", err)), nil
	}
	wf, err := s.resolver.ResolveForSubmission(ctx, sub)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve workflow: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(wf)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// Use SSE server for /mcp/sse and /mcp/message endpoints
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// SSE endpoints
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
