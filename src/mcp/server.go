// Package mcp exposes the Jenkins client as MCP tools so agents can trigger
// builds, poll their state and read console output.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"slipway/src/jenkins"
)

// Server is the MCP server for slipway.
type Server struct {
	mcpServer *server.MCPServer
	client    *jenkins.Client
	registry  *BuildRegistry
}

// NewServer creates an MCP server around a configured Jenkins client.
func NewServer(client *jenkins.Client) *Server {
	s := server.NewMCPServer(
		"slipway",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		client:    client,
		registry:  NewBuildRegistry(),
	}
	srv.registerTools()
	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	triggerTool := mcp.NewTool("trigger_build",
		mcp.WithDescription("Trigger a build of a Jenkins job. Returns a build_id for use with build_status, build_console and build_cancel."),
		mcp.WithString("job",
			mcp.Required(),
			mcp.Description("Full job name, e.g. 'teams/a'"),
		),
		mcp.WithString("parameters",
			mcp.Description("Build parameters as comma-separated key=value pairs"),
		),
	)

	statusTool := mcp.NewTool("build_status",
		mcp.WithDescription("Poll the current state of a triggered build. States: QUEUED, CANCELLED, RUNNING, ABORTED, FAILED, UNSTABLE, SUCCESS."),
		mcp.WithString("build_id",
			mcp.Required(),
			mcp.Description("Build id from trigger_build"),
		),
	)

	consoleTool := mcp.NewTool("build_console",
		mcp.WithDescription("Fetch console output of a triggered build: the next incremental chunk, or the full log so far with full=true. Empty output while the build is queued."),
		mcp.WithString("build_id",
			mcp.Required(),
			mcp.Description("Build id from trigger_build"),
		),
		mcp.WithBoolean("full",
			mcp.Description("Fetch the complete console instead of the next chunk"),
		),
	)

	cancelTool := mcp.NewTool("build_cancel",
		mcp.WithDescription("Cancel a queued build or stop a running one. A no-op on finished builds."),
		mcp.WithString("build_id",
			mcp.Required(),
			mcp.Description("Build id from trigger_build"),
		),
	)

	s.mcpServer.AddTool(triggerTool, s.handleTriggerBuild)
	s.mcpServer.AddTool(statusTool, s.handleBuildStatus)
	s.mcpServer.AddTool(consoleTool, s.handleBuildConsole)
	s.mcpServer.AddTool(cancelTool, s.handleBuildCancel)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleTriggerBuild(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	job := request.GetString("job", "")
	if job == "" {
		return mcp.NewToolResultError("job parameter is required"), nil
	}
	params, err := parseParameters(request.GetString("parameters", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	build, err := s.client.TriggerBuild(ctx, job, params)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("trigger failed: %v", err)), nil
	}

	id := s.registry.Add(build)
	return jsonResult(map[string]any{
		"build_id":       id,
		"job":            build.Job(),
		"queue_item_url": build.QueueItemURL(),
		"state":          string(build.LastState()),
	})
}

func (s *Server) handleBuildStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	build, result := s.lookup(request)
	if result != nil {
		return result, nil
	}

	state, err := build.State(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("poll failed: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"state":        string(state),
		"terminal":     state.Terminal(),
		"build_url":    build.URL(),
		"number":       build.Number(),
		"display_name": build.DisplayName(),
	})
}

func (s *Server) handleBuildConsole(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	build, result := s.lookup(request)
	if result != nil {
		return result, nil
	}

	if request.GetBool("full", false) {
		text, ok, err := build.FullConsole(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("console fetch failed: %v", err)), nil
		}
		if !ok {
			return mcp.NewToolResultText("(build is still queued; no console yet)"), nil
		}
		return mcp.NewToolResultText(text), nil
	}

	chunk, ok, err := build.NextConsoleChunk(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("console fetch failed: %v", err)), nil
	}
	if !ok {
		return mcp.NewToolResultText("(no more console output)"), nil
	}
	return mcp.NewToolResultText(chunk), nil
}

func (s *Server) handleBuildCancel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	build, result := s.lookup(request)
	if result != nil {
		return result, nil
	}

	cancelled, err := build.Cancel(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cancel failed: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"cancelled": cancelled,
		"state":     string(build.LastState()),
	})
}

// lookup resolves the build_id parameter. On failure the second return value
// is the error result to hand back to the caller.
func (s *Server) lookup(request mcp.CallToolRequest) (*jenkins.Build, *mcp.CallToolResult) {
	id := request.GetString("build_id", "")
	if id == "" {
		return nil, mcp.NewToolResultError("build_id parameter is required")
	}
	build, ok := s.registry.Get(id)
	if !ok {
		return nil, mcp.NewToolResultError(fmt.Sprintf("unknown build_id: %s", id))
	}
	return build, nil
}

// parseParameters turns "BRANCH=main,TAG=v1" into a parameter map.
func parseParameters(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	params := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", pair)
		}
		params[key] = value
	}
	return params, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
