package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"logrero/src/apperr"
	"logrero/src/contracts"
	"logrero/src/journal"
)

// API is the part of the control-plane client the tools need.
// *controlplane.Client implements it.
type API interface {
	ListDevices(ctx context.Context) ([]contracts.DeviceSummary, error)
	ListLogs(ctx context.Context, deviceID string, limit int) ([]contracts.StoredRecord, error)
	PolicyFor(ctx context.Context, deviceID string) (contracts.Policy, error)
	SetPolicy(ctx context.Context, deviceID string, policy contracts.Policy) error
}

// Server is the MCP server for logrero.
type Server struct {
	mcpServer *server.MCPServer
	api       API
}

// NewServer creates a new MCP server backed by the control-plane API.
func NewServer(api API, version string) *Server {
	s := server.NewMCPServer(
		"logrero",
		version,
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		api:       api,
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	devicesTool := mcp.NewTool("list_devices",
		mcp.WithDescription("List devices known to the control plane with their journal priority policy, stored record count and last time seen."),
	)

	logsTool := mcp.NewTool("get_logs",
		mcp.WithDescription("Get the most recent journal records a device forwarded, newest first. Messages are cleaned of terminal escapes and long paths are shortened."),
		mcp.WithString("device",
			mcp.Required(),
			mcp.Description("Device id"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Max records to return (default: %d, max: %d)", DefaultLogsLimit, MaxLimit)),
		),
		mcp.WithString("priority",
			mcp.Description("Only records at least this severe: 0-7 or a syslog name such as err or warning"),
		),
		mcp.WithString("query",
			mcp.Description("Case-insensitive substring the message or source must contain"),
		),
	)

	summaryTool := mcp.NewTool("summarize_logs",
		mcp.WithDescription("Group a device's recent journal records by message pattern (numbers and hashes masked). Returns counts per priority and the most severe, most frequent groups. Start here before get_logs."),
		mcp.WithString("device",
			mcp.Required(),
			mcp.Description("Device id"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Records to scan (default: %d, max: %d)", DefaultSummaryLimit, MaxLimit)),
		),
		mcp.WithNumber("groups",
			mcp.Description(fmt.Sprintf("Max groups to return (default: %d)", DefaultGroupLimit)),
		),
	)

	getPolicyTool := mcp.NewTool("get_policy",
		mcp.WithDescription("Get the journal priorities a device forwards."),
		mcp.WithString("device",
			mcp.Required(),
			mcp.Description("Device id"),
		),
	)

	setPolicyTool := mcp.NewTool("set_policy",
		mcp.WithDescription("Set the journal priorities a device forwards. Agents pick the change up on their next refresh. Agents in accumulate mode only ever add priorities until restarted."),
		mcp.WithString("device",
			mcp.Required(),
			mcp.Description("Device id"),
		),
		mcp.WithArray("priorities",
			mcp.Required(),
			mcp.Description("Priorities to forward: 0-7 or syslog names (emerg, alert, crit, err, warning, notice, info, debug)"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)

	s.mcpServer.AddTool(devicesTool, s.handleListDevices)
	s.mcpServer.AddTool(logsTool, s.handleGetLogs)
	s.mcpServer.AddTool(summaryTool, s.handleSummarizeLogs)
	s.mcpServer.AddTool(getPolicyTool, s.handleGetPolicy)
	s.mcpServer.AddTool(setPolicyTool, s.handleSetPolicy)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleListDevices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	devices, err := s.api.ListDevices(ctx)
	if err != nil {
		return toolError("list devices", err), nil
	}
	return jsonResult(devices)
}

func (s *Server) handleGetLogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	device := request.GetString("device", "")
	if device == "" {
		return mcp.NewToolResultError("device parameter is required"), nil
	}
	limit := clampLimit(request.GetInt("limit", DefaultLogsLimit), DefaultLogsLimit)

	maxPriority := ""
	if p := request.GetString("priority", ""); p != "" {
		maxPriority = journal.NormalizePriority(p)
		if priorityRank(maxPriority) > 7 {
			return mcp.NewToolResultError(fmt.Sprintf("unknown priority %q", p)), nil
		}
	}
	query := strings.ToLower(strings.TrimSpace(request.GetString("query", "")))

	// Filters apply after the fetch, so scan more than asked for.
	fetch := limit
	if maxPriority != "" || query != "" {
		fetch = MaxLimit
	}
	records, err := s.api.ListLogs(ctx, device, fetch)
	if err != nil {
		return toolError("get logs", err), nil
	}

	resp := LogsResponse{Device: device, Scanned: len(records), Records: []RecordView{}}
	for _, stored := range records {
		view := toRecordView(stored)
		if maxPriority != "" && !atMostPriority(view.Priority, maxPriority) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(view.Message), query) &&
			!strings.Contains(strings.ToLower(view.Source), query) {
			continue
		}
		resp.Records = append(resp.Records, view)
		if len(resp.Records) == limit {
			break
		}
	}
	return jsonResult(resp)
}

func (s *Server) handleSummarizeLogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	device := request.GetString("device", "")
	if device == "" {
		return mcp.NewToolResultError("device parameter is required"), nil
	}
	limit := clampLimit(request.GetInt("limit", DefaultSummaryLimit), DefaultSummaryLimit)

	records, err := s.api.ListLogs(ctx, device, limit)
	if err != nil {
		return toolError("summarize logs", err), nil
	}
	return jsonResult(Summarize(device, records, request.GetInt("groups", DefaultGroupLimit)))
}

func (s *Server) handleGetPolicy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	device := request.GetString("device", "")
	if device == "" {
		return mcp.NewToolResultError("device parameter is required"), nil
	}

	policy, err := s.api.PolicyFor(ctx, device)
	if err != nil {
		return toolError("get policy", err), nil
	}
	return jsonResult(policy)
}

func (s *Server) handleSetPolicy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	device := request.GetString("device", "")
	if device == "" {
		return mcp.NewToolResultError("device parameter is required"), nil
	}

	raw, err := request.RequireStringSlice("priorities")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	priorities, err := journal.ParsePriorities(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	policy := contracts.Policy{Priorities: priorities}
	if err := s.api.SetPolicy(ctx, device, policy); err != nil {
		return toolError("set policy", err), nil
	}
	return jsonResult(policy)
}

func clampLimit(n, def int) int {
	switch {
	case n <= 0:
		return def
	case n > MaxLimit:
		return MaxLimit
	}
	return n
}

func toolError(op string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", op, apperr.Explain(err)))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
