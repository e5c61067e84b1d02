// Package mcpserver exposes the AI Manager over the Model Context
// Protocol so an AI agent (Claude Desktop, Cursor) can introspect and
// administer ChronosDB's adaptive layer. Adapted from the donor's
// internal/mcp/server.go: same server.NewMCPServer + stdio transport
// shape, repurposed from Linux-performance tools to AI-status tools.
package mcpserver

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/chronosdb/chronosai/internal/aimanager"
)

// Server wraps the MCP server instance bound to a Manager.
type Server struct {
	mcpServer *server.MCPServer
	manager   *aimanager.Manager
}

// NewServer creates an MCP server exposing manager through
// get_ai_status, list_anomalies, explain_anomaly, and unblock_table.
func NewServer(version string, manager *aimanager.Manager) *Server {
	s := server.NewMCPServer("chronosai", version, server.WithLogging())

	srv := &Server{mcpServer: s, manager: manager}
	srv.registerTools()
	return srv
}

// Start runs the server in stdio mode (blocking).
func (s *Server) Start(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.mcpServer)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func (s *Server) registerTools() {
	statusTool := mcp.NewTool("get_ai_status",
		mcp.WithDescription("Return the full SHOW AI STATUS aggregation: learning engine, immune system, and temporal index state."),
	)
	s.mcpServer.AddTool(statusTool, s.handleGetAIStatus)

	listTool := mcp.NewTool("list_anomalies",
		mcp.WithDescription("List the most recent anomaly reports recorded by the Immune System."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of anomalies to return (default 10)"),
		),
	)
	s.mcpServer.AddTool(listTool, s.handleListAnomalies)

	explainTool := mcp.NewTool("explain_anomaly",
		mcp.WithDescription("Explain the most recent anomaly report for a given table, with recommended next steps."),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Table name to look up the most recent anomaly for."),
		),
	)
	s.mcpServer.AddTool(explainTool, s.handleExplainAnomaly)

	unblockTool := mcp.NewTool("unblock_table",
		mcp.WithDescription("Admin action: remove a table from the Immune System's blocklist."),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Table name to unblock."),
		),
	)
	s.mcpServer.AddTool(unblockTool, s.handleUnblockTable)
}
