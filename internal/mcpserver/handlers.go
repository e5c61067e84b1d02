package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/chronosdb/chronosai/internal/aimodel"
)

// handleGetAIStatus returns the SHOW AI STATUS aggregation as JSON.
func (s *Server) handleGetAIStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := s.manager.GetStatus()
	jsonData, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return errResult(fmt.Sprintf("json marshal failed: %v", err)), nil
	}
	return newTextResult(string(jsonData)), nil
}

// handleListAnomalies returns up to `limit` recent anomaly reports.
func (s *Server) handleListAnomalies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	limit := intArg(args, "limit", 10)

	reports := s.manager.Immune.Detector.GetRecentAnomalies(limit)
	if reports == nil {
		reports = []aimodel.AnomalyReport{}
	}

	jsonData, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return errResult(fmt.Sprintf("json marshal failed: %v", err)), nil
	}
	return newTextResult(string(jsonData)), nil
}

// handleExplainAnomaly finds the most recent anomaly for a table and
// renders it as prose with a recommended next step.
func (s *Server) handleExplainAnomaly(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	table := stringArg(args, "table", "")
	if table == "" {
		return errResult("table is required"), nil
	}

	reports := s.manager.Immune.Detector.GetRecentAnomalies(500)
	var latest *aimodel.AnomalyReport
	for i := range reports {
		if reports[i].TableName == table {
			latest = &reports[i]
			break // reports are newest first
		}
	}
	if latest == nil {
		return newTextResult(fmt.Sprintf("No anomalies recorded for table %q.", table)), nil
	}

	recommendation := "Monitor; no action needed."
	switch latest.Severity {
	case aimodel.SeverityMedium:
		recommendation = "Table mutations are blocked pending review. Use unblock_table once the cause is understood."
	case aimodel.SeverityHigh:
		recommendation = "Auto-recovery was attempted. Check get_ai_status's immune_system.blocked_tables to see if it remains blocked."
	}

	text := fmt.Sprintf(
		"Table %q: severity=%s z_score=%.2f current_rate=%.2f mean_rate=%.2f stddev=%.2f\n%s\n\n%s",
		latest.TableName, latest.Severity, latest.ZScore, latest.CurrentRate, latest.MeanRate, latest.StdDev,
		latest.Description, recommendation,
	)
	return newTextResult(text), nil
}

// handleUnblockTable removes table from the Immune System's blocklist.
func (s *Server) handleUnblockTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	table := stringArg(args, "table", "")
	if table == "" {
		return errResult("table is required"), nil
	}

	s.manager.Immune.Responder.UnblockTable(table)
	return newTextResult(fmt.Sprintf("Table %q unblocked.", table)), nil
}

// getArgs safely extracts the arguments map from a CallToolRequest.
func getArgs(request mcp.CallToolRequest) map[string]interface{} {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return args
}

// stringArg extracts a string argument with a default value.
func stringArg(args map[string]interface{}, key, defaultVal string) string {
	val, ok := args[key]
	if !ok || val == nil {
		return defaultVal
	}
	s, ok := val.(string)
	if !ok || s == "" {
		return defaultVal
	}
	return s
}

// intArg extracts a numeric argument (JSON numbers decode as
// float64) with a default value.
func intArg(args map[string]interface{}, key string, defaultVal int) int {
	val, ok := args[key]
	if !ok || val == nil {
		return defaultVal
	}
	f, ok := val.(float64)
	if !ok {
		return defaultVal
	}
	return int(f)
}

// newTextResult creates a successful MCP tool result with text content.
func newTextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// errResult creates an MCP tool-level error result (IsError=true).
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
	}
}
