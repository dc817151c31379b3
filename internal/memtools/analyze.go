package memtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Zate/remote-agent-memory/internal/orchestrator"
)

// AnalyzeTool handles the mem_analyze MCP tool.
type AnalyzeTool struct {
	orch *orchestrator.Orchestrator
}

// NewAnalyzeTool creates an AnalyzeTool.
func NewAnalyzeTool(orch *orchestrator.Orchestrator) *AnalyzeTool {
	return &AnalyzeTool{orch: orch}
}

// Definition returns the MCP tool definition for mem_analyze.
func (t *AnalyzeTool) Definition() mcp.Tool {
	return mcp.NewTool("mem_analyze",
		mcp.WithDescription(
			"Show which memory agents a piece of text would trigger (store, context, recall, test, debug), "+
				"most urgent first. Set execute to run them.",
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Text to analyze"),
		),
		mcp.WithBoolean("execute",
			mcp.Description("Run the triggered agents (default: false)"),
		),
	)
}

// Handle processes the mem_analyze tool call.
func (t *AnalyzeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("'text' is required"), nil
	}

	if boolArg(req, "execute", false) {
		op := t.orch.AutonomousOperation(ctx, text, nil)
		var b strings.Builder
		b.WriteString(op.Message + "\n")
		for _, r := range op.Results {
			status := "ok"
			if !r.Success {
				status = "failed: " + r.Error
			}
			fmt.Fprintf(&b, "- %s: %s (%s)\n", r.Agent, status, r.ExecutionTime)
		}
		return mcp.NewToolResultText(b.String()), nil
	}

	invs := t.orch.Analyze(text, nil)
	if len(invs) == 0 {
		return mcp.NewToolResultText("No memory operations needed."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d agents triggered:\n\n", len(invs))
	for i, inv := range invs {
		fmt.Fprintf(&b, "%d. %s (trigger: %s, priority %d)\n", i+1, inv.Agent, inv.Trigger, inv.Priority)
	}
	return mcp.NewToolResultText(b.String()), nil
}
