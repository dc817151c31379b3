package memtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Zate/remote-agent-memory/internal/agents"
)

// AgentStatusTool handles the mem_agent_status MCP tool.
type AgentStatusTool struct {
	integration *agents.Integration
}

// NewAgentStatusTool creates an AgentStatusTool.
func NewAgentStatusTool(integration *agents.Integration) *AgentStatusTool {
	return &AgentStatusTool{integration: integration}
}

// Definition returns the MCP tool definition for mem_agent_status.
func (t *AgentStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("mem_agent_status",
		mcp.WithDescription("Show the state of the memory agent system: active agents, recent executions and storage wiring."),
	)
}

// Handle processes the mem_agent_status tool call.
func (t *AgentStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FormatStatus(t.integration.Status())), nil
}

// FormatStatus renders st as Markdown.
func FormatStatus(st agents.Status) string {
	var sb strings.Builder
	sb.WriteString("## Agent System Status\n\n")
	fmt.Fprintf(&sb, "- **Storage Backend**: %s\n", st.Integration.StorageBackend)
	fmt.Fprintf(&sb, "- **Autonomous Mode**: %s\n", st.Integration.AutonomousMode)
	fmt.Fprintf(&sb, "- **Re-ranking**: %t\n", st.Integration.Rerank)
	fmt.Fprintf(&sb, "- **Total Executions**: %d\n", st.Orchestrator.TotalExecutions)

	active := make([]string, len(st.Orchestrator.ActiveAgents))
	for i, a := range st.Orchestrator.ActiveAgents {
		active[i] = string(a)
	}
	fmt.Fprintf(&sb, "- **Active Agents**: %s\n", joinOrNone(active))

	if len(st.Orchestrator.RecentResults) > 0 {
		sb.WriteString("\n### Recent Executions\n\n")
		for _, r := range st.Orchestrator.RecentResults {
			fmt.Fprintf(&sb, "- %s: success=%t (%s)\n", r.Agent, r.Success, r.ExecutionTime)
		}
	}

	sb.WriteString("\n### Capabilities\n\n")
	for _, c := range st.Capabilities {
		fmt.Fprintf(&sb, "- %s\n", c)
	}
	return sb.String()
}
