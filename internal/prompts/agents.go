package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Zate/remote-agent-memory/internal/orchestrator"
)

// AgentsPrompt handles the agentmem-agents MCP prompt.
// It turns every agent the text triggers into an instruction message,
// most urgent first.
type AgentsPrompt struct {
	orch *orchestrator.Orchestrator
}

// NewAgentsPrompt creates an AgentsPrompt.
func NewAgentsPrompt(orch *orchestrator.Orchestrator) *AgentsPrompt {
	return &AgentsPrompt{orch: orch}
}

// Definition returns the MCP prompt definition for registration.
func (p *AgentsPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("agentmem-agents",
		mcp.WithPromptDescription(
			"Run the memory agents a message triggers. Each triggered agent "+
				"(store, context, recall, debug, test) becomes one instruction.",
		),
		mcp.WithArgument("text",
			mcp.ArgumentDescription("The message to analyze"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the agentmem-agents prompt request.
func (p *AgentsPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	text := strings.TrimSpace(req.Params.Arguments["text"])
	if text == "" {
		return nil, fmt.Errorf("prompts: text argument is required")
	}

	invs := p.orch.Analyze(text, nil)
	if len(invs) == 0 {
		return &mcp.GetPromptResult{
			Description: "No memory agents triggered",
			Messages: []mcp.PromptMessage{
				{
					Role:    mcp.RoleUser,
					Content: mcp.NewTextContent("No memory operations are needed for this message."),
				},
			},
		}, nil
	}

	msgs := make([]mcp.PromptMessage, len(invs))
	for i, inv := range invs {
		msgs[i] = mcp.PromptMessage{
			Role:    mcp.RoleUser,
			Content: mcp.NewTextContent(orchestrator.BuildPrompt(inv)),
		}
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("%d memory agents triggered", len(invs)),
		Messages:    msgs,
	}, nil
}
