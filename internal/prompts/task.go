// Package prompts implements MCP prompt handlers for the memory layer.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// TaskPrompt handles the agentmem-task MCP prompt.
// It asks the AI to load memory context before starting a task and to
// offer its decisions back to memory when done.
type TaskPrompt struct{}

// NewTaskPrompt creates a TaskPrompt.
func NewTaskPrompt() *TaskPrompt {
	return &TaskPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *TaskPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("agentmem-task",
		mcp.WithPromptDescription(
			"Start a task with memory. Loads related past work, best practices and pitfalls "+
				"before you begin, and stores the decisions you make along the way.",
		),
		mcp.WithArgument("task",
			mcp.ArgumentDescription("What you are about to work on"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("project",
			mcp.ArgumentDescription("Project name used to tag stored memories"),
		),
	)
}

// Handle processes the agentmem-task prompt request.
func (p *TaskPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	task := strings.TrimSpace(req.Params.Arguments["task"])
	if task == "" {
		return nil, fmt.Errorf("prompts: task argument is required")
	}

	storeArgs := "content"
	if project := req.Params.Arguments["project"]; project != "" {
		storeArgs = fmt.Sprintf("content and project='%s'", project)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Task with memory: %s", task),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to work on this task: %s\n\n"+
						"Please:\n"+
						"1. Run `mem_retrieve` with query='%s' and read the assembled context\n"+
						"2. Call out any pitfalls or past errors it surfaces before writing code\n"+
						"3. Work on the task, following the best practices it lists\n"+
						"4. Whenever we settle a decision or fix a problem, run `mem_store` with the %s\n",
					task, task, storeArgs,
				)),
			},
		},
	}, nil
}
