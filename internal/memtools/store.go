package memtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Zate/remote-agent-memory/internal/agents"
)

// StoreTool handles the mem_store MCP tool.
type StoreTool struct {
	integration *agents.Integration
}

// NewStoreTool creates a StoreTool.
func NewStoreTool(integration *agents.Integration) *StoreTool {
	return &StoreTool{integration: integration}
}

// Definition returns the MCP tool definition for mem_store.
func (t *StoreTool) Definition() mcp.Tool {
	return mcp.NewTool("mem_store",
		mcp.WithDescription(
			"Offer content to memory. The agent layer decides whether it is worth keeping "+
				"(decisions, solutions, lessons learned) and tags it automatically. "+
				"Pass explicit tags or force_store to store content the analysis would skip.",
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The text to analyze and possibly store"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags. Supplying tags stores the content even if the analysis declines"),
		),
		mcp.WithString("project",
			mcp.Description("Project name, recorded in metadata and as a project-<name> tag"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Extra metadata to attach to the memory"),
		),
		mcp.WithBoolean("force_store",
			mcp.Description("Store even if the analysis finds nothing worth keeping (default: false)"),
		),
	)
}

// Handle processes the mem_store tool call.
func (t *StoreTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := req.GetString("content", "")
	if strings.TrimSpace(content) == "" {
		return mcp.NewToolResultError("'content' is required"), nil
	}

	tags := tagsArg(req, "tags")
	metadata := metadataArg(req, "metadata")
	if project := req.GetString("project", ""); project != "" {
		metadata["project"] = project
	}
	force := boolArg(req, "force_store", false)
	if f, ok := metadata["force_store"].(bool); ok && f {
		force = true
	}

	res := t.integration.Store(ctx, content, metadata)
	if res.Error != "" {
		return mcp.NewToolResultError(fmt.Sprintf("failed to store memory: %s", res.Error)), nil
	}
	if res.Stored {
		return mcp.NewToolResultText(fmt.Sprintf(
			"Stored with agent analysis: %s\nHash: %s\nTags: %s\nTrigger: %s",
			res.Reason, res.Hash, strings.Join(res.Tags, ", "), res.Analysis,
		)), nil
	}

	if len(tags) == 0 && !force {
		return mcp.NewToolResultText(fmt.Sprintf(
			"Not stored. Agent analysis: %s (%s)\nAdd explicit tags or set force_store: true to override.",
			res.Reason, res.Analysis,
		)), nil
	}

	direct := t.integration.StoreDirect(ctx, content, tags, metadata)
	if !direct.Stored {
		return mcp.NewToolResultError(fmt.Sprintf("failed to store memory: %s", direct.Error)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Stored by override (agent analysis: %s)\nHash: %s\nTags: %s",
		res.Reason, direct.Hash, strings.Join(direct.Tags, ", "),
	)), nil
}
