package memtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatsTool handles the mem_stats MCP tool.
type StatsTool struct {
	store Backend
}

// NewStatsTool creates a StatsTool with the given memory backend.
func NewStatsTool(store Backend) *StatsTool {
	return &StatsTool{store: store}
}

// Definition returns the MCP tool definition for mem_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("mem_stats",
		mcp.WithDescription(
			"Show memory statistics: total memories, usage, duplicates and the most common tags.",
		),
	)
}

// Handle processes the mem_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.store.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get stats: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString("## Memory Statistics\n\n")
	sb.WriteString(fmt.Sprintf("- **Backend**: %s\n", stats.Backend))
	sb.WriteString(fmt.Sprintf("- **Memories**: %d\n", stats.TotalMemories))
	sb.WriteString(fmt.Sprintf("- **Retrievals**: %d\n", stats.TotalUsage))
	sb.WriteString(fmt.Sprintf("- **Duplicates Absorbed**: %d\n", stats.Duplicates))

	if len(stats.TopTags) > 0 {
		tags := make([]string, len(stats.TopTags))
		for i, tc := range stats.TopTags {
			tags[i] = fmt.Sprintf("%s (%d)", tc.Tag, tc.Count)
		}
		sb.WriteString(fmt.Sprintf("- **Tags** (%d): %s\n", stats.UniqueTags, strings.Join(tags, ", ")))
	} else {
		sb.WriteString("- **Tags**: none\n")
	}

	return mcp.NewToolResultText(sb.String()), nil
}
