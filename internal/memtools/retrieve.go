package memtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Zate/remote-agent-memory/internal/agents"
	"github.com/Zate/remote-agent-memory/internal/assembly"
	"github.com/Zate/remote-agent-memory/internal/memory"
)

// RetrieveTool handles the mem_retrieve MCP tool.
type RetrieveTool struct {
	integration *agents.Integration
	storage     agents.Storage
}

// NewRetrieveTool creates a RetrieveTool. storage serves the plain search
// used when context assembly fails.
func NewRetrieveTool(integration *agents.Integration, storage agents.Storage) *RetrieveTool {
	return &RetrieveTool{integration: integration, storage: storage}
}

// Definition returns the MCP tool definition for mem_retrieve.
func (t *RetrieveTool) Definition() mcp.Tool {
	return mcp.NewTool("mem_retrieve",
		mcp.WithDescription(
			"Assemble context for a task from memory. The task is decomposed into context queries "+
				"(similar implementations, best practices, pitfalls, ...) whose results are grouped into "+
				"prioritized sections. Call this BEFORE starting non-trivial work.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Task description or question"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max items shown per context section, and max results if a plain search is used instead (default: 5)"),
		),
		withDetailLevel(),
	)
}

// Handle processes the mem_retrieve tool call.
func (t *RetrieveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	limit := intArg(req, "limit", defaultSectionItems)
	detail := ParseDetailLevel(req.GetString("detail_level", ""))

	res := t.integration.Retrieve(ctx, query, nil)
	if res.Success {
		text := res.Context
		if res.Assembled != nil {
			text = FormatContext(res.Assembled, detail, limit)
		}
		return mcp.NewToolResultText(withTokenFooter(text)), nil
	}

	mems, err := t.storage.Search(ctx, query, limit, 0)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf(
			"context assembly failed (%s) and fallback search failed: %v", res.Error, err,
		)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Context assembly failed (%s). Plain search results:\n\n", res.Error)
	writeMemories(&b, mems, detail)
	return mcp.NewToolResultText(withTokenFooter(b.String())), nil
}

// FormatContext renders assembled context with at most limit items per
// section. Summary drops item content, standard shortens it and full
// shows it whole.
func FormatContext(a *assembly.Assembled, detail string, limit int) string {
	opts := assembly.FormatOptions{MaxItems: limit}
	switch detail {
	case DetailSummary:
		opts.OmitContent = true
	case DetailFull:
	default:
		opts.Snippet = func(s string) string { return memory.Truncate(s, snippetLength) }
	}
	out := assembly.FormatWith(a, opts)
	if detail == DetailSummary {
		out += SummaryFooter
	}
	return out
}

// writeMemories renders search results at the given detail level.
func writeMemories(b *strings.Builder, mems []memory.Memory, detail string) {
	if len(mems) == 0 {
		b.WriteString("No memories found matching your query.\n")
		return
	}
	fmt.Fprintf(b, "Found %d memories:\n\n", len(mems))
	for i, m := range mems {
		fmt.Fprintf(b, "[%d] %s (similarity %.2f) tags: %s\n",
			i+1, shortHash(m.Hash), m.Similarity, strings.Join(m.Tags, ", "))
		switch detail {
		case DetailSummary:
		case DetailFull:
			fmt.Fprintf(b, "    %s\n", m.Content)
		default:
			fmt.Fprintf(b, "    %s\n", memory.Truncate(m.Content, snippetLength))
		}
		b.WriteString("\n")
	}
	if detail == DetailSummary {
		b.WriteString(SummaryFooter)
	}
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
