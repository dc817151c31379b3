package memtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Zate/remote-agent-memory/internal/decompose"
)

// TaskDecomposer is satisfied by agents.Integration, decompose.Cache and
// decompose.Decomposer.
type TaskDecomposer interface {
	Decompose(task string, metadata map[string]any) *decompose.Decomposition
}

// DecomposeTool handles the mem_decompose MCP tool.
type DecomposeTool struct {
	dec TaskDecomposer
}

// NewDecomposeTool creates a DecomposeTool.
func NewDecomposeTool(dec TaskDecomposer) *DecomposeTool {
	return &DecomposeTool{dec: dec}
}

// Definition returns the MCP tool definition for mem_decompose.
func (t *DecomposeTool) Definition() mcp.Tool {
	return mcp.NewTool("mem_decompose",
		mcp.WithDescription(
			"Break a task description into a category, technologies, components and the prioritized "+
				"context queries mem_retrieve would run. Does not touch storage.",
		),
		mcp.WithString("task",
			mcp.Required(),
			mcp.Description("Task description"),
		),
		withDetailLevel(),
	)
}

// Handle processes the mem_decompose tool call.
func (t *DecomposeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	task := req.GetString("task", "")
	if strings.TrimSpace(task) == "" {
		return mcp.NewToolResultError("'task' is required"), nil
	}
	detail := ParseDetailLevel(req.GetString("detail_level", ""))

	d := t.dec.Decompose(task, nil)
	return mcp.NewToolResultText(withTokenFooter(FormatDecomposition(d, detail))), nil
}

// FormatDecomposition renders d as Markdown. Summary detail stops after
// the headline fields.
func FormatDecomposition(d *decompose.Decomposition, detail string) string {
	s := d.Summary()
	var b strings.Builder

	b.WriteString("## Task Decomposition\n\n")
	fmt.Fprintf(&b, "- **Task**: %s\n", s.Task)
	fmt.Fprintf(&b, "- **Category**: %s\n", s.Category)
	fmt.Fprintf(&b, "- **Technologies**: %s\n", joinOrNone(s.Technologies))
	fmt.Fprintf(&b, "- **Components**: %d\n", s.ComponentsCount)
	fmt.Fprintf(&b, "- **Complexity**: %d\n", s.ComplexityScore)
	fmt.Fprintf(&b, "- **Estimated Duration**: %s\n", s.EstimatedDuration)
	fmt.Fprintf(&b, "- **Context Queries**: %d (%d high priority)\n", s.ContextQueriesCount, s.HighPriorityQueries)

	if detail == DetailSummary {
		b.WriteString(SummaryFooter)
		return b.String()
	}

	b.WriteString("\n### Components\n\n")
	for i, c := range d.Components {
		fmt.Fprintf(&b, "%d. [%s, complexity %d] %s\n", i+1, c.Category, c.Complexity, c.Text)
		if detail == DetailFull && len(c.SearchTerms) > 0 {
			fmt.Fprintf(&b, "   search terms: %s\n", strings.Join(c.SearchTerms, ", "))
		}
	}

	if len(d.ContextQueries) > 0 {
		b.WriteString("\n### Context Queries\n\n")
		for i, q := range d.ContextQueries {
			fmt.Fprintf(&b, "%d. %s (%s, threshold %.1f, max %d)\n",
				i+1, q.ContextType, q.Priority, q.SimilarityThreshold, q.MaxResults)
			if detail == DetailFull {
				fmt.Fprintf(&b, "   query: %s\n   tags: %s\n", q.QueryText, strings.Join(q.Tags, ", "))
			}
		}
	}

	if len(d.RiskFactors) > 0 {
		b.WriteString("\n### Risk Factors\n\n")
		for _, r := range d.RiskFactors {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}

	if len(d.SuccessCriteria) > 0 {
		b.WriteString("\n### Success Criteria\n\n")
		for _, c := range d.SuccessCriteria {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	return b.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
