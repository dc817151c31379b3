package memtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Zate/remote-agent-memory/internal/agents"
	"github.com/Zate/remote-agent-memory/internal/memory"
	"github.com/Zate/remote-agent-memory/internal/relevance"
)

// ScoreTool handles the mem_score MCP tool.
type ScoreTool struct {
	storage agents.Storage
	dec     TaskDecomposer
	scorer  *relevance.Scorer
}

// NewScoreTool creates a ScoreTool.
func NewScoreTool(storage agents.Storage, dec TaskDecomposer, scorer *relevance.Scorer) *ScoreTool {
	return &ScoreTool{storage: storage, dec: dec, scorer: scorer}
}

// Definition returns the MCP tool definition for mem_score.
func (t *ScoreTool) Definition() mcp.Tool {
	return mcp.NewTool("mem_score",
		mcp.WithDescription(
			"Score stored memories against a query on eight relevance dimensions "+
				"(semantic, temporal, tags, metadata, content type, technology, context, usage) and explain the ranking.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("What you are looking for"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated query tags for tag overlap"),
		),
		mcp.WithString("temporal_preference",
			mcp.Description("Age preference: any (default), recent or historical"),
			mcp.Enum(relevance.TemporalAny, relevance.TemporalRecent, relevance.TemporalHistorical),
		),
		mcp.WithString("content_type",
			mcp.Description("Preferred content type"),
			mcp.Enum("decision", "error", "implementation", "configuration", "best_practice", "performance"),
		),
		mcp.WithBoolean("optimal_weights",
			mcp.Description("Adjust weights to the query context (default: true)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max memories to score (default: 5)"),
		),
		withDetailLevel(),
	)
}

// Handle processes the mem_score tool call.
func (t *ScoreTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	limit := intArg(req, "limit", 5)
	detail := ParseDetailLevel(req.GetString("detail_level", ""))

	mems, err := t.storage.Search(ctx, query, limit, 0)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(mems) == 0 {
		return mcp.NewToolResultText("No memories found matching your query."), nil
	}

	d := t.dec.Decompose(query, nil)
	sctx := relevance.Context{
		QueryText:             query,
		QueryTags:             tagsArg(req, "tags"),
		TargetTechnologies:    d.Technologies,
		TaskCategory:          string(d.PrimaryCategory),
		ContentTypePreference: req.GetString("content_type", ""),
		TemporalPreference:    req.GetString("temporal_preference", relevance.TemporalAny),
		Factors: map[relevance.Factor]string{
			relevance.FactorTaskCategory: string(d.PrimaryCategory),
		},
	}
	var weights *relevance.Weights
	if boolArg(req, "optimal_weights", true) {
		w := t.scorer.OptimalWeights(sctx)
		weights = &w
	}

	scored := t.scorer.BatchScore(candidates(mems), sctx, weights)

	var b strings.Builder
	fmt.Fprintf(&b, "## Relevance for: %s\n\n", query)
	for i, s := range scored {
		fmt.Fprintf(&b, "### %d. %s score %.2f (confidence %.2f)\n\n",
			i+1, shortHash(s.Candidate.ContentHash), s.Score.Total, s.Score.Confidence)
		switch detail {
		case DetailSummary:
			continue
		case DetailFull:
			fmt.Fprintf(&b, "%s\n\n%s\n\n", s.Candidate.Content, relevance.Explain(s.Score))
		default:
			fmt.Fprintf(&b, "%s\n\n", memory.Truncate(s.Candidate.Content, snippetLength))
			for _, r := range s.Score.Reasoning {
				fmt.Fprintf(&b, "- %s\n", r)
			}
			b.WriteString("\n")
		}
	}
	if detail == DetailSummary {
		b.WriteString(SummaryFooter)
	}
	return mcp.NewToolResultText(withTokenFooter(b.String())), nil
}

func candidates(mems []memory.Memory) []relevance.Candidate {
	out := make([]relevance.Candidate, len(mems))
	for i, m := range mems {
		out[i] = relevance.Candidate{
			Content:        m.Content,
			Tags:           m.Tags,
			Metadata:       m.Metadata,
			Timestamp:      m.Timestamp,
			ContentHash:    m.Hash,
			BaseSimilarity: m.Similarity,
			UsageCount:     m.UsageCount,
		}
	}
	return out
}
