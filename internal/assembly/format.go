package assembly

import (
	"fmt"
	"strings"

	"github.com/Zate/remote-agent-memory/internal/decompose"
)

const maxDisplayItems = 5

// FormatOptions controls how much of each section is rendered.
type FormatOptions struct {
	// MaxItems caps the items shown per section. Zero or less means five.
	MaxItems int
	// OmitContent renders each item as a single line of score, source and
	// tags.
	OmitContent bool
	// Snippet, when set, shortens item content before it is shown. The
	// overview is always shown whole.
	Snippet func(string) string
}

// Format renders a as Markdown for display with full item content and at
// most five items per section.
func Format(a *Assembled) string {
	return FormatWith(a, FormatOptions{})
}

// FormatWith renders a as Markdown according to opts.
func FormatWith(a *Assembled, opts FormatOptions) string {
	limit := opts.MaxItems
	if limit <= 0 {
		limit = maxDisplayItems
	}

	lines := []string{
		"# Context for: " + a.TaskDescription,
		"",
		"**Assembled**: " + a.CreatedAt.Format("2006-01-02 15:04:05"),
		fmt.Sprintf("**Relevance Score**: %.2f/1.0", a.EstimatedRelevance),
		fmt.Sprintf("**Total Context Items**: %d", a.TotalItems),
		"",
	}

	for _, s := range a.Sections {
		lines = append(lines, "## "+s.Title, "")
		if s.Summary != "" {
			lines = append(lines, "*"+s.Summary+"*", "")
		}
		for i, it := range firstItems(s.Items, limit) {
			if opts.OmitContent {
				lines = append(lines, fmt.Sprintf("%d. Relevance: %.2f | Source: %s | Tags: %s",
					i+1, it.Relevance, shortHash(it.SourceHash), strings.Join(it.Tags, ", ")))
				continue
			}
			content := it.Content
			if opts.Snippet != nil && s.Type != SectionOverview {
				content = opts.Snippet(content)
			}
			lines = append(lines,
				fmt.Sprintf("### %d. Relevance: %.2f", i+1, it.Relevance),
				"",
				content,
				"",
				"**Tags**: "+strings.Join(it.Tags, ", "),
				"**Source**: "+shortHash(it.SourceHash)+"...",
				"",
			)
		}
		if opts.OmitContent && len(s.Items) > 0 {
			lines = append(lines, "")
		}
		if extra := len(s.Items) - limit; extra > 0 {
			lines = append(lines, fmt.Sprintf("*(%d more items available)*", extra), "")
		}
	}

	m := a.Metadata
	lines = append(lines,
		"---",
		"## Assembly Metadata",
		"",
		fmt.Sprintf("- **Assembly Time**: %.0fms", m.AssemblyTimeMS),
		fmt.Sprintf("- **Memory Results Processed**: %d", m.TotalMemoryResults),
		"- **Technologies**: "+strings.Join(m.TechnologiesCovered, ", "),
		"- **Context Types**: "+strings.Join(m.ContextTypesFound, ", "),
		"",
	)
	return strings.Join(lines, "\n")
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

// Stats summarizes an assembled context per section.
type Stats struct {
	Overview          StatsOverview                `json:"overview"`
	Sections          map[SectionType]SectionStats `json:"sections"`
	Technologies      []string                     `json:"technologies"`
	EstimatedDuration string                       `json:"estimated_duration"`
}

// StatsOverview holds the headline numbers of a Stats.
type StatsOverview struct {
	TotalItems       int     `json:"total_items"`
	TotalSections    int     `json:"total_sections"`
	OverallRelevance float64 `json:"overall_relevance"`
	AssemblyTimeMS   float64 `json:"assembly_time_ms"`
}

// SectionStats describes one section.
type SectionStats struct {
	ItemsCount   int                `json:"items_count"`
	AvgRelevance float64            `json:"avg_relevance"`
	Priority     decompose.Priority `json:"priority"`
}

// Statistics computes per-section counts and averages for a.
func Statistics(a *Assembled) Stats {
	sections := make(map[SectionType]SectionStats, len(a.Sections))
	for _, s := range a.Sections {
		avg := 0.0
		for _, it := range s.Items {
			avg += it.Relevance
		}
		if len(s.Items) > 0 {
			avg /= float64(len(s.Items))
		}
		sections[s.Type] = SectionStats{
			ItemsCount:   len(s.Items),
			AvgRelevance: avg,
			Priority:     s.Priority,
		}
	}

	duration := a.DecompositionSummary.EstimatedDuration
	if duration == "" {
		duration = "Unknown"
	}

	return Stats{
		Overview: StatsOverview{
			TotalItems:       a.TotalItems,
			TotalSections:    len(a.Sections),
			OverallRelevance: a.EstimatedRelevance,
			AssemblyTimeMS:   a.Metadata.AssemblyTimeMS,
		},
		Sections:          sections,
		Technologies:      a.DecompositionSummary.Technologies,
		EstimatedDuration: duration,
	}
}
