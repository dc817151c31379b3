package memtools

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// Detail level constants for the detail_level argument.
//   - summary: hashes, scores and tags only
//   - standard: truncated content snippets (default)
//   - full: complete content
const (
	DetailSummary  = "summary"
	DetailStandard = "standard"
	DetailFull     = "full"
)

// snippetLength is how much content standard detail shows per memory.
const snippetLength = 300

// defaultSectionItems is how many items each context section shows unless
// the caller sets a limit.
const defaultSectionItems = 5

// ParseDetailLevel normalizes a detail_level string, defaulting to "standard"
// for empty or unrecognized values.
func ParseDetailLevel(s string) string {
	switch s {
	case DetailSummary, DetailFull:
		return s
	default:
		return DetailStandard
	}
}

func withDetailLevel() mcp.ToolOption {
	return mcp.WithString("detail_level",
		mcp.Description("Verbosity: summary, standard (default) or full"),
		mcp.Enum(DetailSummary, DetailStandard, DetailFull),
	)
}

// SummaryFooter is appended to summary-mode responses.
const SummaryFooter = "\n---\n💡 Use detail_level: standard or full for more detail."

// NavigationHint returns a one-line footer when results are capped by a limit.
// Returns an empty string when all results fit (showing >= total) or total is 0.
func NavigationHint(showing, total int, hint string) string {
	if total <= 0 || showing >= total {
		return ""
	}
	if hint != "" {
		return fmt.Sprintf("\n📊 Showing %d of %d. %s", showing, total, hint)
	}
	return fmt.Sprintf("\n📊 Showing %d of %d.", showing, total)
}

// EstimateTokens approximates the token count of text as chars/4, with a
// minimum of 1 for non-empty text.
func EstimateTokens(text string) int {
	n := len(text)
	if n == 0 {
		return 0
	}
	tokens := n / 4
	if tokens == 0 {
		return 1
	}
	return tokens
}

// TokenFooter returns a one-line footer with the estimated token count
// for a tool response.
func TokenFooter(estimatedTokens int) string {
	return fmt.Sprintf("\n📏 ~%s tokens", formatNumber(estimatedTokens))
}

// withTokenFooter appends the token estimate of text to it.
func withTokenFooter(text string) string {
	return text + TokenFooter(EstimateTokens(text))
}

// formatNumber formats an integer with comma separators for readability.
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	s := fmt.Sprintf("%d", n)
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}
