package relevance

import (
	"fmt"
	"strings"
)

// Explain renders a Markdown breakdown of s for human readers.
func Explain(s Score) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**Overall Relevance**: %.2f/1.0 (Confidence: %.2f)\n\n", s.Total, s.Confidence)

	b.WriteString("**Score Breakdown**:\n")
	for _, d := range rankedDimensions(s.Dimensions) {
		fmt.Fprintf(&b, "- %s: %.2f\n", d.Title(), s.Dimensions[d])
	}
	b.WriteString("\n")

	if len(s.Reasoning) > 0 {
		b.WriteString("**Key Factors**:\n")
		for _, r := range s.Reasoning {
			fmt.Fprintf(&b, "- %s\n", r)
		}
		b.WriteString("\n")
	}

	if len(s.Boosters) > 0 {
		b.WriteString("**Positive Factors**:\n")
		for _, r := range s.Boosters {
			fmt.Fprintf(&b, "+ %s\n", r)
		}
		b.WriteString("\n")
	}

	if len(s.Penalties) > 0 {
		b.WriteString("**Limiting Factors**:\n")
		for _, r := range s.Penalties {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
