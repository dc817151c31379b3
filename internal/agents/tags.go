package agents

import (
	"fmt"
	"strings"
)

// smartTagKeywords maps a tag to substrings that suggest it. Matching is
// by substring, so short keywords like "py" or "db" can fire inside
// longer words.
var smartTagKeywords = []struct {
	tag      string
	keywords []string
}{
	{"python", []string{"python", "py", "pip", "pytest", "django", "flask"}},
	{"javascript", []string{"javascript", "js", "node", "npm", "react", "vue"}},
	{"docker", []string{"docker", "container", "dockerfile"}},
	{"database", []string{"database", "db", "sql", "postgres", "mysql"}},
	{"api", []string{"api", "rest", "endpoint", "microservice"}},
	{"testing", []string{"test", "testing", "unit", "integration"}},
}

var contentKindKeywords = []struct {
	tag      string
	keywords []string
}{
	{"decision", []string{"decided", "chosen", "solution"}},
	{"bug-fix", []string{"error", "bug", "fix", "debug"}},
	{"implementation", []string{"implement", "create", "build"}},
	{"configuration", []string{"config", "setup", "install"}},
}

// SmartTags derives tags for content: technologies, the kind of content,
// project and category from metadata, and the agent markers. The result
// has no duplicates and keeps first-seen order.
func SmartTags(content string, metadata map[string]any) []string {
	lower := strings.ToLower(content)
	var tags []string

	for _, k := range smartTagKeywords {
		if containsAny(lower, k.keywords) {
			tags = append(tags, k.tag)
		}
	}
	for _, k := range contentKindKeywords {
		if containsAny(lower, k.keywords) {
			tags = append(tags, k.tag)
		}
	}

	if p, ok := metadata["project"]; ok && p != nil {
		tags = append(tags, fmt.Sprintf("project-%v", p))
	}
	if c, ok := metadata["category"]; ok && c != nil {
		tags = append(tags, fmt.Sprint(c))
	}

	tags = append(tags, "agent-stored", "autonomous")
	return dedupe(tags)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
