// Package decompose turns free-text task descriptions into a structured
// decomposition: a primary category, the technologies involved, sub-task
// components, and a prioritized list of context queries to run against
// memory storage.
//
// Classification is heuristic and regex driven. Splitting into components
// is a naive split on the word "and", so clauses such as "search and
// replace" over-split. That behavior is kept on purpose because callers
// and tests depend on it.
package decompose

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	maxKeyTerms       = 10
	minComponentChars = 10
	maxComplexity     = 5
)

var (
	conjunctionSplit = regexp.MustCompile(`(?i)\band\b`)
	wordPattern      = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

// Decomposer analyzes task text. It holds no mutable state and is safe for
// concurrent use.
type Decomposer struct {
	log *zap.Logger
}

// New creates a Decomposer. A nil logger disables logging.
func New(log *zap.Logger) *Decomposer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Decomposer{log: log}
}

// Decompose analyzes text and returns its decomposition. It never fails:
// empty input yields the default category with no technologies.
// The metadata argument is accepted for parity with the storage-facing
// callers and is not consulted by the heuristics.
func (d *Decomposer) Decompose(text string, _ map[string]any) *Decomposition {
	category := Categorize(text)
	techs := ExtractTechnologies(text)
	components := identifyComponents(text, category, techs)

	dec := &Decomposition{
		OriginalTask:      text,
		PrimaryCategory:   category,
		Components:        components,
		ContextQueries:    buildQueries(text, category, techs),
		Technologies:      techs,
		EstimatedDuration: estimateDuration(components),
		RiskFactors:       identifyRisks(text, components),
		SuccessCriteria:   successCriteria(components),
	}

	d.log.Debug("task decomposed",
		zap.String("category", string(category)),
		zap.Strings("technologies", techs),
		zap.Int("components", len(components)),
		zap.Int("queries", len(dec.ContextQueries)),
	)
	return dec
}

// ─── Classification ──────────────────────────────────────────────────────────

// Categorize returns the category whose patterns match text most often.
// Ties go to the earlier category in CategoryRules. No match yields
// CategoryImplementation.
func Categorize(text string) Category {
	lower := strings.ToLower(text)
	best, bestScore := CategoryImplementation, 0
	for _, rule := range CategoryRules {
		if score := rule.Count(lower); score > bestScore {
			best, bestScore = Category(rule.Label), score
		}
	}
	return best
}

// ExtractTechnologies returns the sorted set of technologies mentioned in text.
func ExtractTechnologies(text string) []string {
	lower := strings.ToLower(text)
	techs := []string{}
	for _, rule := range TechnologyRules {
		if rule.Matches(lower) {
			techs = append(techs, rule.Label)
		}
	}
	sort.Strings(techs)
	return techs
}

// EstimateComplexity scores text on a 1..5 scale.
func EstimateComplexity(text string) int {
	complexity := 1
	for _, r := range complexityRules {
		if r.pattern.MatchString(text) {
			complexity += r.weight
		}
	}
	if complexity > maxComplexity {
		complexity = maxComplexity
	}
	return complexity
}

// KeyTerms returns up to ten lower-cased terms from text, skipping
// stopwords and words of two letters or fewer. Words are Unicode letter
// and digit runs.
func KeyTerms(text string) []string {
	var terms []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopwords[w]; stop || utf8.RuneCountInString(w) <= 2 {
			continue
		}
		terms = append(terms, w)
		if len(terms) == maxKeyTerms {
			break
		}
	}
	return terms
}

// ─── Components ──────────────────────────────────────────────────────────────

func identifyComponents(text string, category Category, techs []string) []Component {
	components := []Component{newComponent(text, category, techs)}

	parts := conjunctionSplit.Split(text, -1)
	// The first fragment is already covered by the main component.
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if len(part) <= minComponentChars {
			continue
		}
		components = append(components, newComponent(part, Categorize(part), ExtractTechnologies(part)))
	}
	return components
}

func newComponent(text string, category Category, techs []string) Component {
	return Component{
		Text:         text,
		Category:     category,
		Technologies: techs,
		ContextNeeds: contextNeeds(category),
		SearchTerms:  searchTerms(text, techs),
		Complexity:   EstimateComplexity(text),
	}
}

func searchTerms(text string, techs []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range append(KeyTerms(text), techs...) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// ─── Queries ─────────────────────────────────────────────────────────────────

func buildQueries(text string, category Category, techs []string) []ContextQuery {
	needs := contextNeeds(category)
	queries := make([]ContextQuery, 0, len(needs))
	keyTerms := strings.Join(KeyTerms(text), " ")
	techTerms := strings.Join(techs, " ")

	for _, need := range needs {
		queryText := strings.TrimSpace(keyTerms + " " + techTerms + " " + queryModifier(need.Type))

		tags := make([]string, 0, len(techs)+2)
		tags = append(tags, techs...)
		tags = append(tags, string(category), strings.ReplaceAll(string(need.Type), "_", "-"))

		queries = append(queries, ContextQuery{
			QueryText:           queryText,
			ContextType:         need.Type,
			Priority:            need.Priority,
			Tags:                tags,
			SimilarityThreshold: need.Priority.Threshold(),
			MaxResults:          need.Priority.MaxResults(),
		})
	}

	sort.SliceStable(queries, func(i, j int) bool {
		return queries[i].Priority < queries[j].Priority
	})
	return queries
}

// ─── Estimates ───────────────────────────────────────────────────────────────

func estimateDuration(components []Component) string {
	total := 0
	for _, c := range components {
		total += c.Complexity
	}
	switch {
	case total <= 3:
		return "1-2 hours"
	case total <= 6:
		return "2-4 hours"
	case total <= 10:
		return "4-8 hours"
	case total <= 15:
		return "1-2 days"
	default:
		return "2+ days"
	}
}

func identifyRisks(text string, components []Component) []string {
	lower := strings.ToLower(text)
	var risks []string
	for _, rule := range RiskRules {
		if rule.Matches(lower) {
			risks = append(risks, rule.Label)
		}
	}

	for _, c := range components {
		if c.Complexity >= 4 {
			risks = append(risks, "High complexity components present")
			break
		}
	}
	if len(components) > 3 {
		risks = append(risks, "Multiple interdependent components")
	}

	if len(risks) == 0 {
		return []string{"Low risk task"}
	}
	return risks
}

func successCriteria(components []Component) []string {
	criteria := []string{"Task implementation completed successfully"}

	techSet := map[string]bool{}
	for _, c := range components {
		switch c.Category {
		case CategoryTesting:
			criteria = append(criteria, "All tests pass with good coverage")
		case CategoryDebugging:
			criteria = append(criteria, "Original issue resolved and verified")
		case CategorySecurity:
			criteria = append(criteria, "Security requirements met and verified")
		}
		for _, t := range c.Technologies {
			techSet[t] = true
		}
	}

	techs := make([]string, 0, len(techSet))
	for t := range techSet {
		techs = append(techs, t)
	}
	sort.Strings(techs)
	for _, t := range techs {
		switch t {
		case "testing":
			criteria = append(criteria, "Test suite runs successfully")
		case "database":
			criteria = append(criteria, "Database operations work correctly")
		case "api":
			criteria = append(criteria, "API endpoints respond correctly")
		}
	}

	criteria = append(criteria,
		"Code follows project conventions and standards",
		"Documentation updated as needed",
		"No regressions in existing functionality",
	)
	return dedupe(criteria)
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
