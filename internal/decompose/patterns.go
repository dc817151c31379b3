package decompose

import (
	"regexp"
)

// Rule ties a set of patterns to the label they vote for. Classification
// tables are plain data so they can be tested apart from the pipeline.
type Rule struct {
	Label    string
	Patterns []*regexp.Regexp
}

// Matches reports whether any pattern matches text.
func (r Rule) Matches(text string) bool {
	for _, p := range r.Patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Count returns the total number of non-overlapping matches across all patterns.
func (r Rule) Count(text string) int {
	n := 0
	for _, p := range r.Patterns {
		n += len(p.FindAllStringIndex(text, -1))
	}
	return n
}

// words compiles one case-insensitive whole-word pattern per phrase.
func words(phrases ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(p)+`\b`))
	}
	return out
}

// raw compiles case-insensitive patterns verbatim.
func raw(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

// CategoryRules holds the keyword patterns for each category that has any.
// Research and refactoring can be chosen but map to no context queries.
// Documentation and deployment have no patterns and are never chosen.
var CategoryRules = []Rule{
	{string(CategoryImplementation), words("implement", "create", "build", "develop", "add",
		"write", "code", "feature", "function", "component")},
	{string(CategoryDebugging), words("debug", "fix", "error", "bug", "issue", "problem",
		"broken", "failing", "not working", "troubleshoot")},
	{string(CategoryTesting), words("test", "testing", "unit test", "integration test",
		"e2e test", "spec", "verify", "validate")},
	{string(CategoryArchitecture), words("architecture", "design", "structure", "pattern",
		"system", "module", "service", "microservice")},
	{string(CategoryResearch), words("research", "investigate", "explore", "analyze",
		"compare", "evaluate", "study", "learn")},
	{string(CategoryConfiguration), words("configure", "config", "setup", "install",
		"deployment", "environment", "settings")},
	{string(CategoryRefactoring), words("refactor", "clean up", "restructure", "optimize",
		"improve", "modernize", "upgrade")},
	{string(CategorySecurity), words("security", "secure", "auth", "permission",
		"vulnerability", "encryption", "ssl", "tls")},
}

// TechnologyRules detects technologies. A technology is involved when any
// one of its patterns matches.
var TechnologyRules = []Rule{
	{"python", raw(`\bpython\b`, `\bpy\b`, `\.py\b`, `\bpip\b`, `\bpytest\b`, `\bdjango\b`, `\bflask\b`)},
	{"javascript", raw(`\bjavascript\b`, `\bjs\b`, `\.js\b`, `\bnode\b`, `\bnpm\b`, `\breact\b`, `\bvue\b`)},
	{"typescript", raw(`\btypescript\b`, `\bts\b`, `\.ts\b`, `\.tsx\b`)},
	{"docker", raw(`\bdocker\b`, `\bcontainer\b`, `\bdockerfile\b`, `\bdocker-compose\b`)},
	{"kubernetes", raw(`\bk8s\b`, `\bkubernetes\b`, `\bkubectl\b`, `\bhelm\b`)},
	{"database", raw(`\bdatabase\b`, `\bdb\b`, `\bsql\b`, `\bpostgres\b`, `\bmysql\b`, `\bmongo\b`)},
	{"api", raw(`\bapi\b`, `\brest\b`, `\bgraphql\b`, `\bendpoint\b`, `\bmicroservice\b`)},
	{"web", raw(`\bweb\b`, `\bhttp\b`, `\bhttps\b`, `\bhtml\b`, `\bcss\b`, `\bfrontend\b`)},
	{"testing", raw(`\btest\b`, `\btesting\b`, `\bunit test\b`, `\bintegration\b`, `\be2e\b`)},
	{"ci/cd", raw(`\bci\b`, `\bcd\b`, `\bjenkins\b`, `\bgithub actions\b`, `\bpipeline\b`)},
	{"cloud", raw(`\baws\b`, `\bazure\b`, `\bgcp\b`, `\bcloud\b`, `\bterraform\b`)},
	{"security", raw(`\bsecurity\b`, `\bauth\b`, `\bssl\b`, `\btls\b`, `\boauth\b`, `\bjwt\b`)},
}

// complexityRule adds weight to a component's complexity when it matches.
type complexityRule struct {
	pattern *regexp.Regexp
	weight  int
}

var complexityRules = []complexityRule{
	{regexp.MustCompile(`(?i)\bcomplex\b|\badvanced\b|\bsophisticated\b`), 2},
	{regexp.MustCompile(`(?i)\bmultiple\b|\bseveral\b|\bmany\b`), 1},
	{regexp.MustCompile(`(?i)\bintegration\b|\bapi\b|\bmicroservice\b`), 1},
	{regexp.MustCompile(`(?i)\bsecurity\b|\bauth\b|\bencryption\b`), 1},
	{regexp.MustCompile(`(?i)\bperformance\b|\boptimiz\b|\bscal\b`), 1},
	{regexp.MustCompile(`(?i)\bdatabase\b|\bdata\b|\bstorage\b`), 1},
	{regexp.MustCompile(`(?i)\btest\b|\btesting\b`), 1},
}

// RiskRules map task wording to a risk statement.
var RiskRules = []Rule{
	{"Working with unfamiliar technology", raw(`\bnew\b|\bunfamiliar\b|\bfirst time\b`)},
	{"Working with legacy systems", raw(`\blegacy\b|\bold\b|\bdeprecated\b`)},
	{"Migration/upgrade complexity", raw(`\bmigration\b|\bupgrade\b`)},
	{"Third-party integration challenges", raw(`\bintegration\b|\bthird.?party\b`)},
	{"Performance and scalability requirements", raw(`\bperformance\b|\bscale\b`)},
	{"Security implementation complexity", raw(`\bsecurity\b|\bauth\b`)},
	{"Time pressure", raw(`\bdeadline\b|\burgent\b|\basap\b`)},
	{"Multi-team coordination required", raw(`\bmultiple\b.*\bteam\b`)},
}

// contextNeeds is the category to context-type table. Categories without a
// row produce no context queries.
func contextNeeds(c Category) []ContextNeed {
	switch c {
	case CategoryImplementation:
		return []ContextNeed{
			{ContextSimilarImplementations, PriorityCritical},
			{ContextTechnicalPatterns, PriorityHigh},
			{ContextBestPractices, PriorityHigh},
			{ContextCommonPitfalls, PriorityMedium},
			{ContextPerformanceConsiderations, PriorityMedium},
		}
	case CategoryDebugging:
		return []ContextNeed{
			{ContextErrorSolutions, PriorityCritical},
			{ContextCommonPitfalls, PriorityCritical},
			{ContextSimilarImplementations, PriorityHigh},
			{ContextTechnicalPatterns, PriorityMedium},
		}
	case CategoryTesting:
		return []ContextNeed{
			{ContextTestingStrategies, PriorityCritical},
			{ContextBestPractices, PriorityHigh},
			{ContextSimilarImplementations, PriorityHigh},
			{ContextCommonPitfalls, PriorityMedium},
		}
	case CategoryArchitecture:
		return []ContextNeed{
			{ContextArchitecturalDecisions, PriorityCritical},
			{ContextTechnicalPatterns, PriorityCritical},
			{ContextBestPractices, PriorityHigh},
			{ContextPerformanceConsiderations, PriorityHigh},
			{ContextSecurityPractices, PriorityMedium},
		}
	case CategoryConfiguration:
		return []ContextNeed{
			{ContextConfigurationExamples, PriorityCritical},
			{ContextBestPractices, PriorityHigh},
			{ContextCommonPitfalls, PriorityHigh},
			{ContextSimilarImplementations, PriorityMedium},
		}
	case CategorySecurity:
		return []ContextNeed{
			{ContextSecurityPractices, PriorityCritical},
			{ContextBestPractices, PriorityCritical},
			{ContextCommonPitfalls, PriorityHigh},
			{ContextSimilarImplementations, PriorityMedium},
		}
	case CategoryResearch, CategoryDocumentation, CategoryRefactoring, CategoryDeployment:
		return nil
	default:
		return nil
	}
}

// queryModifier returns the phrase appended to queries of a context type.
func queryModifier(t ContextType) string {
	switch t {
	case ContextSimilarImplementations:
		return "implementation example pattern"
	case ContextBestPractices:
		return "best practice recommendation guideline"
	case ContextCommonPitfalls:
		return "problem pitfall mistake avoid"
	case ContextErrorSolutions:
		return "error fix solution resolved"
	case ContextTestingStrategies:
		return "test testing strategy approach"
	case ContextConfigurationExamples:
		return "configuration config setup example"
	case ContextTechnicalPatterns:
		return "pattern architecture design approach"
	case ContextPerformanceConsiderations:
		return "performance optimization scalability"
	case ContextSecurityPractices:
		return "security secure authentication authorization"
	case ContextArchitecturalDecisions:
		return "architecture decision design choice"
	default:
		return ""
	}
}

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "have": {}, "has": {}, "had": {},
	"do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "could": {}, "should": {},
}
