// Package relevance scores memory candidates against a query context along
// eight weighted dimensions, then applies contextual adjustments.
//
// Scoring is pure: the only input besides the candidate and context is the
// clock, which is injectable for tests.
package relevance

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
)

// technologyKeywords is matched by substring against content and tags.
// Technologies not listed here fall back to their own name.
var technologyKeywords = map[string][]string{
	"python":     {"python", "py", "pip", "conda", "pytest", "django", "flask", "fastapi"},
	"javascript": {"javascript", "js", "node", "npm", "yarn", "react", "vue", "angular"},
	"typescript": {"typescript", "ts", "tsc", "tsx"},
	"docker":     {"docker", "container", "dockerfile", "compose", "k8s", "kubernetes"},
	"database":   {"database", "db", "sql", "postgres", "mysql", "mongo", "redis"},
	"api":        {"api", "rest", "graphql", "endpoint", "microservice", "service"},
	"web":        {"web", "http", "https", "html", "css", "frontend", "backend"},
	"cloud":      {"aws", "azure", "gcp", "cloud", "serverless", "lambda"},
	"testing":    {"test", "testing", "unit", "integration", "e2e", "spec", "mock"},
	"security":   {"security", "auth", "oauth", "jwt", "ssl", "tls", "encryption"},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

var contentTypePatterns = map[string][]*regexp.Regexp{
	"decision": compileAll(
		`decided|chosen|selected|going with|will use`,
		`solution|approach|strategy|plan`,
		`resolved|fixed|implemented|deployed`),
	"error": compileAll(
		`error|exception|failed?|crash|bug`,
		`not working|broken|issue|problem`,
		`debug|troubleshoot|fix`),
	"implementation": compileAll(
		`implement|create|build|develop|code`,
		`function|method|class|component|module`,
		`feature|functionality|requirement`),
	"configuration": compileAll(
		`config|configuration|setup|install`,
		`environment|settings|parameters`,
		`deploy|deployment|infrastructure`),
	"best_practice": compileAll(
		`best practice|recommendation|should|ought`,
		`pattern|convention|standard|guideline`,
		`lesson learned|experience|advice`),
	"performance": compileAll(
		`performance|optimize|speed|fast|slow`,
		`memory|cpu|resource|scalability`,
		`benchmark|profiling|bottleneck`),
}

var errorIndicators = []string{"error", "exception", "fix", "debug", "solution"}

var complexityIndicators = map[string][]string{
	"simple":  {"simple", "basic", "easy", "straightforward"},
	"complex": {"complex", "advanced", "sophisticated", "intricate"},
}

var stageKeywords = map[string][]string{
	"planning":    {"plan", "design", "architecture", "strategy"},
	"development": {"implement", "code", "build", "develop"},
	"testing":     {"test", "verify", "validate", "check"},
	"deployment":  {"deploy", "release", "production", "launch"},
	"maintenance": {"maintain", "update", "patch", "fix"},
}

// Scorer computes relevance scores.
type Scorer struct {
	defaults Weights
	now      func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithClock overrides the time source used for temporal scoring.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// New creates a Scorer whose default weights are w.
func New(w Weights, opts ...Option) *Scorer {
	s := &Scorer{defaults: w, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// DefaultWeights returns the weights used when Score is called with nil.
func (s *Scorer) DefaultWeights() Weights {
	return s.defaults
}

// Score rates c against ctx. A nil w uses the scorer's default weights.
func (s *Scorer) Score(c Candidate, ctx Context, w *Weights) Score {
	weights := s.defaults
	if w != nil {
		weights = *w
	}

	var boosters, penalties []string
	dims := make(map[Dimension]float64, len(Dimensions))

	semantic := clamp01(c.BaseSimilarity)
	dims[SemanticSimilarity] = semantic
	if semantic > 0.8 {
		boosters = append(boosters, "High semantic similarity")
	} else if semantic < 0.3 {
		penalties = append(penalties, "Low semantic similarity")
	}

	dims[TemporalRelevance] = s.temporal(c, ctx)

	tags := tagOverlap(ctx.QueryTags, c.Tags)
	dims[TagOverlap] = tags
	if tags > 0.7 {
		boosters = append(boosters, "Strong tag alignment")
	}

	dims[MetadataMatch] = metadataMatch(c, ctx)
	dims[ContentTypeMatch] = contentTypeMatch(c, ctx)

	tech := technologyAlignment(c, ctx)
	dims[TechnologyAlignment] = tech
	if tech > 0.8 {
		boosters = append(boosters, "Perfect technology match")
	}

	dims[ContextualSimilarity] = contextualSimilarity(c, ctx)
	dims[UsageFrequency] = usageFrequency(c)

	total := 0.0
	for _, d := range Dimensions {
		total += dims[d] * weights.Of(d)
	}

	total, moreBoost, morePenalty := s.adjust(total, c, ctx)
	boosters = append(boosters, moreBoost...)
	penalties = append(penalties, morePenalty...)

	return Score{
		Total:      clamp01(total),
		Dimensions: dims,
		Confidence: confidence(dims, total),
		Reasoning:  reasoning(dims, boosters, penalties),
		Boosters:   boosters,
		Penalties:  penalties,
	}
}

// BatchScore scores every candidate and returns them best first.
func (s *Scorer) BatchScore(cands []Candidate, ctx Context, w *Weights) []Scored {
	out := make([]Scored, 0, len(cands))
	for _, c := range cands {
		out = append(out, Scored{Candidate: c, Score: s.Score(c, ctx, w)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score.Total > out[j].Score.Total
	})
	return out
}

// OptimalWeights adjusts the default profile for ctx. The adjusted weights
// are not renormalized and may sum to more than 1.0.
func (s *Scorer) OptimalWeights(ctx Context) Weights {
	w := DefaultWeights()

	if ctx.TemporalPreference == TemporalRecent {
		w.Temporal = 0.25
		w.Semantic = 0.25
	}
	if ctx.ContentTypePreference != "" {
		w.ContentType = 0.20
		w.Semantic = 0.25
	}
	if len(ctx.TargetTechnologies) > 0 {
		w.Technology = 0.20
		w.TagOverlap = 0.25
	}
	if _, ok := ctx.factor(FactorErrorContext); ok {
		w.Semantic = 0.40
		w.ContentType = 0.25
		w.Temporal = 0.10
	}
	return w
}

// ─── Dimensions ──────────────────────────────────────────────────────────────

func (s *Scorer) daysSince(ts time.Time) int {
	return int(math.Floor(s.now().Sub(ts).Hours() / 24))
}

func (s *Scorer) temporal(c Candidate, ctx Context) float64 {
	if c.Timestamp.IsZero() {
		return 0.5
	}
	days := s.daysSince(c.Timestamp)

	var score float64
	switch ctx.TemporalPreference {
	case TemporalRecent:
		score = math.Exp(-0.1 * float64(days) / 30)
	case TemporalHistorical:
		if days > 90 {
			score = 0.8 + 0.2*math.Min(1, float64(days-90)/365)
		} else {
			score = 0.6
		}
	default:
		switch {
		case days <= 7:
			score = 1.0
		case days <= 30:
			score = 0.9
		case days <= 90:
			score = 0.8
		case days <= 365:
			score = 0.6
		default:
			score = 0.4
		}
	}
	return clamp01(score)
}

func lowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[strings.ToLower(it)] = struct{}{}
	}
	return set
}

func tagOverlap(queryTags, candTags []string) float64 {
	if len(queryTags) == 0 || len(candTags) == 0 {
		return 0
	}
	q := lowerSet(queryTags)
	c := lowerSet(candTags)

	inter := 0
	for t := range c {
		if _, ok := q[t]; ok {
			inter++
		}
	}
	union := len(q) + len(c) - inter
	if union == 0 {
		return 0
	}
	jaccard := float64(inter) / float64(union)
	precision := float64(inter) / float64(len(c))
	return 0.7*jaccard + 0.3*precision
}

func metadataMatch(c Candidate, ctx Context) float64 {
	if len(ctx.MetadataRequirements) == 0 {
		return 0.5
	}
	matches := 0.0
	for key, expected := range ctx.MetadataRequirements {
		actual, ok := c.Metadata[key]
		if !ok {
			continue
		}
		switch {
		case isList(expected):
			if listContains(expected, actual) {
				matches++
			}
		case fmt.Sprint(actual) == fmt.Sprint(expected):
			matches++
		default:
			as, aok := actual.(string)
			es, eok := expected.(string)
			if aok && eok && strings.Contains(strings.ToLower(as), strings.ToLower(es)) {
				matches += 0.7
			}
		}
	}
	return matches / float64(len(ctx.MetadataRequirements))
}

func isList(v any) bool {
	switch v.(type) {
	case []string, []any:
		return true
	}
	return false
}

func listContains(list, v any) bool {
	want := fmt.Sprint(v)
	switch l := list.(type) {
	case []string:
		for _, it := range l {
			if it == want {
				return true
			}
		}
	case []any:
		for _, it := range l {
			if fmt.Sprint(it) == want {
				return true
			}
		}
	}
	return false
}

func contentTypeMatch(c Candidate, ctx Context) float64 {
	if ctx.ContentTypePreference == "" {
		return 0.5
	}
	patterns := contentTypePatterns[ctx.ContentTypePreference]
	if len(patterns) == 0 {
		return 0
	}
	matches := 0
	for _, p := range patterns {
		if p.MatchString(c.Content) {
			matches++
		}
	}
	return math.Min(1, float64(matches)/float64(len(patterns)))
}

func technologyAlignment(c Candidate, ctx Context) float64 {
	if len(ctx.TargetTechnologies) == 0 {
		return 0.5
	}
	content := strings.ToLower(c.Content)
	tags := strings.ToLower(strings.Join(c.Tags, " "))

	aligned := 0
	for _, tech := range ctx.TargetTechnologies {
		keywords, ok := technologyKeywords[strings.ToLower(tech)]
		if !ok {
			keywords = []string{strings.ToLower(tech)}
		}
		if containsAny(content, keywords) || containsAny(tags, keywords) {
			aligned++
		}
	}
	return float64(aligned) / float64(len(ctx.TargetTechnologies))
}

func contextualSimilarity(c Candidate, ctx Context) float64 {
	score := 0.5
	content := strings.ToLower(c.Content)

	if category, ok := ctx.factor(FactorTaskCategory); ok && category != "" {
		category = strings.ToLower(category)
		if strings.Contains(content, category) {
			score += 0.2
		}
		if _, tagged := lowerSet(c.Tags)[category]; tagged {
			score += 0.3
		}
	}
	if _, ok := ctx.factor(FactorErrorContext); ok && containsAny(content, errorIndicators) {
		score += 0.3
	}
	return math.Min(1, score)
}

func usageFrequency(c Candidate) float64 {
	if c.UsageCount <= 0 {
		return 0
	}
	return math.Min(1, math.Log(float64(c.UsageCount)+1)/math.Log(10))
}

// ─── Adjustments ─────────────────────────────────────────────────────────────

func (s *Scorer) adjust(total float64, c Candidate, ctx Context) (float64, []string, []string) {
	var boosters, penalties []string
	content := strings.ToLower(c.Content)

	if urgency, ok := ctx.factor(FactorUrgencyLevel); ok && urgency == "high" && !c.Timestamp.IsZero() {
		if s.daysSince(c.Timestamp) <= 7 {
			total += 0.1
			boosters = append(boosters, "Recent memory for urgent task")
		}
	}

	if level, ok := ctx.factor(FactorComplexityLevel); ok {
		if indicators, known := complexityIndicators[level]; known && containsAny(content, indicators) {
			total += 0.05
			boosters = append(boosters, fmt.Sprintf("Complexity alignment (%s)", level))
		}
	}

	if domain, ok := ctx.factor(FactorDomainSpecificity); ok && domain != "" {
		if !strings.Contains(content, strings.ToLower(domain)) {
			total -= 0.05
			penalties = append(penalties, "Domain mismatch")
		}
	}

	if stage, ok := ctx.factor(FactorImplementationStage); ok {
		if keywords, known := stageKeywords[stage]; known && containsAny(content, keywords) {
			total += 0.08
			boosters = append(boosters, fmt.Sprintf("Implementation stage match (%s)", stage))
		}
	}

	return total, boosters, penalties
}

// confidence uses the unclamped total so that adjusted scores past the
// bounds still count as extreme.
func confidence(dims map[Dimension]float64, total float64) float64 {
	high, low := 0, 0
	for _, v := range dims {
		if v > 0.7 {
			high++
		}
		if v < 0.3 {
			low++
		}
	}

	var conf float64
	switch {
	case high >= 3:
		conf = 0.9
	case high >= 2:
		conf = 0.8
	case low >= 4:
		conf = 0.4
	default:
		conf = 0.6
	}
	if total > 0.9 || total < 0.1 {
		conf *= 0.9
	}
	return conf
}

// rankedDimensions returns the dimensions ordered by score, highest first.
// Equal scores keep scoring order.
func rankedDimensions(dims map[Dimension]float64) []Dimension {
	ranked := make([]Dimension, 0, len(dims))
	for _, d := range Dimensions {
		if _, ok := dims[d]; ok {
			ranked = append(ranked, d)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return dims[ranked[i]] > dims[ranked[j]]
	})
	return ranked
}

func reasoning(dims map[Dimension]float64, boosters, penalties []string) []string {
	var out []string
	ranked := rankedDimensions(dims)
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}
	for _, d := range ranked {
		if v := dims[d]; v > 0.6 {
			out = append(out, fmt.Sprintf("%s: %.2f (strong contribution)", d.Title(), v))
		}
	}
	if len(boosters) > 0 {
		out = append(out, "Positive factors: "+strings.Join(firstN(boosters, 3), ", "))
	}
	if len(penalties) > 0 {
		out = append(out, "Limiting factors: "+strings.Join(firstN(penalties, 2), ", "))
	}
	return out
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
