package decompose

// ─── Enumerations ────────────────────────────────────────────────────────────

// Category is the primary kind of work a task describes.
type Category string

const (
	CategoryImplementation Category = "implementation"
	CategoryDebugging      Category = "debugging"
	CategoryTesting        Category = "testing"
	CategoryArchitecture   Category = "architecture"
	CategoryResearch       Category = "research"
	CategoryConfiguration  Category = "configuration"
	CategoryDocumentation  Category = "documentation"
	CategoryRefactoring    Category = "refactoring"
	CategoryDeployment     Category = "deployment"
	CategorySecurity       Category = "security"
)

// Categories lists every category in classification order. When two
// categories tie on match count, the earlier one wins.
var Categories = []Category{
	CategoryImplementation,
	CategoryDebugging,
	CategoryTesting,
	CategoryArchitecture,
	CategoryResearch,
	CategoryConfiguration,
	CategoryDocumentation,
	CategoryRefactoring,
	CategoryDeployment,
	CategorySecurity,
}

// ContextType is a semantic kind of retrievable information.
type ContextType string

const (
	ContextTechnicalPatterns         ContextType = "technical_patterns"
	ContextSimilarImplementations    ContextType = "similar_implementations"
	ContextBestPractices             ContextType = "best_practices"
	ContextCommonPitfalls            ContextType = "common_pitfalls"
	ContextConfigurationExamples     ContextType = "configuration_examples"
	ContextErrorSolutions            ContextType = "error_solutions"
	ContextTestingStrategies         ContextType = "testing_strategies"
	ContextPerformanceConsiderations ContextType = "performance_considerations"
	ContextSecurityPractices         ContextType = "security_practices"
	ContextArchitecturalDecisions    ContextType = "architectural_decisions"
)

// Priority orders context retrieval. Lower values are more important.
type Priority int

const (
	PriorityCritical Priority = 1
	PriorityHigh     Priority = 2
	PriorityMedium   Priority = 3
	PriorityLow      Priority = 4
)

// String returns the lower-case priority name.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Threshold is the similarity floor used for queries of this priority.
// Higher-priority context is searched more inclusively.
func (p Priority) Threshold() float64 {
	switch p {
	case PriorityCritical:
		return 0.3
	case PriorityHigh:
		return 0.4
	case PriorityMedium:
		return 0.5
	default:
		return 0.6
	}
}

// MaxResults is the result cap used for queries of this priority.
func (p Priority) MaxResults() int {
	switch p {
	case PriorityCritical:
		return 15
	case PriorityHigh:
		return 10
	case PriorityMedium:
		return 8
	default:
		return 5
	}
}

// ─── Records ─────────────────────────────────────────────────────────────────

// ContextNeed pairs a context type with how badly a task needs it.
type ContextNeed struct {
	Type     ContextType `json:"type"`
	Priority Priority    `json:"priority"`
}

// Component is one sub-task found in a task description.
type Component struct {
	Text         string        `json:"text"`
	Category     Category      `json:"category"`
	Technologies []string      `json:"technologies"`
	ContextNeeds []ContextNeed `json:"context_needs"`
	SearchTerms  []string      `json:"search_terms"`
	Complexity   int           `json:"complexity"`
}

// ContextQuery is a structured search request targeting one context type.
type ContextQuery struct {
	QueryText           string      `json:"query_text"`
	ContextType         ContextType `json:"context_type"`
	Priority            Priority    `json:"priority"`
	Tags                []string    `json:"tags"`
	SimilarityThreshold float64     `json:"similarity_threshold"`
	MaxResults          int         `json:"max_results"`
}

// Decomposition is the full analysis of a single task description.
// It is read-only once returned.
type Decomposition struct {
	OriginalTask      string         `json:"original_task"`
	PrimaryCategory   Category       `json:"primary_category"`
	Components        []Component    `json:"components"`
	ContextQueries    []ContextQuery `json:"context_queries"`
	Technologies      []string       `json:"technologies"`
	EstimatedDuration string         `json:"estimated_duration"`
	RiskFactors       []string       `json:"risk_factors"`
	SuccessCriteria   []string       `json:"success_criteria"`
}

// Summary is the reporting view of a Decomposition.
type Summary struct {
	Task                string   `json:"task"`
	Category            Category `json:"category"`
	Technologies        []string `json:"technologies"`
	ComponentsCount     int      `json:"components_count"`
	ContextQueriesCount int      `json:"context_queries_count"`
	EstimatedDuration   string   `json:"estimated_duration"`
	ComplexityScore     int      `json:"complexity_score"`
	RiskFactorsCount    int      `json:"risk_factors_count"`
	HighPriorityQueries int      `json:"high_priority_queries"`
}

// TotalComplexity sums the complexity of every component.
func (d *Decomposition) TotalComplexity() int {
	total := 0
	for _, c := range d.Components {
		total += c.Complexity
	}
	return total
}

// Summary reports counts and headline fields of the decomposition.
func (d *Decomposition) Summary() Summary {
	high := 0
	for _, q := range d.ContextQueries {
		if q.Priority == PriorityCritical || q.Priority == PriorityHigh {
			high++
		}
	}
	return Summary{
		Task:                d.OriginalTask,
		Category:            d.PrimaryCategory,
		Technologies:        d.Technologies,
		ComponentsCount:     len(d.Components),
		ContextQueriesCount: len(d.ContextQueries),
		EstimatedDuration:   d.EstimatedDuration,
		ComplexityScore:     d.TotalComplexity(),
		RiskFactorsCount:    len(d.RiskFactors),
		HighPriorityQueries: high,
	}
}
