package assembly

import (
	"time"

	"github.com/Zate/remote-agent-memory/internal/decompose"
)

// SectionType identifies one titled section of assembled context.
type SectionType string

const (
	SectionOverview                  SectionType = "overview"
	SectionSimilarImplementations    SectionType = "similar_implementations"
	SectionBestPractices             SectionType = "best_practices"
	SectionCommonPitfalls            SectionType = "common_pitfalls"
	SectionTechnicalPatterns         SectionType = "technical_patterns"
	SectionErrorSolutions            SectionType = "error_solutions"
	SectionTestingStrategies         SectionType = "testing_strategies"
	SectionConfigurationExamples     SectionType = "configuration_examples"
	SectionPerformanceConsiderations SectionType = "performance_considerations"
	SectionSecurityPractices         SectionType = "security_practices"
	SectionArchitecturalDecisions    SectionType = "architectural_decisions"
	SectionRecentRelatedWork         SectionType = "recent_related_work"
)

// sectionFor maps a context type onto the section that displays it.
func sectionFor(ct decompose.ContextType) (SectionType, bool) {
	switch ct {
	case decompose.ContextSimilarImplementations:
		return SectionSimilarImplementations, true
	case decompose.ContextBestPractices:
		return SectionBestPractices, true
	case decompose.ContextCommonPitfalls:
		return SectionCommonPitfalls, true
	case decompose.ContextTechnicalPatterns:
		return SectionTechnicalPatterns, true
	case decompose.ContextErrorSolutions:
		return SectionErrorSolutions, true
	case decompose.ContextTestingStrategies:
		return SectionTestingStrategies, true
	case decompose.ContextConfigurationExamples:
		return SectionConfigurationExamples, true
	case decompose.ContextPerformanceConsiderations:
		return SectionPerformanceConsiderations, true
	case decompose.ContextSecurityPractices:
		return SectionSecurityPractices, true
	case decompose.ContextArchitecturalDecisions:
		return SectionArchitecturalDecisions, true
	default:
		return "", false
	}
}

// Title is the display heading of the section.
func (t SectionType) Title() string {
	switch t {
	case SectionOverview:
		return "📋 Task Context Overview"
	case SectionSimilarImplementations:
		return "🔍 Similar Implementations"
	case SectionBestPractices:
		return "✅ Best Practices"
	case SectionCommonPitfalls:
		return "⚠️ Common Pitfalls to Avoid"
	case SectionTechnicalPatterns:
		return "🏗️ Technical Patterns"
	case SectionErrorSolutions:
		return "🔧 Error Solutions"
	case SectionTestingStrategies:
		return "🧪 Testing Strategies"
	case SectionConfigurationExamples:
		return "⚙️ Configuration Examples"
	case SectionPerformanceConsiderations:
		return "⚡ Performance Considerations"
	case SectionSecurityPractices:
		return "🔒 Security Practices"
	case SectionArchitecturalDecisions:
		return "🏛️ Architectural Decisions"
	case SectionRecentRelatedWork:
		return "📅 Recent Related Work"
	default:
		return titleCase(string(t))
	}
}

// MaxItems caps how many items a section keeps.
func (t SectionType) MaxItems() int {
	switch t {
	case SectionSimilarImplementations, SectionErrorSolutions:
		return 8
	case SectionBestPractices, SectionTechnicalPatterns:
		return 6
	case SectionCommonPitfalls, SectionTestingStrategies, SectionArchitecturalDecisions:
		return 5
	case SectionConfigurationExamples, SectionPerformanceConsiderations, SectionSecurityPractices:
		return 4
	default:
		return 5
	}
}

// Priority is the default ordering weight of the section.
func (t SectionType) Priority() decompose.Priority {
	switch t {
	case SectionOverview, SectionSimilarImplementations:
		return decompose.PriorityCritical
	case SectionBestPractices, SectionTechnicalPatterns, SectionCommonPitfalls, SectionErrorSolutions:
		return decompose.PriorityHigh
	case SectionRecentRelatedWork:
		return decompose.PriorityLow
	default:
		return decompose.PriorityMedium
	}
}

// Result is one raw search hit as returned by storage for a query.
//
// Score is nil when the backend reported no similarity. Timestamp is kept
// as text and parsed during assembly.
type Result struct {
	Content   string         `json:"content"`
	Tags      []string       `json:"tags"`
	Metadata  map[string]any `json:"metadata"`
	Timestamp string         `json:"timestamp"`
	Score     *float64       `json:"score,omitempty"`
	Hash      string         `json:"hash"`
}

// Item is a scored, typed piece of retrieved content.
type Item struct {
	Content     string                `json:"content"`
	SourceHash  string                `json:"source_hash"`
	Relevance   float64               `json:"relevance_score"`
	ContextType decompose.ContextType `json:"context_type"`
	Tags        []string              `json:"tags"`
	Timestamp   time.Time             `json:"timestamp"`
	Metadata    map[string]any        `json:"memory_metadata"`
}

// Section groups items of one section type. Sections are never empty.
type Section struct {
	Type     SectionType        `json:"section_type"`
	Title    string             `json:"title"`
	Items    []Item             `json:"items"`
	Priority decompose.Priority `json:"priority"`
	Summary  string             `json:"summary,omitempty"`
}

// DecompositionSummary is the part of a decomposition carried alongside
// the assembled context.
type DecompositionSummary struct {
	Category          decompose.Category `json:"category"`
	Technologies      []string           `json:"technologies"`
	ComponentsCount   int                `json:"components_count"`
	EstimatedDuration string             `json:"estimated_duration"`
	RiskFactors       []string           `json:"risk_factors"`
}

// Metadata describes how an assembly was produced.
type Metadata struct {
	AssemblyTimeMS      float64  `json:"assembly_time_ms"`
	TotalMemoryResults  int      `json:"total_memory_results"`
	SectionsCreated     int      `json:"sections_created"`
	HighestRelevance    float64  `json:"highest_relevance"`
	TechnologiesCovered []string `json:"technologies_covered"`
	ContextTypesFound   []string `json:"context_types_found"`
}

// Assembled is the complete context package for one task. Sections are
// ordered by ascending priority and always start with the overview.
type Assembled struct {
	TaskDescription      string               `json:"task_description"`
	DecompositionSummary DecompositionSummary `json:"decomposition_summary"`
	Sections             []Section            `json:"sections"`
	TotalItems           int                  `json:"total_items"`
	Metadata             Metadata             `json:"assembly_metadata"`
	CreatedAt            time.Time            `json:"created_at"`
	EstimatedRelevance   float64              `json:"estimated_relevance"`
}

// Section returns the first section of type t.
func (a *Assembled) Section(t SectionType) (Section, bool) {
	for _, s := range a.Sections {
		if s.Type == t {
			return s, true
		}
	}
	return Section{}, false
}
