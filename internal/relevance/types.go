package relevance

import (
	"strings"
	"time"
)

// Dimension identifies one axis of the relevance score.
type Dimension string

const (
	SemanticSimilarity   Dimension = "semantic_similarity"
	TemporalRelevance    Dimension = "temporal_relevance"
	TagOverlap           Dimension = "tag_overlap"
	MetadataMatch        Dimension = "metadata_match"
	ContentTypeMatch     Dimension = "content_type_match"
	TechnologyAlignment  Dimension = "technology_alignment"
	ContextualSimilarity Dimension = "contextual_similarity"
	UsageFrequency       Dimension = "usage_frequency"
)

// Dimensions lists every dimension in scoring order.
var Dimensions = []Dimension{
	SemanticSimilarity,
	TemporalRelevance,
	TagOverlap,
	MetadataMatch,
	ContentTypeMatch,
	TechnologyAlignment,
	ContextualSimilarity,
	UsageFrequency,
}

// Title renders the dimension as "Semantic Similarity".
func (d Dimension) Title() string {
	parts := strings.Split(string(d), "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

// Factor is a contextual hint that adjusts scoring.
type Factor string

const (
	FactorTaskCategory        Factor = "task_category"
	FactorUrgencyLevel        Factor = "urgency_level"
	FactorComplexityLevel     Factor = "complexity_level"
	FactorDomainSpecificity   Factor = "domain_specificity"
	FactorErrorContext        Factor = "error_context"
	FactorImplementationStage Factor = "implementation_stage"
)

// Temporal preferences.
const (
	TemporalAny        = "any"
	TemporalRecent     = "recent"
	TemporalHistorical = "historical"
)

// Weights holds the per-dimension multipliers of the weighted sum.
type Weights struct {
	Semantic    float64 `yaml:"semantic" json:"semantic"`
	Temporal    float64 `yaml:"temporal" json:"temporal"`
	TagOverlap  float64 `yaml:"tag_overlap" json:"tag_overlap"`
	Metadata    float64 `yaml:"metadata" json:"metadata"`
	ContentType float64 `yaml:"content_type" json:"content_type"`
	Technology  float64 `yaml:"technology" json:"technology"`
	Contextual  float64 `yaml:"contextual" json:"contextual"`
	Usage       float64 `yaml:"usage" json:"usage"`
}

// DefaultWeights returns the standard profile. It sums to 1.0.
func DefaultWeights() Weights {
	return Weights{
		Semantic:    0.30,
		Temporal:    0.15,
		TagOverlap:  0.20,
		Metadata:    0.10,
		ContentType: 0.10,
		Technology:  0.10,
		Contextual:  0.03,
		Usage:       0.02,
	}
}

// Of returns the weight applied to d.
func (w Weights) Of(d Dimension) float64 {
	switch d {
	case SemanticSimilarity:
		return w.Semantic
	case TemporalRelevance:
		return w.Temporal
	case TagOverlap:
		return w.TagOverlap
	case MetadataMatch:
		return w.Metadata
	case ContentTypeMatch:
		return w.ContentType
	case TechnologyAlignment:
		return w.Technology
	case ContextualSimilarity:
		return w.Contextual
	case UsageFrequency:
		return w.Usage
	default:
		return 0
	}
}

// Sum adds every weight.
func (w Weights) Sum() float64 {
	total := 0.0
	for _, d := range Dimensions {
		total += w.Of(d)
	}
	return total
}

// Candidate is a memory returned by storage, about to be scored.
type Candidate struct {
	Content        string         `json:"content"`
	Tags           []string       `json:"tags"`
	Metadata       map[string]any `json:"metadata"`
	Timestamp      time.Time      `json:"timestamp"`
	ContentHash    string         `json:"content_hash"`
	BaseSimilarity float64        `json:"base_similarity"`
	UsageCount     int            `json:"usage_count"`
}

// Context is the query side of a scoring request.
type Context struct {
	QueryText             string
	QueryTags             []string
	TargetTechnologies    []string
	TaskCategory          string
	ContentTypePreference string
	TemporalPreference    string
	MetadataRequirements  map[string]any
	Factors               map[Factor]string
}

func (c Context) factor(f Factor) (string, bool) {
	if c.Factors == nil {
		return "", false
	}
	v, ok := c.Factors[f]
	return v, ok
}

// Score is the result of scoring one candidate against one context.
type Score struct {
	Total      float64               `json:"total_score"`
	Dimensions map[Dimension]float64 `json:"dimension_scores"`
	Confidence float64               `json:"confidence"`
	Reasoning  []string              `json:"reasoning"`
	Boosters   []string              `json:"boosters"`
	Penalties  []string              `json:"penalties"`
}

// Scored pairs a candidate with its score.
type Scored struct {
	Candidate Candidate
	Score     Score
}
