// Package assembly organizes raw memory search results into a prioritized,
// titled context package for a decomposed task.
package assembly

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Zate/remote-agent-memory/internal/decompose"
)

const (
	defaultRelevance   = 0.5
	highRelevance      = 0.6
	recentWindow       = 30 * 24 * time.Hour
	maxRecentItems     = 5
	maxCoverageLines   = 6
	maxRelevanceSample = 20
	overviewSource     = "overview_generated"
)

// timestampLayouts are tried in order against the first 19 characters.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Builder assembles context. It holds no per-request state.
type Builder struct {
	log *zap.Logger
	now func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the wall clock used for defaults and recency.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// New creates a Builder. A nil logger disables logging.
func New(log *zap.Logger, opts ...Option) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Builder{log: log, now: func() time.Time { return time.Now().UTC() }}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Assemble builds the context package for d from results keyed by query
// id. Query ids end in the index of the query they answer ("query_2").
func (b *Builder) Assemble(d *decompose.Decomposition, results map[string][]Result) *Assembled {
	started := time.Now()
	now := b.now()

	items := b.parseResults(d, results, now)
	sections := buildSections(items)
	sections = append([]Section{overviewSection(items, d, now)}, sections...)

	if recent := recentItems(items, now); len(recent) > 0 {
		sections = append(sections, Section{
			Type:     SectionRecentRelatedWork,
			Title:    SectionRecentRelatedWork.Title(),
			Items:    firstItems(recent, maxRecentItems),
			Priority: SectionRecentRelatedWork.Priority(),
			Summary:  fmt.Sprintf("Recent work from the last 30 days (%d items found)", len(recent)),
		})
	}

	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Priority < sections[j].Priority
	})

	total := 0
	for _, rs := range results {
		total += len(rs)
	}

	a := &Assembled{
		TaskDescription: d.OriginalTask,
		DecompositionSummary: DecompositionSummary{
			Category:          d.PrimaryCategory,
			Technologies:      append([]string{}, d.Technologies...),
			ComponentsCount:   len(d.Components),
			EstimatedDuration: d.EstimatedDuration,
			RiskFactors:       append([]string{}, d.RiskFactors...),
		},
		Sections:   sections,
		TotalItems: len(items),
		Metadata: Metadata{
			AssemblyTimeMS:      float64(time.Since(started).Microseconds()) / 1000,
			TotalMemoryResults:  total,
			SectionsCreated:     len(sections),
			HighestRelevance:    highest(items),
			TechnologiesCovered: append([]string{}, d.Technologies...),
			ContextTypesFound:   contextTypes(items),
		},
		CreatedAt:          now,
		EstimatedRelevance: estimatedRelevance(items),
	}

	b.log.Debug("context assembled",
		zap.Int("sections", len(a.Sections)),
		zap.Int("items", a.TotalItems),
		zap.Float64("relevance", a.EstimatedRelevance),
	)
	return a
}

// ─── Parsing ─────────────────────────────────────────────────────────────────

func (b *Builder) parseResults(d *decompose.Decomposition, results map[string][]Result, now time.Time) []Item {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var items []Item
	for _, id := range ids {
		q, ok := findQuery(id, d.ContextQueries)
		if !ok {
			b.log.Warn("no context query for results", zap.String("query_id", id))
			continue
		}
		for _, r := range results[id] {
			score := defaultRelevance
			if r.Score != nil {
				score = *r.Score
			}
			items = append(items, Item{
				Content:     r.Content,
				SourceHash:  r.Hash,
				Relevance:   score,
				ContextType: q.ContextType,
				Tags:        r.Tags,
				Timestamp:   parseTimestamp(r.Timestamp, now),
				Metadata:    r.Metadata,
			})
		}
	}

	sortByRelevance(items)
	return items
}

// findQuery resolves a query id to its query. Ids that do not carry a
// valid index fall back to the first query.
func findQuery(id string, queries []decompose.ContextQuery) (decompose.ContextQuery, bool) {
	if len(queries) == 0 {
		return decompose.ContextQuery{}, false
	}
	if n, err := strconv.Atoi(id[strings.LastIndex(id, "_")+1:]); err == nil && n >= 0 && n < len(queries) {
		return queries[n], true
	}
	return queries[0], true
}

func parseTimestamp(s string, now time.Time) time.Time {
	if s == "" {
		return now
	}
	if len(s) > 19 {
		s = s[:19]
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return now
}

// ─── Sections ────────────────────────────────────────────────────────────────

// buildSections groups items by section in order of first appearance.
func buildSections(items []Item) []Section {
	var order []SectionType
	grouped := make(map[SectionType][]Item)
	for _, it := range items {
		st, ok := sectionFor(it.ContextType)
		if !ok {
			continue
		}
		if _, seen := grouped[st]; !seen {
			order = append(order, st)
		}
		grouped[st] = append(grouped[st], it)
	}

	sections := make([]Section, 0, len(order))
	for _, st := range order {
		members := grouped[st]
		sortByRelevance(members)
		members = firstItems(members, st.MaxItems())
		sections = append(sections, Section{
			Type:     st,
			Title:    st.Title(),
			Items:    members,
			Priority: st.Priority(),
			Summary:  sectionSummary(st, members),
		})
	}
	return sections
}

func sectionSummary(st SectionType, items []Item) string {
	high := 0
	for _, it := range items {
		if it.Relevance > highRelevance {
			high++
		}
	}
	tags := commonTags(items, 3)
	top2 := tags
	if len(top2) > 2 {
		top2 = top2[:2]
	}

	n := len(items)
	switch st {
	case SectionSimilarImplementations:
		return fmt.Sprintf("Found %d similar implementations, focusing on %s", n, strings.Join(tags, ", "))
	case SectionBestPractices:
		return fmt.Sprintf("%d best practices identified, with %d highly relevant recommendations", n, high)
	case SectionCommonPitfalls:
		return fmt.Sprintf("%d potential pitfalls to avoid, particularly around %s", n, strings.Join(top2, ", "))
	case SectionErrorSolutions:
		return fmt.Sprintf("%d error solutions found with %d highly relevant fixes", n, high)
	case SectionTestingStrategies:
		return fmt.Sprintf("%d testing approaches covering %s", n, strings.Join(top2, ", "))
	default:
		return fmt.Sprintf("%d relevant items found", n)
	}
}

// commonTags returns up to n tags by descending frequency. Ties keep the
// order in which tags were first seen.
func commonTags(items []Item, n int) []string {
	var order []string
	counts := make(map[string]int)
	for _, it := range items {
		for _, t := range it.Tags {
			if _, ok := counts[t]; !ok {
				order = append(order, t)
			}
			counts[t]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}

func overviewSection(items []Item, d *decompose.Decomposition, now time.Time) Section {
	avg := 0.0
	for _, it := range items {
		avg += it.Relevance
	}
	if len(items) > 0 {
		avg /= float64(len(items))
	}

	techs := "General development"
	if len(d.Technologies) > 0 {
		techs = strings.Join(d.Technologies, ", ")
	}

	content := strings.TrimSpace(fmt.Sprintf(`# Context Overview

**Task**: %s

**Summary**: Found %d relevant memories with average relevance of %.2f

**Technologies Involved**: %s

**Task Complexity**: %s

**Key Areas Covered**:
%s

**Risk Factors**: %s`,
		d.OriginalTask,
		len(items), avg,
		techs,
		d.EstimatedDuration,
		coverageSummary(items),
		strings.Join(d.RiskFactors, ", "),
	))

	tags := append(append([]string{}, d.Technologies...), string(d.PrimaryCategory))

	return Section{
		Type:  SectionOverview,
		Title: SectionOverview.Title(),
		Items: []Item{{
			Content:     content,
			SourceHash:  overviewSource,
			Relevance:   1.0,
			ContextType: decompose.ContextTechnicalPatterns,
			Tags:        tags,
			Timestamp:   now,
			Metadata:    map[string]any{"generated": true, "type": "overview"},
		}},
		Priority: SectionOverview.Priority(),
		Summary:  "Generated overview of available context",
	}
}

func coverageSummary(items []Item) string {
	var order []string
	counts := make(map[string]int)
	for _, it := range items {
		name := titleCase(string(it.ContextType))
		if _, ok := counts[name]; !ok {
			order = append(order, name)
		}
		counts[name]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > maxCoverageLines {
		order = order[:maxCoverageLines]
	}

	lines := make([]string, len(order))
	for i, name := range order {
		lines[i] = fmt.Sprintf("- %s: %d items", name, counts[name])
	}
	return strings.Join(lines, "\n")
}

func recentItems(items []Item, now time.Time) []Item {
	cutoff := now.Add(-recentWindow)
	var recent []Item
	for _, it := range items {
		if it.Timestamp.After(cutoff) {
			recent = append(recent, it)
		}
	}
	return recent
}

// ─── Aggregates ──────────────────────────────────────────────────────────────

// estimatedRelevance is a position-weighted mean of the top items. The
// weights shrink by 0.05 per rank and never drop below 0.1.
func estimatedRelevance(items []Item) float64 {
	sample := firstItems(items, maxRelevanceSample)
	if len(sample) == 0 {
		return 0
	}
	sum := 0.0
	for i, it := range sample {
		w := 1.0 - float64(i)*0.05
		if w < 0.1 {
			w = 0.1
		}
		sum += it.Relevance * w
	}
	return sum / float64(len(sample))
}

func highest(items []Item) float64 {
	best := 0.0
	for i, it := range items {
		if i == 0 || it.Relevance > best {
			best = it.Relevance
		}
	}
	return best
}

func contextTypes(items []Item) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, it := range items {
		ct := string(it.ContextType)
		if !seen[ct] {
			seen[ct] = true
			out = append(out, ct)
		}
	}
	sort.Strings(out)
	return out
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func sortByRelevance(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Relevance > items[j].Relevance
	})
}

func firstItems(items []Item, n int) []Item {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func titleCase(s string) string {
	parts := strings.Split(s, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
