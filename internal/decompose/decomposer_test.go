package decompose_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zate/remote-agent-memory/internal/decompose"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want decompose.Category
	}{
		{"implementation", "Implement a new feature", decompose.CategoryImplementation},
		{"debugging", "Fix the error in the broken login", decompose.CategoryDebugging},
		{"testing", "Write a unit test to verify and validate parsing", decompose.CategoryTesting},
		{"architecture", "Design the service architecture", decompose.CategoryArchitecture},
		{"research", "Research and compare vector stores", decompose.CategoryResearch},
		{"configuration", "Configure the environment settings", decompose.CategoryConfiguration},
		{"refactoring", "Refactor and restructure the parser", decompose.CategoryRefactoring},
		{"security", "Secure the endpoint against the vulnerability", decompose.CategorySecurity},
		{"tie goes to earlier category", "implement test", decompose.CategoryImplementation},
		{"no match defaults", "hello there", decompose.CategoryImplementation},
		{"empty defaults", "", decompose.CategoryImplementation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decompose.Categorize(tt.text))
		})
	}
}

func TestExtractTechnologies(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"Deploy the Flask app in Docker", []string{"docker", "python"}},
		{"Add a GraphQL endpoint backed by Postgres", []string{"api", "database"}},
		{"wire GitHub Actions and terraform on AWS", []string{"ci/cd", "cloud"}},
		{"update main.tsx", []string{"typescript"}},
		{"kubectl rollout with helm", []string{"kubernetes"}},
		{"nothing technical here", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, decompose.ExtractTechnologies(tt.text))
		})
	}
}

func TestExtractTechnologies_WordBoundaries(t *testing.T) {
	// "happy" contains "py" but not as a whole word.
	assert.Empty(t, decompose.ExtractTechnologies("a happy path"))
}

func TestEstimateComplexity(t *testing.T) {
	assert.Equal(t, 1, decompose.EstimateComplexity("rename a variable"))
	assert.Equal(t, 3, decompose.EstimateComplexity("an advanced parser"))
	assert.Equal(t, 3, decompose.EstimateComplexity("test the database"))
	assert.Equal(t, 5, decompose.EstimateComplexity(
		"complex multiple api security performance database test"))
}

func TestKeyTerms(t *testing.T) {
	got := decompose.KeyTerms("The quick brown fox is in the yard with an old dog by us")
	assert.Equal(t, []string{"quick", "brown", "fox", "yard", "old", "dog"}, got)

	long := "alpha bravo charlie delta echo foxtrot golf hotel india juliet kilo lima"
	assert.Len(t, decompose.KeyTerms(long), 10)
}

func TestKeyTerms_Unicode(t *testing.T) {
	got := decompose.KeyTerms("Fix the café menu, résumé upload and naïve ça parsing")
	assert.Equal(t, []string{"fix", "café", "menu", "résumé", "upload", "naïve", "parsing"}, got)
}

func TestDecompose_SplitsOnAnd(t *testing.T) {
	d := decompose.New(nil).Decompose("Implement user authentication and test the login endpoint", nil)

	require.GreaterOrEqual(t, len(d.Components), 2)
	assert.Equal(t, decompose.CategoryImplementation, d.Components[0].Category)
	assert.Equal(t, "test the login endpoint", d.Components[1].Text)
	assert.Equal(t, decompose.CategoryTesting, d.Components[1].Category)
	assert.Equal(t, []string{"api", "testing"}, d.Components[1].Technologies)
	assert.Equal(t, "2-4 hours", d.EstimatedDuration)
	assert.Equal(t, []string{"Low risk task"}, d.RiskFactors)
}

func TestDecompose_ShortFragmentsAreNotComponents(t *testing.T) {
	d := decompose.New(nil).Decompose("Build the parser and test it", nil)
	assert.Len(t, d.Components, 1)
}

func TestDecompose_Queries(t *testing.T) {
	d := decompose.New(nil).Decompose("Implement user authentication and test the login endpoint", nil)

	require.Len(t, d.ContextQueries, 5)
	first := d.ContextQueries[0]
	assert.Equal(t, decompose.ContextSimilarImplementations, first.ContextType)
	assert.Equal(t, decompose.PriorityCritical, first.Priority)
	assert.Equal(t, 0.3, first.SimilarityThreshold)
	assert.Equal(t, 15, first.MaxResults)
	assert.Equal(t,
		"implement user authentication test login endpoint api testing implementation example pattern",
		first.QueryText)
	assert.Equal(t, []string{"api", "testing", "implementation", "similar-implementations"}, first.Tags)

	for i := 1; i < len(d.ContextQueries); i++ {
		assert.LessOrEqual(t, d.ContextQueries[i-1].Priority, d.ContextQueries[i].Priority)
	}
	for _, q := range d.ContextQueries {
		assert.GreaterOrEqual(t, q.SimilarityThreshold, 0.0)
		assert.LessOrEqual(t, q.SimilarityThreshold, 1.0)
	}
}

func TestDecompose_DebuggingQueriesSortedStably(t *testing.T) {
	d := decompose.New(nil).Decompose("Fix the error in the broken login", nil)

	got := make([]decompose.ContextType, 0, len(d.ContextQueries))
	for _, q := range d.ContextQueries {
		got = append(got, q.ContextType)
	}
	want := []decompose.ContextType{
		decompose.ContextErrorSolutions,
		decompose.ContextCommonPitfalls,
		decompose.ContextSimilarImplementations,
		decompose.ContextTechnicalPatterns,
	}
	assert.Equal(t, want, got)
}

func TestDecompose_UnmappedCategoryHasNoQueries(t *testing.T) {
	d := decompose.New(nil).Decompose("Research and compare vector stores", nil)
	assert.Equal(t, decompose.CategoryResearch, d.PrimaryCategory)
	assert.Empty(t, d.ContextQueries)
}

func TestDecompose_EmptyInput(t *testing.T) {
	for _, text := range []string{"", "   \t\n"} {
		d := decompose.New(nil).Decompose(text, nil)
		assert.Equal(t, decompose.CategoryImplementation, d.PrimaryCategory)
		assert.Empty(t, d.Technologies)
		require.Len(t, d.Components, 1)
		assert.Equal(t, 1, d.Components[0].Complexity)
		assert.Equal(t, "1-2 hours", d.EstimatedDuration)
	}
}

func TestDecompose_Idempotent(t *testing.T) {
	text := "Build a complex Django API with Postgres and add integration tests for the endpoint"
	dec := decompose.New(nil)

	first := dec.Decompose(text, nil)
	second := dec.Decompose(text, map[string]any{"project": "x"})

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Decompose not idempotent (-first +second):\n%s", diff)
	}
}

func TestDecompose_RiskFactors(t *testing.T) {
	d := decompose.New(nil).Decompose(
		"Urgent: upgrade the legacy billing system with multiple team leads", nil)

	assert.Contains(t, d.RiskFactors, "Working with legacy systems")
	assert.Contains(t, d.RiskFactors, "Migration/upgrade complexity")
	assert.Contains(t, d.RiskFactors, "Time pressure")
	assert.Contains(t, d.RiskFactors, "Multi-team coordination required")
	assert.NotContains(t, d.RiskFactors, "Low risk task")
}

func TestDecompose_StructuralRisks(t *testing.T) {
	text := "Build a complex secure api and add performance benchmarks for storage" +
		" and write docs for the new module and deploy the service to staging"
	d := decompose.New(nil).Decompose(text, nil)

	require.Greater(t, len(d.Components), 3)
	assert.Contains(t, d.RiskFactors, "High complexity components present")
	assert.Contains(t, d.RiskFactors, "Multiple interdependent components")
}

func TestDecompose_SuccessCriteria(t *testing.T) {
	d := decompose.New(nil).Decompose("Implement user authentication and test the login endpoint", nil)

	want := []string{
		"Task implementation completed successfully",
		"All tests pass with good coverage",
		"API endpoints respond correctly",
		"Test suite runs successfully",
		"Code follows project conventions and standards",
		"Documentation updated as needed",
		"No regressions in existing functionality",
	}
	assert.Equal(t, want, d.SuccessCriteria)
}

func TestDecompose_Summary(t *testing.T) {
	d := decompose.New(nil).Decompose("Implement user authentication and test the login endpoint", nil)
	s := d.Summary()

	assert.Equal(t, decompose.CategoryImplementation, s.Category)
	assert.Equal(t, 2, s.ComponentsCount)
	assert.Equal(t, 5, s.ContextQueriesCount)
	assert.Equal(t, 4, s.ComplexityScore)
	assert.Equal(t, 3, s.HighPriorityQueries)
	assert.Equal(t, 1, s.RiskFactorsCount)
}

func TestPriorityTables(t *testing.T) {
	tests := []struct {
		p          decompose.Priority
		threshold  float64
		maxResults int
		name       string
	}{
		{decompose.PriorityCritical, 0.3, 15, "critical"},
		{decompose.PriorityHigh, 0.4, 10, "high"},
		{decompose.PriorityMedium, 0.5, 8, "medium"},
		{decompose.PriorityLow, 0.6, 5, "low"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.threshold, tt.p.Threshold())
		assert.Equal(t, tt.maxResults, tt.p.MaxResults())
		assert.Equal(t, tt.name, tt.p.String())
	}
}
