package orchestrator_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Zate/remote-agent-memory/internal/orchestrator"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func agents(invs []orchestrator.Invocation) []orchestrator.AgentType {
	out := make([]orchestrator.AgentType, len(invs))
	for i, inv := range invs {
		out[i] = inv.Agent
	}
	return out
}

func TestAnalyze_Decision(t *testing.T) {
	o := orchestrator.New(nil)
	invs := o.Analyze("We decided to use PostgreSQL instead of MongoDB for ACID transactions", nil)

	stores := 0
	for _, inv := range invs {
		if inv.Agent == orchestrator.AgentMemoryStore {
			stores++
			assert.Equal(t, orchestrator.TriggerDecisionMade, inv.Trigger)
			assert.Equal(t, 1, inv.Priority)
			assert.Equal(t, true, inv.Context["auto_store"])
			assert.Equal(t, "Decision or solution detected", inv.Context["reason"])
		}
	}
	assert.Equal(t, 1, stores)
	assert.Contains(t, agents(invs), orchestrator.AgentMemoryContext)
	assert.Equal(t, []orchestrator.AgentType{
		orchestrator.AgentMemoryStore,
		orchestrator.AgentMemoryContext,
	}, agents(invs))
}

func TestAnalyze_UseStartsTaskAsWholeWord(t *testing.T) {
	o := orchestrator.New(nil)

	invs := o.Analyze("We use tabs here", nil)
	assert.Equal(t, []orchestrator.AgentType{orchestrator.AgentMemoryContext}, agents(invs))
	assert.Equal(t, orchestrator.TriggerTaskStarted, invs[0].Trigger)

	assert.Empty(t, o.Analyze("Because users complain", nil))
}

func TestAnalyze_NothingTriggered(t *testing.T) {
	o := orchestrator.New(nil)
	assert.Empty(t, o.Analyze("This is just a random comment", nil))
	assert.Empty(t, o.Analyze("", nil))
}

func TestAnalyze_MultipleTriggersSortedByPriority(t *testing.T) {
	o := orchestrator.New(nil)
	invs := o.Analyze("Have we seen this crash before? Add a unit test for it", nil)

	got := agents(invs)
	assert.Contains(t, got, orchestrator.AgentDebugContext)
	assert.Contains(t, got, orchestrator.AgentMemoryContext)
	assert.Contains(t, got, orchestrator.AgentTestContext)
	assert.Contains(t, got, orchestrator.AgentMemoryRecall)
	for i := 1; i < len(invs); i++ {
		assert.LessOrEqual(t, invs[i-1].Priority, invs[i].Priority)
	}

	seen := map[orchestrator.AgentType]bool{}
	for _, inv := range invs {
		assert.False(t, seen[inv.Agent], "duplicate %s", inv.Agent)
		seen[inv.Agent] = true
		assert.NotEmpty(t, inv.ID)
	}
}

func TestAnalyze_Contexts(t *testing.T) {
	o := orchestrator.New(nil)
	meta := map[string]any{"project": "billing"}

	tests := []struct {
		text  string
		agent orchestrator.AgentType
		key   string
	}{
		{"the request keeps hitting a timeout", orchestrator.AgentDebugContext, "error_content"},
		{"we need to add a cache layer", orchestrator.AgentMemoryContext, "task_description"},
		{"please verify the parser", orchestrator.AgentTestContext, "test_request"},
		{"what did we do last time", orchestrator.AgentMemoryRecall, "query"},
	}
	for _, tt := range tests {
		t.Run(string(tt.agent), func(t *testing.T) {
			var found *orchestrator.Invocation
			for _, inv := range o.Analyze(tt.text, meta) {
				if inv.Agent == tt.agent {
					inv := inv
					found = &inv
				}
			}
			require.NotNil(t, found)
			assert.Equal(t, tt.text, found.Context[tt.key])
			assert.Equal(t, meta, found.Context["metadata"])
		})
	}
}

func TestExecute_StubRecordsHistory(t *testing.T) {
	o := orchestrator.New(nil)
	invs := o.Analyze("We decided to use PostgreSQL instead of MongoDB for ACID transactions", nil)

	results := o.Execute(context.Background(), invs)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Success)
		assert.Empty(t, r.Error)
		prompt, _ := r.Data["prompt_sent"].(string)
		assert.True(t, strings.HasPrefix(prompt, "Agent triggered by: "))
	}

	st := o.Status()
	assert.Equal(t, 2, st.TotalExecutions)
	assert.Empty(t, st.ActiveAgents)
	assert.Len(t, st.RecentResults, 2)
}

func TestExecute_FailuresAreIsolated(t *testing.T) {
	exec := orchestrator.ExecutorFunc(func(_ context.Context, inv orchestrator.Invocation, _ string) (map[string]any, error) {
		switch inv.Agent {
		case orchestrator.AgentDebugContext:
			return nil, errors.New("agent unavailable")
		case orchestrator.AgentTestContext:
			panic("boom")
		}
		return map[string]any{"ok": true}, nil
	})
	o := orchestrator.New(nil, orchestrator.WithExecutor(exec))

	invs := []orchestrator.Invocation{
		{Agent: orchestrator.AgentDebugContext, Priority: 1},
		{Agent: orchestrator.AgentTestContext, Priority: 2},
		{Agent: orchestrator.AgentMemoryRecall, Priority: 2},
	}
	results := o.Execute(context.Background(), invs)
	require.Len(t, results, 3)

	assert.False(t, results[0].Success)
	assert.Equal(t, "agent unavailable", results[0].Error)
	assert.False(t, results[1].Success)
	assert.Equal(t, "boom", results[1].Error)
	assert.True(t, results[2].Success)

	st := o.Status()
	assert.Empty(t, st.ActiveAgents, "active flags are cleared after failures")
	assert.Equal(t, 2, st.TotalExecutions, "panics are reported but not recorded")
}

func TestExecute_SkipsActiveAgent(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	exec := orchestrator.ExecutorFunc(func(_ context.Context, inv orchestrator.Invocation, _ string) (map[string]any, error) {
		if inv.ID == "slow" {
			close(started)
			<-release
		}
		return nil, nil
	})
	o := orchestrator.New(nil, orchestrator.WithExecutor(exec))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.Execute(context.Background(), []orchestrator.Invocation{{ID: "slow", Agent: orchestrator.AgentMemoryStore}})
	}()
	<-started

	assert.Equal(t, []orchestrator.AgentType{orchestrator.AgentMemoryStore}, o.Status().ActiveAgents)
	results := o.Execute(context.Background(), []orchestrator.Invocation{
		{ID: "dup", Agent: orchestrator.AgentMemoryStore},
		{ID: "other", Agent: orchestrator.AgentMemoryRecall},
	})
	require.Len(t, results, 1)
	assert.Equal(t, orchestrator.AgentMemoryRecall, results[0].Agent)

	close(release)
	wg.Wait()
	assert.Empty(t, o.Status().ActiveAgents)
	assert.Equal(t, 2, o.Status().TotalExecutions)
}

func TestExecute_ConcurrentCallers(t *testing.T) {
	o := orchestrator.New(nil)
	inv := []orchestrator.Invocation{{Agent: orchestrator.AgentMemoryHealth, Trigger: orchestrator.TriggerHealthCheck}}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Execute(context.Background(), inv)
		}()
	}
	wg.Wait()

	st := o.Status()
	assert.Empty(t, st.ActiveAgents)
	assert.LessOrEqual(t, st.TotalExecutions, 20)
	assert.GreaterOrEqual(t, st.TotalExecutions, 1)
}

func TestStatus_RecentIsCapped(t *testing.T) {
	o := orchestrator.New(nil)
	for i := 0; i < 7; i++ {
		o.Execute(context.Background(), []orchestrator.Invocation{{Agent: orchestrator.AgentMemoryRecall}})
	}
	st := o.Status()
	assert.Equal(t, 7, st.TotalExecutions)
	assert.Len(t, st.RecentResults, 5)

	o.Reset()
	assert.Equal(t, 0, o.Status().TotalExecutions)
}

func TestAutonomousOperation(t *testing.T) {
	o := orchestrator.New(nil)

	op := o.AutonomousOperation(context.Background(), "This is just a random comment", nil)
	assert.Equal(t, "No memory operations needed", op.Message)
	assert.Equal(t, 0, op.AgentsTriggered)

	op = o.AutonomousOperation(context.Background(), "We decided to use PostgreSQL instead of MongoDB for ACID transactions", nil)
	assert.Equal(t, "Executed 2/2 agents successfully", op.Message)
	assert.Equal(t, 2, op.AgentsTriggered)
	assert.Equal(t, []orchestrator.AgentType{orchestrator.AgentMemoryStore, orchestrator.AgentMemoryContext}, op.SuccessfulAgents)
	assert.Empty(t, op.FailedAgents)
}

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		inv  orchestrator.Invocation
		want string
	}{
		{
			orchestrator.Invocation{Agent: orchestrator.AgentMemoryStore, Trigger: orchestrator.TriggerDecisionMade, Context: map[string]any{"content": "use sqlite"}},
			"Content: use sqlite",
		},
		{
			orchestrator.Invocation{Agent: orchestrator.AgentMemoryContext, Trigger: orchestrator.TriggerTaskStarted, Context: map[string]any{"task_description": "add login"}},
			"Task: add login",
		},
		{
			orchestrator.Invocation{Agent: orchestrator.AgentDebugContext, Trigger: orchestrator.TriggerErrorEncountered, Context: map[string]any{"error_content": "nil map"}},
			"Error/Issue: nil map",
		},
		{
			orchestrator.Invocation{Agent: orchestrator.AgentTestContext, Trigger: orchestrator.TriggerTestingNeeded, Context: map[string]any{"test_request": "cover parser"}},
			"Testing Request: cover parser",
		},
		{
			orchestrator.Invocation{Agent: orchestrator.AgentMemoryRecall, Trigger: orchestrator.TriggerContextNeeded, Context: map[string]any{"query": "last deploy"}},
			"Query: last deploy",
		},
		{
			orchestrator.Invocation{Agent: orchestrator.AgentMemoryConsolidate, Trigger: orchestrator.TriggerMaintenanceDue},
			"Please execute your specialized function",
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.inv.Agent), func(t *testing.T) {
			p := orchestrator.BuildPrompt(tt.inv)
			assert.True(t, strings.HasPrefix(p, "Agent triggered by: "+string(tt.inv.Trigger)+"\n"))
			assert.Contains(t, p, tt.want)
		})
	}
}
