package orchestrator

import "time"

// AgentType names a specialized sub-agent.
type AgentType string

const (
	AgentMemoryStore       AgentType = "memory-store"
	AgentMemoryContext     AgentType = "memory-context"
	AgentMemoryRecall      AgentType = "memory-recall"
	AgentMemoryConsolidate AgentType = "memory-consolidate"
	AgentMemoryHealth      AgentType = "memory-health"
	AgentTestContext       AgentType = "test-context"
	AgentDebugContext      AgentType = "debug-context"
)

// Trigger is the condition that caused an invocation.
type Trigger string

const (
	TriggerDecisionMade     Trigger = "decision_made"
	TriggerErrorEncountered Trigger = "error_encountered"
	TriggerTaskStarted      Trigger = "task_started"
	TriggerTestingNeeded    Trigger = "testing_needed"
	TriggerDebugNeeded      Trigger = "debug_needed"
	TriggerContextNeeded    Trigger = "context_needed"
	TriggerHealthCheck      Trigger = "health_check"
	TriggerMaintenanceDue   Trigger = "maintenance_due"
)

// Invocation is a request to run one sub-agent. Priority 1 is the most
// urgent.
type Invocation struct {
	ID           string         `json:"id"`
	Agent        AgentType      `json:"agent_type"`
	Trigger      Trigger        `json:"trigger"`
	Context      map[string]any `json:"context"`
	Priority     int            `json:"priority"`
	Dependencies []AgentType    `json:"dependencies,omitempty"`
}

// Result is the outcome of executing one invocation.
type Result struct {
	InvocationID  string         `json:"invocation_id"`
	Agent         AgentType      `json:"agent_type"`
	Success       bool           `json:"success"`
	Data          map[string]any `json:"data"`
	ExecutionTime time.Duration  `json:"execution_time"`
	Error         string         `json:"error,omitempty"`
}

// Status is a snapshot of orchestrator activity.
type Status struct {
	ActiveAgents    []AgentType    `json:"active_agents"`
	TotalExecutions int            `json:"total_executions"`
	RecentResults   []RecentResult `json:"recent_results"`
}

// RecentResult is the status view of a past execution.
type RecentResult struct {
	Agent         AgentType     `json:"agent"`
	Success       bool          `json:"success"`
	ExecutionTime time.Duration `json:"execution_time"`
}

// Operation reports an analyze-then-execute pass.
type Operation struct {
	Message          string      `json:"message"`
	AgentsTriggered  int         `json:"agents_triggered"`
	SuccessfulAgents []AgentType `json:"successful_agents"`
	FailedAgents     []AgentType `json:"failed_agents"`
	Results          []Result    `json:"results"`
}
