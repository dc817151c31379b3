package agents

import (
	"context"

	"github.com/Zate/remote-agent-memory/internal/assembly"
	"github.com/Zate/remote-agent-memory/internal/decompose"
	"github.com/Zate/remote-agent-memory/internal/memory"
	"github.com/Zate/remote-agent-memory/internal/orchestrator"
)

// Storage is the backend contract the integration layer consumes. Both
// memory.Store and vector.Store satisfy it.
type Storage interface {
	Search(ctx context.Context, query string, limit int, threshold float64) ([]memory.Memory, error)
	Store(ctx context.Context, m memory.Memory) (string, error)
	Name() string
}

// StoreResult reports an autonomous store decision.
type StoreResult struct {
	Stored   bool     `json:"stored"`
	Hash     string   `json:"hash,omitempty"`
	Reason   string   `json:"reason"`
	Tags     []string `json:"tags,omitempty"`
	Analysis string   `json:"agent_analysis,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// RetrieveResult reports an autonomous context retrieval.
type RetrieveResult struct {
	Success              bool                           `json:"success"`
	Context              string                         `json:"context"`
	Statistics           *assembly.Stats                `json:"statistics,omitempty"`
	DecompositionSummary *assembly.DecompositionSummary `json:"decomposition_summary,omitempty"`
	TotalItems           int                            `json:"total_items"`
	RelevanceScore       float64                        `json:"relevance_score"`
	Error                string                         `json:"error,omitempty"`

	// Assembled is the structured context behind Context.
	Assembled *assembly.Assembled `json:"-"`
	// Decomposition is the task analysis the queries came from.
	Decomposition *decompose.Decomposition `json:"-"`
}

// Status is the combined view of the agent system.
type Status struct {
	Orchestrator orchestrator.Status `json:"orchestrator"`
	Components   map[string]string   `json:"components"`
	Integration  IntegrationStatus   `json:"integration"`
	Capabilities []string            `json:"capabilities"`
}

// IntegrationStatus describes the storage wiring.
type IntegrationStatus struct {
	StorageBackend string `json:"storage_backend"`
	AutonomousMode string `json:"autonomous_mode"`
	Rerank         bool   `json:"rerank"`
}

var capabilities = []string{
	"autonomous_memory_storage",
	"intelligent_context_assembly",
	"task_decomposition",
	"multi_dimensional_relevance_scoring",
	"sub_agent_coordination",
}
