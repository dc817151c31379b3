// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the storage backend and the
// agent integration and injects them into the tools, prompts and resources
// that depend on them. No business logic lives here, only wiring.
package server

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/Zate/remote-agent-memory/internal/agents"
	"github.com/Zate/remote-agent-memory/internal/config"
	"github.com/Zate/remote-agent-memory/internal/memory"
	"github.com/Zate/remote-agent-memory/internal/memory/vector"
	"github.com/Zate/remote-agent-memory/internal/memtools"
	"github.com/Zate/remote-agent-memory/internal/prompts"
	"github.com/Zate/remote-agent-memory/internal/resources"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Runtime holds the long-lived components shared by the MCP server and the
// one-shot CLI commands.
type Runtime struct {
	Backend     memtools.Backend
	Integration *agents.Integration

	log     *zap.Logger
	closeDB func() error
}

// Open builds the storage backend selected by cfg and the agent integration
// over it. The integration is also installed as the agents default instance.
// Close must be called on shutdown.
func Open(cfg *config.Config, log *zap.Logger) (*Runtime, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	backend, closeDB, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}

	integration, err := agents.New(backend,
		agents.WithLogger(log),
		agents.WithConfig(cfg.AgentsConfig()),
	)
	if err != nil {
		_ = closeDB()
		return nil, fmt.Errorf("creating agent integration: %w", err)
	}
	agents.SetDefault(integration)

	log.Info("memory backend ready",
		zap.String("backend", backend.Name()),
		zap.String("data_dir", cfg.Storage.DataDir),
		zap.Bool("rerank", cfg.Retrieval.Rerank),
	)
	return &Runtime{Backend: backend, Integration: integration, log: log, closeDB: closeDB}, nil
}

func openBackend(cfg *config.Config) (memtools.Backend, func() error, error) {
	switch cfg.Storage.Backend {
	case config.BackendVector:
		vs, err := vector.New(cfg.VectorConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("opening vector store: %w", err)
		}
		return vs, vs.Close, nil
	default:
		ms, err := memory.New(cfg.MemoryConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("opening memory store in %s: %w",
				filepath.Clean(cfg.Storage.DataDir), err)
		}
		return ms, ms.Close, nil
	}
}

// Close releases the integration and the backend, and clears the agents
// default instance if it is this runtime's.
func (r *Runtime) Close() {
	if agents.Default() == r.Integration {
		agents.SetDefault(nil)
	}
	r.Integration.Close()
	if err := r.closeDB(); err != nil {
		r.log.Warn("memory store close", zap.Error(err))
	}
}

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function closes the runtime and must be called on
// shutdown (typically via defer).
func New(cfg *config.Config, log *zap.Logger) (*server.MCPServer, func(), error) {
	rt, err := Open(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return NewWithRuntime(cfg.Server.Name, rt), rt.Close, nil
}

// NewWithRuntime builds the MCP server over an already opened runtime.
func NewWithRuntime(name string, rt *Runtime) *server.MCPServer {
	if name == "" {
		name = "agentmem"
	}

	s := server.NewMCPServer(
		name,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	registerMemoryTools(s, rt)

	// --- Register prompts ---

	taskPrompt := prompts.NewTaskPrompt()
	s.AddPrompt(taskPrompt.Definition(), taskPrompt.Handle)

	agentsPrompt := prompts.NewAgentsPrompt(rt.Integration.Orchestrator())
	s.AddPrompt(agentsPrompt.Definition(), agentsPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(rt.Integration, rt.Backend)
	s.AddResource(resourceHandler.StatusResource(), resourceHandler.HandleStatus)
	s.AddResource(resourceHandler.StatsResource(), resourceHandler.HandleStats)

	return s
}

// registerMemoryTools registers all 7 memory MCP tools with the server.
func registerMemoryTools(s *server.MCPServer, rt *Runtime) {
	integ := rt.Integration

	// --- Autonomous store & retrieve ---
	storeTool := memtools.NewStoreTool(integ)
	s.AddTool(storeTool.Definition(), storeTool.Handle)

	retrieveTool := memtools.NewRetrieveTool(integ, rt.Backend)
	s.AddTool(retrieveTool.Definition(), retrieveTool.Handle)

	// --- Analysis ---
	decomposeTool := memtools.NewDecomposeTool(integ)
	s.AddTool(decomposeTool.Definition(), decomposeTool.Handle)

	analyzeTool := memtools.NewAnalyzeTool(integ.Orchestrator())
	s.AddTool(analyzeTool.Definition(), analyzeTool.Handle)

	scoreTool := memtools.NewScoreTool(rt.Backend, integ, integ.Scorer())
	s.AddTool(scoreTool.Definition(), scoreTool.Handle)

	// --- Status ---
	statusTool := memtools.NewAgentStatusTool(integ)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	statsTool := memtools.NewStatsTool(rt.Backend)
	s.AddTool(statsTool.Definition(), statsTool.Handle)
}

// serverInstructions returns the system instructions that tell the AI
// how to use agentmem effectively.
func serverInstructions() string {
	return `You have access to agentmem, an autonomous memory layer for coding agents.

## BEFORE STARTING A TASK

Call mem_retrieve with the task description BEFORE writing code for any
non-trivial task. It decomposes the task and assembles prioritized context:
- Similar Implementations: how you solved this before
- Best Practices and Common Pitfalls: what to follow and what to avoid
- Error Solutions: fixes for errors seen before
- Recent Related Work: anything from the last 30 days

Read the Common Pitfalls section first. If it is present, mention it.

## WHILE WORKING

Offer decisions, solutions and lessons to mem_store as soon as they happen:
- "We decided to use X because Y"
- "The fix was to Z"
- "Learned that W"

mem_store runs agent analysis and only keeps content that contains a
decision, solution or insight. It tags it automatically (technologies,
kind, project). If the analysis declines but the content matters, pass
explicit tags or force_store: true.

Pass project with every mem_store call when you know it.

## OTHER TOOLS

- mem_decompose: see how a task is broken down and which queries mem_retrieve runs
- mem_analyze: see which memory agents a message triggers; execute: true runs them
- mem_score: rank stored memories for a query with a per-dimension explanation
- mem_agent_status: agent activity and storage wiring
- mem_stats: memory counts, usage and top tags

## DETAIL LEVELS

mem_retrieve, mem_decompose and mem_score accept detail_level:
- summary: minimal output, use for quick checks
- standard: the default
- full: complete content and score breakdowns

mem_retrieve also accepts limit, the number of items shown per section.

Start with summary or standard and only ask for full when needed.`
}
