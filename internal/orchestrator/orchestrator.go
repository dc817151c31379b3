// Package orchestrator decides which memory sub-agents a piece of text
// calls for and runs them through a pluggable Executor.
//
// Analysis is stateless. Execution tracks the set of agents currently
// running and keeps a history of completed runs; both are guarded by a
// single mutex so concurrent callers never run the same agent twice at
// once.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const recentResults = 5

// Executor runs one agent invocation. prompt is the rendered instruction
// for the agent.
type Executor interface {
	Execute(ctx context.Context, inv Invocation, prompt string) (map[string]any, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, inv Invocation, prompt string) (map[string]any, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, inv Invocation, prompt string) (map[string]any, error) {
	return f(ctx, inv, prompt)
}

// StubExecutor reports success without contacting any agent. The payload
// echoes what would have been sent.
type StubExecutor struct{}

// Execute implements Executor.
func (StubExecutor) Execute(_ context.Context, inv Invocation, prompt string) (map[string]any, error) {
	return map[string]any{
		"agent":       string(inv.Agent),
		"trigger":     string(inv.Trigger),
		"context":     inv.Context,
		"prompt_sent": prompt,
	}, nil
}

// Orchestrator analyzes text and executes agent invocations.
type Orchestrator struct {
	log  *zap.Logger
	exec Executor

	mu      sync.Mutex
	active  map[AgentType]bool
	history []Result
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithExecutor replaces the default StubExecutor.
func WithExecutor(e Executor) Option {
	return func(o *Orchestrator) { o.exec = e }
}

// New creates an Orchestrator. A nil logger disables logging.
func New(log *zap.Logger, opts ...Option) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	o := &Orchestrator{
		log:    log,
		exec:   StubExecutor{},
		active: make(map[AgentType]bool),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Analyze returns the invocations text calls for, most urgent first. Each
// trigger family contributes at most one invocation.
func (o *Orchestrator) Analyze(text string, metadata map[string]any) []Invocation {
	if metadata == nil {
		metadata = map[string]any{}
	}

	var out []Invocation
	for _, r := range triggerRules {
		if !r.matches(text) {
			continue
		}
		inv := Invocation{
			ID:       uuid.NewString(),
			Agent:    r.agent,
			Trigger:  r.trigger,
			Context:  r.context(text, metadata),
			Priority: r.priority,
		}
		o.log.Debug("agent triggered",
			zap.String("agent", string(inv.Agent)),
			zap.String("trigger", string(inv.Trigger)),
			zap.Int("priority", inv.Priority),
		)
		out = append(out, inv)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// Execute runs invs in order. An invocation whose agent is already running
// is skipped. A failing or panicking invocation yields a failed Result and
// does not stop the rest.
func (o *Orchestrator) Execute(ctx context.Context, invs []Invocation) []Result {
	results := make([]Result, 0, len(invs))
	for _, inv := range invs {
		if !o.acquire(inv.Agent) {
			o.log.Warn("agent already active, skipping", zap.String("agent", string(inv.Agent)))
			continue
		}
		results = append(results, o.run(ctx, inv))
	}
	return results
}

func (o *Orchestrator) acquire(a AgentType) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active[a] {
		return false
	}
	o.active[a] = true
	return true
}

func (o *Orchestrator) release(a AgentType) {
	o.mu.Lock()
	delete(o.active, a)
	o.mu.Unlock()
}

func (o *Orchestrator) run(ctx context.Context, inv Invocation) (res Result) {
	defer o.release(inv.Agent)
	defer func() {
		if p := recover(); p != nil {
			o.log.Error("agent execution panicked",
				zap.String("agent", string(inv.Agent)),
				zap.Any("panic", p),
			)
			res = Result{
				InvocationID: inv.ID,
				Agent:        inv.Agent,
				Data:         map[string]any{},
				Error:        fmt.Sprint(p),
			}
		}
	}()

	start := time.Now()
	data, err := o.exec.Execute(ctx, inv, BuildPrompt(inv))
	res = Result{
		InvocationID:  inv.ID,
		Agent:         inv.Agent,
		Success:       err == nil,
		Data:          data,
		ExecutionTime: time.Since(start),
	}
	if res.Data == nil {
		res.Data = map[string]any{}
	}
	if err != nil {
		res.Error = err.Error()
		o.log.Warn("agent execution failed", zap.String("agent", string(inv.Agent)), zap.Error(err))
	}

	o.mu.Lock()
	o.history = append(o.history, res)
	o.mu.Unlock()
	return res
}

// Status reports running agents and the last few executions.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	active := make([]AgentType, 0, len(o.active))
	for a := range o.active {
		active = append(active, a)
	}
	sort.Slice(active, func(i, j int) bool { return active[i] < active[j] })

	tail := o.history
	if len(tail) > recentResults {
		tail = tail[len(tail)-recentResults:]
	}
	recent := make([]RecentResult, len(tail))
	for i, r := range tail {
		recent[i] = RecentResult{Agent: r.Agent, Success: r.Success, ExecutionTime: r.ExecutionTime}
	}

	return Status{
		ActiveAgents:    active,
		TotalExecutions: len(o.history),
		RecentResults:   recent,
	}
}

// Reset clears the active set and the history.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.active = make(map[AgentType]bool)
	o.history = nil
	o.mu.Unlock()
}

// AutonomousOperation analyzes text and executes whatever it triggers.
func (o *Orchestrator) AutonomousOperation(ctx context.Context, text string, metadata map[string]any) Operation {
	invs := o.Analyze(text, metadata)
	if len(invs) == 0 {
		o.log.Info("no agents triggered")
		return Operation{
			Message:          "No memory operations needed",
			SuccessfulAgents: []AgentType{},
			FailedAgents:     []AgentType{},
			Results:          []Result{},
		}
	}

	results := o.Execute(ctx, invs)
	op := Operation{
		AgentsTriggered:  len(invs),
		SuccessfulAgents: []AgentType{},
		FailedAgents:     []AgentType{},
		Results:          results,
	}
	for _, r := range results {
		if r.Success {
			op.SuccessfulAgents = append(op.SuccessfulAgents, r.Agent)
		} else {
			op.FailedAgents = append(op.FailedAgents, r.Agent)
		}
	}
	op.Message = fmt.Sprintf("Executed %d/%d agents successfully", len(op.SuccessfulAgents), len(results))
	return op
}
