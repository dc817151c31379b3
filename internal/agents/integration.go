// Package agents connects the decision components to a storage backend.
//
// Integration runs the two autonomous operations. Store asks the
// orchestrator whether content is worth keeping and tags it. Retrieve
// decomposes a task, runs one search per context query and assembles the
// results into prioritized sections. Neither returns a Go error: backend
// failures come back inside the result.
package agents

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Zate/remote-agent-memory/internal/assembly"
	"github.com/Zate/remote-agent-memory/internal/decompose"
	"github.com/Zate/remote-agent-memory/internal/memory"
	"github.com/Zate/remote-agent-memory/internal/orchestrator"
	"github.com/Zate/remote-agent-memory/internal/relevance"
)

// resultTimeLayout is how memory timestamps are handed to the builder.
const resultTimeLayout = "2006-01-02T15:04:05"

// Config tunes the retrieve path.
type Config struct {
	// SearchConcurrency bounds parallel storage searches per retrieval.
	SearchConcurrency int
	// Rerank replaces raw similarity with the relevance scorer's total.
	Rerank bool
	// CacheSize is the number of decompositions kept in memory.
	CacheSize int64
	Weights   relevance.Weights
}

// DefaultConfig returns the default integration settings.
func DefaultConfig() Config {
	return Config{
		SearchConcurrency: 4,
		CacheSize:         256,
		Weights:           relevance.DefaultWeights(),
	}
}

// Integration is the autonomous memory layer over one Storage.
type Integration struct {
	log     *zap.Logger
	storage Storage
	cfg     Config
	now     func() time.Time

	orch       *orchestrator.Orchestrator
	decomposer *decompose.Cache
	builder    *assembly.Builder
	scorer     *relevance.Scorer
}

// Option configures an Integration.
type Option func(*Integration)

// WithLogger sets the logger shared by the integration's components.
func WithLogger(log *zap.Logger) Option {
	return func(i *Integration) { i.log = log }
}

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(i *Integration) { i.cfg = cfg }
}

// WithOrchestrator injects the orchestrator instead of creating one.
func WithOrchestrator(o *orchestrator.Orchestrator) Option {
	return func(i *Integration) { i.orch = o }
}

// WithClock overrides the time source for timestamps and scoring.
func WithClock(now func() time.Time) Option {
	return func(i *Integration) { i.now = now }
}

// New builds an Integration over storage.
func New(storage Storage, opts ...Option) (*Integration, error) {
	if storage == nil {
		return nil, errors.New("agents: storage is required")
	}
	i := &Integration{
		log:     zap.NewNop(),
		storage: storage,
		cfg:     DefaultConfig(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.log == nil {
		i.log = zap.NewNop()
	}
	if i.cfg.SearchConcurrency <= 0 {
		i.cfg.SearchConcurrency = 1
	}
	if i.cfg.CacheSize <= 0 {
		i.cfg.CacheSize = DefaultConfig().CacheSize
	}
	if i.cfg.Weights.Sum() == 0 {
		i.cfg.Weights = relevance.DefaultWeights()
	}

	cache, err := decompose.NewCache(decompose.New(i.log), i.cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}
	i.decomposer = cache
	if i.orch == nil {
		i.orch = orchestrator.New(i.log)
	}
	i.builder = assembly.New(i.log, assembly.WithClock(i.now))
	i.scorer = relevance.New(i.cfg.Weights, relevance.WithClock(i.now))
	return i, nil
}

// Close releases the decomposition cache.
func (i *Integration) Close() {
	i.decomposer.Close()
}

// Orchestrator returns the orchestrator driving store decisions.
func (i *Integration) Orchestrator() *orchestrator.Orchestrator { return i.orch }

// Scorer returns the relevance scorer used for re-ranking.
func (i *Integration) Scorer() *relevance.Scorer { return i.scorer }

// Decompose analyzes a task through the integration's cache.
func (i *Integration) Decompose(task string, metadata map[string]any) *decompose.Decomposition {
	return i.decomposer.Decompose(task, metadata)
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store persists content if the orchestrator detects a decision or
// solution in it. Tags come from the store invocation when it carries
// them, otherwise from SmartTags.
func (i *Integration) Store(ctx context.Context, content string, metadata map[string]any) StoreResult {
	invs := i.orch.Analyze(content, metadata)

	var inv *orchestrator.Invocation
	for k := range invs {
		if invs[k].Agent == orchestrator.AgentMemoryStore {
			inv = &invs[k]
			break
		}
	}
	if inv == nil {
		i.log.Debug("storage not triggered", zap.Int("invocations", len(invs)))
		return StoreResult{
			Reason:   "Agent analysis determined storage not necessary",
			Analysis: fmt.Sprintf("Analyzed %d potential actions", len(invs)),
		}
	}

	reason, _ := inv.Context["reason"].(string)
	if reason == "" {
		reason = "Agent decision"
	}
	enhanced := make(map[string]any, len(metadata)+5)
	for k, v := range metadata {
		enhanced[k] = v
	}
	enhanced["agent_analyzed"] = true
	enhanced["agent_trigger"] = string(inv.Trigger)
	enhanced["storage_reason"] = reason
	enhanced["autonomous_storage"] = true
	enhanced["analysis_timestamp"] = i.now().Format(time.RFC3339)

	tags, ok := inv.Context["tags"].([]string)
	if !ok {
		tags = SmartTags(content, enhanced)
	}

	hash, err := i.storage.Store(ctx, memory.Memory{
		Content:   content,
		Tags:      tags,
		Metadata:  enhanced,
		Timestamp: i.now(),
	})
	if err != nil {
		i.log.Error("autonomous store failed", zap.Error(err))
		return StoreResult{
			Reason: "Storage error encountered",
			Error:  err.Error(),
		}
	}

	i.log.Info("agent-driven memory storage",
		zap.String("hash", hash),
		zap.String("trigger", string(inv.Trigger)),
		zap.Strings("tags", tags),
	)
	return StoreResult{
		Stored:   true,
		Hash:     hash,
		Reason:   reason,
		Tags:     tags,
		Analysis: "Triggered by " + string(inv.Trigger),
	}
}

// StoreDirect persists content without consulting the orchestrator.
func (i *Integration) StoreDirect(ctx context.Context, content string, tags []string, metadata map[string]any) StoreResult {
	hash, err := i.storage.Store(ctx, memory.Memory{
		Content:   content,
		Tags:      tags,
		Metadata:  metadata,
		Timestamp: i.now(),
	})
	if err != nil {
		return StoreResult{Reason: "Storage error encountered", Error: err.Error()}
	}
	return StoreResult{Stored: true, Hash: hash, Reason: "Manual storage", Tags: tags}
}

// ─── Retrieve ────────────────────────────────────────────────────────────────

// Retrieve assembles context for query. One search runs per context query
// of the decomposition, at most SearchConcurrency at a time. A failed
// search contributes no results; only cancellation fails the retrieval.
func (i *Integration) Retrieve(ctx context.Context, query string, metadata map[string]any) (res RetrieveResult) {
	defer func() {
		if p := recover(); p != nil {
			i.log.Error("context retrieval panicked", zap.Any("panic", p))
			res = retrieveFailure(query, fmt.Errorf("%v", p))
		}
	}()

	d := i.decomposer.Decompose(query, metadata)
	i.log.Info("task decomposed",
		zap.String("category", string(d.PrimaryCategory)),
		zap.Int("components", len(d.Components)),
		zap.Int("queries", len(d.ContextQueries)),
	)

	lists := make([][]assembly.Result, len(d.ContextQueries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.cfg.SearchConcurrency)
	for k, q := range d.ContextQueries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lists[k] = i.search(gctx, d, q)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		i.log.Warn("context retrieval cancelled", zap.Error(err))
		return retrieveFailure(query, err)
	}

	results := make(map[string][]assembly.Result, len(lists))
	for k, l := range lists {
		results[fmt.Sprintf("query_%d", k)] = l
	}

	a := i.builder.Assemble(d, results)
	i.log.Info("context assembled",
		zap.Int("total_items", a.TotalItems),
		zap.Float64("relevance", a.EstimatedRelevance),
	)

	stats := assembly.Statistics(a)
	summary := a.DecompositionSummary
	return RetrieveResult{
		Success:              true,
		Context:              assembly.Format(a),
		Statistics:           &stats,
		DecompositionSummary: &summary,
		TotalItems:           a.TotalItems,
		RelevanceScore:       a.EstimatedRelevance,
		Assembled:            a,
		Decomposition:        d,
	}
}

func retrieveFailure(query string, err error) RetrieveResult {
	return RetrieveResult{
		Error:   err.Error(),
		Context: "Error retrieving context for: " + query,
	}
}

// search runs one context query. Errors are logged and yield no results.
func (i *Integration) search(ctx context.Context, d *decompose.Decomposition, q decompose.ContextQuery) []assembly.Result {
	mems, err := i.storage.Search(ctx, q.QueryText, q.MaxResults, q.SimilarityThreshold)
	if err != nil {
		i.log.Warn("memory search failed",
			zap.String("context_type", string(q.ContextType)),
			zap.Error(err),
		)
		return []assembly.Result{}
	}
	if i.cfg.Rerank {
		mems = i.rerank(mems, d, q)
	}

	out := make([]assembly.Result, len(mems))
	for k, m := range mems {
		score := m.Similarity
		ts := ""
		if !m.Timestamp.IsZero() {
			ts = m.Timestamp.UTC().Format(resultTimeLayout)
		}
		out[k] = assembly.Result{
			Content:   m.Content,
			Tags:      m.Tags,
			Metadata:  m.Metadata,
			Timestamp: ts,
			Score:     &score,
			Hash:      m.Hash,
		}
	}
	return out
}

// rerank orders mems by relevance to q and replaces each similarity with
// the total score.
func (i *Integration) rerank(mems []memory.Memory, d *decompose.Decomposition, q decompose.ContextQuery) []memory.Memory {
	if len(mems) == 0 {
		return mems
	}
	byHash := make(map[string]memory.Memory, len(mems))
	cands := make([]relevance.Candidate, len(mems))
	for k, m := range mems {
		byHash[m.Hash] = m
		cands[k] = relevance.Candidate{
			Content:        m.Content,
			Tags:           m.Tags,
			Metadata:       m.Metadata,
			Timestamp:      m.Timestamp,
			ContentHash:    m.Hash,
			BaseSimilarity: m.Similarity,
			UsageCount:     m.UsageCount,
		}
	}

	sctx := ScoringContext(d, q)
	scored := i.scorer.BatchScore(cands, sctx, nil)
	out := make([]memory.Memory, len(scored))
	for k, s := range scored {
		m := byHash[s.Candidate.ContentHash]
		m.Similarity = s.Score.Total
		out[k] = m
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Similarity > out[b].Similarity })
	return out
}

// ScoringContext derives the query side of relevance scoring from one
// context query of a decomposition.
func ScoringContext(d *decompose.Decomposition, q decompose.ContextQuery) relevance.Context {
	ctx := relevance.Context{
		QueryText:          q.QueryText,
		QueryTags:          q.Tags,
		TargetTechnologies: d.Technologies,
		TaskCategory:       string(d.PrimaryCategory),
		Factors: map[relevance.Factor]string{
			relevance.FactorTaskCategory: string(d.PrimaryCategory),
		},
	}
	switch q.ContextType {
	case decompose.ContextErrorSolutions, decompose.ContextCommonPitfalls:
		ctx.Factors[relevance.FactorErrorContext] = "true"
	}
	return ctx
}

// ─── Status ──────────────────────────────────────────────────────────────────

// Status reports the orchestrator, component states and storage wiring.
func (i *Integration) Status() Status {
	return Status{
		Orchestrator: i.orch.Status(),
		Components: map[string]string{
			"task_decomposer":  "active",
			"context_builder":  "active",
			"relevance_scorer": "active",
		},
		Integration: IntegrationStatus{
			StorageBackend: i.storage.Name(),
			AutonomousMode: "enabled",
			Rerank:         i.cfg.Rerank,
		},
		Capabilities: append([]string(nil), capabilities...),
	}
}
