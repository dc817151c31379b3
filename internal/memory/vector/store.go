// Package vector is an in-process memory backend built on chromem-go.
//
// Memories are embedded with HashEmbedder and searched by cosine
// similarity. With a DataDir the collection is persisted with chromem's
// gob files, otherwise it lives only for the life of the process. Content
// rules and hashes are shared with the SQLite backend via memory.Prepare.
package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/Zate/remote-agent-memory/internal/memory"
)

const collectionName = "memories"

// Metadata keys on chromem documents.
const (
	keyTags       = "tags"
	keyMetadata   = "metadata"
	keyCreatedAt  = "created_at"
	keyUsage      = "usage_count"
	keyDuplicates = "duplicate_count"
)

// Config holds vector store configuration.
type Config struct {
	// DataDir enables persistence under DataDir/vectors when non-empty.
	DataDir          string
	Dimensions       int
	MaxContentLength int
	MaxSearchResults int
}

// Store is a memory backend over a single chromem collection.
type Store struct {
	db    *chromem.DB
	col   *chromem.Collection
	cfg   Config
	embed chromem.EmbeddingFunc

	// mu serializes read-modify-write of document metadata.
	mu sync.Mutex
}

// New opens (or creates) the vector store.
func New(cfg Config) (*Store, error) {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}

	var (
		db  *chromem.DB
		err error
	)
	if cfg.DataDir != "" {
		db, err = chromem.NewPersistentDB(filepath.Join(cfg.DataDir, "vectors"), false)
		if err != nil {
			return nil, fmt.Errorf("vector: open db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	embed := HashEmbedder(cfg.Dimensions)
	col, err := db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("vector: create collection: %w", err)
	}
	return &Store{db: db, col: col, cfg: cfg, embed: embed}, nil
}

// Close is a no-op; chromem writes through on every change.
func (s *Store) Close() error { return nil }

// Name identifies the backend.
func (s *Store) Name() string { return "vector" }

// Store persists m and returns its content hash. Storing known content
// bumps its duplicate count and keeps the original document.
func (s *Store) Store(ctx context.Context, m memory.Memory) (string, error) {
	m, err := memory.Prepare(m, s.cfg.MaxContentLength)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, err := s.col.GetByID(ctx, m.Hash); err == nil {
		existing.Metadata[keyDuplicates] = strconv.Itoa(atoi(existing.Metadata[keyDuplicates]) + 1)
		if err := s.col.AddDocument(ctx, existing); err != nil {
			return "", fmt.Errorf("vector: store: %w", err)
		}
		return m.Hash, nil
	}

	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	tags, err := json.Marshal(m.Tags)
	if err != nil {
		return "", fmt.Errorf("vector: encode tags: %w", err)
	}
	meta := m.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("vector: encode metadata: %w", err)
	}

	emb, err := s.embed(ctx, m.Content)
	if err != nil {
		return "", fmt.Errorf("vector: embed: %w", err)
	}
	doc := chromem.Document{
		ID:        m.Hash,
		Content:   m.Content,
		Embedding: emb,
		Metadata: map[string]string{
			keyTags:       string(tags),
			keyMetadata:   string(metaJSON),
			keyCreatedAt:  ts.UTC().Format(time.RFC3339Nano),
			keyUsage:      "0",
			keyDuplicates: "1",
		},
	}
	if err := s.col.AddDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("vector: store: %w", err)
	}
	return m.Hash, nil
}

// Get returns the memory with the given hash.
func (s *Store) Get(ctx context.Context, hash string) (*memory.Memory, error) {
	doc, err := s.col.GetByID(ctx, hash)
	if err != nil {
		return nil, memory.ErrNotFound
	}
	m := fromDocument(doc.ID, doc.Content, doc.Metadata, 0)
	return &m, nil
}

// Delete removes the memory with the given hash.
func (s *Store) Delete(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.col.GetByID(ctx, hash); err != nil {
		return memory.ErrNotFound
	}
	if err := s.col.Delete(ctx, nil, nil, hash); err != nil {
		return fmt.Errorf("vector: delete: %w", err)
	}
	return nil
}

// Recent returns the newest memories first.
func (s *Store) Recent(ctx context.Context, limit int) ([]memory.Memory, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector: recent: %w", err)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })
	if limit = s.clampLimit(limit); len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Search returns up to limit memories by cosine similarity to query, best
// first, dropping those below threshold. Returned memories have their
// usage count incremented. An empty query returns Recent.
func (s *Store) Search(ctx context.Context, query string, limit int, threshold float64) ([]memory.Memory, error) {
	limit = s.clampLimit(limit)
	if strings.TrimSpace(query) == "" {
		return s.Recent(ctx, limit)
	}

	n := min(limit, s.col.Count())
	if n == 0 {
		return nil, nil
	}
	results, err := s.col.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector: search: %w", err)
	}

	var out []memory.Memory
	for _, r := range results {
		sim := clamp01(float64(r.Similarity))
		if sim < threshold {
			continue
		}
		out = append(out, fromDocument(r.ID, r.Content, r.Metadata, sim))
	}

	if err := s.touch(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// touch increments usage on each memory, in the store and in mems.
func (s *Store) touch(ctx context.Context, mems []memory.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range mems {
		doc, err := s.col.GetByID(ctx, mems[i].Hash)
		if err != nil {
			// Deleted between query and touch.
			continue
		}
		usage := atoi(doc.Metadata[keyUsage]) + 1
		doc.Metadata[keyUsage] = strconv.Itoa(usage)
		if err := s.col.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("vector: record usage: %w", err)
		}
		mems[i].UsageCount = usage
	}
	return nil
}

// Stats returns aggregate memory statistics.
func (s *Store) Stats(ctx context.Context) (*memory.Stats, error) {
	stats := &memory.Stats{Backend: s.Name(), TopTags: []memory.TagCount{}}
	if s.col.Count() == 0 {
		return stats, nil
	}

	results, err := s.col.QueryEmbedding(ctx, embed("", s.cfg.Dimensions), s.col.Count(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector: stats: %w", err)
	}

	counts := map[string]int{}
	for _, r := range results {
		stats.TotalMemories++
		stats.TotalUsage += atoi(r.Metadata[keyUsage])
		stats.Duplicates += max(atoi(r.Metadata[keyDuplicates])-1, 0)
		for _, t := range decodeTags(r.Metadata[keyTags]) {
			counts[t]++
		}
	}
	stats.UniqueTags = len(counts)
	stats.TopTags = memory.TopTags(counts, 10)
	return stats, nil
}

// all lists every document. chromem has no scan, so this queries with a
// fixed vector for the whole collection.
func (s *Store) all(ctx context.Context) ([]memory.Memory, error) {
	n := s.col.Count()
	if n == 0 {
		return nil, nil
	}
	results, err := s.col.QueryEmbedding(ctx, embed("", s.cfg.Dimensions), n, nil, nil)
	if err != nil {
		return nil, err
	}
	out := make([]memory.Memory, len(results))
	for i, r := range results {
		out[i] = fromDocument(r.ID, r.Content, r.Metadata, 0)
	}
	return out, nil
}

func (s *Store) clampLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	}
	if s.cfg.MaxSearchResults > 0 && limit > s.cfg.MaxSearchResults {
		limit = s.cfg.MaxSearchResults
	}
	return limit
}

func fromDocument(id, content string, md map[string]string, sim float64) memory.Memory {
	ts, _ := time.Parse(time.RFC3339Nano, md[keyCreatedAt])
	meta := map[string]any{}
	if err := json.Unmarshal([]byte(md[keyMetadata]), &meta); err != nil || meta == nil {
		meta = map[string]any{}
	}
	return memory.Memory{
		Hash:       id,
		Content:    content,
		Tags:       decodeTags(md[keyTags]),
		Metadata:   meta,
		Timestamp:  ts,
		Similarity: sim,
		UsageCount: atoi(md[keyUsage]),
	}
}

func decodeTags(raw string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func clamp01(v float64) float64 {
	return max(0, min(v, 1))
}
