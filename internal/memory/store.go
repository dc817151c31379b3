// Package memory implements the persistent memory backend used by the
// autonomous agent layer.
//
// It uses SQLite with FTS5 full-text search. Content is deduplicated by a
// hash of its normalized text, and search results carry a similarity in
// [0,1] derived from the FTS5 bm25 rank so callers can apply thresholds.
package memory

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ErrNotFound is returned when a hash names no live memory.
var ErrNotFound = errors.New("memory: not found")

// timeLayout is how SQLite's datetime('now') renders timestamps.
const timeLayout = "2006-01-02 15:04:05"

// ─── Types ───────────────────────────────────────────────────────────────────

// Memory is a stored unit of content.
type Memory struct {
	Hash       string         `json:"hash"`
	Content    string         `json:"content"`
	Tags       []string       `json:"tags"`
	Metadata   map[string]any `json:"metadata"`
	Timestamp  time.Time      `json:"timestamp"`
	Similarity float64        `json:"similarity_score"`
	UsageCount int            `json:"usage_count"`
}

// TagCount is one entry of the tag histogram in Stats.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Stats holds aggregate memory statistics.
type Stats struct {
	Backend       string     `json:"backend"`
	TotalMemories int        `json:"total_memories"`
	UniqueTags    int        `json:"unique_tags"`
	TotalUsage    int        `json:"total_usage"`
	Duplicates    int        `json:"duplicates"`
	TopTags       []TagCount `json:"top_tags"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds memory store configuration.
type Config struct {
	DataDir          string
	MaxContentLength int
	MaxSearchResults int
}

// DefaultConfig returns the default configuration for the memory store.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:          filepath.Join(home, ".agentmem"),
		MaxContentLength: 8000,
		MaxSearchResults: 50,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the persistent memory engine backed by SQLite + FTS5.
type Store struct {
	db    *sql.DB
	cfg   Config
	hooks storeHooks
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

type sqlRowScanner struct {
	rows *sql.Rows
}

func (r sqlRowScanner) Next() bool             { return r.rows.Next() }
func (r sqlRowScanner) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r sqlRowScanner) Err() error             { return r.rows.Err() }
func (r sqlRowScanner) Close() error           { return r.rows.Close() }

type storeHooks struct {
	exec    func(ctx context.Context, db execer, query string, args ...any) (sql.Result, error)
	queryIt func(ctx context.Context, db queryer, query string, args ...any) (rowScanner, error)
}

func defaultStoreHooks() storeHooks {
	return storeHooks{
		exec: func(ctx context.Context, db execer, query string, args ...any) (sql.Result, error) {
			return db.ExecContext(ctx, query, args...)
		},
		queryIt: func(ctx context.Context, db queryer, query string, args ...any) (rowScanner, error) {
			rows, err := db.QueryContext(ctx, query, args...)
			if err != nil {
				return nil, err
			}
			return sqlRowScanner{rows: rows}, nil
		},
	}
}

func (s *Store) execHook(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(ctx, s.db, query, args...)
	}
	return s.db.ExecContext(ctx, query, args...)
}

func (s *Store) queryItHook(ctx context.Context, query string, args ...any) (rowScanner, error) {
	if s.hooks.queryIt != nil {
		return s.hooks.queryIt(ctx, s.db, query, args...)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRowScanner{rows: rows}, nil
}

// New creates a new Store with the given configuration.
// It creates the data directory if needed, opens SQLite with WAL mode,
// and runs migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("memory: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "memory.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("memory: open database: %w", err)
	}

	// SQLite performance pragmas
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("memory: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg, hooks: defaultStoreHooks()}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("memory: migration: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Name identifies the backend.
func (s *Store) Name() string {
	return "sqlite"
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	ctx := context.Background()
	schema := `
		CREATE TABLE IF NOT EXISTS memories (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			hash             TEXT    NOT NULL UNIQUE,
			content          TEXT    NOT NULL,
			tags             TEXT    NOT NULL DEFAULT '[]',
			metadata         TEXT    NOT NULL DEFAULT '{}',
			usage_count      INTEGER NOT NULL DEFAULT 0,
			duplicate_count  INTEGER NOT NULL DEFAULT 1,
			last_accessed_at TEXT,
			created_at       TEXT    NOT NULL DEFAULT (datetime('now')),
			updated_at       TEXT    NOT NULL DEFAULT (datetime('now')),
			deleted_at       TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_mem_created ON memories(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_mem_deleted ON memories(deleted_at);

		CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
			content,
			tags,
			content='memories',
			content_rowid='id'
		);
	`
	if _, err := s.execHook(ctx, schema); err != nil {
		return err
	}

	// Create FTS triggers (idempotent)
	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='trigger' AND name='mem_fts_insert'",
	).Scan(&name)
	if err == sql.ErrNoRows {
		triggers := `
			CREATE TRIGGER mem_fts_insert AFTER INSERT ON memories BEGIN
				INSERT INTO memories_fts(rowid, content, tags)
				VALUES (new.id, new.content, new.tags);
			END;

			CREATE TRIGGER mem_fts_delete AFTER DELETE ON memories BEGIN
				INSERT INTO memories_fts(memories_fts, rowid, content, tags)
				VALUES ('delete', old.id, old.content, old.tags);
			END;

			CREATE TRIGGER mem_fts_update AFTER UPDATE OF content, tags ON memories BEGIN
				INSERT INTO memories_fts(memories_fts, rowid, content, tags)
				VALUES ('delete', old.id, old.content, old.tags);
				INSERT INTO memories_fts(rowid, content, tags)
				VALUES (new.id, new.content, new.tags);
			END;
		`
		if _, err := s.execHook(ctx, triggers); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	return nil
}

// ─── Memories ────────────────────────────────────────────────────────────────

// Store persists m and returns its content hash. Storing content that is
// already present (ignoring case and whitespace) returns the existing hash
// and revives it if it was deleted.
func (s *Store) Store(ctx context.Context, m Memory) (string, error) {
	m, err := Prepare(m, s.cfg.MaxContentLength)
	if err != nil {
		return "", err
	}
	content, hash := m.Content, m.Hash

	tags, err := json.Marshal(m.Tags)
	if err != nil {
		return "", fmt.Errorf("memory: encode tags: %w", err)
	}
	meta := m.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("memory: encode metadata: %w", err)
	}

	created := Now()
	if !m.Timestamp.IsZero() {
		created = m.Timestamp.UTC().Format(timeLayout)
	}

	if _, err := s.execHook(ctx,
		`INSERT INTO memories (hash, content, tags, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, datetime('now'))
		 ON CONFLICT(hash) DO UPDATE SET
		     duplicate_count = duplicate_count + 1,
		     deleted_at = NULL,
		     updated_at = datetime('now')`,
		hash, content, string(tags), string(metaJSON), created,
	); err != nil {
		return "", fmt.Errorf("memory: store: %w", err)
	}
	return hash, nil
}

// Get returns the live memory with the given hash.
func (s *Store) Get(ctx context.Context, hash string) (*Memory, error) {
	mems, err := s.queryMemories(ctx,
		`SELECT hash, content, tags, metadata, created_at, usage_count, 0
		 FROM memories WHERE hash = ? AND deleted_at IS NULL`, hash)
	if err != nil {
		return nil, fmt.Errorf("memory: get: %w", err)
	}
	if len(mems) == 0 {
		return nil, ErrNotFound
	}
	return &mems[0], nil
}

// Delete soft-deletes the memory with the given hash.
func (s *Store) Delete(ctx context.Context, hash string) error {
	res, err := s.execHook(ctx,
		`UPDATE memories
		 SET deleted_at = datetime('now'),
		     updated_at = datetime('now')
		 WHERE hash = ? AND deleted_at IS NULL`,
		hash,
	)
	if err != nil {
		return fmt.Errorf("memory: delete: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Recent returns the newest memories first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Memory, error) {
	limit = s.clampLimit(limit)
	mems, err := s.queryMemories(ctx,
		`SELECT hash, content, tags, metadata, created_at, usage_count, 0
		 FROM memories
		 WHERE deleted_at IS NULL
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("memory: recent: %w", err)
	}
	return mems, nil
}

// ─── Search (FTS5) ───────────────────────────────────────────────────────────

// Search returns up to limit memories matching any word of query, best
// first. Similarity is the bm25 rank relative to the best hit, so the top
// result scores 1.0; results below threshold are dropped. Every returned
// memory has its usage count incremented.
//
// An empty query returns the most recent memories with zero similarity
// and ignores threshold.
func (s *Store) Search(ctx context.Context, query string, limit int, threshold float64) ([]Memory, error) {
	limit = s.clampLimit(limit)

	ftsQuery := sanitizeFTS(query)
	if ftsQuery == "" {
		return s.Recent(ctx, limit)
	}

	mems, err := s.queryMemories(ctx,
		`SELECT m.hash, m.content, m.tags, m.metadata, m.created_at, m.usage_count, fts.rank
		 FROM memories_fts fts
		 JOIN memories m ON m.id = fts.rowid
		 WHERE memories_fts MATCH ? AND m.deleted_at IS NULL
		 ORDER BY fts.rank
		 LIMIT ?`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("memory: search: %w", err)
	}

	normalizeRanks(mems)
	kept := mems[:0]
	for _, m := range mems {
		if m.Similarity >= threshold {
			kept = append(kept, m)
		}
	}

	if err := s.touch(ctx, kept); err != nil {
		return nil, err
	}
	return kept, nil
}

// normalizeRanks converts raw bm25 ranks, which are negative with lower
// meaning better, into similarities relative to the first (best) rank.
func normalizeRanks(mems []Memory) {
	if len(mems) == 0 {
		return
	}
	best := mems[0].Similarity
	for i := range mems {
		if best >= 0 {
			mems[i].Similarity = 1
			continue
		}
		mems[i].Similarity = clamp01(mems[i].Similarity / best)
	}
}

func (s *Store) touch(ctx context.Context, mems []Memory) error {
	if len(mems) == 0 {
		return nil
	}
	placeholders := make([]string, len(mems))
	args := make([]any, len(mems))
	for i, m := range mems {
		placeholders[i] = "?"
		args[i] = m.Hash
	}
	if _, err := s.execHook(ctx,
		`UPDATE memories
		 SET usage_count = usage_count + 1,
		     last_accessed_at = datetime('now')
		 WHERE hash IN (`+strings.Join(placeholders, ",")+`)`,
		args...,
	); err != nil {
		return fmt.Errorf("memory: record usage: %w", err)
	}
	return nil
}

// ─── Stats ───────────────────────────────────────────────────────────────────

// Stats returns aggregate memory statistics.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Backend: s.Name(), TopTags: []TagCount{}}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(usage_count), 0), COALESCE(SUM(duplicate_count - 1), 0)
		 FROM memories WHERE deleted_at IS NULL`,
	).Scan(&stats.TotalMemories, &stats.TotalUsage, &stats.Duplicates); err != nil {
		return nil, fmt.Errorf("memory: stats: %w", err)
	}

	rows, err := s.queryItHook(ctx, `SELECT tags FROM memories WHERE deleted_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("memory: stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := map[string]int{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("memory: stats: %w", err)
		}
		for _, t := range decodeTags(raw) {
			counts[t]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("memory: stats: %w", err)
	}

	stats.UniqueTags = len(counts)
	stats.TopTags = TopTags(counts, 10)
	return stats, nil
}

// TopTags returns the n most frequent tags, ties broken alphabetically.
func TopTags(counts map[string]int, n int) []TagCount {
	out := make([]TagCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, TagCount{Tag: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// queryMemories scans rows of (hash, content, tags, metadata, created_at,
// usage_count, score). score lands in Similarity unmodified.
func (s *Store) queryMemories(ctx context.Context, query string, args ...any) ([]Memory, error) {
	rows, err := s.queryItHook(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []Memory
	for rows.Next() {
		var (
			m                   Memory
			tags, meta, created string
		)
		if err := rows.Scan(&m.Hash, &m.Content, &tags, &meta, &created, &m.UsageCount, &m.Similarity); err != nil {
			return nil, err
		}
		m.Tags = decodeTags(tags)
		m.Metadata = decodeMetadata(meta)
		m.Timestamp = parseTime(created)
		results = append(results, m)
	}
	return results, rows.Err()
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

func decodeTags(raw string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}

func decodeMetadata(raw string) map[string]any {
	meta := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &meta); err != nil || meta == nil {
		return map[string]any{}
	}
	return meta
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Prepare applies the rules every backend shares before persisting m. It
// redacts private sections, rejects empty content, truncates to maxLen
// (when positive), normalizes tags and fills in Hash.
func Prepare(m Memory, maxLen int) (Memory, error) {
	content := stripPrivateTags(m.Content)
	if content == "" {
		return m, fmt.Errorf("memory: store: content is empty")
	}
	if maxLen > 0 && len(content) > maxLen {
		content = cutRunes(content, maxLen) + "... [truncated]"
	}
	m.Content = content
	m.Tags = normalizeTags(m.Tags)
	m.Hash = ContentHash(content)
	return m, nil
}

// normalizeTags trims, drops empties, and removes duplicates while keeping
// the first spelling of each tag.
func normalizeTags(tags []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Truncate shortens a string to max bytes with ellipsis, never splitting
// a UTF-8 sequence.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return cutRunes(s, max) + "..."
}

// cutRunes returns the longest prefix of s no longer than n bytes that
// ends on a rune boundary.
func cutRunes(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// ContentHash returns the deduplication key for content: a SHA-256 of the
// text with case folded and whitespace collapsed.
func ContentHash(content string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(content), " "))
	h := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(h[:])
}

// privateTagRegex matches <private>...</private> tags and their contents.
var privateTagRegex = regexp.MustCompile(`(?is)<private>.*?</private>`)

// stripPrivateTags removes all <private>...</private> content from a string.
func stripPrivateTags(s string) string {
	result := privateTagRegex.ReplaceAllString(s, "[REDACTED]")
	return strings.TrimSpace(result)
}

// sanitizeFTS quotes each word and joins them with OR so any term can
// match. Words without letters or digits are dropped.
// "fix auth bug" → `"fix" OR "auth" OR "bug"`
func sanitizeFTS(query string) string {
	var words []string
	for _, w := range strings.Fields(query) {
		w = strings.ReplaceAll(w, `"`, "")
		if strings.IndexFunc(w, isWordRune) < 0 {
			continue
		}
		words = append(words, `"`+w+`"`)
	}
	return strings.Join(words, " OR ")
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Now returns the current time formatted for SQLite.
func Now() string {
	return time.Now().UTC().Format(timeLayout)
}
