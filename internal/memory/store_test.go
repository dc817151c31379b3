package memory_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Zate/remote-agent-memory/internal/memory"
)

// newTestStore creates a Store backed by a temp directory for isolation.
func newTestStore(t *testing.T) *memory.Store {
	t.Helper()
	return newTestStoreWith(t, memory.Config{
		DataDir:          t.TempDir(),
		MaxContentLength: 2000,
		MaxSearchResults: 20,
	})
}

func newTestStoreWith(t *testing.T, cfg memory.Config) *memory.Store {
	t.Helper()
	s, err := memory.New(cfg)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustStore saves a memory and returns its hash.
func mustStore(t *testing.T, s *memory.Store, content string, tags ...string) string {
	t.Helper()
	hash, err := s.Store(context.Background(), memory.Memory{Content: content, Tags: tags})
	if err != nil {
		t.Fatalf("Store(%q) error: %v", content, err)
	}
	return hash
}

// ─── New / Initialization ───────────────────────────────────────────────────

func TestNew_CreatesDBFile(t *testing.T) {
	dir := t.TempDir()
	s, err := memory.New(memory.Config{DataDir: dir})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(dir, "memory.db")); err != nil {
		t.Fatalf("memory.db not created: %v", err)
	}
	if s.Name() != "sqlite" {
		t.Errorf("Name() = %q, want %q", s.Name(), "sqlite")
	}
}

func TestNew_IdempotentReopen(t *testing.T) {
	cfg := memory.Config{DataDir: t.TempDir(), MaxSearchResults: 20}

	s1, err := memory.New(cfg)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	hash, err := s1.Store(context.Background(), memory.Memory{Content: "persisted across reopen"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	s1.Close()

	// Reopen: migrations run again and data persists
	s2, err := memory.New(cfg)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()

	m, err := s2.Get(context.Background(), hash)
	if err != nil {
		t.Fatalf("memory not found after reopen: %v", err)
	}
	if m.Content != "persisted across reopen" {
		t.Errorf("Content = %q", m.Content)
	}
	got, err := s2.Search(context.Background(), "reopen", 5, 0)
	if err != nil {
		t.Fatalf("search after reopen: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("search after reopen returned %d results, want 1", len(got))
	}
}

// ─── Store / Get ────────────────────────────────────────────────────────────

func TestStore_Basic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hash, err := s.Store(ctx, memory.Memory{
		Content:  "We chose PostgreSQL for ACID transactions",
		Tags:     []string{"database", "decision"},
		Metadata: map[string]any{"project": "billing"},
	})
	if err != nil {
		t.Fatalf("Store error: %v", err)
	}
	if len(hash) != 64 {
		t.Errorf("hash length = %d, want 64", len(hash))
	}

	m, err := s.Get(ctx, hash)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if m.Hash != hash {
		t.Errorf("Hash = %q, want %q", m.Hash, hash)
	}
	if m.Content != "We chose PostgreSQL for ACID transactions" {
		t.Errorf("Content = %q", m.Content)
	}
	if strings.Join(m.Tags, ",") != "database,decision" {
		t.Errorf("Tags = %v", m.Tags)
	}
	if m.Metadata["project"] != "billing" {
		t.Errorf("Metadata = %v", m.Metadata)
	}
	if m.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
	if m.UsageCount != 0 {
		t.Errorf("UsageCount = %d, want 0", m.UsageCount)
	}
}

func TestStore_Deduplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	h1 := mustStore(t, s, "Use  SQLite for local state")
	h2 := mustStore(t, s, "use sqlite for LOCAL state")
	if h1 != h2 {
		t.Errorf("hashes differ for normalized-equal content: %q vs %q", h1, h2)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.TotalMemories != 1 {
		t.Errorf("TotalMemories = %d, want 1", stats.TotalMemories)
	}
	if stats.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", stats.Duplicates)
	}
}

func TestStore_EmptyContentRejected(t *testing.T) {
	s := newTestStore(t)
	for _, content := range []string{"", "   \n\t"} {
		if _, err := s.Store(context.Background(), memory.Memory{Content: content}); err == nil {
			t.Errorf("Store(%q) should fail", content)
		}
	}
}

func TestStore_PrivateTagsStripped(t *testing.T) {
	s := newTestStore(t)
	hash := mustStore(t, s, "API key is <private>sk-123</private> in the vault")

	m, err := s.Get(context.Background(), hash)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if strings.Contains(m.Content, "sk-123") {
		t.Errorf("private content leaked: %q", m.Content)
	}
	if !strings.Contains(m.Content, "[REDACTED]") {
		t.Errorf("Content = %q, want [REDACTED] marker", m.Content)
	}
}

func TestStore_Truncation(t *testing.T) {
	s := newTestStoreWith(t, memory.Config{DataDir: t.TempDir(), MaxContentLength: 20})
	hash := mustStore(t, s, strings.Repeat("abcdefghij", 5))

	m, err := s.Get(context.Background(), hash)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	want := strings.Repeat("abcdefghij", 2) + "... [truncated]"
	if m.Content != want {
		t.Errorf("Content = %q, want %q", m.Content, want)
	}
}

func TestStore_TagsNormalized(t *testing.T) {
	s := newTestStore(t)
	hash := mustStore(t, s, "tag normalization", " go ", "Go", "", "sqlite")

	m, err := s.Get(context.Background(), hash)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if strings.Join(m.Tags, ",") != "go,sqlite" {
		t.Errorf("Tags = %v, want [go sqlite]", m.Tags)
	}
}

func TestStore_CustomTimestamp(t *testing.T) {
	s := newTestStore(t)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	hash, err := s.Store(context.Background(), memory.Memory{Content: "backdated", Timestamp: ts})
	if err != nil {
		t.Fatalf("Store error: %v", err)
	}
	m, err := s.Get(context.Background(), hash)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !m.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", m.Timestamp, ts)
	}
}

func TestStore_RevivesDeleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hash := mustStore(t, s, "comes back")
	if err := s.Delete(ctx, hash); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if again := mustStore(t, s, "comes back"); again != hash {
		t.Errorf("hash = %q, want %q", again, hash)
	}
	if _, err := s.Get(ctx, hash); err != nil {
		t.Errorf("Get after revive: %v", err)
	}
}

func TestStore_WriteErrorWrapped(t *testing.T) {
	s := newTestStore(t)
	boom := errors.New("disk full")
	s.FailExec(boom)

	_, err := s.Store(context.Background(), memory.Memory{Content: "never lands"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if !strings.HasPrefix(err.Error(), "memory: store:") {
		t.Errorf("err = %q, want memory: store prefix", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, memory.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// ─── Delete / Recent ────────────────────────────────────────────────────────

func TestDelete_SoftDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	hash := mustStore(t, s, "to be deleted")

	if err := s.Delete(ctx, hash); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := s.Get(ctx, hash); !errors.Is(err, memory.ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}

	// The row still exists with deleted_at set
	var deletedAt *string
	if err := s.DB().QueryRow("SELECT deleted_at FROM memories WHERE hash = ?", hash).Scan(&deletedAt); err != nil {
		t.Fatalf("raw query: %v", err)
	}
	if deletedAt == nil {
		t.Error("deleted_at should be set")
	}

	if err := s.Delete(ctx, hash); !errors.Is(err, memory.ErrNotFound) {
		t.Errorf("second Delete: err = %v, want ErrNotFound", err)
	}
}

func TestRecent_Order(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, c := range []string{"oldest", "middle", "newest"} {
		if _, err := s.Store(ctx, memory.Memory{Content: c, Timestamp: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Content != "newest" || got[1].Content != "middle" {
		t.Errorf("order = %q, %q", got[0].Content, got[1].Content)
	}
}

// ─── Search ─────────────────────────────────────────────────────────────────

func seedSearch(t *testing.T, s *memory.Store) {
	t.Helper()
	mustStore(t, s, "PostgreSQL chosen for ACID transactions in billing", "database", "decision")
	mustStore(t, s, "PostgreSQL connection pool exhausted under load; raised max_connections", "database", "bug-fix")
	mustStore(t, s, "Dockerfile uses a multi-stage build", "docker")
	mustStore(t, s, "Unrelated note about lunch", "misc")
}

func TestSearch_Basic(t *testing.T) {
	s := newTestStore(t)
	seedSearch(t, s)

	got, err := s.Search(context.Background(), "postgresql transactions", 10, 0)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !strings.Contains(got[0].Content, "ACID") {
		t.Errorf("top hit = %q, want the ACID memory", got[0].Content)
	}
	if got[0].Similarity != 1 {
		t.Errorf("top similarity = %v, want 1", got[0].Similarity)
	}
	for i, m := range got {
		if m.Similarity < 0 || m.Similarity > 1 {
			t.Errorf("result %d similarity %v out of range", i, m.Similarity)
		}
		if i > 0 && m.Similarity > got[i-1].Similarity {
			t.Errorf("results not sorted by similarity at %d", i)
		}
	}
}

func TestSearch_Threshold(t *testing.T) {
	s := newTestStore(t)
	seedSearch(t, s)
	ctx := context.Background()

	all, err := s.Search(ctx, "postgresql transactions", 10, 0)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	none, err := s.Search(ctx, "postgresql transactions", 10, 1.01)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("threshold above 1 returned %d results", len(none))
	}
	top, err := s.Search(ctx, "postgresql transactions", 10, 1)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(top) == 0 || len(top) > len(all) {
		t.Errorf("threshold 1 returned %d of %d", len(top), len(all))
	}
}

func TestSearch_MatchesTags(t *testing.T) {
	s := newTestStore(t)
	seedSearch(t, s)

	got, err := s.Search(context.Background(), "docker", 10, 0)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(got) != 1 || !strings.Contains(got[0].Content, "Dockerfile") {
		t.Errorf("got %v", got)
	}
}

func TestSearch_AnyTermMatches(t *testing.T) {
	s := newTestStore(t)
	seedSearch(t, s)

	got, err := s.Search(context.Background(), "lunch zzzunknownzzz", 10, 0)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
}

func TestSearch_IncrementsUsage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	hash := mustStore(t, s, "Retry with exponential backoff", "pattern")

	for i := 0; i < 2; i++ {
		if _, err := s.Search(ctx, "backoff", 5, 0); err != nil {
			t.Fatalf("Search error: %v", err)
		}
	}
	m, err := s.Get(ctx, hash)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if m.UsageCount != 2 {
		t.Errorf("UsageCount = %d, want 2", m.UsageCount)
	}
}

func TestSearch_EmptyQueryReturnsRecent(t *testing.T) {
	s := newTestStore(t)
	seedSearch(t, s)

	got, err := s.Search(context.Background(), "   ", 10, 0.9)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("len = %d, want 4", len(got))
	}
}

func TestSearch_LimitCapped(t *testing.T) {
	s := newTestStoreWith(t, memory.Config{DataDir: t.TempDir(), MaxSearchResults: 3})
	for i := 0; i < 5; i++ {
		mustStore(t, s, fmt.Sprintf("caching note number %d", i))
	}

	got, err := s.Search(context.Background(), "caching", 100, 0)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
}

func TestSearch_SoftDeletedExcluded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	hash := mustStore(t, s, "ephemeral kubernetes note")

	if err := s.Delete(ctx, hash); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	got, err := s.Search(ctx, "kubernetes", 10, 0)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("deleted memory returned: %v", got)
	}
}

func TestSearch_SpecialCharactersSanitized(t *testing.T) {
	s := newTestStore(t)
	mustStore(t, s, "c++ templates are hard")

	queries := []string{`"templates"`, `c++ (templates)`, `templates AND OR NOT`, `*`, `col:templates`}
	for _, q := range queries {
		if _, err := s.Search(context.Background(), q, 10, 0); err != nil {
			t.Errorf("Search(%q) error: %v", q, err)
		}
	}
}

func TestSearch_QueryErrorWrapped(t *testing.T) {
	s := newTestStore(t)
	boom := errors.New("io error")
	s.FailQuery(boom)

	if _, err := s.Search(context.Background(), "anything", 5, 0); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

func TestSanitizeFTS(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"fix auth bug", `"fix" OR "auth" OR "bug"`},
		{`say "hi"`, `"say" OR "hi"`},
		{"   ", ""},
		{`""`, ""},
		{"* ( fix", `"fix"`},
	}
	for _, tt := range tests {
		if got := memory.SanitizeFTS(tt.in); got != tt.want {
			t.Errorf("SanitizeFTS(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// ─── Stats ──────────────────────────────────────────────────────────────────

func TestStats_Empty(t *testing.T) {
	s := newTestStore(t)
	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.TotalMemories != 0 || stats.UniqueTags != 0 || len(stats.TopTags) != 0 {
		t.Errorf("stats = %+v, want empty", stats)
	}
	if stats.Backend != "sqlite" {
		t.Errorf("Backend = %q", stats.Backend)
	}
}

func TestStats_WithData(t *testing.T) {
	s := newTestStore(t)
	seedSearch(t, s)
	ctx := context.Background()

	if _, err := s.Search(ctx, "postgresql", 10, 0); err != nil {
		t.Fatalf("Search error: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.TotalMemories != 4 {
		t.Errorf("TotalMemories = %d, want 4", stats.TotalMemories)
	}
	if stats.UniqueTags != 5 {
		t.Errorf("UniqueTags = %d, want 5", stats.UniqueTags)
	}
	if stats.TotalUsage != 2 {
		t.Errorf("TotalUsage = %d, want 2", stats.TotalUsage)
	}
	if len(stats.TopTags) == 0 || stats.TopTags[0].Tag != "database" || stats.TopTags[0].Count != 2 {
		t.Errorf("TopTags = %+v, want database first", stats.TopTags)
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is longer", 4, "this..."},
		{"héllo", 2, "h..."},
		{"日本語", 4, "日..."},
	}
	for _, tt := range tests {
		if got := memory.Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestNow_ReturnsUTCFormat(t *testing.T) {
	now := memory.Now()
	if _, err := time.Parse("2006-01-02 15:04:05", now); err != nil {
		t.Errorf("Now() = %q, not in SQLite format: %v", now, err)
	}
}

func TestPrepare(t *testing.T) {
	m, err := memory.Prepare(memory.Memory{
		Content: "  keep <private>token=abc</private> this  ",
		Tags:    []string{" Go ", "go", ""},
	}, 0)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if m.Content != "keep [REDACTED] this" {
		t.Errorf("Content = %q", m.Content)
	}
	if len(m.Tags) != 1 || m.Tags[0] != "Go" {
		t.Errorf("Tags = %v, want [Go]", m.Tags)
	}
	if m.Hash != memory.ContentHash("KEEP [redacted]   this") {
		t.Errorf("Hash = %q does not ignore case and spacing", m.Hash)
	}

	if _, err := memory.Prepare(memory.Memory{Content: "<private>only</private>"}, 0); err != nil {
		t.Errorf("redacted-only content should still store, got %v", err)
	}
	if _, err := memory.Prepare(memory.Memory{Content: "   "}, 0); err == nil {
		t.Error("expected error for blank content")
	}
}

func TestPrepare_TruncatesOnRuneBoundary(t *testing.T) {
	m, err := memory.Prepare(memory.Memory{Content: "ééé"}, 3)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if !utf8.ValidString(m.Content) {
		t.Fatalf("Content = %q is not valid UTF-8", m.Content)
	}
	if m.Content != "é... [truncated]" {
		t.Errorf("Content = %q, want %q", m.Content, "é... [truncated]")
	}
}
