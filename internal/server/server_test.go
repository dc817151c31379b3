package server

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/Zate/remote-agent-memory/internal/agents"
	"github.com/Zate/remote-agent-memory/internal/config"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = backend
	cfg.Storage.DataDir = t.TempDir()
	return cfg
}

func TestNew_RegistersTools(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendVector} {
		t.Run(backend, func(t *testing.T) {
			s, cleanup, err := New(testConfig(t, backend), nil)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer cleanup()

			var names []string
			for name := range s.ListTools() {
				names = append(names, name)
			}
			sort.Strings(names)
			want := "mem_agent_status,mem_analyze,mem_decompose,mem_retrieve,mem_score,mem_stats,mem_store"
			if got := strings.Join(names, ","); got != want {
				t.Errorf("tools = %s, want %s", got, want)
			}
		})
	}
}

func TestOpen_InstallsDefault(t *testing.T) {
	rt, err := Open(testConfig(t, config.BackendSQLite), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if agents.Default() != rt.Integration {
		t.Error("Open should install the default integration")
	}

	res, err := agents.StoreMemory(context.Background(), "The fix was to raise the connection pool size", nil)
	if err != nil {
		t.Fatalf("StoreMemory: %v", err)
	}
	if !res.Stored {
		t.Fatalf("expected stored, got %+v", res)
	}
	if got := rt.Backend.Name(); got != "sqlite" {
		t.Errorf("backend = %s, want sqlite", got)
	}

	rt.Close()
	if agents.Default() != nil {
		t.Error("Close should clear the default integration")
	}
}

func TestOpen_VectorBackend(t *testing.T) {
	rt, err := Open(testConfig(t, config.BackendVector), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rt.Close()

	if got := rt.Backend.Name(); got != "vector" {
		t.Errorf("backend = %s, want vector", got)
	}
	stats, err := rt.Backend.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalMemories != 0 {
		t.Errorf("TotalMemories = %d, want 0", stats.TotalMemories)
	}
}
