package config

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	t.Setenv("AGENTMEM_DATA_DIR", "")
	t.Setenv("AGENTMEM_BACKEND", "")
	t.Setenv("AGENTMEM_DEBUG", "")

	path := writeConfig(t, "logging:\n  level: info\n")
	got := make(chan *Config, 16)
	w, err := NewWatcher(path, nil, func(c *Config) {
		select {
		case got <- c:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = w.Close() }()

	// An invalid file is skipped.
	if err := os.WriteFile(path, []byte("storage:\n  backend: redis\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-got:
			if c.Storage.Backend != BackendSQLite {
				t.Fatalf("invalid config delivered: backend %q", c.Storage.Backend)
			}
			// A save can be observed mid-write; wait for the final content.
			if c.Logging.Level == "warn" {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}

func TestWatcher_CloseWithoutStart(t *testing.T) {
	w, err := NewWatcher(writeConfig(t, ""), nil, func(*Config) {})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
