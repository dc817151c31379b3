package agents

import (
	"context"
	"errors"
	"sync"
)

// ErrNotInitialized is returned by the package-level helpers before
// SetDefault has been called.
var ErrNotInitialized = errors.New("agents: integration not initialized, call SetDefault first")

var (
	defaultMu  sync.RWMutex
	defaultInt *Integration
)

// SetDefault installs i as the instance behind the package-level helpers.
// Passing nil uninstalls it.
func SetDefault(i *Integration) {
	defaultMu.Lock()
	defaultInt = i
	defaultMu.Unlock()
}

// Default returns the installed instance, or nil.
func Default() *Integration {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultInt
}

// StoreMemory runs Store on the default instance.
func StoreMemory(ctx context.Context, content string, metadata map[string]any) (StoreResult, error) {
	i := Default()
	if i == nil {
		return StoreResult{}, ErrNotInitialized
	}
	return i.Store(ctx, content, metadata), nil
}

// RetrieveContext runs Retrieve on the default instance.
func RetrieveContext(ctx context.Context, query string, metadata map[string]any) (RetrieveResult, error) {
	i := Default()
	if i == nil {
		return RetrieveResult{}, ErrNotInitialized
	}
	return i.Retrieve(ctx, query, metadata), nil
}

// AgentStatus reports the default instance's status.
func AgentStatus() (Status, error) {
	i := Default()
	if i == nil {
		return Status{}, ErrNotInitialized
	}
	return i.Status(), nil
}
