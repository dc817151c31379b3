// Package resources implements MCP resource handlers for the memory layer.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (agentmem://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Zate/remote-agent-memory/internal/agents"
	"github.com/Zate/remote-agent-memory/internal/memory"
)

// Resource URIs.
const (
	StatusURI = "agentmem://agents/status"
	StatsURI  = "agentmem://memory/stats"
)

// StatsSource is the storage surface the stats resource reads.
type StatsSource interface {
	Stats(ctx context.Context) (*memory.Stats, error)
}

// Handler manages agentmem resource endpoints.
type Handler struct {
	integration *agents.Integration
	stats       StatsSource
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(integration *agents.Integration, stats StatsSource) *Handler {
	return &Handler{integration: integration, stats: stats}
}

// StatusResource returns the MCP resource definition for agent status.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		StatusURI,
		"Agent System Status",
		mcp.WithResourceDescription("Orchestrator activity, component states and storage wiring"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStatus returns the agent system status as JSON.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(req.Params.URI, h.integration.Status())
}

// StatsResource returns the MCP resource definition for memory statistics.
func (h *Handler) StatsResource() mcp.Resource {
	return mcp.NewResource(
		StatsURI,
		"Memory Statistics",
		mcp.WithResourceDescription("Memory counts, usage, duplicates and top tags"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStats returns storage statistics as JSON.
func (h *Handler) HandleStats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	stats, err := h.stats.Stats(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return jsonResource(req.Params.URI, stats)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
