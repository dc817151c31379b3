// Package memtools provides MCP tool handlers for the autonomous memory layer.
//
// Each tool handler follows the same pattern:
// - A struct with its dependencies injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Handlers report bad input and backend failures as tool errors, never as
// Go errors, so the client sees the message.
package memtools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Zate/remote-agent-memory/internal/agents"
	"github.com/Zate/remote-agent-memory/internal/memory"
)

// Backend is the storage surface the tools need beyond agents.Storage.
type Backend interface {
	agents.Storage
	Stats(ctx context.Context) (*memory.Stats, error)
}

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// tagsArg accepts either a JSON array of strings or a comma-separated
// string. Blank entries are dropped.
func tagsArg(req mcp.CallToolRequest, key string) []string {
	var raw []string
	switch v := req.GetArguments()[key].(type) {
	case string:
		raw = strings.Split(v, ",")
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case []string:
		raw = v
	}

	var tags []string
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// metadataArg returns a copy of an object argument, or an empty map.
func metadataArg(req mcp.CallToolRequest, key string) map[string]any {
	out := map[string]any{}
	if m, ok := req.GetArguments()[key].(map[string]any); ok {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
