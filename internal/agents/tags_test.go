package agents_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Zate/remote-agent-memory/internal/agents"
)

func TestSmartTags(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		metadata map[string]any
		want     []string
	}{
		{
			name:    "markers only",
			content: "nothing to see here",
			want:    []string{"agent-stored", "autonomous"},
		},
		{
			name:    "technology and kind",
			content: "Fixed the Docker build by pinning the npm version",
			want:    []string{"javascript", "docker", "bug-fix", "implementation", "agent-stored", "autonomous"},
		},
		{
			name:     "metadata tags",
			content:  "notes",
			metadata: map[string]any{"project": "atlas", "category": "ops"},
			want:     []string{"project-atlas", "ops", "agent-stored", "autonomous"},
		},
		{
			name:     "duplicates removed",
			content:  "notes",
			metadata: map[string]any{"category": "autonomous"},
			want:     []string{"autonomous", "agent-stored"},
		},
		{
			name:    "substring matching",
			content: "Happy path config",
			want:    []string{"python", "configuration", "agent-stored", "autonomous"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, agents.SmartTags(tt.content, tt.metadata))
		})
	}
}
