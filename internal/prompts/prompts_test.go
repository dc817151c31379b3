package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Zate/remote-agent-memory/internal/orchestrator"
)

func promptReq(args map[string]string) mcp.GetPromptRequest {
	req := mcp.GetPromptRequest{}
	req.Params.Arguments = args
	return req
}

func messageText(t *testing.T, m mcp.PromptMessage) string {
	t.Helper()
	tc, ok := m.Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", m.Content)
	}
	return tc.Text
}

func TestTaskPrompt(t *testing.T) {
	p := NewTaskPrompt()
	if p.Definition().Name != "agentmem-task" {
		t.Errorf("name = %q", p.Definition().Name)
	}

	res, err := p.Handle(context.Background(), promptReq(map[string]string{
		"task":    "add rate limiting",
		"project": "gateway",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(res.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(res.Messages))
	}
	text := messageText(t, res.Messages[0])
	for _, want := range []string{"mem_retrieve", "query='add rate limiting'", "project='gateway'"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in %q", want, text)
		}
	}
}

func TestTaskPrompt_RequiresTask(t *testing.T) {
	if _, err := NewTaskPrompt().Handle(context.Background(), promptReq(nil)); err == nil {
		t.Error("expected error without task")
	}
}

func TestAgentsPrompt(t *testing.T) {
	p := NewAgentsPrompt(orchestrator.New(nil))

	res, err := p.Handle(context.Background(), promptReq(map[string]string{
		"text": "We decided to use PostgreSQL instead of MongoDB for ACID transactions",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(res.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(res.Messages))
	}
	first := messageText(t, res.Messages[0])
	if !strings.HasPrefix(first, "Agent triggered by: decision_made") {
		t.Errorf("first message = %q", first)
	}
	if !strings.Contains(messageText(t, res.Messages[1]), "Gather comprehensive context") {
		t.Errorf("second message = %q", messageText(t, res.Messages[1]))
	}
}

func TestAgentsPrompt_NothingTriggered(t *testing.T) {
	p := NewAgentsPrompt(orchestrator.New(nil))
	res, err := p.Handle(context.Background(), promptReq(map[string]string{"text": "This is just a random comment"}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Description != "No memory agents triggered" {
		t.Errorf("description = %q", res.Description)
	}
}
