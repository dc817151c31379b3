package orchestrator

import (
	"fmt"
	"strings"
)

// BuildPrompt renders the natural-language instruction sent to the agent
// named by inv.
func BuildPrompt(inv Invocation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Agent triggered by: %s\n\n", inv.Trigger)

	switch inv.Agent {
	case AgentMemoryStore:
		fmt.Fprintf(&b, "Store this important information in memory:\n\nContent: %s\n\n", contextString(inv, "content"))
		b.WriteString("This was automatically detected as containing decisions, solutions, or important insights that should be preserved for future reference.\n\n")
		b.WriteString("Please store this with appropriate tags and metadata.\n")
	case AgentMemoryContext:
		fmt.Fprintf(&b, "Gather comprehensive context for this task:\n\nTask: %s\n\n", contextString(inv, "task_description"))
		b.WriteString("Please decompose this task, search for related memories, and provide relevant context that would help with successful completion.\n")
	case AgentDebugContext:
		fmt.Fprintf(&b, "Provide debugging context for this issue:\n\nError/Issue: %s\n\n", contextString(inv, "error_content"))
		b.WriteString("Please search for similar problems, solutions, and debugging approaches from past experiences.\n")
	case AgentTestContext:
		fmt.Fprintf(&b, "Provide testing context for this request:\n\nTesting Request: %s\n\n", contextString(inv, "test_request"))
		b.WriteString("Please analyze the target, find testing patterns, and provide comprehensive context for test creation.\n")
	case AgentMemoryRecall:
		fmt.Fprintf(&b, "Retrieve relevant memories for this query:\n\nQuery: %s\n\n", contextString(inv, "query"))
		b.WriteString("Please search for similar situations, solutions, and relevant historical context.\n")
	default:
		fmt.Fprintf(&b, "Context: %v\n\n", inv.Context)
		b.WriteString("Please execute your specialized function based on this context.\n")
	}
	return b.String()
}

func contextString(inv Invocation, key string) string {
	if v, ok := inv.Context[key].(string); ok {
		return v
	}
	return ""
}
