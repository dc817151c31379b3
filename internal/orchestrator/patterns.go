package orchestrator

import "regexp"

// triggerRule maps a family of phrases onto the agent it invokes. Rules are
// evaluated in declaration order and each fires at most once per text.
type triggerRule struct {
	agent    AgentType
	trigger  Trigger
	priority int
	patterns []*regexp.Regexp
	// context builds the invocation payload from the original text.
	context func(text string, metadata map[string]any) map[string]any
}

func (r triggerRule) matches(text string) bool {
	for _, p := range r.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func ci(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)(?:` + e + `)`)
	}
	return out
}

// Patterns are plain substrings, so "fix" also matches "prefix".
var triggerRules = []triggerRule{
	{
		agent:    AgentMemoryStore,
		trigger:  TriggerDecisionMade,
		priority: 1,
		patterns: ci(
			`decided|chosen|selected|going with|will use|approach is`,
			`solution|fix|resolved|implemented|working`,
			`architecture|design|pattern|strategy`,
			`learned|discovered|found that|realized`,
			`successfully|completed|finished|deployed`,
			`best practice|recommendation|should`,
			`key insight|important|critical|essential`,
		),
		context: func(text string, metadata map[string]any) map[string]any {
			return map[string]any{
				"content":    text,
				"metadata":   metadata,
				"auto_store": true,
				"reason":     "Decision or solution detected",
			}
		},
	},
	{
		agent:    AgentDebugContext,
		trigger:  TriggerErrorEncountered,
		priority: 1,
		patterns: ci(
			`error|exception|failed?|crash|bug`,
			`not working|broken|issue|problem`,
			`debug|troubleshoot|investigate`,
			`timeout|connection|memory leak`,
			`stacktrace|traceback|log shows`,
		),
		context: func(text string, metadata map[string]any) map[string]any {
			return map[string]any{"error_content": text, "metadata": metadata}
		},
	},
	{
		agent:    AgentMemoryContext,
		trigger:  TriggerTaskStarted,
		priority: 1,
		patterns: ci(
			`implement|create|build|develop|add`,
			// Adopting a tool or library starts work that needs context.
			// Whole words only, so "because" and "users" stay quiet.
			`\b(?:use|using)\b`,
			`feature|function|component|module|system`,
			`need to|want to|going to|planning to`,
			`how do I|how can I|what's the best way`,
			`working on|starting|beginning`,
		),
		context: func(text string, metadata map[string]any) map[string]any {
			return map[string]any{"task_description": text, "metadata": metadata}
		},
	},
	{
		agent:    AgentTestContext,
		trigger:  TriggerTestingNeeded,
		priority: 2,
		patterns: ci(
			`test|testing|spec|verify|validate`,
			`unit test|integration test|e2e test`,
			`check|assert|expect|should`,
			`coverage|test case|test suite`,
			`mock|stub|fixture`,
		),
		context: func(text string, metadata map[string]any) map[string]any {
			return map[string]any{"test_request": text, "metadata": metadata}
		},
	},
	{
		agent:    AgentMemoryRecall,
		trigger:  TriggerContextNeeded,
		priority: 2,
		patterns: ci(
			`similar|before|previous|history`,
			`have we|did we|how did we`,
			`last time|previously|earlier`,
			`experience|pattern|lesson learned`,
			`best practice|what worked|what didn't work`,
		),
		context: func(text string, metadata map[string]any) map[string]any {
			return map[string]any{"query": text, "metadata": metadata}
		},
	},
}
