package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/alt-coder/agentflow-go/graph"
	"github.com/alt-coder/agentflow-go/llm"
)

// metaQueryTriggers are matched against the lowercased query before any
// model call. A hit answers from the registry without an inference round-trip.
var metaQueryTriggers = []string{
	"what can you do",
	"capabilities",
	"help me understand",
	"what are you capable of",
	"list workflows",
	"show me workflows",
	"what workflows",
}

const intentPrompt = `You are a data engineering assistant with these capabilities:

%s

User query: "%s"

Based on the capabilities above, which workflow should handle this query?
Return ONLY the workflow name (e.g., "jil_parser", "simple", "supervisor", "iterative").
If no workflow matches, return "unknown".

Your decision:`

// detectIntent classifies the query as a meta-query, a registered workflow
// name, or unknown. A model answer that names no registered workflow is
// coerced to unknown rather than trusted.
func (o *Orchestrator) detectIntent(ctx context.Context, s State) (graph.Patch[State], error) {
	lowered := strings.ToLower(s.UserQuery)
	for _, trigger := range metaQueryTriggers {
		if strings.Contains(lowered, trigger) {
			o.logger.Debug("meta-query trigger matched", "trigger", trigger)
			return statePatch{DetectedIntent: strp(IntentMetaQuery)}, nil
		}
	}

	prompt := fmt.Sprintf(intentPrompt, o.registry.CapabilitiesContext(), s.UserQuery)
	reply, err := o.provider.CallLLM(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		return nil, fmt.Errorf("intent detection: %w", err)
	}

	intent := strings.ToLower(strings.TrimSpace(reply.Content))
	if _, ok := o.registry.Get(intent); !ok {
		o.logger.Debug("intent not registered, treating as unknown", "intent", intent)
		intent = IntentUnknown
	}
	return statePatch{DetectedIntent: &intent}, nil
}

// handleMetaQuery answers capability questions straight from the registry
func (o *Orchestrator) handleMetaQuery(ctx context.Context, s State) (graph.Patch[State], error) {
	return statePatch{WorkflowResult: &Envelope{
		Success:      true,
		Output:       o.registry.CapabilitiesForUser() + "\n\nWhat would you like help with?",
		WorkflowType: WorkflowTypeMeta,
	}}, nil
}

// handleUnknown produces the fallback reply for queries no workflow claims
func (o *Orchestrator) handleUnknown(ctx context.Context, s State) (graph.Patch[State], error) {
	return statePatch{WorkflowResult: &Envelope{
		Success: false,
		Output: "I'm not sure which workflow would be best for that. " +
			"Would you like to see what I can do? Just ask 'What can you do?'",
		WorkflowType: WorkflowTypeUnknown,
	}}, nil
}
