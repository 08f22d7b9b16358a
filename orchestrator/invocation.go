package orchestrator

import (
	"context"

	"github.com/alt-coder/agentflow-go/graph"
)

// invokeWorkflow runs the matched workflow's compiled graph to completion
// and normalizes its terminal state into an envelope. The call blocks until
// the sub-graph reaches its own end, however many loop iterations that
// takes. A sub-graph failure becomes a failure envelope here instead of
// aborting the orchestration run; this is the only node that converts
// errors.
func (o *Orchestrator) invokeWorkflow(ctx context.Context, s State) (graph.Patch[State], error) {
	entry, ok := o.registry.Get(s.DetectedIntent)
	if !ok {
		return statePatch{WorkflowResult: &Envelope{
			Success:      false,
			Output:       "",
			WorkflowType: s.DetectedIntent,
			Error:        "Unknown workflow: " + s.DetectedIntent,
		}}, nil
	}

	initial := entry.InitialState(s.ExtractedParameters, s.UserQuery)
	o.logger.Info("invoking workflow", "workflow", s.DetectedIntent)

	result, err := entry.Graph.Invoke(ctx, initial)
	if err != nil {
		o.logger.Error("workflow failed", "workflow", s.DetectedIntent, "error", err)
		return statePatch{WorkflowResult: &Envelope{
			Success:      false,
			Output:       "",
			WorkflowType: s.DetectedIntent,
			Error:        err.Error(),
		}}, nil
	}

	output, ok := result["output"]
	if !ok {
		output = ""
	}

	return statePatch{WorkflowResult: &Envelope{
		Success:      true,
		Output:       output,
		WorkflowType: s.DetectedIntent,
		Metadata: Meta{
			Iterations:     intFromState(result, "iteration_count", "iterations"),
			ArtifactsCount: sliceLen(result, "artifacts"),
			MessagesCount:  sliceLen(result, "messages"),
		},
	}}, nil
}

// intFromState probes keys in order and returns the first integer found.
// Workflows name their loop counter differently, so normalization probes
// rather than assumes. Defaults to 1 when no key matches.
func intFromState(state map[string]any, keys ...string) int {
	for _, key := range keys {
		switch v := state[key].(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 1
}

// sliceLen returns the element count of a slice-valued state field,
// whatever its element type
func sliceLen(state map[string]any, key string) int {
	switch v := state[key].(type) {
	case []any:
		return len(v)
	case []string:
		return len(v)
	case []map[string]any:
		return len(v)
	default:
		return 0
	}
}
