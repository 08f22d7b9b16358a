package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alt-coder/agentflow-go/graph"
)

// workflowDescriptions maps workflow types to the prose used in the reply
// header
var workflowDescriptions = map[string]string{
	"simple":     "simple single-agent workflow",
	"supervisor": "multi-agent supervisor workflow",
	"iterative":  "iterative refinement workflow",
	"jil_parser": "JIL dependency parser workflow",
}

// formatResponse renders the envelope into the final reply. Meta and
// parameter-request envelopes pass their output through verbatim; failures
// render a single error line; everything else gets a header, the run
// counters worth mentioning, and the result body.
func (o *Orchestrator) formatResponse(ctx context.Context, s State) (graph.Patch[State], error) {
	result := s.WorkflowResult
	if result == nil {
		return nil, fmt.Errorf("response formatting: no workflow result in state")
	}

	switch result.WorkflowType {
	case WorkflowTypeMeta, WorkflowTypeParameterRequest:
		return statePatch{FinalResponse: strp(outputText(result.Output))}, nil
	}

	if !result.Success {
		message := result.Error
		if message == "" {
			message = "Unknown error"
		}
		return statePatch{FinalResponse: strp("Error: Unable to process query. " + message)}, nil
	}

	description, ok := workflowDescriptions[result.WorkflowType]
	if !ok {
		description = "workflow"
	}

	parts := []string{fmt.Sprintf("Query processed using %s.", description), ""}

	if result.Metadata.Iterations > 1 {
		parts = append(parts, fmt.Sprintf("Completed %d iterations.", result.Metadata.Iterations))
	}
	if result.Metadata.ArtifactsCount > 0 {
		parts = append(parts, fmt.Sprintf("Created %d artifacts.", result.Metadata.ArtifactsCount))
	}
	if result.Metadata.MessagesCount > 0 {
		parts = append(parts, fmt.Sprintf("Exchanged %d messages between agents.", result.Metadata.MessagesCount))
	}
	if parts[len(parts)-1] != "" {
		parts = append(parts, "")
	}

	parts = append(parts, "Result:")

	if output, ok := result.Output.(map[string]any); ok && result.WorkflowType == "jil_parser" {
		parts = append(parts, formatJILResult(output)...)
	} else {
		parts = append(parts, outputText(result.Output))
	}

	return statePatch{FinalResponse: strp(strings.Join(parts, "\n"))}, nil
}

// formatJILResult renders a dependency report with upstream and downstream
// job lists. A map without the expected result key falls back to JSON.
func formatJILResult(output map[string]any) []string {
	result, ok := output["result"].(map[string]any)
	if !ok {
		return []string{indentedJSON(output)}
	}

	parts := []string{
		fmt.Sprintf("\nTarget Job: %s", stringOrDefault(result, "target_job", "Unknown")),
		fmt.Sprintf("Total Dependencies Found: %d", intOrZero(result, "dependency_count")),
	}

	upstream := dependencyMaps(result["upstream_jobs"])
	if len(upstream) > 0 {
		parts = append(parts, fmt.Sprintf("\nUpstream Jobs (%d):", len(upstream)))
		for _, dep := range upstream {
			parts = append(parts, fmt.Sprintf("  - %s (%s)",
				stringOrDefault(dep, "job", "Unknown"), stringOrDefault(dep, "relation", "unknown")))
		}
	}

	downstream := dependencyMaps(result["downstream_jobs"])
	if len(downstream) > 0 {
		parts = append(parts, fmt.Sprintf("\nDownstream Jobs (%d):", len(downstream)))
		for _, dep := range downstream {
			parts = append(parts, fmt.Sprintf("  - %s (%s)",
				stringOrDefault(dep, "job", "Unknown"), stringOrDefault(dep, "relation", "unknown")))
		}
	}

	parts = append(parts, fmt.Sprintf("\nFiles Analyzed: %s", strings.Join(stringValues(result["files_analyzed"]), ", ")))
	return parts
}

// outputText coerces a workflow output into display text. Strings pass
// through untouched; maps and slices render as indented JSON.
func outputText(output any) string {
	switch v := output.(type) {
	case string:
		return v
	case map[string]any, []any:
		return indentedJSON(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func indentedJSON(value any) string {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}

func stringOrDefault(m map[string]any, key, fallback string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func intOrZero(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// dependencyMaps normalizes a dependency list field into maps, accepting
// both the encoder's shape and the JSON-decoded shape
func dependencyMaps(value any) []map[string]any {
	switch v := value.(type) {
	case []map[string]any:
		return v
	case []any:
		deps := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				deps = append(deps, m)
			}
		}
		return deps
	}
	return nil
}

// stringValues normalizes a string list field, accepting both []string and
// the JSON-decoded []any shape
func stringValues(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
