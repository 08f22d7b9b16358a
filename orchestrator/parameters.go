package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alt-coder/agentflow-go/graph"
	"github.com/alt-coder/agentflow-go/llm"
	"github.com/alt-coder/agentflow-go/registry"
	"github.com/alt-coder/agentflow-go/structured"
)

// missingValue is the sentinel the extraction prompt asks the model to
// return for parameters absent from the query
const missingValue = "MISSING"

const extractionPrompt = `Extract workflow parameters from the user query.

Workflow: %s
Required Parameters:
%s

User Query: "%s"

Extract the parameters from the query. For each parameter, return the value if found, or "MISSING" if not found.
Return as JSON with parameter names as keys.

Example response:
{
  "file_path": "/path/to/file.jil",
  "current_job": "BATCH_JOB",
  "max_iterations": 3
}

If a parameter is not mentioned in the query, use "MISSING" as the value.`

// extractParameters fills ExtractedParameters and MissingParameters from the
// matched workflow's declared inputs. An unparseable model reply degrades to
// treating every parameter as missing rather than guessing values.
func (o *Orchestrator) extractParameters(ctx context.Context, s State) (graph.Patch[State], error) {
	entry, ok := o.registry.Get(s.DetectedIntent)
	if !ok || len(entry.Metadata.RequiredInputs) == 0 {
		return statePatch{
			ExtractedParameters: map[string]any{},
			MissingParameters:   []MissingParameter{},
		}, nil
	}
	meta := entry.Metadata

	lines := make([]string, 0, len(meta.RequiredInputs))
	for _, param := range meta.RequiredInputs {
		line := fmt.Sprintf("- %s (%s): %s", param.Name, param.Type, param.Description)
		if param.Example != "" {
			line += " Example: " + param.Example
		}
		lines = append(lines, line)
	}

	prompt := fmt.Sprintf(extractionPrompt, meta.Name, strings.Join(lines, "\n"), s.UserQuery)
	reply, err := o.provider.CallLLM(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		return nil, fmt.Errorf("parameter extraction: %w", err)
	}

	extracted := parseExtractedParameters(reply.Content)

	params := map[string]any{}
	missing := []MissingParameter{}
	for _, param := range meta.RequiredInputs {
		value := extracted[param.Name]
		if isMissingValue(value) {
			switch {
			case param.Required && param.Default == nil:
				missing = append(missing, MissingParameter{
					Name:   param.Name,
					Prompt: missingPromptFor(param),
					Type:   param.Type,
				})
			case param.Default != nil:
				params[param.Name] = param.Default
			}
			continue
		}
		params[param.Name] = value
	}

	o.logger.Debug("parameters extracted",
		"workflow", meta.Name, "found", len(params), "missing", len(missing))
	return statePatch{ExtractedParameters: params, MissingParameters: missing}, nil
}

// parseExtractedParameters decodes the model's JSON reply, tolerating fenced
// code blocks. Any parse failure yields an empty map.
func parseExtractedParameters(content string) map[string]any {
	payload := structured.ExtractJSONFromResponse(content)
	if payload == "" {
		return map[string]any{}
	}

	var extracted map[string]any
	if err := json.Unmarshal([]byte(payload), &extracted); err != nil {
		return map[string]any{}
	}
	return extracted
}

// isMissingValue reports whether an extracted value counts as absent: no
// value, an empty string, or the MISSING sentinel
func isMissingValue(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return s == "" || s == missingValue
	}
	return false
}

// missingPromptFor builds the follow-up question for one missing parameter
func missingPromptFor(param registry.InputParameter) string {
	prompt := param.Prompt
	if prompt == "" {
		prompt = "Please provide " + param.Description
	}
	if param.Example != "" {
		prompt += "\n\nExample: " + param.Example
	}
	return prompt
}

// handleMissingParameters turns the missing list into a numbered follow-up
// request. The envelope is not successful, but it is a question for the
// user rather than an error; formatting passes its output through verbatim.
func (o *Orchestrator) handleMissingParameters(ctx context.Context, s State) (graph.Patch[State], error) {
	parts := []string{
		fmt.Sprintf("I need some additional information to run the %s workflow:\n", s.DetectedIntent),
	}
	for i, param := range s.MissingParameters {
		parts = append(parts, fmt.Sprintf("%d. %s", i+1, param.Prompt))
	}
	parts = append(parts, "\nPlease provide this information and I'll process your request.")

	return statePatch{WorkflowResult: &Envelope{
		Success:      false,
		Output:       strings.Join(parts, "\n"),
		WorkflowType: WorkflowTypeParameterRequest,
	}}, nil
}
