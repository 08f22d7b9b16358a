// Package iterative refines an analysis over multiple passes, storing one
// artifact per iteration. It exercises the engine's loop mechanics: a node
// that routes back to itself until a counter reaches its budget.
package iterative

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alt-coder/agentflow-go/graph"
	"github.com/alt-coder/agentflow-go/llm"
	"github.com/alt-coder/agentflow-go/registry"
)

const firstPassPrompt = `You are working on an iterative analysis task.

Task: %s

This is iteration 1 of %d.
Provide an initial analysis or response. Keep it concise.`

const refinePrompt = `You are working on an iterative analysis task.

Task: %s

This is iteration %d of %d.

Previous result:
%s

Refine, improve, or expand upon the previous result. Add new insights or details.`

// State is the graph state for one iterative run
type State struct {
	Input         string
	Iterations    int
	MaxIterations int
	CurrentResult string
	Artifacts     []Artifact
	Output        string
}

// Artifact is the stored result of one iteration
type Artifact struct {
	Iteration int
	Content   string
	Timestamp string
	Input     string
}

type statePatch struct {
	Iterations    *int
	CurrentResult *string
	Artifacts     []Artifact
	Output        *string
}

func (p statePatch) Apply(s *State) {
	if p.Iterations != nil {
		s.Iterations = *p.Iterations
	}
	if p.CurrentResult != nil {
		s.CurrentResult = *p.CurrentResult
	}
	if p.Artifacts != nil {
		s.Artifacts = p.Artifacts
	}
	if p.Output != nil {
		s.Output = *p.Output
	}
}

// Workflow refines a result over several LLM passes
type Workflow struct {
	provider llm.LLMProvider
}

// New creates the iterative workflow around an LLM provider
func New(provider llm.LLMProvider) *Workflow {
	return &Workflow{provider: provider}
}

// Metadata returns the registry description of this workflow
func (w *Workflow) Metadata() *registry.Metadata {
	return &registry.Metadata{
		Name:        "iterative",
		Description: "Iteratively refines analysis through multiple passes",
		Capabilities: []string{
			"Iterative result refinement",
			"Multi-pass analysis",
			"Artifact tracking across iterations",
		},
		ExampleQueries: []string{
			"Analyze the concept of iterative refinement in AI systems",
			"Iteratively refine an analysis of data pipeline reliability",
			"Build up a detailed comparison of batch and streaming processing",
		},
		Category: "analysis",
		Version:  "1.0.0",
	}
}

// CompiledGraph builds the refinement loop behind the map boundary
func (w *Workflow) CompiledGraph() (registry.Invoker, error) {
	builder := graph.NewBuilder[State]()
	builder.
		AddNode("process", w.processNode).
		AddNode("finalize", w.finalizeNode).
		SetEntryPoint("process").
		AddConditionalEdges("process", shouldContinue, map[string]string{
			"continue": "process",
			"finalize": "finalize",
		}).
		AddEdge("finalize", graph.End)

	g, err := builder.Compile()
	if err != nil {
		return nil, err
	}

	return &graph.MapAdapter[State]{
		Graph:  g,
		Decode: decodeState,
		Encode: encodeState,
	}, nil
}

// InitialState ignores extracted parameters; the query is the task and the
// iteration budget is fixed
func (w *Workflow) InitialState(params map[string]any, query string) map[string]any {
	return map[string]any{
		"input":          query,
		"iterations":     0,
		"max_iterations": 3,
		"current_result": "",
		"artifacts":      []map[string]any{},
		"output":         "",
	}
}

// processNode runs one refinement pass and stores its artifact
func (w *Workflow) processNode(ctx context.Context, s State) (graph.Patch[State], error) {
	iteration := s.Iterations + 1

	var prompt string
	if iteration == 1 {
		prompt = fmt.Sprintf(firstPassPrompt, s.Input, s.MaxIterations)
	} else {
		prompt = fmt.Sprintf(refinePrompt, s.Input, iteration, s.MaxIterations, s.CurrentResult)
	}

	reply, err := w.provider.CallLLM(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		return nil, err
	}

	artifact := Artifact{
		Iteration: iteration,
		Content:   reply.Content,
		Timestamp: time.Now().Format(time.RFC3339),
		Input:     s.Input,
	}

	return statePatch{
		Iterations:    &iteration,
		CurrentResult: &reply.Content,
		Artifacts:     append(s.Artifacts, artifact),
	}, nil
}

// finalizeNode compiles every iteration's artifact into the final output
func (w *Workflow) finalizeNode(ctx context.Context, s State) (graph.Patch[State], error) {
	parts := []string{fmt.Sprintf("Completed %d iterations:\n", s.Iterations)}
	for _, artifact := range s.Artifacts {
		parts = append(parts, fmt.Sprintf("\n--- Iteration %d ---", artifact.Iteration), artifact.Content)
	}

	output := strings.Join(parts, "\n")
	return statePatch{Output: &output}, nil
}

func shouldContinue(s State) string {
	if s.Iterations >= s.MaxIterations {
		return "finalize"
	}
	return "continue"
}

func decodeState(m map[string]any) (State, error) {
	return State{
		Input:         stringField(m, "input"),
		Iterations:    intField(m, "iterations", 0),
		MaxIterations: intField(m, "max_iterations", 3),
		CurrentResult: stringField(m, "current_result"),
		Artifacts:     decodeArtifacts(m["artifacts"]),
		Output:        stringField(m, "output"),
	}, nil
}

func encodeState(s State) map[string]any {
	artifacts := make([]map[string]any, 0, len(s.Artifacts))
	for _, a := range s.Artifacts {
		artifacts = append(artifacts, map[string]any{
			"iteration": a.Iteration,
			"content":   a.Content,
			"timestamp": a.Timestamp,
			"input":     a.Input,
		})
	}

	return map[string]any{
		"input":          s.Input,
		"iterations":     s.Iterations,
		"max_iterations": s.MaxIterations,
		"current_result": s.CurrentResult,
		"artifacts":      artifacts,
		"output":         s.Output,
	}
}

func decodeArtifacts(value any) []Artifact {
	var maps []map[string]any
	switch v := value.(type) {
	case []map[string]any:
		maps = v
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				maps = append(maps, m)
			}
		}
	}

	artifacts := make([]Artifact, 0, len(maps))
	for _, m := range maps {
		artifacts = append(artifacts, Artifact{
			Iteration: intField(m, "iteration", 0),
			Content:   stringField(m, "content"),
			Timestamp: stringField(m, "timestamp"),
			Input:     stringField(m, "input"),
		})
	}
	return artifacts
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string, fallback int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}
