// Package simple is the smallest possible workflow: one agent node, one
// LLM call, one answer. It exists to prove the invoke path end to end.
package simple

import (
	"context"
	"fmt"

	"github.com/alt-coder/agentflow-go/graph"
	"github.com/alt-coder/agentflow-go/llm"
	"github.com/alt-coder/agentflow-go/registry"
)

const agentPrompt = `You are a helpful assistant. Answer the following question concisely:

Question: %s

Provide a clear, direct answer.`

// State is the graph state for one simple-agent run
type State struct {
	Input  string
	Output string
}

type statePatch struct {
	Output *string
}

func (p statePatch) Apply(s *State) {
	if p.Output != nil {
		s.Output = *p.Output
	}
}

// Workflow answers basic queries with a single LLM call
type Workflow struct {
	provider llm.LLMProvider
}

// New creates the simple workflow around an LLM provider
func New(provider llm.LLMProvider) *Workflow {
	return &Workflow{provider: provider}
}

// Metadata returns the registry description of this workflow
func (w *Workflow) Metadata() *registry.Metadata {
	return &registry.Metadata{
		Name:        "simple",
		Description: "Handles basic queries with a single LLM call",
		Capabilities: []string{
			"Answer general questions",
			"Provide explanations",
			"Simple information retrieval",
		},
		ExampleQueries: []string{
			"What is LangGraph?",
			"Explain data engineering",
			"What are the benefits of Snowflake?",
		},
		Category: "general",
		Version:  "1.0.0",
	}
}

// CompiledGraph builds the single-node graph behind the map boundary
func (w *Workflow) CompiledGraph() (registry.Invoker, error) {
	builder := graph.NewBuilder[State]()
	builder.
		AddNode("agent", w.agentNode).
		SetEntryPoint("agent").
		AddEdge("agent", graph.End)

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

// InitialState ignores extracted parameters; the query is the input
func (w *Workflow) InitialState(params map[string]any, query string) map[string]any {
	return map[string]any{
		"input":  query,
		"output": "",
	}
}

func (w *Workflow) agentNode(ctx context.Context, s State) (graph.Patch[State], error) {
	reply, err := w.provider.CallLLM(ctx, []llm.Message{{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf(agentPrompt, s.Input),
	}})
	if err != nil {
		return nil, err
	}
	return statePatch{Output: &reply.Content}, nil
}

func decodeState(m map[string]any) (State, error) {
	return State{
		Input:  stringField(m, "input"),
		Output: stringField(m, "output"),
	}, nil
}

func encodeState(s State) map[string]any {
	return map[string]any{
		"input":  s.Input,
		"output": s.Output,
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
