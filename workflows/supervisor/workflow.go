// Package supervisor runs a multi-agent coordination loop: a supervisor
// node routes between two specialist workers until it decides the task is
// done, then a finalize node compiles the workers' messages.
package supervisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/alt-coder/agentflow-go/graph"
	"github.com/alt-coder/agentflow-go/llm"
	"github.com/alt-coder/agentflow-go/registry"
)

// Decisions the supervisor may reach. Anything else coerces to finish.
const (
	decisionWorker1 = "worker1"
	decisionWorker2 = "worker2"
	decisionFinish  = "finish"
)

const supervisorPrompt = `You are a supervisor coordinating two specialist agents:
- worker1: Research specialist (gathers information)
- worker2: Analysis specialist (analyzes and synthesizes)

%s

Decide which agent should act next, or if the task is complete.
Respond with ONLY one of: worker1, worker2, or FINISH

Your decision:`

const worker1Prompt = `You are Worker 1, a research specialist.

Task: %s

Your role: Gather key information, facts, and context about this task.
Provide a concise research summary.`

const worker2Prompt = `You are Worker 2, an analysis specialist.

Task: %s

Previous research:
%s

Your role: Analyze the research and provide insights, conclusions, or recommendations.
Provide a concise analysis.`

// State is the graph state for one supervisor run
type State struct {
	Input     string
	Messages  []string
	NextAgent string
	Output    string
}

type statePatch struct {
	Messages  []string
	NextAgent *string
	Output    *string
}

func (p statePatch) Apply(s *State) {
	if p.Messages != nil {
		s.Messages = p.Messages
	}
	if p.NextAgent != nil {
		s.NextAgent = *p.NextAgent
	}
	if p.Output != nil {
		s.Output = *p.Output
	}
}

// Workflow coordinates research and analysis specialists
type Workflow struct {
	provider llm.LLMProvider
}

// New creates the supervisor workflow around an LLM provider
func New(provider llm.LLMProvider) *Workflow {
	return &Workflow{provider: provider}
}

// Metadata returns the registry description of this workflow
func (w *Workflow) Metadata() *registry.Metadata {
	return &registry.Metadata{
		Name:        "supervisor",
		Description: "Coordinates multiple specialist agents for complex research and analysis tasks",
		Capabilities: []string{
			"Multi-agent coordination",
			"Research information gathering",
			"Analysis and synthesis",
			"Complex task decomposition",
			"Specialist agent orchestration",
		},
		ExampleQueries: []string{
			"Research and analyze the benefits of multi-agent systems",
			"Investigate cloud computing and provide detailed analysis",
			"Study data engineering best practices and synthesize findings",
		},
		Category: "analysis",
		Version:  "1.0.0",
	}
}

// CompiledGraph builds the supervisor loop behind the map boundary
func (w *Workflow) CompiledGraph() (registry.Invoker, error) {
	builder := graph.NewBuilder[State]()
	builder.
		AddNode("supervisor", w.superviseNode).
		AddNode("worker1", w.researchNode).
		AddNode("worker2", w.analyzeNode).
		AddNode("finalize", w.finalizeNode).
		SetEntryPoint("supervisor").
		AddConditionalEdges("supervisor", routeSupervisor, map[string]string{
			decisionWorker1: "worker1",
			decisionWorker2: "worker2",
			decisionFinish:  "finalize",
		}).
		AddEdge("worker1", "supervisor").
		AddEdge("worker2", "supervisor").
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

// InitialState ignores extracted parameters; the query is the task
func (w *Workflow) InitialState(params map[string]any, query string) map[string]any {
	return map[string]any{
		"input":      query,
		"messages":   []string{},
		"next_agent": "",
		"output":     "",
	}
}

// superviseNode decides who acts next and records the routing decision in
// the message history
func (w *Workflow) superviseNode(ctx context.Context, s State) (graph.Patch[State], error) {
	var progress string
	if len(s.Messages) == 0 {
		progress = "Initial task: " + s.Input
	} else {
		progress = fmt.Sprintf("Task: %s\n\nProgress so far:\n%s", s.Input, strings.Join(s.Messages, "\n"))
	}

	reply, err := w.provider.CallLLM(ctx, []llm.Message{{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf(supervisorPrompt, progress),
	}})
	if err != nil {
		return nil, err
	}

	decision := strings.ToLower(strings.TrimSpace(reply.Content))
	switch decision {
	case decisionWorker1, decisionWorker2, decisionFinish:
	default:
		decision = decisionFinish
	}

	return statePatch{
		NextAgent: &decision,
		Messages:  append(s.Messages, "Supervisor: Routing to "+decision),
	}, nil
}

// researchNode is worker1: it gathers information about the task
func (w *Workflow) researchNode(ctx context.Context, s State) (graph.Patch[State], error) {
	reply, err := w.provider.CallLLM(ctx, []llm.Message{{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf(worker1Prompt, s.Input),
	}})
	if err != nil {
		return nil, err
	}

	return statePatch{
		Messages: append(s.Messages, "Worker1 (Research): "+reply.Content),
	}, nil
}

// analyzeNode is worker2: it synthesizes conclusions from worker1's research
func (w *Workflow) analyzeNode(ctx context.Context, s State) (graph.Patch[State], error) {
	var research []string
	for _, msg := range s.Messages {
		if strings.HasPrefix(msg, "Worker1") {
			research = append(research, msg)
		}
	}

	reply, err := w.provider.CallLLM(ctx, []llm.Message{{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf(worker2Prompt, s.Input, strings.Join(research, "\n")),
	}})
	if err != nil {
		return nil, err
	}

	return statePatch{
		Messages: append(s.Messages, "Worker2 (Analysis): "+reply.Content),
	}, nil
}

// finalizeNode compiles the workers' messages into the final output
func (w *Workflow) finalizeNode(ctx context.Context, s State) (graph.Patch[State], error) {
	var workerOutput []string
	for _, msg := range s.Messages {
		if strings.HasPrefix(msg, "Worker1") || strings.HasPrefix(msg, "Worker2") {
			workerOutput = append(workerOutput, msg)
		}
	}

	output := strings.Join(workerOutput, "\n\n")
	if output == "" {
		output = "Task completed with no specific output."
	}
	return statePatch{Output: &output}, nil
}

func routeSupervisor(s State) string {
	switch s.NextAgent {
	case decisionWorker1:
		return decisionWorker1
	case decisionWorker2:
		return decisionWorker2
	default:
		return decisionFinish
	}
}

func decodeState(m map[string]any) (State, error) {
	return State{
		Input:     stringField(m, "input"),
		Messages:  stringsField(m, "messages"),
		NextAgent: stringField(m, "next_agent"),
		Output:    stringField(m, "output"),
	}, nil
}

func encodeState(s State) map[string]any {
	return map[string]any{
		"input":      s.Input,
		"messages":   s.Messages,
		"next_agent": s.NextAgent,
		"output":     s.Output,
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func stringsField(m map[string]any, key string) []string {
	switch v := m[key].(type) {
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
