package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alt-coder/agentflow-go/graph"
	"github.com/alt-coder/agentflow-go/llm"
	"github.com/alt-coder/agentflow-go/registry"
)

// Node names of the orchestration graph
const (
	nodeIntentDetection         = "intent_detection"
	nodeParameterExtraction     = "parameter_extraction"
	nodeHandleMissingParameters = "handle_missing_parameters"
	nodeWorkflowInvocation      = "workflow_invocation"
	nodeHandleMetaQuery         = "handle_meta_query"
	nodeHandleUnknown           = "handle_unknown"
	nodeResponseFormatting      = "response_formatting"
)

// Orchestrator answers user queries by dispatching them to workflows from a
// registry. The orchestration graph is compiled once at construction; Process
// runs it once per query and is safe for concurrent use.
type Orchestrator struct {
	registry *registry.Registry
	provider llm.LLMProvider
	logger   *slog.Logger
	graph    *graph.CompiledGraph[State]
}

// Config carries optional orchestrator settings
type Config struct {
	// Logger receives per-query processing logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// New builds an orchestrator over the given registry and LLM provider
func New(reg *registry.Registry, provider llm.LLMProvider, config *Config) (*Orchestrator, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if provider == nil {
		return nil, fmt.Errorf("llm provider cannot be nil")
	}

	logger := slog.Default()
	if config != nil && config.Logger != nil {
		logger = config.Logger
	}

	o := &Orchestrator{
		registry: reg,
		provider: provider,
		logger:   logger,
	}

	builder := graph.NewBuilder[State]()
	builder.
		AddNode(nodeIntentDetection, o.detectIntent).
		AddNode(nodeParameterExtraction, o.extractParameters).
		AddNode(nodeHandleMissingParameters, o.handleMissingParameters).
		AddNode(nodeWorkflowInvocation, o.invokeWorkflow).
		AddNode(nodeHandleMetaQuery, o.handleMetaQuery).
		AddNode(nodeHandleUnknown, o.handleUnknown).
		AddNode(nodeResponseFormatting, o.formatResponse).
		SetEntryPoint(nodeIntentDetection).
		AddConditionalEdges(nodeIntentDetection, routeAfterIntent, map[string]string{
			nodeHandleMetaQuery:     nodeHandleMetaQuery,
			nodeHandleUnknown:       nodeHandleUnknown,
			nodeParameterExtraction: nodeParameterExtraction,
		}).
		AddConditionalEdges(nodeParameterExtraction, routeAfterExtraction, map[string]string{
			nodeHandleMissingParameters: nodeHandleMissingParameters,
			nodeWorkflowInvocation:      nodeWorkflowInvocation,
		}).
		AddEdge(nodeHandleMissingParameters, nodeResponseFormatting).
		AddEdge(nodeWorkflowInvocation, nodeResponseFormatting).
		AddEdge(nodeHandleMetaQuery, nodeResponseFormatting).
		AddEdge(nodeHandleUnknown, nodeResponseFormatting).
		AddEdge(nodeResponseFormatting, graph.End)

	compiled, err := builder.Compile()
	if err != nil {
		return nil, fmt.Errorf("orchestration graph: %w", err)
	}
	o.graph = compiled

	return o, nil
}

// Process handles one user query end to end and returns the terminal state
// with FinalResponse populated
func (o *Orchestrator) Process(ctx context.Context, userQuery string) (State, error) {
	runID := uuid.NewString()
	o.logger.Info("processing query", "run_id", runID, "query", userQuery)

	initial := State{
		UserQuery:           userQuery,
		ExtractedParameters: map[string]any{},
		MissingParameters:   []MissingParameter{},
	}

	final, err := o.graph.Invoke(ctx, initial)
	if err != nil {
		o.logger.Error("query processing failed", "run_id", runID, "error", err)
		return State{}, err
	}

	o.logger.Info("query processed",
		"run_id", runID,
		"intent", final.DetectedIntent,
		"workflow_type", final.WorkflowResult.WorkflowType,
		"success", final.WorkflowResult.Success)
	return final, nil
}

// routeAfterIntent sends meta and unknown intents straight to their
// handlers; anything else is a registered workflow name
func routeAfterIntent(s State) string {
	switch s.DetectedIntent {
	case IntentMetaQuery:
		return nodeHandleMetaQuery
	case IntentUnknown:
		return nodeHandleUnknown
	default:
		return nodeParameterExtraction
	}
}

// routeAfterExtraction short-circuits to the follow-up question when any
// required parameter is still missing
func routeAfterExtraction(s State) string {
	if len(s.MissingParameters) > 0 {
		return nodeHandleMissingParameters
	}
	return nodeWorkflowInvocation
}
