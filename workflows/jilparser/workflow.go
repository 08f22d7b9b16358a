// Package jilparser analyzes Autosys JIL files for job dependencies. A root
// node reads and structurally parses the JIL file, then an iterative loop
// asks the model for dependencies the structural scan could not see, then a
// finalize node assembles the dependency report.
package jilparser

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/alt-coder/agentflow-go/graph"
	"github.com/alt-coder/agentflow-go/llm"
	"github.com/alt-coder/agentflow-go/prompt"
	"github.com/alt-coder/agentflow-go/registry"
	"github.com/alt-coder/agentflow-go/structured"
	"github.com/alt-coder/agentflow-go/tools"
)

// Dependency classification values
const (
	typeTarget     = "target"
	typeUpstream   = "upstream"
	typeDownstream = "downstream"

	relationSelf      = "self"
	relationCondition = "condition"
	relationBox       = "box"
	relationBoxMember = "box_member"
)

// completionThreshold is the dependency count at which discovery stops early
const completionThreshold = 3

const loopPrompt = `Continue dependency analysis for JIL job.
Current dependencies found: %d
Iteration: %d of %d

Job: %s
Known dependencies:
%s

Find any new upstream or downstream dependencies not yet discovered.
Focus on condition statements and box job memberships.

%s`

// State is the graph state for one dependency analysis
type State struct {
	FilePath       string
	CurrentJob     string
	Dependencies   []Dependency
	VisitedFiles   []string
	IterationCount int
	MaxIterations  int
	Output         map[string]any
}

// Dependency is one edge in the job dependency set
type Dependency struct {
	Job      string `json:"job" yaml:"job" description:"Name of the related job"`
	Type     string `json:"type" yaml:"type" description:"Dependency direction: upstream or downstream"`
	Relation string `json:"relation" yaml:"relation" description:"How the jobs relate: condition, box, or box_member"`
}

// depReport is the structured shape the model is asked to return when it
// suggests dependencies
type depReport struct {
	Dependencies []Dependency `json:"dependencies" yaml:"dependencies" description:"Job dependencies found in the analysis"`
}

type statePatch struct {
	Dependencies   []Dependency
	VisitedFiles   []string
	IterationCount *int
	Output         map[string]any
}

func (p statePatch) Apply(s *State) {
	if p.Dependencies != nil {
		s.Dependencies = p.Dependencies
	}
	if p.VisitedFiles != nil {
		s.VisitedFiles = p.VisitedFiles
	}
	if p.IterationCount != nil {
		s.IterationCount = *p.IterationCount
	}
	if p.Output != nil {
		s.Output = p.Output
	}
}

// Workflow analyzes JIL job dependencies with a structural parse plus
// model-assisted discovery
type Workflow struct {
	provider llm.LLMProvider
	tools    *tools.ToolManager
	analyzer *structured.StructuredNode[depReport]
}

// New creates the jilparser workflow. The tool manager supplies the
// read_file tool and may be nil; without it the analysis runs from the job
// name alone.
func New(provider llm.LLMProvider, manager *tools.ToolManager) (*Workflow, error) {
	analyzer, err := structured.NewStructuredNode[depReport](provider, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("jil analyzer: %w", err)
	}
	return &Workflow{
		provider: provider,
		tools:    manager,
		analyzer: analyzer,
	}, nil
}

// Metadata returns the registry description of this workflow
func (w *Workflow) Metadata() *registry.Metadata {
	return &registry.Metadata{
		Name:        "jil_parser",
		Description: "Analyzes Autosys JIL files to identify upstream and downstream job dependencies",
		Capabilities: []string{
			"Parse JIL file structure",
			"Identify upstream job dependencies (conditions)",
			"Identify downstream job dependencies (box jobs)",
			"Trace multi-level dependency chains",
			"Map job relationships",
		},
		ExampleQueries: []string{
			"Parse JIL dependencies for BATCH_PROCESSING job",
			"What are the upstream jobs for DATA_LOAD?",
			"Analyze the JIL file and show me all dependencies",
			"Identify downstream jobs for ETL_MASTER",
		},
		Category: "migration",
		Version:  "1.0.0",
		Author:   "Data Engineering Team",
		RequiredInputs: []registry.InputParameter{
			{
				Name:        "file_path",
				Description: "Path to the JIL file to analyze",
				Type:        "file_path",
				Required:    true,
				Example:     "/path/to/autosys/jobs.jil",
				Prompt:      "What is the path to the JIL file you want me to analyze?",
			},
			{
				Name:        "current_job",
				Description: "The name of the specific job to analyze for dependencies",
				Type:        "string",
				Required:    true,
				Example:     "BATCH_PROCESSING_JOB",
				Prompt:      "Which job name should I analyze for dependencies?",
			},
			{
				Name:        "max_iterations",
				Description: "Maximum number of iterations for dependency discovery",
				Type:        "integer",
				Required:    false,
				Default:     3,
				Example:     "5",
				Prompt:      "How many iterations should I perform? (default: 3)",
			},
		},
	}
}

// CompiledGraph builds the analysis loop behind the map boundary
func (w *Workflow) CompiledGraph() (registry.Invoker, error) {
	builder := graph.NewBuilder[State]()
	builder.
		AddNode("root_agent", w.rootNode).
		AddNode("loop_agent", w.loopNode).
		AddNode("finalize", w.finalizeNode).
		SetEntryPoint("root_agent").
		AddEdge("root_agent", "loop_agent").
		AddConditionalEdges("loop_agent", checkCompletion, map[string]string{
			"continue": "loop_agent",
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

// InitialState maps extracted parameters onto the analysis state
func (w *Workflow) InitialState(params map[string]any, query string) map[string]any {
	return map[string]any{
		"file_path":       stringParam(params, "file_path", "/path/to/file.jil"),
		"current_job":     stringParam(params, "current_job", "UNKNOWN_JOB"),
		"dependencies":    []map[string]any{},
		"visited_files":   []string{},
		"iteration_count": 0,
		"max_iterations":  intParam(params, "max_iterations", 3),
		"output":          map[string]any{},
	}
}

// rootNode seeds the analysis: read the JIL file, derive the target job's
// immediate dependencies from its structure, and ask the model for anything
// the structural scan missed
func (w *Workflow) rootNode(ctx context.Context, s State) (graph.Patch[State], error) {
	deps := []Dependency{{Job: s.CurrentJob, Type: typeTarget, Relation: relationSelf}}

	content := w.readJILFile(ctx, s.FilePath)
	if content != "" {
		deps = appendNew(deps, dependenciesFor(parseJobs(content), s.CurrentJob))
	}

	deps = appendNew(deps, w.suggestDependencies(ctx, s, content))

	zero := 0
	return statePatch{
		Dependencies:   deps,
		VisitedFiles:   []string{s.FilePath},
		IterationCount: &zero,
	}, nil
}

// loopNode asks the model for dependencies not yet recorded. The iteration
// guard keeps a stale routing decision from spending another model call
// after the budget is used up.
func (w *Workflow) loopNode(ctx context.Context, s State) (graph.Patch[State], error) {
	if s.IterationCount >= s.MaxIterations {
		return nil, nil
	}

	customPrompt := fmt.Sprintf(loopPrompt,
		len(s.Dependencies),
		s.IterationCount+1, s.MaxIterations,
		s.CurrentJob,
		dependencySummary(s.Dependencies),
		prompt.GenerateStructuredPrompt[depReport]())

	deps := s.Dependencies
	parsed, err := w.analyzer.ParseWithCustomPrompt(ctx, customPrompt)
	if err == nil && parsed.Data != nil {
		deps = appendNew(deps, sanitizeDependencies(parsed.Data.Dependencies))
	}

	next := s.IterationCount + 1
	return statePatch{Dependencies: deps, IterationCount: &next}, nil
}

// finalizeNode assembles the dependency report
func (w *Workflow) finalizeNode(ctx context.Context, s State) (graph.Patch[State], error) {
	upstream := []map[string]any{}
	downstream := []map[string]any{}
	for _, dep := range s.Dependencies {
		switch dep.Type {
		case typeUpstream:
			upstream = append(upstream, dep.asMap())
		case typeDownstream:
			downstream = append(downstream, dep.asMap())
		}
	}

	output := map[string]any{
		"success": true,
		"result": map[string]any{
			"target_job":       s.CurrentJob,
			"dependencies":     dependencyMaps(s.Dependencies),
			"files_analyzed":   s.VisitedFiles,
			"dependency_count": len(s.Dependencies),
			"upstream_jobs":    upstream,
			"downstream_jobs":  downstream,
		},
		"metadata": map[string]any{
			"workflow_name":      "jil_parser",
			"iterations":         s.IterationCount,
			"total_dependencies": len(s.Dependencies),
			"files_analyzed":     len(s.VisitedFiles),
		},
		"artifacts": []any{},
		"errors":    nil,
	}
	return statePatch{Output: output}, nil
}

// checkCompletion ends discovery when the iteration budget is spent or the
// dependency set is already rich enough to report on
func checkCompletion(s State) string {
	if s.IterationCount >= s.MaxIterations {
		return "finalize"
	}
	if len(s.Dependencies) >= completionThreshold {
		return "finalize"
	}
	return "continue"
}

// readJILFile fetches file content through the tool layer. Any failure
// degrades to empty content; the analysis then proceeds from the job name
// alone instead of failing the workflow.
func (w *Workflow) readJILFile(ctx context.Context, path string) string {
	if w.tools == nil || !w.tools.HasTool("read_file") {
		return ""
	}

	result, err := w.tools.ExecuteTool(ctx, llm.ToolCalls{
		Id:       uuid.NewString(),
		ToolName: "read_file",
		ToolArgs: map[string]any{"path": path},
	})
	if err != nil || result.IsError {
		return ""
	}

	var output tools.ReadFileOutput
	if err := json.Unmarshal([]byte(result.Content), &output); err != nil || output.Error != "" {
		return ""
	}
	return output.Content
}

// suggestDependencies asks the model for dependencies of the target job.
// With file content available the model analyzes it directly; without, it
// reasons from the job name alone. Suggestions degrade to none on any
// provider or parse failure.
func (w *Workflow) suggestDependencies(ctx context.Context, s State, content string) []Dependency {
	instruction := fmt.Sprintf(
		`The data is an Autosys JIL file. Identify the immediate upstream dependencies (condition statements) and downstream dependencies (box job memberships) of job %q. Use "upstream" or "downstream" as the type of each dependency.`,
		s.CurrentJob)

	data := content
	if data == "" {
		data = fmt.Sprintf("JIL file: %s (content not available)\nTarget job: %s", s.FilePath, s.CurrentJob)
	}

	parsed, err := w.analyzer.ParseFromText(ctx, data, instruction)
	if err != nil || parsed.Data == nil {
		return nil
	}
	return sanitizeDependencies(parsed.Data.Dependencies)
}

// sanitizeDependencies drops model suggestions without a job name or a
// usable direction and normalizes the rest
func sanitizeDependencies(deps []Dependency) []Dependency {
	var cleaned []Dependency
	for _, dep := range deps {
		dep.Job = strings.TrimSpace(dep.Job)
		dep.Type = strings.ToLower(strings.TrimSpace(dep.Type))
		if dep.Job == "" {
			continue
		}
		if dep.Type != typeUpstream && dep.Type != typeDownstream {
			continue
		}
		if dep.Relation == "" {
			dep.Relation = relationCondition
		}
		cleaned = append(cleaned, dep)
	}
	return cleaned
}

// appendNew adds dependencies not already present, keyed by job and direction
func appendNew(deps []Dependency, found []Dependency) []Dependency {
	for _, dep := range found {
		known := false
		for _, existing := range deps {
			if existing.Job == dep.Job && existing.Type == dep.Type {
				known = true
				break
			}
		}
		if !known {
			deps = append(deps, dep)
		}
	}
	return deps
}

// dependencySummary renders the known dependency set for the loop prompt
func dependencySummary(deps []Dependency) string {
	lines := make([]string, 0, len(deps))
	for _, dep := range deps {
		lines = append(lines, fmt.Sprintf("- %s (%s, %s)", dep.Job, dep.Type, dep.Relation))
	}
	return strings.Join(lines, "\n")
}

func (d Dependency) asMap() map[string]any {
	return map[string]any{
		"job":      d.Job,
		"type":     d.Type,
		"relation": d.Relation,
	}
}

func dependencyMaps(deps []Dependency) []map[string]any {
	out := make([]map[string]any, 0, len(deps))
	for _, dep := range deps {
		out = append(out, dep.asMap())
	}
	return out
}

func decodeState(m map[string]any) (State, error) {
	return State{
		FilePath:       stringParam(m, "file_path", ""),
		CurrentJob:     stringParam(m, "current_job", ""),
		Dependencies:   decodeDependencies(m["dependencies"]),
		VisitedFiles:   stringsField(m, "visited_files"),
		IterationCount: intParam(m, "iteration_count", 0),
		MaxIterations:  intParam(m, "max_iterations", 3),
		Output:         mapField(m, "output"),
	}, nil
}

func encodeState(s State) map[string]any {
	return map[string]any{
		"file_path":       s.FilePath,
		"current_job":     s.CurrentJob,
		"dependencies":    dependencyMaps(s.Dependencies),
		"visited_files":   s.VisitedFiles,
		"iteration_count": s.IterationCount,
		"max_iterations":  s.MaxIterations,
		"output":          s.Output,
	}
}

func decodeDependencies(value any) []Dependency {
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

	var deps []Dependency
	for _, m := range maps {
		deps = append(deps, Dependency{
			Job:      stringParam(m, "job", ""),
			Type:     stringParam(m, "type", ""),
			Relation: stringParam(m, "relation", ""),
		})
	}
	return deps
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

func mapField(m map[string]any, key string) map[string]any {
	value, _ := m[key].(map[string]any)
	return value
}

func stringParam(m map[string]any, key, fallback string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

// intParam reads an integer that may arrive as a Go int, a JSON number, or
// a string the model extracted
func intParam(m map[string]any, key string, fallback int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}
