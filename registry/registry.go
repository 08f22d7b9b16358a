package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Invoker runs a compiled workflow graph against an untyped state map
type Invoker interface {
	Invoke(ctx context.Context, state map[string]any) (map[string]any, error)
}

// Workflow is the plugin contract every registrable workflow implements
type Workflow interface {
	// Metadata returns the workflow's registry description
	Metadata() *Metadata

	// CompiledGraph compiles the workflow graph and returns it behind the
	// untyped Invoker boundary
	CompiledGraph() (Invoker, error)

	// InitialState builds the workflow's starting state from extracted
	// parameters and the raw user query
	InitialState(params map[string]any, query string) map[string]any
}

// Factory constructs a workflow instance for a catalog key
type Factory func() (Workflow, error)

// Catalog maps manifest factory keys to workflow constructors
type Catalog map[string]Factory

// Entry is one registered workflow: metadata plus its compiled graph
type Entry struct {
	Metadata *Metadata
	Graph    Invoker

	workflow Workflow
}

// InitialState builds the starting state for this entry's workflow
func (e *Entry) InitialState(params map[string]any, query string) map[string]any {
	return e.workflow.InitialState(params, query)
}

// Registry holds the registered workflows. Mutated during registration and
// discovery, read-only from the orchestrator's point of view.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string

	catalog Catalog
	logger  *slog.Logger
}

// NewRegistry creates an empty registry backed by the given catalog
func NewRegistry(catalog Catalog, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entries: make(map[string]*Entry),
		catalog: catalog,
		logger:  logger,
	}
}

// Register adds a workflow under its metadata name. The metadata and the
// compiled graph are captured once here. A name collision replaces the
// previous entry but keeps the name's original registration position.
func (r *Registry) Register(w Workflow) error {
	entry, err := newEntry(w)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[entry.Metadata.Name]; !exists {
		r.order = append(r.order, entry.Metadata.Name)
	}
	r.entries[entry.Metadata.Name] = entry

	return nil
}

// newEntry validates a workflow and captures its metadata and compiled graph
func newEntry(w Workflow) (*Entry, error) {
	if w == nil {
		return nil, fmt.Errorf("workflow cannot be nil")
	}

	meta := w.Metadata()
	if meta == nil || meta.Name == "" {
		return nil, fmt.Errorf("workflow metadata must carry a name")
	}

	graph, err := w.CompiledGraph()
	if err != nil {
		return nil, fmt.Errorf("workflow %q: %w", meta.Name, err)
	}

	return &Entry{
		Metadata: meta,
		Graph:    graph,
		workflow: w,
	}, nil
}

// Get returns the entry registered under name
func (r *Registry) Get(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	return entry, ok
}

// List returns workflow names in registration order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// CapabilitiesContext renders every workflow's metadata as a block of text
// for the intent detection prompt
func (r *Registry) CapabilitiesContext() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	blocks := make([]string, 0, len(r.order))
	for _, name := range r.order {
		meta := r.entries[name].Metadata

		var b strings.Builder
		b.WriteString("\nWorkflow: " + meta.Name + "\n")
		b.WriteString("Description: " + meta.Description + "\n")
		b.WriteString("Category: " + meta.Category + "\n")
		b.WriteString("Capabilities:\n")
		for _, cap := range meta.Capabilities {
			b.WriteString("  - " + cap + "\n")
		}
		b.WriteString("Example Queries:\n")
		for _, q := range meta.ExampleQueries {
			b.WriteString("  - \"" + q + "\"\n")
		}
		blocks = append(blocks, b.String())
	}

	return strings.Join(blocks, "\n")
}

// CapabilitiesForUser renders a user-facing summary of what the registered
// workflows can do
func (r *Registry) CapabilitiesForUser() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := []string{"I can help you with the following:"}
	for _, name := range r.order {
		meta := r.entries[name].Metadata

		lines = append(lines, "")
		lines = append(lines, "• "+meta.Description)
		lines = append(lines, "  Category: "+meta.Category)
		if len(meta.ExampleQueries) > 0 {
			lines = append(lines, "  Example: \""+meta.ExampleQueries[0]+"\"")
		}
	}

	return strings.Join(lines, "\n")
}
