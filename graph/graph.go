package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// conditionalEdge pairs a routing function with its label map.
type conditionalEdge[State any] struct {
	route RouteFunc[State]
	paths map[string]string
}

// Builder assembles a graph definition node by node. Methods chain;
// construction problems are collected and reported by Compile.
type Builder[State any] struct {
	nodes map[string]NodeFunc[State]
	order []string
	edges map[string]string
	conds map[string]conditionalEdge[State]
	entry string
	errs  []string
}

// NewBuilder creates an empty builder for graphs over the given state type.
func NewBuilder[State any]() *Builder[State] {
	return &Builder[State]{
		nodes: make(map[string]NodeFunc[State]),
		edges: make(map[string]string),
		conds: make(map[string]conditionalEdge[State]),
	}
}

// AddNode registers a named node. Names must be unique within the graph.
func (b *Builder[State]) AddNode(name string, fn NodeFunc[State]) *Builder[State] {
	if name == "" || name == End {
		b.errs = append(b.errs, fmt.Sprintf("invalid node name %q", name))
		return b
	}
	if fn == nil {
		b.errs = append(b.errs, fmt.Sprintf("node %q has a nil function", name))
		return b
	}
	if _, exists := b.nodes[name]; exists {
		b.errs = append(b.errs, fmt.Sprintf("duplicate node %q", name))
		return b
	}
	b.nodes[name] = fn
	b.order = append(b.order, name)
	return b
}

// AddEdge connects from to to unconditionally. A node has either one
// unconditional edge or one conditional edge, never both.
func (b *Builder[State]) AddEdge(from, to string) *Builder[State] {
	if _, dup := b.edges[from]; dup {
		b.errs = append(b.errs, fmt.Sprintf("node %q already has an outgoing edge", from))
		return b
	}
	if _, dup := b.conds[from]; dup {
		b.errs = append(b.errs, fmt.Sprintf("node %q already has a conditional edge", from))
		return b
	}
	b.edges[from] = to
	return b
}

// AddConditionalEdges attaches a routing function to from. At runtime the
// label it returns selects the next node from paths; targets may be node
// names or End.
func (b *Builder[State]) AddConditionalEdges(from string, route RouteFunc[State], paths map[string]string) *Builder[State] {
	if route == nil {
		b.errs = append(b.errs, fmt.Sprintf("node %q has a nil routing function", from))
		return b
	}
	if len(paths) == 0 {
		b.errs = append(b.errs, fmt.Sprintf("node %q has an empty path map", from))
		return b
	}
	if _, dup := b.edges[from]; dup {
		b.errs = append(b.errs, fmt.Sprintf("node %q already has an outgoing edge", from))
		return b
	}
	if _, dup := b.conds[from]; dup {
		b.errs = append(b.errs, fmt.Sprintf("node %q already has a conditional edge", from))
		return b
	}
	copied := make(map[string]string, len(paths))
	for label, target := range paths {
		copied[label] = target
	}
	b.conds[from] = conditionalEdge[State]{route: route, paths: copied}
	return b
}

// SetEntryPoint marks the node execution starts from.
func (b *Builder[State]) SetEntryPoint(name string) *Builder[State] {
	b.entry = name
	return b
}

// Compile validates the definition and freezes it into an executable graph.
// All problems are reported in one error. The compiled graph is independent
// of the builder; further builder calls do not affect it.
func (b *Builder[State]) Compile() (*CompiledGraph[State], error) {
	problems := append([]string(nil), b.errs...)

	if b.entry == "" {
		problems = append(problems, "entry point not set")
	} else if _, ok := b.nodes[b.entry]; !ok {
		problems = append(problems, fmt.Sprintf("entry point %q is not a node", b.entry))
	}

	for _, name := range b.order {
		_, hasEdge := b.edges[name]
		_, hasCond := b.conds[name]
		if !hasEdge && !hasCond {
			problems = append(problems, fmt.Sprintf("node %q has no outgoing edge", name))
		}
	}
	for from, to := range b.edges {
		if _, ok := b.nodes[from]; !ok {
			problems = append(problems, fmt.Sprintf("edge from unknown node %q", from))
		}
		if to != End {
			if _, ok := b.nodes[to]; !ok {
				problems = append(problems, fmt.Sprintf("edge from %q targets unknown node %q", from, to))
			}
		}
	}
	for from, cond := range b.conds {
		if _, ok := b.nodes[from]; !ok {
			problems = append(problems, fmt.Sprintf("conditional edge from unknown node %q", from))
		}
		for _, label := range sortedLabels(cond.paths) {
			target := cond.paths[label]
			if target == End {
				continue
			}
			if _, ok := b.nodes[target]; !ok {
				problems = append(problems, fmt.Sprintf("conditional edge from %q maps label %q to unknown node %q", from, label, target))
			}
		}
	}

	if len(problems) == 0 {
		for _, name := range unreachableFrom(b.entry, b.order, b.edges, b.conds) {
			problems = append(problems, fmt.Sprintf("node %q is unreachable from the entry point", name))
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, fmt.Errorf("graph compile: %s", strings.Join(problems, "; "))
	}

	g := &CompiledGraph[State]{
		nodes: make(map[string]NodeFunc[State], len(b.nodes)),
		edges: make(map[string]string, len(b.edges)),
		conds: make(map[string]conditionalEdge[State], len(b.conds)),
		entry: b.entry,
	}
	for name, fn := range b.nodes {
		g.nodes[name] = fn
	}
	for from, to := range b.edges {
		g.edges[from] = to
	}
	for from, cond := range b.conds {
		paths := make(map[string]string, len(cond.paths))
		for label, target := range cond.paths {
			paths[label] = target
		}
		g.conds[from] = conditionalEdge[State]{route: cond.route, paths: paths}
	}
	return g, nil
}

// unreachableFrom walks the edge maps from entry and reports, in insertion
// order, every node the walk never visits.
func unreachableFrom[State any](entry string, order []string, edges map[string]string, conds map[string]conditionalEdge[State]) []string {
	visited := map[string]bool{entry: true}
	queue := []string{entry}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		var targets []string
		if to, ok := edges[current]; ok {
			targets = append(targets, to)
		}
		if cond, ok := conds[current]; ok {
			targets = append(targets, sortedTargets(cond.paths)...)
		}
		for _, t := range targets {
			if t == End || visited[t] {
				continue
			}
			visited[t] = true
			queue = append(queue, t)
		}
	}

	var missed []string
	for _, name := range order {
		if !visited[name] {
			missed = append(missed, name)
		}
	}
	return missed
}

func sortedLabels(paths map[string]string) []string {
	labels := make([]string, 0, len(paths))
	for label := range paths {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

func sortedTargets(paths map[string]string) []string {
	targets := make([]string, 0, len(paths))
	for _, label := range sortedLabels(paths) {
		targets = append(targets, paths[label])
	}
	return targets
}

// CompiledGraph is a frozen, executable graph. It is safe for concurrent use
// as long as the node functions are; each Invoke call carries its own state.
type CompiledGraph[State any] struct {
	nodes map[string]NodeFunc[State]
	edges map[string]string
	conds map[string]conditionalEdge[State]
	entry string
}

// Invoke runs the graph to completion from the entry node and returns the
// terminal state. Execution is synchronous and single-threaded: each node
// runs on the calling goroutine, its patch is merged into the state, and the
// next node is chosen by the outgoing edge, looping as often as the routing
// functions dictate. There is no iteration bound; termination is the
// responsibility of the graph's routing functions. A node error aborts the
// run and the partial state is dropped.
func (g *CompiledGraph[State]) Invoke(ctx context.Context, initial State) (State, error) {
	var zero State
	state := initial
	current := g.entry
	for current != End {
		fn := g.nodes[current]
		patch, err := fn(ctx, state)
		if err != nil {
			return zero, fmt.Errorf("node %q: %w", current, err)
		}
		if patch != nil {
			patch.Apply(&state)
		}
		next, err := g.nextNode(current, state)
		if err != nil {
			return zero, err
		}
		current = next
	}
	return state, nil
}

// nextNode resolves the node to run after current, consulting the routing
// function with the post-update state for conditional edges.
func (g *CompiledGraph[State]) nextNode(current string, state State) (string, error) {
	if to, ok := g.edges[current]; ok {
		return to, nil
	}
	cond := g.conds[current]
	label := cond.route(state)
	target, ok := cond.paths[label]
	if !ok {
		return "", fmt.Errorf("node %q: routing function returned unknown label %q (known: %s)",
			current, label, strings.Join(sortedLabels(cond.paths), ", "))
	}
	return target, nil
}
