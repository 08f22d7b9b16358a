package graph

import "context"

// End is the terminal edge target. Routing to End finishes the run.
const End = "__end__"

// NodeFunc is a named unit of computation over the graph state. It returns a
// patch describing the fields it changed; a nil patch leaves the state as is.
// Node functions may perform arbitrary I/O; the engine only sequences them.
type NodeFunc[State any] func(ctx context.Context, state State) (Patch[State], error)

// RouteFunc picks the outgoing edge label for a conditional edge. It is
// called with the state produced after the owning node's patch was applied.
type RouteFunc[State any] func(state State) string

// Patch is a partial state update. Apply merges only the fields the patch
// carries into the running state, last write wins per field. A zero patch
// must apply as a no-op.
type Patch[State any] interface {
	Apply(state *State)
}
