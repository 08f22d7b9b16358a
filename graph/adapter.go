package graph

import (
	"context"
	"fmt"
)

// MapAdapter exposes a typed compiled graph through the untyped map state
// used at registry boundaries. Decode builds the typed initial state from the
// caller's map; Encode flattens the terminal state back.
type MapAdapter[State any] struct {
	Graph  *CompiledGraph[State]
	Decode func(initial map[string]any) (State, error)
	Encode func(final State) map[string]any
}

// Invoke decodes the initial map, runs the graph, and encodes the terminal
// state. A decode failure surfaces before any node runs.
func (a *MapAdapter[State]) Invoke(ctx context.Context, initial map[string]any) (map[string]any, error) {
	state, err := a.Decode(initial)
	if err != nil {
		return nil, fmt.Errorf("decode initial state: %w", err)
	}
	final, err := a.Graph.Invoke(ctx, state)
	if err != nil {
		return nil, err
	}
	return a.Encode(final), nil
}
