// Package workflows assembles the built-in workflow catalog shared by the
// example binaries and manifest discovery.
package workflows

import (
	"fmt"

	"github.com/alt-coder/agentflow-go/llm"
	"github.com/alt-coder/agentflow-go/registry"
	"github.com/alt-coder/agentflow-go/tools"
	"github.com/alt-coder/agentflow-go/workflows/iterative"
	"github.com/alt-coder/agentflow-go/workflows/jilparser"
	"github.com/alt-coder/agentflow-go/workflows/simple"
	"github.com/alt-coder/agentflow-go/workflows/supervisor"
)

// builtinOrder fixes the registration order of the built-in workflows
var builtinOrder = []string{"simple", "supervisor", "iterative", "jil_parser"}

// DefaultCatalog maps manifest factory keys to the built-in workflow
// constructors. The tool manager is passed through to workflows that call
// tools and may be nil.
func DefaultCatalog(provider llm.LLMProvider, manager *tools.ToolManager) registry.Catalog {
	return registry.Catalog{
		"simple": func() (registry.Workflow, error) {
			return simple.New(provider), nil
		},
		"supervisor": func() (registry.Workflow, error) {
			return supervisor.New(provider), nil
		},
		"iterative": func() (registry.Workflow, error) {
			return iterative.New(provider), nil
		},
		"jil_parser": func() (registry.Workflow, error) {
			return jilparser.New(provider, manager)
		},
	}
}

// RegisterAll registers every built-in workflow directly, bypassing manifest
// discovery. Used when no workflow directory is configured.
func RegisterAll(reg *registry.Registry, provider llm.LLMProvider, manager *tools.ToolManager) error {
	catalog := DefaultCatalog(provider, manager)
	for _, key := range builtinOrder {
		w, err := catalog[key]()
		if err != nil {
			return fmt.Errorf("building workflow %q: %w", key, err)
		}
		if err := reg.Register(w); err != nil {
			return fmt.Errorf("registering workflow %q: %w", key, err)
		}
	}
	return nil
}
