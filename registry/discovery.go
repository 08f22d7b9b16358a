package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// manifestName is the per-directory manifest file discovery looks for
const manifestName = "workflow.yaml"

// manifest is the on-disk declaration that binds a workflow directory to a
// catalog factory
type manifest struct {
	Workflow manifestWorkflow `yaml:"workflow"`
}

type manifestWorkflow struct {
	Factory string `yaml:"factory"`
	Enabled *bool  `yaml:"enabled"` // nil means enabled
}

// Discover scans root for workflow manifests and replaces the registry
// contents with the workflows they declare. Each immediate subdirectory of
// root may carry a workflow.yaml manifest; directories prefixed with "_" or
// "." are skipped. Flat workflow_*.yaml files directly under root are picked
// up as a legacy layout. A broken candidate is logged and skipped so it
// cannot block the rest; an unreadable root leaves the registry empty and is
// not an error.
func (r *Registry) Discover(root string) error {
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		r.logger.Warn("workflows directory not accessible, registry will be empty",
			"root", root, "error", err)
		r.replace(nil, nil)
		return nil
	}

	entries := make(map[string]*Entry)
	var order []string

	for _, dirEntry := range dirEntries {
		if !dirEntry.IsDir() {
			continue
		}
		name := dirEntry.Name()
		if strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(root, name, manifestName)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		r.registerManifest(path, entries, &order)
	}

	// Legacy layout: manifests sitting directly under root.
	legacy, err := filepath.Glob(filepath.Join(root, "workflow_*.yaml"))
	if err == nil {
		for _, path := range legacy {
			r.registerManifest(path, entries, &order)
		}
	}

	r.replace(entries, order)
	r.logger.Info("workflow discovery complete", "root", root, "workflows", len(order))
	return nil
}

// registerManifest loads one manifest and registers the workflow it
// declares. Failures are logged at warn and skipped.
func (r *Registry) registerManifest(path string, entries map[string]*Entry, order *[]string) {
	data, err := os.ReadFile(path)
	if err != nil {
		r.logger.Warn("skipping workflow manifest", "path", path, "error", err)
		return
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		r.logger.Warn("skipping workflow manifest", "path", path, "error", err)
		return
	}

	if m.Workflow.Factory == "" {
		r.logger.Warn("skipping workflow manifest", "path", path,
			"error", "manifest declares no workflow.factory")
		return
	}
	if m.Workflow.Enabled != nil && !*m.Workflow.Enabled {
		r.logger.Debug("workflow disabled", "path", path, "factory", m.Workflow.Factory)
		return
	}

	factory, ok := r.catalog[m.Workflow.Factory]
	if !ok {
		r.logger.Warn("skipping workflow manifest", "path", path,
			"error", fmt.Sprintf("factory %q not in catalog", m.Workflow.Factory))
		return
	}

	w, err := factory()
	if err != nil {
		r.logger.Warn("skipping workflow", "path", path,
			"factory", m.Workflow.Factory, "error", err)
		return
	}

	entry, err := newEntry(w)
	if err != nil {
		r.logger.Warn("skipping workflow", "path", path,
			"factory", m.Workflow.Factory, "error", err)
		return
	}

	name := entry.Metadata.Name
	if _, exists := entries[name]; !exists {
		*order = append(*order, name)
	}
	entries[name] = entry
	r.logger.Info("registered workflow", "name", name, "source", path)
}

// replace swaps the registry contents in one step so concurrent readers
// never observe a half-built view
func (r *Registry) replace(entries map[string]*Entry, order []string) {
	if entries == nil {
		entries = make(map[string]*Entry)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = entries
	r.order = order
}
