package registry

// InputParameter describes one input a workflow needs before it can run
type InputParameter struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Type        string `json:"type" yaml:"type"` // "string", "number", "boolean"
	Required    bool   `json:"required" yaml:"required"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty"`
	Example     string `json:"example,omitempty" yaml:"example,omitempty"`
	Prompt      string `json:"prompt,omitempty" yaml:"prompt,omitempty"`
}

// Metadata describes a workflow to the registry and the orchestrator.
// Produced once by a workflow factory; treated as immutable afterwards.
type Metadata struct {
	Name           string           `json:"name" yaml:"name"`
	Description    string           `json:"description" yaml:"description"`
	Capabilities   []string         `json:"capabilities" yaml:"capabilities"`
	ExampleQueries []string         `json:"example_queries" yaml:"example_queries"`
	Category       string           `json:"category" yaml:"category"`
	Version        string           `json:"version,omitempty" yaml:"version,omitempty"`
	Author         string           `json:"author,omitempty" yaml:"author,omitempty"`
	RequiredInputs []InputParameter `json:"required_inputs,omitempty" yaml:"required_inputs,omitempty"`
}
