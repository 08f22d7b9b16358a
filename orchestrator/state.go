// Package orchestrator routes natural-language queries to registered
// workflows. A fixed seven-node graph classifies the query, extracts the
// matched workflow's parameters, runs its compiled graph, and formats the
// result into a reply.
package orchestrator

// Intent values the detection node may settle on besides a workflow name
const (
	// IntentMetaQuery marks a query about the assistant's own capabilities
	IntentMetaQuery = "meta_query"
	// IntentUnknown marks a query no registered workflow can handle
	IntentUnknown = "unknown"
)

// WorkflowType values for envelopes the orchestrator produces itself
const (
	WorkflowTypeMeta             = "meta"
	WorkflowTypeUnknown          = "unknown"
	WorkflowTypeParameterRequest = "parameter_request"
)

// State is the orchestrator's graph state for one query
type State struct {
	UserQuery           string
	DetectedIntent      string
	ExtractedParameters map[string]any
	MissingParameters   []MissingParameter
	WorkflowResult      *Envelope
	FinalResponse       string
}

// MissingParameter is one required input the query did not supply
type MissingParameter struct {
	Name   string
	Prompt string
	Type   string
}

// Envelope is the normalized result of handling a query, whatever path
// produced it. Every terminal state carries exactly one.
type Envelope struct {
	Success      bool
	Output       any
	WorkflowType string
	Error        string
	Metadata     Meta
}

// Meta carries run counters normalized out of a workflow's terminal state
type Meta struct {
	Iterations     int
	ArtifactsCount int
	MessagesCount  int
}

// statePatch is the partial update orchestrator nodes return. Nil fields
// leave the state untouched.
type statePatch struct {
	DetectedIntent      *string
	ExtractedParameters map[string]any
	MissingParameters   []MissingParameter
	WorkflowResult      *Envelope
	FinalResponse       *string
}

func (p statePatch) Apply(s *State) {
	if p.DetectedIntent != nil {
		s.DetectedIntent = *p.DetectedIntent
	}
	if p.ExtractedParameters != nil {
		s.ExtractedParameters = p.ExtractedParameters
	}
	if p.MissingParameters != nil {
		s.MissingParameters = p.MissingParameters
	}
	if p.WorkflowResult != nil {
		s.WorkflowResult = p.WorkflowResult
	}
	if p.FinalResponse != nil {
		s.FinalResponse = *p.FinalResponse
	}
}

func strp(s string) *string { return &s }
