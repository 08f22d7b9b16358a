// Package llm defines the provider-neutral chat types shared by every LLM
// backend, plus a mock provider for offline runs and tests.
package llm

import "context"

// Roles a Message can carry.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn of a conversation in provider-neutral form. Provider
// clients translate it to and from their native wire types.
type Message struct {
	Role        string
	Content     string
	Media       []byte // optional binary attachment, e.g. an image
	MimeType    string // mime type of Media when set
	ToolCalls   []ToolCalls
	ToolResults []ToolResults
}

// ToolCalls is a single tool invocation requested by the model.
type ToolCalls struct {
	Id       string
	ToolName string
	ToolArgs map[string]any
}

// ToolResults carries the outcome of one tool call back to the model.
type ToolResults struct {
	Id       string // id of the originating call
	Content  string
	Media    []byte
	MetaData struct {
		ContentType string
	}
	IsError bool
	Error   string
}

// LLMProvider is the contract every backend implements.
type LLMProvider interface {
	// CallLLM sends the conversation and returns the next assistant message.
	CallLLM(ctx context.Context, messages []Message) (Message, error)

	// GetName identifies the provider, e.g. "gemini" or "openai".
	GetName() string

	// SetConfig applies provider-specific settings at runtime.
	SetConfig(config map[string]any) error
}
