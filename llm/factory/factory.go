package factory

import (
	"context"
	"fmt"
	"os"

	"github.com/alt-coder/agentflow-go/llm"
	"github.com/alt-coder/agentflow-go/llm/gemini"
	"github.com/alt-coder/agentflow-go/llm/openai"
)

// NewProvider creates the named LLM provider using its environment
// configuration. An empty name falls back to the AGENTFLOW_PROVIDER
// environment variable, then to "gemini".
func NewProvider(ctx context.Context, name string) (llm.LLMProvider, error) {
	if name == "" {
		name = os.Getenv("AGENTFLOW_PROVIDER")
	}
	if name == "" {
		name = "gemini"
	}

	switch name {
	case "gemini":
		return gemini.NewGeminiClientFromEnv(ctx)
	case "openai":
		return openai.NewOpenAIClientFromEnv(ctx)
	case "mock":
		return llm.NewMockProvider("mock"), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q (supported: gemini, mock, openai)", name)
	}
}

// Supported returns the provider names NewProvider accepts
func Supported() []string {
	return []string{"gemini", "mock", "openai"}
}
