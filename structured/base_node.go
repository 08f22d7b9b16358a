package structured

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alt-coder/agentflow-go/llm"
)

// StructuredConfig configures a StructuredNode. It embeds the parser
// limits so node-level options can grow without touching Parser.
type StructuredConfig struct {
	*Config
}

// DefaultBaseConfig mirrors DefaultConfig at the node level
func DefaultBaseConfig() *StructuredConfig {
	return &StructuredConfig{Config: DefaultConfig()}
}

// StructuredNode bundles a parser with a validator for one target type.
// Workflow nodes hold one per struct they extract from LLM output.
type StructuredNode[T any] struct {
	parser    *Parser
	validator ValidatorInterface[T]
	config    *StructuredConfig
}

// NewStructuredNode wires a provider, optional config, and optional
// validator into a node. Nil config means defaults, nil validator
// means accept everything.
func NewStructuredNode[T any](provider llm.LLMProvider, config *StructuredConfig, validator ValidatorInterface[T]) (*StructuredNode[T], error) {
	if config == nil {
		config = DefaultBaseConfig()
	}
	if validator == nil {
		validator = NewNoOpValidator[T]()
	}

	parser, err := NewParser(provider, config.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to create parser: %w", err)
	}

	return &StructuredNode[T]{
		parser:    parser,
		validator: validator,
		config:    config,
	}, nil
}

// ParseFromFile reads a file and extracts a T from its content
func (b *StructuredNode[T]) ParseFromFile(ctx context.Context, filePath string, additionalContext ...string) (ParseResult[T], error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		err = fmt.Errorf("failed to read file %s: %w", filePath, err)
		return ParseResult[T]{Error: err}, err
	}

	content := strings.TrimSpace(string(raw))
	if content == "" {
		err := fmt.Errorf("file %s is empty", filePath)
		return ParseResult[T]{Error: err}, err
	}

	return ParseWithStructuredPrompt[T](b.parser, ctx, content, additionalContext...)
}

// ParseFromText extracts a T from inline text
func (b *StructuredNode[T]) ParseFromText(ctx context.Context, textContent string, additionalContext ...string) (ParseResult[T], error) {
	if strings.TrimSpace(textContent) == "" {
		err := errors.New("text content is empty")
		return ParseResult[T]{Error: err}, err
	}
	return ParseWithStructuredPrompt[T](b.parser, ctx, textContent, additionalContext...)
}

// ParseWithCustomPrompt bypasses prompt generation entirely
func (b *StructuredNode[T]) ParseWithCustomPrompt(ctx context.Context, customPrompt string) (ParseResult[T], error) {
	return ParseWithPrompt[T](b.parser, ctx, customPrompt)
}

// ValidateResult runs the node's validator over a parse result
func (b *StructuredNode[T]) ValidateResult(result ParseResult[T]) error {
	if result.Error != nil {
		return result.Error
	}
	if result.Data == nil {
		return errors.New("parsed data is nil")
	}
	return b.validator.Validate(result.Data)
}

// CreateFallbackResult pairs a zero value with the failure that made it
// necessary, for callers that continue past parse errors
func (b *StructuredNode[T]) CreateFallbackResult(err error) ParseResult[T] {
	var zero T
	return ParseResult[T]{Data: &zero, Error: err}
}
