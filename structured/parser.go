// Package structured turns free-form LLM replies into typed Go values.
// A Parser wraps an LLM provider; the generic Parse functions send a
// prompt, then look for YAML or JSON in the reply and unmarshal it into
// the caller's type. Replies rarely arrive clean, so extraction copes
// with code fences, leading chatter, and bare key: value runs.
package structured

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alt-coder/agentflow-go/llm"
	"github.com/alt-coder/agentflow-go/prompt"
	yaml "gopkg.in/yaml.v3"
)

// Config bounds LLM-backed parsing calls
type Config struct {
	MaxRetries int
	Timeout    time.Duration
}

// DefaultConfig returns the limits used when callers have no opinion
func DefaultConfig() *Config {
	return &Config{
		MaxRetries: 3,
		Timeout:    30 * time.Second,
	}
}

// ValidateConfig rejects limits that would disable parsing entirely
func ValidateConfig(config *Config) error {
	if config == nil {
		return errors.New("config cannot be nil")
	}
	if config.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	if config.Timeout <= 0 {
		return errors.New("timeout must be greater than zero")
	}
	return nil
}

// Parser issues LLM calls whose replies are decoded into caller types
type Parser struct {
	provider llm.LLMProvider
	config   *Config
}

// NewParser builds a parser around an LLM provider
func NewParser(provider llm.LLMProvider, config *Config) (*Parser, error) {
	if provider == nil {
		return nil, errors.New("llm provider cannot be nil")
	}
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	return &Parser{provider: provider, config: config}, nil
}

// ParseResult carries a decoded value or the reason decoding failed
type ParseResult[T any] struct {
	Data  *T
	Error error
}

// ParseWithPrompt sends a prompt to the LLM and decodes the reply into
// T. The parser comes first because generic functions cannot be methods.
func ParseWithPrompt[T any](p *Parser, ctx context.Context, customPrompt string) (ParseResult[T], error) {
	callCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	reply, err := p.provider.CallLLM(callCtx, []llm.Message{
		{Role: llm.RoleUser, Content: customPrompt},
	})
	if err != nil {
		return ParseResult[T]{Error: fmt.Errorf("LLM call failed: %w", err)}, err
	}
	return ParseResponse[T](reply.Content)
}

// ParseWithStructuredPrompt wraps inputData and optional context blocks
// with format instructions derived from T, then parses the reply
func ParseWithStructuredPrompt[T any](p *Parser, ctx context.Context, inputData string, additionalContext ...string) (ParseResult[T], error) {
	var b strings.Builder
	b.WriteString("Analyze the following data and extract the requested information.\n\n")
	b.WriteString("**Input Data:**\n```\n")
	b.WriteString(inputData)
	b.WriteString("\n```\n\n")
	for i, extra := range additionalContext {
		fmt.Fprintf(&b, "**Additional Context %d:**\n%s\n\n", i+1, extra)
	}
	b.WriteString(prompt.GenerateStructuredPrompt[T]())

	return ParseWithPrompt[T](p, ctx, b.String())
}

// ParseResponse decodes reply content into T, trying YAML first and
// JSON second. On failure the same error is set on the result and
// returned.
func ParseResponse[T any](responseContent string) (ParseResult[T], error) {
	var decoded T

	if candidate := ExtractYAMLFromResponse(responseContent); candidate != "" {
		if yaml.Unmarshal([]byte(candidate), &decoded) == nil {
			return ParseResult[T]{Data: &decoded}, nil
		}
	}
	if candidate := ExtractJSONFromResponse(responseContent); candidate != "" {
		if json.Unmarshal([]byte(candidate), &decoded) == nil {
			return ParseResult[T]{Data: &decoded}, nil
		}
	}

	err := errors.New("failed to parse response as YAML or JSON")
	return ParseResult[T]{Error: err}, err
}

// ExtractYAMLFromResponse pulls the YAML payload out of a reply: a
// ```yaml fence, then any terminated fence, then a loose run of
// key: value lines
func ExtractYAMLFromResponse(response string) string {
	if block, ok := fencedBlock(response, "yaml"); ok {
		return block
	}
	if block, ok := fencedBlock(response, ""); ok {
		return block
	}
	return looseYAML(response)
}

// ExtractJSONFromResponse pulls the JSON payload out of a reply: a
// ```json fence, then any terminated fence holding an object or array,
// then a loose brace-balanced object
func ExtractJSONFromResponse(response string) string {
	if block, ok := fencedBlock(response, "json"); ok {
		return block
	}
	if block, ok := fencedBlock(response, ""); ok {
		if strings.HasPrefix(block, "{") || strings.HasPrefix(block, "[") {
			return block
		}
	}
	return looseJSON(response)
}

// fencedBlock extracts the first code fence tagged with lang, or the
// first fence of any tag when lang is empty. Unterminated fences do
// not count.
func fencedBlock(response, lang string) (string, bool) {
	open := "```" + lang
	start := strings.Index(response, open)
	if start == -1 {
		return "", false
	}

	rest := response[start+len(open):]
	if lang == "" {
		// drop the info string on the opening line
		if nl := strings.Index(rest, "\n"); nl != -1 {
			rest = rest[nl+1:]
		}
	}

	end := strings.Index(rest, "```")
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// looseYAML collects the first run of lines that look like a YAML
// mapping. URLs do not start a run; a bare line without colon, dash,
// or comment marker ends it. Lines are kept verbatim so indentation
// survives.
func looseYAML(response string) string {
	var lines []string
	collecting := false

	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)

		if !collecting {
			if !strings.Contains(trimmed, ":") || strings.HasPrefix(trimmed, "http") {
				continue
			}
			collecting = true
		}
		if trimmed != "" && !strings.Contains(trimmed, ":") &&
			!strings.HasPrefix(trimmed, "-") && !strings.HasPrefix(trimmed, "#") {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// looseJSON collects a brace-balanced object starting at the first line
// that opens one. Lines are kept verbatim.
func looseJSON(response string) string {
	var lines []string
	depth := 0
	collecting := false

	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "{") {
			collecting = true
			depth = 0
		}
		if !collecting {
			continue
		}

		lines = append(lines, line)
		depth += strings.Count(trimmed, "{") - strings.Count(trimmed, "}")
		if depth == 0 {
			break
		}
	}
	return strings.Join(lines, "\n")
}
