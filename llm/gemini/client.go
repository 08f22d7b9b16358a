// Package gemini provides an LLM provider backed by Google's Gemini models
// through the google.golang.org/genai SDK.
package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/alt-coder/agentflow-go/llm"
	"google.golang.org/genai"
)

// GeminiClient implements llm.LLMProvider against the Gemini API.
type GeminiClient struct {
	api    *genai.Client
	config *Config

	limiter *time.Ticker
	tokens  chan struct{}
}

// NewGeminiClient creates a client for the given configuration.
func NewGeminiClient(ctx context.Context, config *Config) (*GeminiClient, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	api, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: config.Backend,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	client := &GeminiClient{api: api, config: config}
	if config.RateLimit > 0 {
		client.startLimiter()
	}
	return client, nil
}

// NewGeminiClientFromEnv creates a client configured from environment variables.
func NewGeminiClientFromEnv(ctx context.Context) (*GeminiClient, error) {
	config, err := NewConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
	}
	return NewGeminiClient(ctx, config)
}

// startLimiter fills a token bucket sized to the configured rate and refills
// it one token per tick.
func (c *GeminiClient) startLimiter() {
	c.tokens = make(chan struct{}, c.config.RateLimit)
	for i := 0; i < c.config.RateLimit; i++ {
		c.tokens <- struct{}{}
	}
	c.limiter = time.NewTicker(c.config.RateLimitInterval / time.Duration(c.config.RateLimit))

	go func() {
		for range c.limiter.C {
			select {
			case c.tokens <- struct{}{}:
			default:
			}
		}
	}()
}

// CallLLM sends the conversation to Gemini and returns the assistant reply,
// including any function calls the model requested.
func (c *GeminiClient) CallLLM(ctx context.Context, messages []llm.Message) (llm.Message, error) {
	var reply llm.Message
	if len(messages) == 0 {
		return reply, fmt.Errorf("no messages to send")
	}

	if c.tokens != nil {
		select {
		case <-c.tokens:
		case <-ctx.Done():
			return reply, ctx.Err()
		}
	}

	response, err := c.generateWithRetry(ctx, toGenaiContents(messages))
	if err != nil {
		return reply, err
	}

	reply.Role = llm.RoleAssistant
	reply.Content = response.Text()
	for _, call := range response.FunctionCalls() {
		reply.ToolCalls = append(reply.ToolCalls, llm.ToolCalls{
			Id:       call.ID,
			ToolName: call.Name,
			ToolArgs: call.Args,
		})
	}
	return reply, nil
}

func (c *GeminiClient) generateWithRetry(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	generation := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.config.Temperature),
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		response, err := c.api.Models.GenerateContent(ctx, c.config.Model, contents, generation)
		if err == nil {
			return response, nil
		}
		lastErr = err

		if attempt < c.config.MaxRetries {
			select {
			case <-time.After(time.Duration(attempt+1) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("failed after %d retries: %w", c.config.MaxRetries, lastErr)
}

// toGenaiContents converts generic messages into Gemini contents. Function
// responses would need the function name, which results do not carry, so tool
// results travel back as text parts. A message with neither tool calls nor
// results always gets a text part, even when empty.
func toGenaiContents(messages []llm.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		content := &genai.Content{Role: genaiRole(msg.Role)}

		if msg.Content != "" || (len(msg.ToolCalls) == 0 && len(msg.ToolResults) == 0) {
			content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
		}
		if len(msg.Media) > 0 {
			content.Parts = append(content.Parts, &genai.Part{
				InlineData: &genai.Blob{MIMEType: msg.MimeType, Data: msg.Media},
			})
		}
		for _, call := range msg.ToolCalls {
			content.Parts = append(content.Parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{
					ID:   call.Id,
					Name: call.ToolName,
					Args: call.ToolArgs,
				},
			})
		}
		for _, result := range msg.ToolResults {
			text := result.Content
			if result.IsError {
				text = fmt.Sprintf("Error: %s", result.Error)
			}
			content.Parts = append(content.Parts, &genai.Part{
				Text: fmt.Sprintf("Tool result (%s): %s", result.Id, text),
			})
		}

		contents = append(contents, content)
	}
	return contents
}

// genaiRole maps generic roles onto Gemini's user/model pair. System prompts
// ride along as user turns.
func genaiRole(role string) string {
	switch role {
	case llm.RoleAssistant:
		return genai.RoleModel
	default:
		return genai.RoleUser
	}
}

// GetName returns the provider name used in configuration.
func (c *GeminiClient) GetName() string {
	return "gemini"
}

// SetConfig applies recognized keys to the client configuration. Changing the
// API key here does not rebuild the underlying GenAI client.
func (c *GeminiClient) SetConfig(config map[string]any) error {
	if c.config == nil {
		c.config = &Config{}
	}
	if model, ok := config["model"].(string); ok {
		c.config.Model = model
	}
	if apiKey, ok := config["apiKey"].(string); ok {
		c.config.APIKey = apiKey
	}
	if temperature, ok := config["temperature"].(float32); ok {
		c.config.Temperature = temperature
	}
	if maxRetries, ok := config["maxRetries"].(int); ok {
		c.config.MaxRetries = maxRetries
	}
	if rateLimit, ok := config["rateLimit"].(int); ok {
		c.config.RateLimit = rateLimit
	}
	if interval, ok := config["rateLimitInterval"].(time.Duration); ok {
		c.config.RateLimitInterval = interval
	}
	return nil
}

// Close stops the rate limiter.
func (c *GeminiClient) Close() {
	if c.limiter != nil {
		c.limiter.Stop()
	}
}
