package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alt-coder/agentflow-go/llm"
	"github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to the OpenAI chat completion API. When rate
// limiting is configured, calls draw from a token bucket refilled by a
// background ticker.
type OpenAIClient struct {
	client *openai.Client
	config *Config

	limiter *time.Ticker
	tokens  chan struct{}
}

// NewOpenAIClient validates the config and builds a client
func NewOpenAIClient(ctx context.Context, config *Config) (*OpenAIClient, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c := &OpenAIClient{
		client: newAPIClient(config),
		config: config,
	}
	if config.RateLimit > 0 {
		c.startLimiter()
	}
	return c, nil
}

// NewOpenAIClientFromEnv builds a client from the OPENAI_* environment
// variables
func NewOpenAIClientFromEnv(ctx context.Context) (*OpenAIClient, error) {
	config, err := NewConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
	}
	return NewOpenAIClient(ctx, config)
}

// newAPIClient builds the SDK client for the current key, base URL,
// and org
func newAPIClient(config *Config) *openai.Client {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.OrgID != "" {
		clientConfig.OrgID = config.OrgID
	}
	return openai.NewClientWithConfig(clientConfig)
}

// startLimiter fills the token bucket and refills it at the configured
// rate until Close
func (c *OpenAIClient) startLimiter() {
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

// CallLLM sends the conversation and maps the first choice back into
// the generic message shape
func (c *OpenAIClient) CallLLM(ctx context.Context, messages []llm.Message) (llm.Message, error) {
	var result llm.Message
	if len(messages) == 0 {
		return result, fmt.Errorf("no messages to send")
	}

	if c.tokens != nil {
		select {
		case <-c.tokens:
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}

	chatMessages, err := toChatMessages(messages)
	if err != nil {
		return result, fmt.Errorf("failed to convert messages: %w", err)
	}

	response, err := c.completeWithRetry(ctx, c.buildRequest(chatMessages))
	if err != nil {
		return result, err
	}
	if len(response.Choices) == 0 {
		return result, fmt.Errorf("no choices returned from OpenAI API")
	}

	choice := response.Choices[0]
	result.Role = llm.RoleAssistant
	result.Content = choice.Message.Content

	for _, call := range choice.Message.ToolCalls {
		if call.Type != openai.ToolTypeFunction {
			continue
		}
		var args map[string]any
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return result, fmt.Errorf("failed to parse tool arguments: %w", err)
		}
		result.ToolCalls = append(result.ToolCalls, llm.ToolCalls{
			Id:       call.ID,
			ToolName: call.Function.Name,
			ToolArgs: args,
		})
	}
	return result, nil
}

// buildRequest assembles the completion request. Tuning knobs ride
// along only when they differ from the API defaults.
func (c *OpenAIClient) buildRequest(messages []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	request := openai.ChatCompletionRequest{
		Model:    c.config.Model,
		Messages: messages,
	}

	if c.config.Temperature != 0.7 {
		request.Temperature = c.config.Temperature
	}
	if c.config.MaxTokens > 0 {
		request.MaxTokens = c.config.MaxTokens
	}
	if c.config.TopP != 1.0 {
		request.TopP = c.config.TopP
	}
	if c.config.FrequencyPenalty != 0 {
		request.FrequencyPenalty = c.config.FrequencyPenalty
	}
	if c.config.PresencePenalty != 0 {
		request.PresencePenalty = c.config.PresencePenalty
	}
	return request
}

// completeWithRetry retries failed calls with a linear backoff
func (c *OpenAIClient) completeWithRetry(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var response openai.ChatCompletionResponse
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		response, lastErr = c.client.CreateChatCompletion(ctx, request)
		if lastErr == nil {
			return response, nil
		}
		if attempt == c.config.MaxRetries {
			break
		}
		select {
		case <-time.After(time.Duration(attempt+1) * time.Second):
		case <-ctx.Done():
			return response, ctx.Err()
		}
	}
	return response, fmt.Errorf("failed after %d retries: %w", c.config.MaxRetries, lastErr)
}

// toChatMessages converts generic messages to the SDK shape. Each tool
// result becomes its own tool-role message; a message that carried only
// tool results contributes nothing further.
func toChatMessages(messages []llm.Message) ([]openai.ChatCompletionMessage, error) {
	var out []openai.ChatCompletionMessage

	for _, msg := range messages {
		for _, toolResult := range msg.ToolResults {
			content := toolResult.Content
			if toolResult.IsError {
				content = "Error: " + toolResult.Error
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    content,
				ToolCallID: toolResult.Id,
			})
		}

		converted := openai.ChatCompletionMessage{Role: msg.Role}

		if len(msg.Media) > 0 {
			imageURL := fmt.Sprintf("data:%s;base64,%s", msg.MimeType, base64.StdEncoding.EncodeToString(msg.Media))
			converted.MultiContent = []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: msg.Content},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    imageURL,
						Detail: openai.ImageURLDetailAuto,
					},
				},
			}
		} else {
			converted.Content = msg.Content
		}

		for _, call := range msg.ToolCalls {
			args, err := json.Marshal(call.ToolArgs)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal tool arguments: %w", err)
			}
			converted.ToolCalls = append(converted.ToolCalls, openai.ToolCall{
				ID:   call.Id,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      call.ToolName,
					Arguments: string(args),
				},
			})
		}

		if len(msg.ToolResults) > 0 && converted.Content == "" &&
			converted.MultiContent == nil && len(converted.ToolCalls) == 0 {
			continue
		}
		out = append(out, converted)
	}
	return out, nil
}

// GetName identifies this provider as openai
func (c *OpenAIClient) GetName() string {
	return "openai"
}

// SetConfig applies key-value overrides. Changing the key, base URL,
// or org rebuilds the SDK client.
func (c *OpenAIClient) SetConfig(config map[string]any) error {
	if c.config == nil {
		c.config = &Config{}
	}

	rebuild := false
	if v, ok := config["apiKey"].(string); ok {
		c.config.APIKey = v
		rebuild = true
	}
	if v, ok := config["baseURL"].(string); ok {
		c.config.BaseURL = v
		rebuild = true
	}
	if v, ok := config["orgID"].(string); ok {
		c.config.OrgID = v
		rebuild = true
	}
	if v, ok := config["model"].(string); ok {
		c.config.Model = v
	}
	if v, ok := config["temperature"].(float32); ok {
		c.config.Temperature = v
	}
	if v, ok := config["maxRetries"].(int); ok {
		c.config.MaxRetries = v
	}
	if v, ok := config["rateLimit"].(int); ok {
		c.config.RateLimit = v
	}
	if v, ok := config["rateLimitInterval"].(time.Duration); ok {
		c.config.RateLimitInterval = v
	}
	if v, ok := config["maxTokens"].(int); ok {
		c.config.MaxTokens = v
	}
	if v, ok := config["topP"].(float32); ok {
		c.config.TopP = v
	}
	if v, ok := config["frequencyPenalty"].(float32); ok {
		c.config.FrequencyPenalty = v
	}
	if v, ok := config["presencePenalty"].(float32); ok {
		c.config.PresencePenalty = v
	}

	if rebuild {
		c.client = newAPIClient(c.config)
	}
	return nil
}

// Close stops the rate limiter goroutine
func (c *OpenAIClient) Close() {
	if c.limiter != nil {
		c.limiter.Stop()
	}
}
