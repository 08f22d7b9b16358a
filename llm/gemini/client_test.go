package gemini

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alt-coder/agentflow-go/llm"
)

func testConfig() *Config {
	return &Config{
		APIKey:      "test-key",
		Model:       "gemini-pro",
		Temperature: 0.7,
		MaxRetries:  3,
	}
}

var geminiEnvVars = []string{
	"GOOGLE_API_KEY",
	"CHAT_MODEL",
	"CHAT_TEMPERATURE",
	"CHAT_MAX_RETRIES",
	"GEMINI_RATE_LIMIT",
	"GEMINI_RATE_LIMIT_INTERVAL_SECONDS",
}

// clearEnv unsets every relevant variable for the duration of the test.
// t.Setenv records the original value so cleanup restores it.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range geminiEnvVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing api key", func(c *Config) { c.APIKey = "" }, true},
		{"empty model", func(c *Config) { c.Model = "" }, true},
		{"temperature too high", func(c *Config) { c.Temperature = 1.5 }, true},
		{"temperature negative", func(c *Config) { c.Temperature = -0.1 }, true},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, true},
		{"negative rate limit", func(c *Config) { c.RateLimit = -1 }, true},
		{"rate limit without interval", func(c *Config) { c.RateLimit = 5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := testConfig()
			tt.mutate(config)
			if err := config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewConfig(t *testing.T) {
	config := NewConfig("test-key", "")

	if config.Model != defaultModel {
		t.Errorf("Model = %q, expected %q", config.Model, defaultModel)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

func TestNewConfigFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "test-key")

	config, err := NewConfigFromEnv()
	if err != nil {
		t.Fatalf("NewConfigFromEnv() error = %v", err)
	}

	if config.APIKey != "test-key" {
		t.Errorf("APIKey = %q", config.APIKey)
	}
	if config.Model != defaultModel {
		t.Errorf("Model = %q, expected %q", config.Model, defaultModel)
	}
	if config.Temperature != 0.7 {
		t.Errorf("Temperature = %f, expected 0.7", config.Temperature)
	}
	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, expected 3", config.MaxRetries)
	}
	if config.RateLimit != 0 {
		t.Errorf("RateLimit = %d, expected 0", config.RateLimit)
	}
	if config.RateLimitInterval != 60*time.Second {
		t.Errorf("RateLimitInterval = %v, expected 60s", config.RateLimitInterval)
	}
}

func TestNewConfigFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "custom-key")
	t.Setenv("CHAT_MODEL", "gemini-pro")
	t.Setenv("CHAT_TEMPERATURE", "0.5")
	t.Setenv("CHAT_MAX_RETRIES", "5")
	t.Setenv("GEMINI_RATE_LIMIT", "12")
	t.Setenv("GEMINI_RATE_LIMIT_INTERVAL_SECONDS", "30")

	config, err := NewConfigFromEnv()
	if err != nil {
		t.Fatalf("NewConfigFromEnv() error = %v", err)
	}

	if config.APIKey != "custom-key" {
		t.Errorf("APIKey = %q", config.APIKey)
	}
	if config.Model != "gemini-pro" {
		t.Errorf("Model = %q", config.Model)
	}
	if config.Temperature != 0.5 {
		t.Errorf("Temperature = %f", config.Temperature)
	}
	if config.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d", config.MaxRetries)
	}
	if config.RateLimit != 12 {
		t.Errorf("RateLimit = %d", config.RateLimit)
	}
	if config.RateLimitInterval != 30*time.Second {
		t.Errorf("RateLimitInterval = %v", config.RateLimitInterval)
	}
}

func TestNewConfigFromEnv_MissingAPIKey(t *testing.T) {
	clearEnv(t)

	if _, err := NewConfigFromEnv(); err == nil {
		t.Error("Expected error when GOOGLE_API_KEY is unset")
	}
}

func TestGeminiClient_GetName(t *testing.T) {
	client := &GeminiClient{}
	if name := client.GetName(); name != "gemini" {
		t.Errorf("GetName() = %q, expected 'gemini'", name)
	}
}

func TestGeminiClient_SetConfig(t *testing.T) {
	client := &GeminiClient{config: &Config{Model: "gemini-pro", Temperature: 0.7}}

	err := client.SetConfig(map[string]any{
		"model":       "gemini-2.0-flash",
		"temperature": float32(0.5),
		"apiKey":      "new-key",
		"maxRetries":  5,
	})
	if err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}

	if client.config.Model != "gemini-2.0-flash" {
		t.Errorf("Model = %q", client.config.Model)
	}
	if client.config.Temperature != 0.5 {
		t.Errorf("Temperature = %f", client.config.Temperature)
	}
	if client.config.APIKey != "new-key" {
		t.Errorf("APIKey = %q", client.config.APIKey)
	}
	if client.config.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d", client.config.MaxRetries)
	}
}

func TestToGenaiContents(t *testing.T) {
	messages := []llm.Message{
		{Role: llm.RoleUser, Content: "List the jobs in this file"},
		{
			Role:    llm.RoleAssistant,
			Content: "Reading it now",
			ToolCalls: []llm.ToolCalls{
				{Id: "call_1", ToolName: "read_file", ToolArgs: map[string]any{"path": "jobs.jil"}},
			},
		},
		{
			Role:        llm.RoleUser,
			ToolResults: []llm.ToolResults{{Id: "call_1", Content: "insert_job: nightly_etl"}},
		},
	}

	contents := toGenaiContents(messages)
	if len(contents) != 3 {
		t.Fatalf("Expected 3 contents, got %d", len(contents))
	}

	if contents[0].Role != "user" {
		t.Errorf("Role = %q, expected 'user'", contents[0].Role)
	}
	if contents[1].Role != "model" {
		t.Errorf("Role = %q, expected 'model' for assistant", contents[1].Role)
	}

	foundCall := false
	for _, part := range contents[1].Parts {
		if part.FunctionCall != nil && part.FunctionCall.Name == "read_file" {
			foundCall = true
		}
	}
	if !foundCall {
		t.Error("Expected a function call part for the tool call")
	}

	// The result-only message carries exactly one text part, no empty filler.
	if len(contents[2].Parts) != 1 {
		t.Fatalf("Expected 1 part on the result message, got %d", len(contents[2].Parts))
	}
	if !strings.Contains(contents[2].Parts[0].Text, "insert_job: nightly_etl") {
		t.Errorf("Result text = %q, expected the tool output", contents[2].Parts[0].Text)
	}
}

func TestToGenaiContents_ErrorResult(t *testing.T) {
	contents := toGenaiContents([]llm.Message{
		{
			Role:        llm.RoleUser,
			ToolResults: []llm.ToolResults{{Id: "call_9", IsError: true, Error: "file not found"}},
		},
	})

	text := contents[0].Parts[0].Text
	if !strings.Contains(text, "Error: file not found") {
		t.Errorf("Result text = %q, expected the error message", text)
	}
}

func TestToGenaiContents_Media(t *testing.T) {
	contents := toGenaiContents([]llm.Message{
		{
			Role:     llm.RoleUser,
			Content:  "What is in this screenshot?",
			Media:    []byte{0x89, 0x50},
			MimeType: "image/png",
		},
	})

	if len(contents) != 1 || len(contents[0].Parts) != 2 {
		t.Fatalf("Expected 1 content with 2 parts, got %+v", contents)
	}
	blob := contents[0].Parts[1].InlineData
	if blob == nil || blob.MIMEType != "image/png" || len(blob.Data) != 2 {
		t.Errorf("Inline data part not built correctly: %+v", blob)
	}
}

func TestStartLimiter(t *testing.T) {
	client := &GeminiClient{config: &Config{RateLimit: 2, RateLimitInterval: time.Minute}}
	client.startLimiter()
	defer client.Close()

	if client.limiter == nil {
		t.Fatal("Expected the limiter ticker to be created")
	}
	if len(client.tokens) != 2 {
		t.Errorf("Expected 2 initial tokens, got %d", len(client.tokens))
	}
}

func TestNewGeminiClient_InvalidConfig(t *testing.T) {
	ctx := context.Background()

	if _, err := NewGeminiClient(ctx, nil); err == nil {
		t.Error("Expected error with nil config")
	}

	invalid := testConfig()
	invalid.APIKey = ""
	if _, err := NewGeminiClient(ctx, invalid); err == nil {
		t.Error("Expected error with missing API key")
	}
}
