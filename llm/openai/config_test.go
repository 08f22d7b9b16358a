package openai

import (
	"os"
	"testing"
	"time"
)

var openaiEnvVars = []string{
	"OPENAI_API_KEY",
	"OPENAI_MODEL",
	"OPENAI_TEMPERATURE",
	"OPENAI_MAX_RETRIES",
	"OPENAI_BASE_URL",
	"OPENAI_ORG_ID",
	"OPENAI_RATE_LIMIT",
	"OPENAI_RATE_LIMIT_INTERVAL_SECONDS",
	"OPENAI_MAX_TOKENS",
	"OPENAI_TOP_P",
	"OPENAI_FREQUENCY_PENALTY",
	"OPENAI_PRESENCE_PENALTY",
}

// clearEnv unsets every OPENAI_* variable for the duration of the test.
// t.Setenv records the original value so cleanup restores it.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range openaiEnvVars {
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
		{"temperature too low", func(c *Config) { c.Temperature = -0.1 }, true},
		{"temperature too high", func(c *Config) { c.Temperature = 2.1 }, true},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, true},
		{"negative rate limit", func(c *Config) { c.RateLimit = -1 }, true},
		{"rate limit without interval", func(c *Config) { c.RateLimit = 10; c.RateLimitInterval = 0 }, true},
		{"negative max tokens", func(c *Config) { c.MaxTokens = -1 }, true},
		{"top_p too low", func(c *Config) { c.TopP = -0.1 }, true},
		{"top_p too high", func(c *Config) { c.TopP = 1.1 }, true},
		{"frequency penalty out of range", func(c *Config) { c.FrequencyPenalty = 2.1 }, true},
		{"presence penalty out of range", func(c *Config) { c.PresencePenalty = -2.1 }, true},
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

	if config.APIKey != "test-key" {
		t.Errorf("APIKey = %q, expected 'test-key'", config.APIKey)
	}
	if config.Model != defaultModel {
		t.Errorf("Model = %q, expected %q", config.Model, defaultModel)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}

	custom := NewConfig("test-key", "gpt-3.5-turbo")
	if custom.Model != "gpt-3.5-turbo" {
		t.Errorf("Model = %q, expected 'gpt-3.5-turbo'", custom.Model)
	}
}

func TestNewConfigFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "test-key")

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
	if config.BaseURL != defaultBaseURL {
		t.Errorf("BaseURL = %q, expected %q", config.BaseURL, defaultBaseURL)
	}
	if config.RateLimit != 0 {
		t.Errorf("RateLimit = %d, expected 0", config.RateLimit)
	}
	if config.RateLimitInterval != 60*time.Second {
		t.Errorf("RateLimitInterval = %v, expected 60s", config.RateLimitInterval)
	}
	if config.TopP != 1.0 {
		t.Errorf("TopP = %f, expected 1.0", config.TopP)
	}
}

func TestNewConfigFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	for key, value := range map[string]string{
		"OPENAI_API_KEY":                     "custom-key",
		"OPENAI_MODEL":                       "gpt-3.5-turbo",
		"OPENAI_TEMPERATURE":                 "0.5",
		"OPENAI_MAX_RETRIES":                 "5",
		"OPENAI_BASE_URL":                    "https://custom.api.com/v1",
		"OPENAI_ORG_ID":                      "org-123",
		"OPENAI_RATE_LIMIT":                  "10",
		"OPENAI_RATE_LIMIT_INTERVAL_SECONDS": "30",
		"OPENAI_MAX_TOKENS":                  "1000",
		"OPENAI_TOP_P":                       "0.9",
		"OPENAI_FREQUENCY_PENALTY":           "0.5",
		"OPENAI_PRESENCE_PENALTY":            "0.3",
	} {
		t.Setenv(key, value)
	}

	config, err := NewConfigFromEnv()
	if err != nil {
		t.Fatalf("NewConfigFromEnv() error = %v", err)
	}

	if config.APIKey != "custom-key" {
		t.Errorf("APIKey = %q", config.APIKey)
	}
	if config.Model != "gpt-3.5-turbo" {
		t.Errorf("Model = %q", config.Model)
	}
	if config.Temperature != 0.5 {
		t.Errorf("Temperature = %f", config.Temperature)
	}
	if config.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d", config.MaxRetries)
	}
	if config.BaseURL != "https://custom.api.com/v1" {
		t.Errorf("BaseURL = %q", config.BaseURL)
	}
	if config.OrgID != "org-123" {
		t.Errorf("OrgID = %q", config.OrgID)
	}
	if config.RateLimit != 10 {
		t.Errorf("RateLimit = %d", config.RateLimit)
	}
	if config.RateLimitInterval != 30*time.Second {
		t.Errorf("RateLimitInterval = %v", config.RateLimitInterval)
	}
	if config.MaxTokens != 1000 {
		t.Errorf("MaxTokens = %d", config.MaxTokens)
	}
	if config.TopP != 0.9 {
		t.Errorf("TopP = %f", config.TopP)
	}
	if config.FrequencyPenalty != 0.5 {
		t.Errorf("FrequencyPenalty = %f", config.FrequencyPenalty)
	}
	if config.PresencePenalty != 0.3 {
		t.Errorf("PresencePenalty = %f", config.PresencePenalty)
	}
}

func TestNewConfigFromEnv_MissingAPIKey(t *testing.T) {
	clearEnv(t)

	if _, err := NewConfigFromEnv(); err == nil {
		t.Error("Expected error when OPENAI_API_KEY is unset")
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("OPENAI_TEST_VALUE", "hello")
	if envString("OPENAI_TEST_VALUE", "fallback") != "hello" {
		t.Error("envString should prefer the set variable")
	}
	if envString("OPENAI_TEST_UNSET", "fallback") != "fallback" {
		t.Error("envString should fall back for unset variables")
	}

	t.Setenv("OPENAI_TEST_VALUE", "1.5")
	if envFloat32("OPENAI_TEST_VALUE", 2.0) != 1.5 {
		t.Error("envFloat32 should parse the set variable")
	}
	t.Setenv("OPENAI_TEST_VALUE", "not-a-number")
	if envFloat32("OPENAI_TEST_VALUE", 2.0) != 2.0 {
		t.Error("envFloat32 should fall back for unparseable values")
	}

	t.Setenv("OPENAI_TEST_VALUE", "42")
	if envInt("OPENAI_TEST_VALUE", 10) != 42 {
		t.Error("envInt should parse the set variable")
	}
	t.Setenv("OPENAI_TEST_VALUE", "not-a-number")
	if envInt("OPENAI_TEST_VALUE", 10) != 10 {
		t.Error("envInt should fall back for unparseable values")
	}
}
