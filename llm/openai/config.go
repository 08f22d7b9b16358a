// Package openai adapts OpenAI chat completion models to the
// llm.LLMProvider interface, with optional client-side rate limiting.
package openai

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultModel   = "gpt-4o"
	defaultBaseURL = "https://api.openai.com/v1"
)

// Config carries everything needed to talk to the OpenAI API. Zero
// values for the advanced knobs mean "leave it to the server".
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxRetries  int
	BaseURL     string
	OrgID       string

	// RateLimit is requests per RateLimitInterval; zero disables
	// client-side limiting
	RateLimit         int
	RateLimitInterval time.Duration

	MaxTokens        int
	TopP             float32
	FrequencyPenalty float32
	PresencePenalty  float32
}

// NewConfig builds a config for one key and model, defaulting the rest.
// An empty model selects gpt-4o.
func NewConfig(apiKey, model string) *Config {
	if model == "" {
		model = defaultModel
	}
	return &Config{
		APIKey:            apiKey,
		Model:             model,
		Temperature:       0.7,
		MaxRetries:        3,
		BaseURL:           defaultBaseURL,
		RateLimitInterval: time.Minute,
		TopP:              1.0,
	}
}

// NewConfigFromEnv reads the OPENAI_* environment variables, applies
// defaults for anything unset, and validates the result
func NewConfigFromEnv() (*Config, error) {
	config := &Config{
		APIKey:            envString("OPENAI_API_KEY", ""),
		Model:             envString("OPENAI_MODEL", defaultModel),
		Temperature:       envFloat32("OPENAI_TEMPERATURE", 0.7),
		MaxRetries:        envInt("OPENAI_MAX_RETRIES", 3),
		BaseURL:           envString("OPENAI_BASE_URL", defaultBaseURL),
		OrgID:             envString("OPENAI_ORG_ID", ""),
		RateLimit:         envInt("OPENAI_RATE_LIMIT", 0),
		RateLimitInterval: time.Duration(envInt("OPENAI_RATE_LIMIT_INTERVAL_SECONDS", 60)) * time.Second,
		MaxTokens:         envInt("OPENAI_MAX_TOKENS", 0),
		TopP:              envFloat32("OPENAI_TOP_P", 1.0),
		FrequencyPenalty:  envFloat32("OPENAI_FREQUENCY_PENALTY", 0.0),
		PresencePenalty:   envFloat32("OPENAI_PRESENCE_PENALTY", 0.0),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects configurations the API would refuse anyway
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("OPENAI_API_KEY environment variable is required. Please set it with your OpenAI API key")
	}
	if c.Model == "" {
		return errors.New("model name cannot be empty")
	}

	ranges := []struct {
		name     string
		value    float32
		min, max float32
	}{
		{"temperature", c.Temperature, 0.0, 2.0},
		{"topP", c.TopP, 0.0, 1.0},
		{"frequencyPenalty", c.FrequencyPenalty, -2.0, 2.0},
		{"presencePenalty", c.PresencePenalty, -2.0, 2.0},
	}
	for _, r := range ranges {
		if r.value < r.min || r.value > r.max {
			return fmt.Errorf("%s must be between %.1f and %.1f, got %f", r.name, r.min, r.max, r.value)
		}
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("maxRetries cannot be negative, got %d", c.MaxRetries)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("maxTokens cannot be negative, got %d", c.MaxTokens)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rateLimit cannot be negative, got %d", c.RateLimit)
	}
	if c.RateLimit > 0 && c.RateLimitInterval <= 0 {
		return fmt.Errorf("rateLimitInterval must be positive when rate limiting is enabled, got %v", c.RateLimitInterval)
	}
	return nil
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envFloat32(key string, fallback float32) float32 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(parsed)
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
