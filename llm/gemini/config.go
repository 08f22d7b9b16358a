package gemini

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"google.golang.org/genai"
)

const defaultModel = "gemini-2.0-flash"

// Config holds the settings for a Gemini client.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxRetries  int
	Backend     genai.Backend

	// RateLimit caps requests per RateLimitInterval. Zero disables limiting.
	RateLimit         int
	RateLimitInterval time.Duration
}

// NewConfig returns a config for the given key and model with defaults for
// everything else. An empty model selects gemini-2.0-flash.
func NewConfig(apiKey, model string) *Config {
	if model == "" {
		model = defaultModel
	}
	return &Config{
		APIKey:            apiKey,
		Model:             model,
		Temperature:       0.7,
		MaxRetries:        3,
		Backend:           genai.BackendGeminiAPI,
		RateLimitInterval: time.Minute,
	}
}

// NewConfigFromEnv builds a config from GOOGLE_API_KEY, CHAT_MODEL,
// CHAT_TEMPERATURE, CHAT_MAX_RETRIES and the GEMINI_RATE_LIMIT variables,
// then validates it.
func NewConfigFromEnv() (*Config, error) {
	config := &Config{
		APIKey:            os.Getenv("GOOGLE_API_KEY"),
		Model:             envString("CHAT_MODEL", defaultModel),
		Temperature:       envFloat32("CHAT_TEMPERATURE", 0.7),
		MaxRetries:        envInt("CHAT_MAX_RETRIES", 3),
		Backend:           genai.BackendGeminiAPI,
		RateLimit:         envInt("GEMINI_RATE_LIMIT", 0),
		RateLimitInterval: time.Duration(envInt("GEMINI_RATE_LIMIT_INTERVAL_SECONDS", 60)) * time.Second,
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate reports the first problem with the configuration.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("GOOGLE_API_KEY environment variable is required. Please set it with your Google API key")
	}
	if c.Model == "" {
		return errors.New("model name cannot be empty")
	}
	if c.Temperature < 0.0 || c.Temperature > 1.0 {
		return fmt.Errorf("temperature must be between 0.0 and 1.0, got %f", c.Temperature)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("maxRetries cannot be negative, got %d", c.MaxRetries)
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
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return fallback
	}
	return float32(parsed)
}

func envInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
