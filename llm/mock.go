package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MockProvider is an in-memory LLMProvider for tests and offline runs. It can
// replay a scripted sequence of responses, answer by input pattern, or
// simulate provider failures.
type MockProvider struct {
	name      string
	responses []string
	next      int
	scripted  bool // responses were set explicitly

	failing bool
	failMsg string

	config   map[string]any
	patterns map[string]string
	calls    int
}

// NewMockProvider creates a mock that echoes user input until responses or
// patterns are configured.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		name:      name,
		responses: []string{"Mock response from " + name},
		config:    make(map[string]any),
		patterns:  make(map[string]string),
	}
}

// CallLLM returns the next configured response. Pattern matches win over the
// scripted sequence, and configured failures win over both.
func (m *MockProvider) CallLLM(ctx context.Context, messages []Message) (Message, error) {
	m.calls++

	if err := m.pendingError(); err != nil {
		return Message{}, err
	}

	if response, ok := m.patternResponse(messages); ok {
		return response, nil
	}

	return Message{Role: RoleAssistant, Content: m.nextContent(messages)}, nil
}

func (m *MockProvider) pendingError() error {
	if delayed, ok := m.config["delayedError"].(bool); ok && delayed {
		if after, ok := m.config["callsBeforeError"].(int); ok && m.calls >= after {
			message := "delayed simulated error"
			if custom, ok := m.config["delayedErrorMessage"].(string); ok && custom != "" {
				message = custom
			}
			return errors.New(message)
		}
	}

	if m.failing {
		if m.failMsg != "" {
			return errors.New(m.failMsg)
		}
		return fmt.Errorf("simulated API error from %s", m.name)
	}
	return nil
}

// patternResponse matches the last user message against the configured
// patterns, case-insensitively.
func (m *MockProvider) patternResponse(messages []Message) (Message, bool) {
	if len(m.patterns) == 0 || len(messages) == 0 {
		return Message{}, false
	}
	last := messages[len(messages)-1]
	if last.Role != RoleUser {
		return Message{}, false
	}

	input := strings.ToLower(last.Content)
	for pattern, response := range m.patterns {
		if strings.Contains(input, strings.ToLower(pattern)) {
			return Message{Role: RoleAssistant, Content: response}, true
		}
	}
	return Message{}, false
}

// nextContent advances the response cycle. Until responses are set
// explicitly, user input is echoed back so callers can see their input
// flowing through.
func (m *MockProvider) nextContent(messages []Message) string {
	if len(m.responses) == 0 {
		return "Default mock response"
	}

	content := m.responses[m.next]
	m.next = (m.next + 1) % len(m.responses)

	if !m.scripted && len(messages) > 0 {
		if last := messages[len(messages)-1]; last.Role == RoleUser {
			return fmt.Sprintf("Mock response to: %s", last.Content)
		}
	}
	return content
}

// GetName returns the mock provider name.
func (m *MockProvider) GetName() string {
	return m.name
}

// SetConfig replaces the provider configuration. This also discards any
// delayed error set up through SetDelayedError.
func (m *MockProvider) SetConfig(config map[string]any) error {
	m.config = config
	return nil
}

// SetResponses replaces the scripted response sequence and restarts the cycle.
func (m *MockProvider) SetResponses(responses []string) {
	m.responses = responses
	m.next = 0
	m.scripted = true
}

// AddResponse appends one response to the scripted sequence.
func (m *MockProvider) AddResponse(response string) {
	m.responses = append(m.responses, response)
	m.scripted = true
}

// SetResponse scripts a single fixed response.
func (m *MockProvider) SetResponse(message Message) {
	m.responses = []string{message.Content}
	m.next = 0
	m.scripted = true
}

// SetError makes every subsequent call fail with the given message, or with
// a generic one when the message is empty.
func (m *MockProvider) SetError(shouldError bool, errorMessage string) {
	m.failing = shouldError
	m.failMsg = errorMessage
}

// SetDelayedError makes calls fail once the call counter reaches
// callsBeforeError. Earlier calls succeed normally.
func (m *MockProvider) SetDelayedError(callsBeforeError int, errorMessage string) {
	m.config["delayedError"] = true
	m.config["callsBeforeError"] = callsBeforeError
	m.config["delayedErrorMessage"] = errorMessage
}

// ClearError removes both immediate and delayed error simulation.
func (m *MockProvider) ClearError() {
	m.failing = false
	m.failMsg = ""
	delete(m.config, "delayedError")
	delete(m.config, "callsBeforeError")
	delete(m.config, "delayedErrorMessage")
}

// SetResponsePattern configures keyword responses, for example
// {"hello": "Hi there!"}. Patterns are checked against the last user message.
func (m *MockProvider) SetResponsePattern(patterns map[string]string) {
	m.patterns = patterns
}

// Reset returns the provider to its initial state. The scripted responses
// stay in place but stop overriding the echo behavior.
func (m *MockProvider) Reset() {
	m.next = 0
	m.scripted = false
	m.failing = false
	m.failMsg = ""
	m.config = make(map[string]any)
	m.patterns = make(map[string]string)
	m.calls = 0
}

// GetCallCount reports how many times CallLLM ran.
func (m *MockProvider) GetCallCount() int {
	return m.calls
}
