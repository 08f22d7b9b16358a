package llm

import (
	"context"
	"testing"
)

var _ LLMProvider = (*MockProvider)(nil)

func TestNewMockProvider(t *testing.T) {
	provider := NewMockProvider("test-mock")

	if provider.GetName() != "test-mock" {
		t.Errorf("GetName() = %q, expected 'test-mock'", provider.GetName())
	}
	if provider.GetCallCount() != 0 {
		t.Errorf("GetCallCount() = %d, expected 0", provider.GetCallCount())
	}
}

func TestMockProvider_EchoesUserInput(t *testing.T) {
	provider := NewMockProvider("test-mock")

	response, err := provider.CallLLM(context.Background(), []Message{
		{Role: RoleUser, Content: "Hello"},
	})
	if err != nil {
		t.Fatalf("CallLLM() error = %v", err)
	}

	if response.Content != "Mock response to: Hello" {
		t.Errorf("Content = %q, expected the echoed input", response.Content)
	}
	if response.Role != RoleAssistant {
		t.Errorf("Role = %q, expected %q", response.Role, RoleAssistant)
	}
	if provider.GetCallCount() != 1 {
		t.Errorf("GetCallCount() = %d, expected 1", provider.GetCallCount())
	}
}

func TestMockProvider_ResponseCycle(t *testing.T) {
	provider := NewMockProvider("test-mock")
	ctx := context.Background()

	responses := []string{"First response", "Second response", "Third response"}
	provider.SetResponses(responses)

	messages := []Message{{Role: RoleUser, Content: "Test"}}
	for i := 0; i < 6; i++ {
		response, err := provider.CallLLM(ctx, messages)
		if err != nil {
			t.Fatalf("Call %d: error = %v", i+1, err)
		}
		if expected := responses[i%len(responses)]; response.Content != expected {
			t.Errorf("Call %d: Content = %q, expected %q", i+1, response.Content, expected)
		}
	}
}

func TestMockProvider_EmptySequence(t *testing.T) {
	provider := NewMockProvider("test-mock")
	provider.SetResponses(nil)

	response, err := provider.CallLLM(context.Background(), []Message{
		{Role: RoleUser, Content: "anything"},
	})
	if err != nil {
		t.Fatalf("CallLLM() error = %v", err)
	}
	if response.Content != "Default mock response" {
		t.Errorf("Content = %q, expected the default response", response.Content)
	}
}

func TestMockProvider_ErrorSimulation(t *testing.T) {
	ctx := context.Background()
	messages := []Message{{Role: RoleUser, Content: "Hello"}}

	t.Run("custom message", func(t *testing.T) {
		provider := NewMockProvider("test-mock")
		provider.SetError(true, "Test error message")

		response, err := provider.CallLLM(ctx, messages)
		if err == nil || err.Error() != "Test error message" {
			t.Errorf("error = %v, expected 'Test error message'", err)
		}
		if response.Content != "" {
			t.Errorf("Content = %q, expected empty message on error", response.Content)
		}
	})

	t.Run("default message", func(t *testing.T) {
		provider := NewMockProvider("test-mock")
		provider.SetError(true, "")

		_, err := provider.CallLLM(ctx, messages)
		if err == nil || err.Error() != "simulated API error from test-mock" {
			t.Errorf("error = %v, expected the generic message", err)
		}
	})
}

func TestMockProvider_DelayedError(t *testing.T) {
	provider := NewMockProvider("test-mock")
	ctx := context.Background()
	messages := []Message{{Role: RoleUser, Content: "Hello"}}

	provider.SetDelayedError(3, "Delayed error occurred")

	for i := 0; i < 2; i++ {
		response, err := provider.CallLLM(ctx, messages)
		if err != nil {
			t.Fatalf("Call %d: error = %v", i+1, err)
		}
		if response.Content == "" {
			t.Errorf("Call %d: expected a response before the failure point", i+1)
		}
	}

	_, err := provider.CallLLM(ctx, messages)
	if err == nil {
		t.Fatal("Expected the third call to fail")
	}
	if err.Error() != "Delayed error occurred" {
		t.Errorf("error = %q, expected 'Delayed error occurred'", err.Error())
	}
}

func TestMockProvider_Patterns(t *testing.T) {
	provider := NewMockProvider("test-mock")
	ctx := context.Background()

	provider.SetResponsePattern(map[string]string{
		"hello": "Hi there!",
		"bye":   "Goodbye!",
		"help":  "How can I assist you?",
	})

	tests := []struct {
		input    string
		expected string
	}{
		{"Hello world", "Hi there!"},
		{"HELLO", "Hi there!"},
		{"Say bye to me", "Goodbye!"},
		{"I need help", "How can I assist you?"},
		{"Random message", "Mock response to: Random message"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			response, err := provider.CallLLM(ctx, []Message{{Role: RoleUser, Content: tt.input}})
			if err != nil {
				t.Fatalf("CallLLM() error = %v", err)
			}
			if response.Content != tt.expected {
				t.Errorf("Content = %q, expected %q", response.Content, tt.expected)
			}
		})
	}
}

func TestMockProvider_SetConfig(t *testing.T) {
	provider := NewMockProvider("test-mock")

	err := provider.SetConfig(map[string]any{
		"temperature": 0.7,
		"model":       "test-model",
		"custom":      "value",
	})
	if err != nil {
		t.Errorf("SetConfig() error = %v", err)
	}
}

func TestMockProvider_Reset(t *testing.T) {
	provider := NewMockProvider("test-mock")
	ctx := context.Background()
	messages := []Message{{Role: RoleUser, Content: "test"}}

	provider.SetResponses([]string{"Custom response"})
	provider.SetError(true, "Test error")
	provider.SetResponsePattern(map[string]string{"test": "pattern response"})
	provider.CallLLM(ctx, messages)

	provider.Reset()

	if provider.GetCallCount() != 0 {
		t.Errorf("GetCallCount() = %d after reset, expected 0", provider.GetCallCount())
	}

	response, err := provider.CallLLM(ctx, messages)
	if err != nil {
		t.Fatalf("CallLLM() error after reset = %v", err)
	}

	// Patterns are gone and the script no longer overrides the echo.
	if response.Content != "Mock response to: test" {
		t.Errorf("Content = %q after reset, expected the echoed input", response.Content)
	}
}

func TestMockProvider_ClearError(t *testing.T) {
	provider := NewMockProvider("test-mock")
	ctx := context.Background()
	messages := []Message{{Role: RoleUser, Content: "Hello"}}

	provider.SetError(true, "Test error")
	if _, err := provider.CallLLM(ctx, messages); err == nil {
		t.Fatal("Expected error before clearing")
	}

	provider.ClearError()

	response, err := provider.CallLLM(ctx, messages)
	if err != nil {
		t.Fatalf("CallLLM() error after clearing = %v", err)
	}
	if response.Content == "" {
		t.Error("Expected a response after clearing the error")
	}
}

func TestMockProvider_AddResponse(t *testing.T) {
	provider := NewMockProvider("test-mock")
	ctx := context.Background()
	messages := []Message{{Role: RoleUser, Content: "test"}}

	provider.AddResponse("First added response")
	provider.AddResponse("Second added response")

	// The seeded default response is still first in the cycle.
	first, _ := provider.CallLLM(ctx, messages)
	if first.Content != "Mock response from test-mock" {
		t.Errorf("First call: Content = %q, expected the seeded default", first.Content)
	}

	second, _ := provider.CallLLM(ctx, messages)
	if second.Content != "First added response" {
		t.Errorf("Second call: Content = %q, expected 'First added response'", second.Content)
	}
}

func TestMockProvider_EmptyMessages(t *testing.T) {
	provider := NewMockProvider("test-mock")

	response, err := provider.CallLLM(context.Background(), []Message{})
	if err != nil {
		t.Fatalf("CallLLM() error = %v", err)
	}
	if response.Content != "Mock response from test-mock" {
		t.Errorf("Content = %q, expected the seeded default", response.Content)
	}
}

func TestMockProvider_AssistantLast(t *testing.T) {
	provider := NewMockProvider("test-mock")

	// No echo when the conversation does not end with a user turn.
	response, err := provider.CallLLM(context.Background(), []Message{
		{Role: RoleAssistant, Content: "I am an assistant"},
	})
	if err != nil {
		t.Fatalf("CallLLM() error = %v", err)
	}
	if response.Content != "Mock response from test-mock" {
		t.Errorf("Content = %q, expected the seeded default", response.Content)
	}
}
