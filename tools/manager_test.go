package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/alt-coder/agentflow-go/llm"
)

type echoInput struct {
	Text   string `json:"text" description:"Text to echo"`
	Repeat *int   `json:"repeat" description:"How many times to repeat"`
}

type echoOutput struct {
	Echoed string `json:"echoed"`
}

func echoHandler(input echoInput) echoOutput {
	n := 1
	if input.Repeat != nil {
		n = *input.Repeat
	}
	return echoOutput{Echoed: strings.Repeat(input.Text, n)}
}

func TestToolManager_AddLocalTool_Validation(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		handler interface{}
		wantErr bool
	}{
		{
			name:    "valid struct handler",
			tool:    "echo",
			handler: echoHandler,
			wantErr: false,
		},
		{
			name:    "empty name",
			tool:    "",
			handler: echoHandler,
			wantErr: true,
		},
		{
			name:    "nil handler",
			tool:    "echo",
			handler: nil,
			wantErr: true,
		},
		{
			name:    "not a function",
			tool:    "echo",
			handler: "not a func",
			wantErr: true,
		},
		{
			name:    "wrong arity",
			tool:    "echo",
			handler: func(a, b string) string { return a + b },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := NewToolManager()
			err := tm.AddLocalTool(tt.tool, "test tool", tt.handler)
			if (err != nil) != tt.wantErr {
				t.Errorf("AddLocalTool() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestToolManager_ExecuteTool_StructHandler(t *testing.T) {
	tm := NewToolManager()
	if err := tm.AddLocalTool("echo", "Echo text back", echoHandler); err != nil {
		t.Fatalf("AddLocalTool() error = %v", err)
	}

	result, err := tm.ExecuteTool(context.Background(), llm.ToolCalls{
		Id:       "call_1",
		ToolName: "echo",
		ToolArgs: map[string]any{"text": "hi"},
	})
	if err != nil {
		t.Fatalf("ExecuteTool() error = %v", err)
	}

	if result.IsError {
		t.Fatalf("ExecuteTool() returned error result: %s", result.Error)
	}

	if result.Id != "call_1" {
		t.Errorf("Expected result id 'call_1', got '%s'", result.Id)
	}

	var output echoOutput
	if err := json.Unmarshal([]byte(result.Content), &output); err != nil {
		t.Fatalf("Result content is not JSON: %v", err)
	}

	if output.Echoed != "hi" {
		t.Errorf("Expected echoed 'hi', got '%s'", output.Echoed)
	}
}

func TestToolManager_ExecuteTool_MissingRequired(t *testing.T) {
	tm := NewToolManager()
	if err := tm.AddLocalTool("echo", "Echo text back", echoHandler); err != nil {
		t.Fatalf("AddLocalTool() error = %v", err)
	}

	result, err := tm.ExecuteTool(context.Background(), llm.ToolCalls{
		Id:       "call_2",
		ToolName: "echo",
		ToolArgs: map[string]any{},
	})
	if err != nil {
		t.Fatalf("ExecuteTool() error = %v", err)
	}

	if !result.IsError {
		t.Error("Expected error result for missing required parameter")
	}

	if !strings.Contains(result.Error, "text") {
		t.Errorf("Expected error to name the missing parameter, got '%s'", result.Error)
	}
}

func TestToolManager_ExecuteTool_OptionalPointer(t *testing.T) {
	tm := NewToolManager()
	if err := tm.AddLocalTool("echo", "Echo text back", echoHandler); err != nil {
		t.Fatalf("AddLocalTool() error = %v", err)
	}

	result, err := tm.ExecuteTool(context.Background(), llm.ToolCalls{
		Id:       "call_3",
		ToolName: "echo",
		ToolArgs: map[string]any{"text": "ab", "repeat": 3},
	})
	if err != nil {
		t.Fatalf("ExecuteTool() error = %v", err)
	}

	var output echoOutput
	if err := json.Unmarshal([]byte(result.Content), &output); err != nil {
		t.Fatalf("Result content is not JSON: %v", err)
	}

	if output.Echoed != "ababab" {
		t.Errorf("Expected 'ababab', got '%s'", output.Echoed)
	}
}

func TestToolManager_ExecuteTool_NotFound(t *testing.T) {
	tm := NewToolManager()

	result, err := tm.ExecuteTool(context.Background(), llm.ToolCalls{
		Id:       "call_4",
		ToolName: "ghost",
	})
	if err != nil {
		t.Fatalf("ExecuteTool() error = %v", err)
	}

	if !result.IsError {
		t.Error("Expected error result for unknown tool")
	}
}

func TestToolManager_ExecuteTool_LegacyHandler(t *testing.T) {
	tm := NewToolManager()

	legacy := LocalTool{
		Name:        "shout",
		Description: "Uppercase the input",
		Parameters: map[string]Parameter{
			"text": {Type: "string", Description: "Text to shout", Required: true},
		},
		Handler: ToolHandler(func(ctx context.Context, args map[string]interface{}) (string, error) {
			return strings.ToUpper(args["text"].(string)), nil
		}),
	}
	if err := tm.AddLocalToolLegacy(legacy); err != nil {
		t.Fatalf("AddLocalToolLegacy() error = %v", err)
	}

	result, err := tm.ExecuteTool(context.Background(), llm.ToolCalls{
		Id:       "call_5",
		ToolName: "shout",
		ToolArgs: map[string]any{"text": "quiet"},
	})
	if err != nil {
		t.Fatalf("ExecuteTool() error = %v", err)
	}

	if result.Content != "QUIET" {
		t.Errorf("Expected 'QUIET', got '%s'", result.Content)
	}
}

func TestToolManager_GetAvailableTools(t *testing.T) {
	tm := NewToolManager()
	if err := tm.AddLocalTool("echo", "Echo text back", echoHandler); err != nil {
		t.Fatalf("AddLocalTool() error = %v", err)
	}

	tools := tm.GetAvailableTools()
	if len(tools) != 1 {
		t.Fatalf("Expected 1 tool, got %d", len(tools))
	}

	if tools[0].Source != "local" {
		t.Errorf("Expected source 'local', got '%s'", tools[0].Source)
	}

	param, ok := tools[0].Parameters["text"]
	if !ok {
		t.Fatal("Expected 'text' parameter in schema")
	}
	if param.Type != "string" || !param.Required {
		t.Errorf("Unexpected schema for 'text': %+v", param)
	}

	if repeat, ok := tools[0].Parameters["repeat"]; !ok || repeat.Required {
		t.Errorf("Expected optional 'repeat' parameter, got %+v", repeat)
	}
}

func TestToolManager_HasTool_And_Remove(t *testing.T) {
	tm := NewToolManager()
	if err := tm.AddLocalTool("echo", "Echo text back", echoHandler); err != nil {
		t.Fatalf("AddLocalTool() error = %v", err)
	}

	if !tm.HasTool("echo") {
		t.Error("Expected HasTool to find 'echo'")
	}

	if tm.HasTool("ghost") {
		t.Error("Did not expect HasTool to find 'ghost'")
	}

	if err := tm.RemoveLocalTool("echo"); err != nil {
		t.Errorf("RemoveLocalTool() error = %v", err)
	}

	if tm.HasTool("echo") {
		t.Error("Expected 'echo' to be removed")
	}

	if err := tm.RemoveLocalTool("echo"); err == nil {
		t.Error("Expected error removing a missing tool")
	}
}
