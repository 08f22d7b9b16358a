// Package tools routes tool calls from workflow nodes to their
// implementations: locally registered Go functions or tools exposed by
// configured MCP servers. Local tools are plain funcs taking one input
// struct and returning one output struct; their parameter schema is
// derived from the input struct's tags.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/alt-coder/agentflow-go/llm"
)

// ToolManager aggregates local tools and MCP tools behind one execute
// surface. Local tools shadow MCP tools of the same name.
type ToolManager struct {
	mu         sync.RWMutex
	localTools map[string]LocalTool
	mcpManager *MCPManager
}

// LocalTool is one registered local tool. Handler is either a
// func(Input) Output pair of structs or a legacy ToolHandler.
type LocalTool struct {
	Name        string
	Description string
	Parameters  map[string]Parameter
	Handler     interface{}
	inputType   reflect.Type
	outputType  reflect.Type
}

// Parameter describes one tool argument in the advertised schema
type Parameter struct {
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required,omitempty"`
	Enum        []string    `json:"enum,omitempty"`
	Default     interface{} `json:"default,omitempty"`
}

// ToolHandler is the map-based handler signature kept for tools that
// predate struct handlers. New tools should use func(Input) Output.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (string, error)

// ToolSchema is the advertised description of one available tool.
// Source is "local" or "mcp".
type ToolSchema struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Parameters  map[string]Parameter `json:"parameters"`
	Source      string               `json:"source"`
}

// NewToolManager creates an empty tool manager
func NewToolManager() *ToolManager {
	return &ToolManager{localTools: make(map[string]LocalTool)}
}

// AddLocalTool registers a struct-handler tool. The handler must be a
// function taking exactly one struct argument and returning exactly one
// value; the argument's fields, via their json/description/default/enum
// tags, become the tool's parameter schema.
func (tm *ToolManager) AddLocalTool(name, description string, handler interface{}) error {
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("tool handler cannot be nil")
	}

	handlerType := reflect.TypeOf(handler)
	if handlerType.Kind() != reflect.Func {
		return fmt.Errorf("handler must be a function")
	}
	if handlerType.NumIn() != 1 || handlerType.NumOut() != 1 {
		return fmt.Errorf("handler must take one input struct and return one value")
	}

	inputType := handlerType.In(0)
	parameters, err := buildParameterSchema(inputType)
	if err != nil {
		return fmt.Errorf("tool %q: %w", name, err)
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.localTools[name] = LocalTool{
		Name:        name,
		Description: description,
		Parameters:  parameters,
		Handler:     handler,
		inputType:   inputType,
		outputType:  handlerType.Out(0),
	}
	return nil
}

// AddLocalToolLegacy registers a caller-built LocalTool carrying a
// map-based ToolHandler and a hand-written parameter schema
func (tm *ToolManager) AddLocalToolLegacy(tool LocalTool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool handler cannot be nil")
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.localTools[tool.Name] = tool
	return nil
}

// RemoveLocalTool unregisters a local tool
func (tm *ToolManager) RemoveLocalTool(name string) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if _, ok := tm.localTools[name]; !ok {
		return fmt.Errorf("tool %q not found", name)
	}
	delete(tm.localTools, name)
	return nil
}

// SetMCPManager attaches the MCP side. Tools from its servers become
// executable through this manager.
func (tm *ToolManager) SetMCPManager(mcpManager *MCPManager) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.mcpManager = mcpManager
}

// HasTool reports whether a tool of this name is executable, local or MCP
func (tm *ToolManager) HasTool(name string) bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	if _, ok := tm.localTools[name]; ok {
		return true
	}
	return tm.mcpManager != nil && tm.mcpManager.HasTool(name)
}

// GetAvailableTools lists every executable tool with its schema
func (tm *ToolManager) GetAvailableTools() []ToolSchema {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	var tools []ToolSchema
	for _, tool := range tm.localTools {
		tools = append(tools, ToolSchema{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
			Source:      "local",
		})
	}

	if tm.mcpManager == nil {
		return tools
	}
	for _, tool := range tm.mcpManager.GetAvailableTools() {
		params := make(map[string]Parameter, len(tool.Parameters))
		for name, prop := range tool.Parameters {
			params[name] = Parameter{
				Type:        string(prop.Type),
				Description: prop.Description,
				Enum:        prop.Enum,
			}
		}
		tools = append(tools, ToolSchema{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  params,
			Source:      "mcp",
		})
	}
	return tools
}

// ExecuteTool runs one tool call and returns its result. Tool-level
// failures (unknown tool, bad arguments, handler failure) come back as
// error-flagged results rather than Go errors, so a model can see what
// went wrong and retry.
func (tm *ToolManager) ExecuteTool(ctx context.Context, toolCall llm.ToolCalls) (llm.ToolResults, error) {
	tm.mu.RLock()
	tool, isLocal := tm.localTools[toolCall.ToolName]
	mcp := tm.mcpManager
	tm.mu.RUnlock()

	if isLocal {
		return runLocalTool(ctx, tool, toolCall), nil
	}
	if mcp != nil {
		return mcp.ExecuteTool(ctx, toolCall)
	}
	return errorResult(toolCall.Id, fmt.Sprintf("no tool named %q", toolCall.ToolName)), nil
}

// Close drops all local tools and shuts down the MCP side
func (tm *ToolManager) Close() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.localTools = make(map[string]LocalTool)
	if tm.mcpManager != nil {
		return tm.mcpManager.Close()
	}
	return nil
}

func errorResult(id, message string) llm.ToolResults {
	return llm.ToolResults{Id: id, IsError: true, Error: message}
}

// runLocalTool dispatches to the legacy or struct-handler path
func runLocalTool(ctx context.Context, tool LocalTool, toolCall llm.ToolCalls) llm.ToolResults {
	if legacy, ok := tool.Handler.(ToolHandler); ok {
		if err := checkLegacyArgs(tool, toolCall.ToolArgs); err != nil {
			return errorResult(toolCall.Id, fmt.Sprintf("invalid arguments: %v", err))
		}
		content, err := legacy(ctx, toolCall.ToolArgs)
		if err != nil {
			return errorResult(toolCall.Id, fmt.Sprintf("tool failed: %v", err))
		}
		return llm.ToolResults{Id: toolCall.Id, Content: content}
	}

	// Handlers may take the input struct by value or by pointer.
	var input, target reflect.Value
	if tool.inputType.Kind() == reflect.Ptr {
		input = reflect.New(tool.inputType.Elem())
		target = input.Elem()
	} else {
		input = reflect.New(tool.inputType).Elem()
		target = input
	}
	if err := decodeInput(target, toolCall.ToolArgs); err != nil {
		return errorResult(toolCall.Id, fmt.Sprintf("invalid arguments: %v", err))
	}

	out := reflect.ValueOf(tool.Handler).Call([]reflect.Value{input})[0]
	content, err := json.Marshal(out.Interface())
	if err != nil {
		return errorResult(toolCall.Id, fmt.Sprintf("cannot encode result: %v", err))
	}
	return llm.ToolResults{Id: toolCall.Id, Content: string(content)}
}

// decodeInput fills the handler's input struct from the call arguments,
// applying default tags and enum checks. Non-pointer fields without a
// default are required.
func decodeInput(input reflect.Value, args map[string]interface{}) error {
	structType := input.Type()
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if !field.IsExported() {
			continue
		}
		name := argName(field)
		if name == "-" {
			continue
		}

		value, supplied := args[name]
		if !supplied {
			if defaultTag := field.Tag.Get("default"); defaultTag != "" {
				if err := assignFromString(input.Field(i), defaultTag); err != nil {
					return fmt.Errorf("default for %q: %w", name, err)
				}
				continue
			}
			if field.Type.Kind() != reflect.Ptr {
				return fmt.Errorf("required parameter %q is missing", name)
			}
			continue
		}

		if enumTag := field.Tag.Get("enum"); enumTag != "" {
			if err := checkEnum(name, value, strings.Split(enumTag, ",")); err != nil {
				return err
			}
		}
		if err := assign(input.Field(i), value); err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
	}
	return nil
}

func checkEnum(name string, value interface{}, allowed []string) error {
	got := fmt.Sprintf("%v", value)
	for _, candidate := range allowed {
		if strings.TrimSpace(candidate) == got {
			return nil
		}
	}
	return fmt.Errorf("parameter %q value %q is not one of %v", name, got, allowed)
}

// assign stores an argument value into a struct field, allocating
// through pointers and converting between compatible kinds
func assign(field reflect.Value, value interface{}) error {
	if value == nil {
		return nil
	}
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return assign(field.Elem(), value)
	}

	v := reflect.ValueOf(value)
	switch {
	case v.Type().AssignableTo(field.Type()):
		field.Set(v)
	case v.Type().ConvertibleTo(field.Type()):
		field.Set(v.Convert(field.Type()))
	default:
		return fmt.Errorf("cannot use %T as %s", value, field.Type())
	}
	return nil
}

// assignFromString interprets a default tag for a field. Strings and
// bools are direct; everything else goes through JSON.
func assignFromString(field reflect.Value, value string) error {
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return assignFromString(field.Elem(), value)
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
		return nil
	case reflect.Bool:
		switch value {
		case "true":
			field.SetBool(true)
		case "false":
			field.SetBool(false)
		default:
			return fmt.Errorf("invalid boolean %q", value)
		}
		return nil
	}

	var decoded interface{}
	if err := json.Unmarshal([]byte(value), &decoded); err != nil {
		return fmt.Errorf("cannot interpret default %q for %s", value, field.Type())
	}
	return assign(field, decoded)
}

// checkLegacyArgs validates map-based calls against the hand-written
// schema: required parameters present, no unknown parameters, values of
// the declared type
func checkLegacyArgs(tool LocalTool, args map[string]interface{}) error {
	for name, param := range tool.Parameters {
		if param.Required {
			if _, ok := args[name]; !ok {
				return fmt.Errorf("required parameter %q is missing", name)
			}
		}
	}

	for name, value := range args {
		param, ok := tool.Parameters[name]
		if !ok {
			return fmt.Errorf("unknown parameter %q", name)
		}
		if err := checkValueType(param, value); err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
	}
	return nil
}

func checkValueType(param Parameter, value interface{}) error {
	switch param.Type {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case "number":
		switch value.(type) {
		case int, int32, int64, float32, float64:
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case "array":
		if _, ok := value.([]interface{}); !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
	case "object":
		if _, ok := value.(map[string]interface{}); !ok {
			return fmt.Errorf("expected object, got %T", value)
		}
	}

	if len(param.Enum) > 0 {
		got := fmt.Sprintf("%v", value)
		for _, candidate := range param.Enum {
			if candidate == got {
				return nil
			}
		}
		return fmt.Errorf("value %q is not one of %v", got, param.Enum)
	}
	return nil
}

// buildParameterSchema derives the advertised schema from a handler's
// input struct
func buildParameterSchema(structType reflect.Type) (map[string]Parameter, error) {
	if structType.Kind() == reflect.Ptr {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("handler input must be a struct, got %s", structType.Kind())
	}

	parameters := make(map[string]Parameter)
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if !field.IsExported() {
			continue
		}
		name := argName(field)
		if name == "-" {
			continue
		}

		schemaType, err := schemaTypeFor(field.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}

		description := field.Tag.Get("description")
		if description == "" {
			description = "Parameter " + name
		}

		var enum []string
		if enumTag := field.Tag.Get("enum"); enumTag != "" {
			enum = strings.Split(enumTag, ",")
		}
		var defaultValue interface{}
		if defaultTag := field.Tag.Get("default"); defaultTag != "" {
			defaultValue = defaultTag
		}

		parameters[name] = Parameter{
			Type:        schemaType,
			Description: description,
			Required:    field.Type.Kind() != reflect.Ptr && defaultValue == nil,
			Enum:        enum,
			Default:     defaultValue,
		}
	}
	return parameters, nil
}

// argName picks the wire name of a struct field: json tag, then yaml
// tag, then the Go name
func argName(field reflect.StructField) string {
	for _, key := range []string{"json", "yaml"} {
		if tag := field.Tag.Get(key); tag != "" {
			if name := strings.Split(tag, ",")[0]; name != "" {
				return name
			}
		}
	}
	return field.Name
}

// schemaTypeFor maps a Go type onto the JSON schema type vocabulary
func schemaTypeFor(t reflect.Type) (string, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string", nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number", nil
	case reflect.Bool:
		return "boolean", nil
	case reflect.Slice, reflect.Array:
		return "array", nil
	case reflect.Map, reflect.Struct:
		return "object", nil
	default:
		return "", fmt.Errorf("unsupported type %s", t.Kind())
	}
}
