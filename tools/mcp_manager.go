package tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/client"
	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/ThinkInAIXYZ/go-mcp/transport"
	"github.com/alt-coder/agentflow-go/llm"
)

const (
	listToolsTimeout = 10 * time.Second
	callToolTimeout  = 30 * time.Second
)

// MCPManager maintains client connections to configured MCP servers and
// the tools discovered on them. Tools are addressable both as
// "server.tool" and by bare name; on a bare-name clash the last server
// discovered wins.
type MCPManager struct {
	mu         sync.RWMutex
	clients    map[string]*client.Client
	transports map[string]transport.ClientTransport
	tools      map[string]MCPToolSchema
	config     *MCPConfig
}

// MCPToolSchema describes one tool discovered on an MCP server
type MCPToolSchema struct {
	Name        string                        `json:"name"`
	Description string                        `json:"description"`
	Parameters  map[string]*protocol.Property `json:"parameters"`
	ServerName  string                        `json:"server_name"`
}

// MCPConfig lists MCP servers by name
type MCPConfig struct {
	Servers map[string]MCPServerConfig `json:"servers"`
}

// MCPServerConfig describes how to reach one MCP server. Command starts
// a stdio server; URL connects to an SSE endpoint.
type MCPServerConfig struct {
	Command  string            `json:"command"`
	Args     []string          `json:"args"`
	Env      map[string]string `json:"env"`
	URL      string            `json:"url"`
	Disabled bool              `json:"disabled"`
}

// NewMCPManager creates a manager for the given configuration. A nil
// config means no servers.
func NewMCPManager(config *MCPConfig) *MCPManager {
	if config == nil {
		config = &MCPConfig{Servers: make(map[string]MCPServerConfig)}
	}
	return &MCPManager{
		clients:    make(map[string]*client.Client),
		transports: make(map[string]transport.ClientTransport),
		tools:      make(map[string]MCPToolSchema),
		config:     config,
	}
}

// Initialize connects every enabled server. A server that fails to
// connect is logged and skipped so one bad entry cannot take down the
// rest.
func (m *MCPManager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, serverConfig := range m.config.Servers {
		if serverConfig.Disabled {
			continue
		}
		if err := m.connectServer(ctx, name, serverConfig); err != nil {
			slog.Warn("failed to initialize MCP server", "server", name, "error", err)
		}
	}
	return nil
}

// connectServer dials one server and records its tools. Caller holds
// the write lock.
func (m *MCPManager) connectServer(ctx context.Context, name string, config MCPServerConfig) error {
	t, err := newTransport(name, config)
	if err != nil {
		return err
	}

	cli, err := client.NewClient(t, client.WithClientInfo(&protocol.Implementation{
		Name:    "agentflow-tool-manager",
		Version: "1.0.0",
	}))
	if err != nil {
		return fmt.Errorf("failed to create MCP client: %w", err)
	}

	m.clients[name] = cli
	m.transports[name] = t

	// A failed listing is not fatal, the connection stays usable
	if err := m.discoverTools(ctx, name, cli); err != nil {
		slog.Warn("failed to discover tools from MCP server", "server", name, "error", err)
	}
	return nil
}

// newTransport picks stdio or SSE from a server config
func newTransport(name string, config MCPServerConfig) (transport.ClientTransport, error) {
	switch {
	case config.Command != "":
		t, err := transport.NewStdioClientTransport(config.Command, config.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to create stdio transport: %w", err)
		}
		return t, nil
	case config.URL != "":
		t, err := transport.NewSSEClientTransport(config.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create SSE transport: %w", err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("server %s has neither a command nor a url", name)
	}
}

// discoverTools lists a server's tools and registers each under both
// its prefixed and bare name
func (m *MCPManager) discoverTools(ctx context.Context, serverName string, cli *client.Client) error {
	listCtx, cancel := context.WithTimeout(ctx, listToolsTimeout)
	defer cancel()

	listed, err := cli.ListTools(listCtx)
	if err != nil {
		return fmt.Errorf("failed to list tools: %w", err)
	}

	for _, tool := range listed.Tools {
		schema := MCPToolSchema{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.InputSchema.Properties,
			ServerName:  serverName,
		}
		m.tools[serverName+"."+tool.Name] = schema
		m.tools[tool.Name] = schema
	}
	return nil
}

// GetAvailableTools returns the discovered tools, one entry per tool
// name
func (m *MCPManager) GetAvailableTools() []MCPToolSchema {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool, len(m.tools))
	tools := make([]MCPToolSchema, 0, len(m.tools))
	for _, tool := range m.tools {
		if seen[tool.Name] {
			continue
		}
		seen[tool.Name] = true
		tools = append(tools, tool)
	}
	return tools
}

// HasTool reports whether a tool of this name was discovered
func (m *MCPManager) HasTool(toolName string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.tools[toolName]
	return ok
}

// ExecuteTool forwards a tool call to the server that owns it. Text
// content items are joined with newlines; an image item becomes the
// result's media payload.
func (m *MCPManager) ExecuteTool(ctx context.Context, toolCall llm.ToolCalls) (llm.ToolResults, error) {
	m.mu.RLock()
	tool, known := m.tools[toolCall.ToolName]
	var cli *client.Client
	var connected bool
	if known {
		cli, connected = m.clients[tool.ServerName]
	}
	m.mu.RUnlock()

	if !known {
		return errorResult(toolCall.Id, fmt.Sprintf("MCP tool %q not found", toolCall.ToolName)), nil
	}
	if !connected {
		return errorResult(toolCall.Id, fmt.Sprintf("MCP client for server %q not available", tool.ServerName)), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, callToolTimeout)
	defer cancel()

	result, err := cli.CallTool(callCtx, &protocol.CallToolRequest{
		Name:      toolCall.ToolName,
		Arguments: toolCall.ToolArgs,
	})
	if err != nil {
		return errorResult(toolCall.Id, fmt.Sprintf("MCP tool execution failed: %v", err)), nil
	}

	out := llm.ToolResults{Id: toolCall.Id, IsError: result.IsError}
	var text strings.Builder
	for _, item := range result.Content {
		switch item.GetType() {
		case "text":
			if textContent, ok := item.(*protocol.TextContent); ok {
				if text.Len() > 0 {
					text.WriteByte('\n')
				}
				text.WriteString(textContent.Text)
			}
		case "image":
			if imageContent, ok := item.(*protocol.ImageContent); ok {
				// Image payloads arrive base64 encoded
				if data, decodeErr := base64.StdEncoding.DecodeString(string(imageContent.Data)); decodeErr == nil {
					out.Media = data
					out.MetaData.ContentType = imageContent.MimeType
				}
			}
		}
	}
	out.Content = text.String()
	return out, nil
}

// AddServer registers a server at runtime and connects it unless
// disabled
func (m *MCPManager) AddServer(ctx context.Context, name string, config MCPServerConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config.Servers[name] = config
	if config.Disabled {
		return nil
	}
	return m.connectServer(ctx, name, config)
}

// RemoveServer drops a server, its connection, and every tool it
// contributed
func (m *MCPManager) RemoveServer(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cli, ok := m.clients[name]; ok {
		if err := cli.Close(); err != nil {
			slog.Warn("failed to close MCP client", "server", name, "error", err)
		}
		delete(m.clients, name)
	}
	delete(m.transports, name)

	for key, tool := range m.tools {
		if tool.ServerName == name {
			delete(m.tools, key)
		}
	}
	delete(m.config.Servers, name)
	return nil
}

// Close shuts down every client connection and clears the tool table
func (m *MCPManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, cli := range m.clients {
		if err := cli.Close(); err != nil {
			slog.Warn("failed to close MCP client", "server", name, "error", err)
		}
	}

	m.clients = make(map[string]*client.Client)
	m.transports = make(map[string]transport.ClientTransport)
	m.tools = make(map[string]MCPToolSchema)
	return nil
}
