package mcp

import "encoding/json"

// ProtocolVersion is the MCP revision these servers speak
const ProtocolVersion = "2024-11-05"

// Tool describes a callable tool advertised through tools/list
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ServerInfo identifies a server during initialize
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the result of the initialize handshake
type InitializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	ServerInfo      ServerInfo             `json:"serverInfo"`
	Capabilities    map[string]interface{} `json:"capabilities"`
}

// ToolsListResult is the result of tools/list
type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

// CallToolParams are the params of tools/call
type CallToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// Content is one block of a tool result
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolResult is the result of tools/call
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// TextResult renders v as indented JSON inside a single text block
func TextResult(v interface{}) (*CallToolResult, error) {
	if s, ok := v.(string); ok {
		return &CallToolResult{Content: []Content{{Type: "text", Text: s}}}, nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &CallToolResult{Content: []Content{{Type: "text", Text: string(data)}}}, nil
}

// ErrorResult reports a tool-level failure without failing the RPC
func ErrorResult(message string) *CallToolResult {
	return &CallToolResult{
		Content: []Content{{Type: "text", Text: message}},
		IsError: true,
	}
}

// Error represents a JSON-RPC error response compatible with MCP transport layer
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ObjectSchema builds a JSON schema object with the given properties
func ObjectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
