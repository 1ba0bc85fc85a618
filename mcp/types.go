// Package mcp provides a JSON-RPC based Model Context Protocol (MCP) server implementation.
//
// MCP is a protocol for exposing tools to LLM-powered applications. This package implements
// the server side of the protocol over newline-delimited JSON on a pair of streams, the way
// MCP hosts launch local servers: one request per input line, one response per output line.
//
// # Basic Usage
//
// Create a registry, register tools that implement [chat.Tool], then create and run a server
// bound to a [chat.Client]:
//
//	registry := mcp.NewRegistry()
//	registry.Discover(tools.Catalog())
//
//	server, err := mcp.NewServer(registry, client, mcp.Implementation{
//	    Name:    "MCP-Discord",
//	    Version: "1.0.0",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
//
// # Errors
//
// Three tiers are kept apart. Undecodable input lines are logged and skipped (or answered
// with -32700 when [WithParseErrorResponses] is set). Unknown methods get a JSON-RPC error
// object. Everything that goes wrong inside a tool, including an unknown tool name, comes
// back as a successful tools/call result whose text payload carries an "error" field.
//
// # Protocol Details
//
// This implementation supports the following MCP methods:
//   - initialize: Handshake and capability exchange
//   - ping: Connection health check
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool
//   - notifications/initialized: Client ready notification (no response)
package mcp

import "encoding/json"

// ProtocolVersion is the MCP protocol version announced by default.
const ProtocolVersion = "2024-11-05"

const (
	errParse          = -32700
	errInvalidRequest = -32600
	errMethodNotFound = -32601
	errInvalidParams  = -32602
	errInternal       = -32603
)

// Request represents a JSON-RPC 2.0 request message.
// The ID field is omitted for notification requests that don't expect a response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitzero"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitzero"`
}

// IsNotification reports whether the request carries no usable id. An explicit
// null id is treated the same as an absent one.
func (r Request) IsNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

// Response represents a JSON-RPC 2.0 response message.
// Either Result or Error will be set, but not both.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitzero"`
	Result  any             `json:"result,omitzero"`
	Error   *Error          `json:"error,omitzero"`
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitzero"`
}

func (e *Error) Error() string {
	return e.Message
}

// Implementation identifies an MCP server or client implementation.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolDefinition describes a tool's interface as returned by tools/list.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ToolCapabilities describes the server's tool-related capabilities.
type ToolCapabilities struct {
	ListChanged bool `json:"listChanged,omitzero"`
}

// ServerCapabilities describes what features the server supports.
type ServerCapabilities struct {
	Tools *ToolCapabilities `json:"tools,omitzero"`
}

// InitializeResult is returned by the initialize method during handshake.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitzero"`
}

// ListToolsResult is returned by the tools/list method.
type ListToolsResult struct {
	Tools []ToolDefinition `json:"tools"`
}

// ContentBlock represents a piece of content in a tool result.
// Only "text" blocks are produced.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolResult is returned by the tools/call method. The single text block holds
// the JSON-encoded tool result.
type CallToolResult struct {
	Content []ContentBlock `json:"content"`
}
