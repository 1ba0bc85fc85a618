package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/nayeemcharx/discord-mcp-toolkit/chat"
	"github.com/nayeemcharx/discord-mcp-toolkit/internal/logging"
	"github.com/nayeemcharx/discord-mcp-toolkit/schema"
)

// ErrDuplicateTool is returned by Register when the name is already taken.
var ErrDuplicateTool = errors.New("duplicate tool")

// Entry is one row of a static discovery table.
type Entry struct {
	Name     string
	Category string
	Enabled  bool
	New      func() (chat.Tool, error)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the diagnostic logger used during discovery and dispatch.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Registry holds the tools exposed by an MCP server, keyed by name and kept in
// registration order. It is safe for concurrent use.
type Registry struct {
	mu          sync.Mutex
	tools       map[string]chat.Tool
	definitions map[string]ToolDefinition
	order       []string
	logger      *slog.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tools:       make(map[string]chat.Tool),
		definitions: make(map[string]ToolDefinition),
		order:       make([]string, 0),
		logger:      logging.Logger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register adds a tool under its declared name. The input schema must be a
// compilable JSON Schema describing an object. A second tool with the same name
// is rejected with ErrDuplicateTool.
func (r *Registry) Register(tool chat.Tool) error {
	if tool == nil {
		return fmt.Errorf("register tool: nil tool")
	}

	definition, err := toolDefinition(tool)
	if err != nil {
		return fmt.Errorf("register tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[definition.Name]; exists {
		return fmt.Errorf("register tool %q: %w", definition.Name, ErrDuplicateTool)
	}

	r.order = append(r.order, definition.Name)
	r.tools[definition.Name] = tool
	r.definitions[definition.Name] = definition
	return nil
}

// Discover registers every enabled entry and returns how many were added.
// Entries whose constructor fails or whose tool cannot be registered are
// skipped with a diagnostic; discovery itself never fails.
func (r *Registry) Discover(entries []Entry) int {
	count := 0
	for _, entry := range entries {
		if !entry.Enabled {
			r.logger.Debug("tool disabled", "tool", entry.Name)
			continue
		}
		tool, err := construct(entry)
		if err == nil {
			err = r.Register(tool)
		}
		if err != nil {
			r.logger.Warn("skipped tool", "entry", entry.Name, "error", err)
			continue
		}
		r.logger.Info("registered tool", "tool", tool.Name(), "category", entry.Category)
		count++
	}
	r.logger.Info("discovered tools", "count", count)
	return count
}

func construct(entry Entry) (tool chat.Tool, err error) {
	if entry.New == nil {
		return nil, fmt.Errorf("construct %q: no constructor", entry.Name)
	}
	defer func() {
		if v := recover(); v != nil {
			tool, err = nil, fmt.Errorf("construct %q: panic: %v", entry.Name, v)
		}
	}()
	tool, err = entry.New()
	if err != nil {
		return nil, fmt.Errorf("construct %q: %w", entry.Name, err)
	}
	return tool, nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (chat.Tool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tool, ok := r.tools[name]
	return tool, ok
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.order)
}

// List returns the definitions of all registered tools in registration order.
// This is used by tools/list.
func (r *Registry) List() []ToolDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()

	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		if def, ok := r.definitions[name]; ok {
			defs = append(defs, def)
		}
	}
	return defs
}

// Dispatch runs the named tool. It never panics and never returns an error:
// an unknown name, a tool error and a tool panic all become Fault results.
func (r *Registry) Dispatch(ctx context.Context, client chat.Client, name string, args json.RawMessage) (result chat.Result) {
	tool, ok := r.Get(name)
	if !ok {
		r.logger.Warn("tool not found", "tool", name)
		return chat.Fault(fmt.Sprintf("Tool '%s' not found", name))
	}

	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("tool execution failed", "tool", name, "panic", v)
			result = chat.Fault(fmt.Sprintf("Tool execution failed: %v", v))
		}
	}()

	result, err := tool.Execute(ctx, client, normalizeArguments(args))
	if err != nil {
		r.logger.Error("tool execution failed", "tool", name, "error", err)
		return chat.Fault("Tool execution failed: " + err.Error())
	}
	return result
}

func toolDefinition(tool chat.Tool) (ToolDefinition, error) {
	name := tool.Name()
	if name == "" {
		return ToolDefinition{}, fmt.Errorf("missing tool name")
	}
	input := tool.InputSchema()
	if input == nil {
		return ToolDefinition{}, fmt.Errorf("missing input schema for %q", name)
	}
	if input.Type != schema.Object {
		return ToolDefinition{}, fmt.Errorf("input schema for %q must describe an object", name)
	}

	raw, err := input.Raw()
	if err != nil {
		return ToolDefinition{}, fmt.Errorf("marshal input schema for %q: %w", name, err)
	}
	if _, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw)); err != nil {
		return ToolDefinition{}, fmt.Errorf("invalid input schema for %q: %w", name, err)
	}

	return ToolDefinition{
		Name:        name,
		Description: tool.Description(),
		InputSchema: raw,
	}, nil
}

func normalizeArguments(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}")
	}
	return trimmed
}
