// Package chat defines the contract between MCP tools and the chat platform
// they operate on: the Tool capability, the Result every tool returns, and
// the Client capability through which tools reach the platform.
package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/sjson"

	"github.com/nayeemcharx/discord-mcp-toolkit/schema"
)

// Tool is a named unit of work exposed through tools/call.
type Tool interface {
	// Name is the unique name clients use to invoke the tool.
	Name() string
	// Description is shown to clients in tools/list.
	Description() string
	// InputSchema describes the accepted arguments.
	InputSchema() *schema.JSON
	// Execute runs the tool against the chat platform. Expected problems
	// (bad arguments, missing resources, remote rejections) are reported as a
	// Failure result; a non-nil error means the tool could not complete at all.
	Execute(ctx context.Context, client Client, args json.RawMessage) (Result, error)
}

type resultKind int

const (
	resultSuccess resultKind = iota
	resultFailure
	resultFault
)

// Result is the outcome of a tool invocation. It is either a Success carrying
// a JSON-encodable value, a Failure carrying a message, or a Fault produced when
// the tool could not be run.
type Result struct {
	kind    resultKind
	value   any
	message string
}

// Success wraps a tool's payload. Object payloads are tagged with
// "success":true when encoded; other payloads are nested under "data".
func Success(value any) Result {
	return Result{kind: resultSuccess, value: value}
}

// Failure reports a tool-level error, encoded as {"success":false,"error":message}.
func Failure(message string) Result {
	return Result{kind: resultFailure, message: message}
}

// Failuref is Failure with formatting.
func Failuref(format string, args ...any) Result {
	return Failure(fmt.Sprintf(format, args...))
}

// Fault reports that no tool produced a result, encoded as {"error":message}.
func Fault(message string) Result {
	return Result{kind: resultFault, message: message}
}

// OK reports whether the result is a Success.
func (r Result) OK() bool {
	return r.kind == resultSuccess
}

// Message returns the error message of a Failure or Fault.
func (r Result) Message() string {
	return r.message
}

// Value returns the payload of a Success.
func (r Result) Value() any {
	return r.value
}

func (r Result) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case resultFailure:
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}{Success: false, Error: r.message})
	case resultFault:
		return json.Marshal(struct {
			Error string `json:"error"`
		}{Error: r.message})
	}

	if r.value == nil {
		return []byte(`{"success":true}`), nil
	}
	data, err := json.Marshal(r.value)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	if len(data) == 0 || data[0] != '{' {
		return json.Marshal(struct {
			Success bool            `json:"success"`
			Data    json.RawMessage `json:"data"`
		}{Success: true, Data: data})
	}
	return sjson.SetBytes(data, "success", true)
}
