package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nayeemcharx/discord-mcp-toolkit/chat"
	"github.com/nayeemcharx/discord-mcp-toolkit/internal/logging"
	"github.com/nayeemcharx/discord-mcp-toolkit/persistence"
)

const teardownTimeout = 10 * time.Second

// State is the lifecycle stage of a Serve loop.
type State int32

const (
	StateRunning State = iota
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

type Option func(*Server)

type Server struct {
	registry        *Registry
	client          chat.Client
	info            Implementation
	protocolVersion string
	instructions    string
	parseErrors     bool
	logger          *slog.Logger
	journal         persistence.Journal
	sessionID       string
	shutdown        func(context.Context) error
	state           atomic.Int32
}

func NewServer(registry *Registry, client chat.Client, info Implementation, opts ...Option) (*Server, error) {
	if registry == nil {
		return nil, fmt.Errorf("new server: registry is required")
	}
	if client == nil {
		return nil, fmt.Errorf("new server: chat client is required")
	}
	if info.Name == "" {
		return nil, fmt.Errorf("new server: server name is required")
	}
	if info.Version == "" {
		return nil, fmt.Errorf("new server: server version is required")
	}

	server := &Server{
		registry:        registry,
		client:          client,
		info:            info,
		protocolVersion: ProtocolVersion,
		logger:          logging.Logger(),
		sessionID:       uuid.NewString(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(server)
		}
	}

	if server.protocolVersion == "" {
		return nil, fmt.Errorf("new server: protocol version is required")
	}

	return server, nil
}

func WithInstructions(instructions string) Option {
	return func(server *Server) {
		server.instructions = instructions
	}
}

func WithProtocolVersion(version string) Option {
	return func(server *Server) {
		server.protocolVersion = version
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(server *Server) {
		if logger != nil {
			server.logger = logger
		}
	}
}

// WithParseErrorResponses makes the server answer undecodable lines with a
// JSON-RPC error instead of skipping them.
func WithParseErrorResponses(enabled bool) Option {
	return func(server *Server) {
		server.parseErrors = enabled
	}
}

// WithShutdown registers a teardown hook that runs once when Serve stops,
// whatever the reason.
func WithShutdown(fn func(context.Context) error) Option {
	return func(server *Server) {
		server.shutdown = fn
	}
}

// WithJournal records every tools/call in journal under the server's session id.
func WithJournal(journal persistence.Journal) Option {
	return func(server *Server) {
		server.journal = journal
	}
}

// WithSessionID overrides the generated journal session id.
func WithSessionID(id string) Option {
	return func(server *Server) {
		if id != "" {
			server.sessionID = id
		}
	}
}

// SessionID identifies this server run in the journal.
func (s *Server) SessionID() string {
	return s.sessionID
}

// State reports the lifecycle stage of the serve loop.
func (s *Server) State() State {
	return State(s.state.Load())
}

type inputLine struct {
	data []byte
	err  error
}

// Serve reads requests from in and writes responses to out, one per line, until
// in is exhausted or ctx is cancelled. Cancellation is observed between
// requests; a request already being handled runs to completion. Both paths
// run the teardown hook and return nil; only I/O failures are reported.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	if s == nil {
		return fmt.Errorf("serve: server is nil")
	}
	if in == nil {
		return fmt.Errorf("serve: input reader is nil")
	}
	if out == nil {
		return fmt.Errorf("serve: output writer is nil")
	}

	s.state.Store(int32(StateRunning))

	done := make(chan struct{})
	defer close(done)
	next := make(chan struct{})
	lines := make(chan inputLine)
	go readLines(in, next, lines, done)

	w := bufio.NewWriter(out)

	for {
		if ctx.Err() != nil {
			return s.stop(ctx, nil)
		}

		// the next line is only read once the previous request is answered
		select {
		case <-ctx.Done():
			return s.stop(ctx, nil)
		case next <- struct{}{}:
		}

		var line inputLine
		select {
		case <-ctx.Done():
			return s.stop(ctx, nil)
		case line = <-lines:
		}

		if len(line.data) > 0 {
			if resp := s.handleLine(ctx, line.data); resp != nil {
				if err := s.write(w, resp); err != nil {
					return s.stop(ctx, fmt.Errorf("serve: writing response: %w", err))
				}
			}
		}
		if line.err != nil {
			if errors.Is(line.err, io.EOF) {
				s.logger.Info("input stream closed")
				return s.stop(ctx, nil)
			}
			return s.stop(ctx, fmt.Errorf("serve: reading input: %w", line.err))
		}
	}
}

// readLines reads one line from r for every receive on next. It returns after
// delivering a read error, io.EOF included.
func readLines(r io.Reader, next <-chan struct{}, lines chan<- inputLine, done <-chan struct{}) {
	br := bufio.NewReader(r)
	for {
		select {
		case <-next:
		case <-done:
			return
		}

		data, err := br.ReadBytes('\n')
		select {
		case lines <- inputLine{data: data, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

// stop drains the loop: it runs the teardown hook and moves to StateStopped.
func (s *Server) stop(ctx context.Context, err error) error {
	s.state.Store(int32(StateDraining))
	if ctx.Err() != nil {
		s.logger.Info("shutdown requested")
	}

	if s.shutdown != nil {
		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
		if terr := s.shutdown(tctx); terr != nil {
			s.logger.Warn("teardown failed", "error", terr)
		} else {
			s.logger.Info("teardown complete")
		}
		cancel()
	}

	s.state.Store(int32(StateStopped))
	return err
}

func (s *Server) write(w *bufio.Writer, resp *Response) error {
	data, err := Encode(resp)
	if err != nil {
		s.logger.Error("encode failed", "error", err)
		data, err = Encode(errorResponse(requestID(resp.ID), errInternal, "Internal error", nil))
		if err != nil {
			return err
		}
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.Flush()
}

func (s *Server) handleLine(ctx context.Context, line []byte) *Response {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}
	s.logger.Debug("received", "line", string(bytes.TrimSpace(line)))

	req, err := Decode(line)
	if err != nil {
		s.logger.Warn("decode failed", "error", err)
		var decodeErr *DecodeError
		if s.parseErrors && errors.As(err, &decodeErr) {
			return decodeErr.Response()
		}
		return nil
	}
	return s.handle(ctx, req)
}

func (s *Server) handle(ctx context.Context, req Request) *Response {
	if req.IsNotification() {
		if req.Method == "tools/call" {
			// the call still runs; only its response is dropped
			s.handleCallTool(ctx, req)
			return nil
		}
		s.handleNotification(req)
		return nil
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "ping":
		return resultResponse(req.ID, struct{}{})
	case "tools/list":
		return s.handleListTools(req)
	case "tools/call":
		return s.handleCallTool(ctx, req)
	default:
		s.logger.Warn("unknown method", "method", req.Method)
		return errorResponse(req.ID, errMethodNotFound, "Method not found", nil)
	}
}

func (s *Server) handleNotification(req Request) {
	switch req.Method {
	case "notifications/initialized":
		s.logger.Info("client initialized")
	default:
		s.logger.Debug("ignored notification", "method", req.Method)
	}
}

func (s *Server) handleInitialize(req Request) *Response {
	result := InitializeResult{
		ProtocolVersion: s.protocolVersion,
		Capabilities: ServerCapabilities{
			Tools: &ToolCapabilities{},
		},
		ServerInfo:   s.info,
		Instructions: s.instructions,
	}
	return resultResponse(req.ID, result)
}

func (s *Server) handleListTools(req Request) *Response {
	tools := s.registry.List()
	s.logger.Debug("listing tools", "count", len(tools))
	return resultResponse(req.ID, ListToolsResult{Tools: tools})
}

func (s *Server) handleCallTool(ctx context.Context, req Request) *Response {
	if len(req.Params) == 0 || string(req.Params) == "null" {
		return errorResponse(req.ID, errInvalidParams, "Invalid params", "missing params")
	}

	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, errInvalidParams, "Invalid params", err.Error())
	}
	if params.Name == "" {
		return errorResponse(req.ID, errInvalidParams, "Invalid params", "tool name is required")
	}

	args := normalizeArguments(params.Arguments)
	if args[0] != '{' {
		return errorResponse(req.ID, errInvalidParams, "Invalid params", "arguments must be an object")
	}
	start := time.Now()
	result := s.registry.Dispatch(context.WithoutCancel(ctx), s.client, params.Name, args)
	elapsed := time.Since(start)

	text, err := marshalCompact(result)
	if err != nil {
		s.logger.Error("tool execution failed", "tool", params.Name, "error", err)
		result = chat.Fault("Tool execution failed: " + err.Error())
		if text, err = marshalCompact(result); err != nil {
			return errorResponse(req.ID, errInternal, "Internal error", nil)
		}
	}

	s.record(params.Name, args, text, result, start, elapsed)

	return resultResponse(req.ID, CallToolResult{
		Content: []ContentBlock{{Type: "text", Text: string(text)}},
	})
}

func (s *Server) record(tool string, args, text []byte, result chat.Result, start time.Time, elapsed time.Duration) {
	if s.journal == nil {
		return
	}
	entry := persistence.Entry{
		Tool:      tool,
		Arguments: json.RawMessage(args),
		Result:    json.RawMessage(text),
		Success:   result.OK(),
		Error:     result.Message(),
		Duration:  elapsed,
		Timestamp: start.UTC(),
	}
	if _, err := s.journal.AddEntry(s.sessionID, entry); err != nil {
		s.logger.Warn("journal append failed", "tool", tool, "error", err)
	}
}

func resultResponse(id json.RawMessage, result any) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
}

func errorResponse(id json.RawMessage, code int, message string, data any) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

func requestID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
