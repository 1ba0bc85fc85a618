package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nayeemcharx/discord-mcp-toolkit/chat"
	"github.com/nayeemcharx/discord-mcp-toolkit/chat/chattest"
	"github.com/nayeemcharx/discord-mcp-toolkit/persistence"
	"github.com/nayeemcharx/discord-mcp-toolkit/schema"
)

type stubTool struct {
	name        string
	description string
	schema      *schema.JSON
	result      chat.Result
	err         error
	calledWith  *string
	execute     func(ctx context.Context) chat.Result
}

func newStub(name string) *stubTool {
	return &stubTool{
		name:        name,
		description: name + " description",
		schema:      schema.NewObject(nil),
	}
}

func (s *stubTool) Name() string {
	return s.name
}

func (s *stubTool) Description() string {
	return s.description
}

func (s *stubTool) InputSchema() *schema.JSON {
	return s.schema
}

func (s *stubTool) Execute(ctx context.Context, _ chat.Client, args json.RawMessage) (chat.Result, error) {
	if s.calledWith != nil {
		*s.calledWith = string(args)
	}
	if s.execute != nil {
		return s.execute(ctx), nil
	}
	return s.result, s.err
}

var _ chat.Tool = (*stubTool)(nil)

// panicTool is a test tool that panics when called
type panicTool struct{}

func (panicTool) Name() string {
	return "PanicTool"
}

func (panicTool) Description() string {
	return "A tool that panics for testing"
}

func (panicTool) InputSchema() *schema.JSON {
	return schema.NewObject(nil)
}

func (panicTool) Execute(context.Context, chat.Client, json.RawMessage) (chat.Result, error) {
	panic("intentional panic for testing")
}

var _ chat.Tool = (*panicTool)(nil)

var errBoom = errors.New("boom")

func testClient() *chattest.Client {
	return chattest.New(chat.User{ID: 1, Username: "bot", Bot: true})
}

func newTestServer(registry *Registry, opts ...Option) *Server {
	server, err := NewServer(registry, testClient(), Implementation{Name: "test", Version: "1.0"}, opts...)
	if err != nil {
		panic(err)
	}
	return server
}

type failingJournal struct{}

func (failingJournal) AddEntry(string, persistence.Entry) (int64, error) {
	return 0, errBoom
}

func (failingJournal) GetEntry(string, int64) (persistence.Entry, error) {
	return persistence.Entry{}, errBoom
}

func (failingJournal) GetEntries(string) ([]persistence.Entry, error) {
	return nil, errBoom
}

func (failingJournal) ListSessions() ([]persistence.Session, error) {
	return nil, errBoom
}

func (failingJournal) DeleteSession(string) error {
	return errBoom
}

func (failingJournal) Close() error {
	return nil
}

var _ persistence.Journal = failingJournal{}
