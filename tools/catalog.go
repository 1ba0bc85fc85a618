// Package tools implements the Discord tools served over MCP.
package tools

import (
	"slices"

	"github.com/nayeemcharx/discord-mcp-toolkit/chat"
	"github.com/nayeemcharx/discord-mcp-toolkit/mcp"
)

// Category groups every tool in this package.
const Category = "Discord"

func constant(t chat.Tool) func() (chat.Tool, error) {
	return func() (chat.Tool, error) { return t, nil }
}

// Catalog returns the discovery table in registration order. Tools named in
// disabled are listed but switched off.
func Catalog(disabled ...string) []mcp.Entry {
	tools := []chat.Tool{
		GetServers{},
		GetServerInfo{},
		GetServerChannels{},
		GetChannelMembers{},
		ReadChannelMessages{},
		SendMessage{},
		SendDirectMessage{},
	}
	entries := make([]mcp.Entry, 0, len(tools))
	for _, t := range tools {
		entries = append(entries, mcp.Entry{
			Name:     t.Name(),
			Category: Category,
			Enabled:  !slices.Contains(disabled, t.Name()),
			New:      constant(t),
		})
	}
	return entries
}
