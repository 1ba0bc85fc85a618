package tools

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nayeemcharx/discord-mcp-toolkit/chat"
	"github.com/nayeemcharx/discord-mcp-toolkit/chat/chattest"
)

func TestGetChannelMembers(t *testing.T) {
	data := succeeded(t, run(t, GetChannelMembers{}, newGuildClient(), `{"channelId":"200"}`))

	assert.Equal(t, "200", data.Get("channelId").String())
	assert.Equal(t, "general", data.Get("channelName").String())
	assert.Equal(t, "100", data.Get("guildId").String())
	assert.Equal(t, "Gophers", data.Get("guildName").String())
	assert.True(t, data.Get("includeOffline").Bool())
	assert.Equal(t, int64(4), data.Get("memberCount").Int())
	assert.Equal(t, int64(4), data.Get("totalMembersWithAccess").Int())

	alice := data.Get(`members.#(username=="alice")`)
	require.True(t, alice.Exists())
	assert.Equal(t, "11", alice.Get("id").String())
	assert.Equal(t, "Al", alice.Get("displayName").String())
	assert.Equal(t, "Alice A.", alice.Get("globalName").String())
	assert.Equal(t, "Al", alice.Get("nickname").String())
	assert.Equal(t, "DoNotDisturb", alice.Get("status").String())
	assert.Equal(t, "2024-03-01T12:30:00Z", alice.Get("joinedAt").String())
	assert.True(t, alice.Get("permissions.manageChannel").Bool())

	bob := data.Get(`members.#(username=="bob")`)
	require.True(t, bob.Exists())
	assert.Equal(t, "Offline", bob.Get("status").String())
	assert.JSONEq(t, `[{"id":"300","name":"Moderator","color":"#3498DB","position":2}]`, bob.Get("roles").Raw)
	assert.JSONEq(t, `{"manageChannel":true,"sendMessages":true,"readMessageHistory":true,"mentionEveryone":true}`,
		bob.Get("permissions").Raw)

	carol := data.Get(`members.#(username=="carol")`)
	require.True(t, carol.Exists())
	assert.Equal(t, "null", carol.Get("nickname").Raw)
	assert.Equal(t, "null", carol.Get("joinedAt").Raw)
	assert.Equal(t, "[]", carol.Get("roles").Raw)
	assert.False(t, carol.Get("permissions.manageChannel").Bool())

	bot := data.Get(`members.#(username=="toolkit")`)
	assert.True(t, bot.Get("isBot").Bool())
	assert.Equal(t, "Online", bot.Get("status").String())
}

func TestGetChannelMembersFilters(t *testing.T) {
	tests := []struct {
		name      string
		args      string
		wantNames []string
		wantTotal int64
	}{
		{
			name:      "limit",
			args:      `{"channelId":"200","limit":2}`,
			wantNames: []string{"toolkit", "alice"},
			wantTotal: 4,
		},
		{
			name:      "online only",
			args:      `{"channelId":"200","includeOffline":false}`,
			wantNames: []string{"toolkit", "alice", "carol"},
			wantTotal: 3,
		},
		{
			name:      "overwrites",
			args:      `{"channelId":"205"}`,
			wantNames: []string{"toolkit", "alice", "bob"},
			wantTotal: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := succeeded(t, run(t, GetChannelMembers{}, newGuildClient(), tt.args))

			var names []string
			for _, m := range out.Get("members").Array() {
				names = append(names, m.Get("username").String())
			}
			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, int64(len(tt.wantNames)), out.Get("memberCount").Int())
			assert.Equal(t, tt.wantTotal, out.Get("totalMembersWithAccess").Int())
		})
	}
}

func TestGetChannelMembersErrors(t *testing.T) {
	client := newGuildClient()
	dm, err := client.CreateDM(context.Background(), aliceID)
	require.NoError(t, err)

	tests := []struct {
		name string
		args string
		want string
	}{
		{"missing channel", `{}`, "channelId parameter is required"},
		{"bad channel", `{"channelId":"general"}`, "Invalid channelId format"},
		{"limit too small", `{"channelId":"200","limit":0}`, "Limit must be between 1 and 1000"},
		{"limit too large", `{"channelId":"200","limit":1001}`, "Limit must be between 1 and 1000"},
		{"bad includeOffline", `{"channelId":"200","includeOffline":"yes"}`, "Invalid includeOffline format"},
		{"unknown channel", `{"channelId":"999"}`, "Channel not found or bot doesn't have access"},
		{"direct message", fmt.Sprintf(`{"channelId":"%s"}`, dm.ID), "Channel is not a guild channel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := run(t, GetChannelMembers{}, client, tt.args)
			assert.Equal(t, tt.want, failed(t, out))
		})
	}
}

func TestGetChannelMembersBotCannotView(t *testing.T) {
	me := chat.User{ID: botID, Username: "toolkit", Bot: true}
	client := chattest.New(me)
	client.AddGuild(chat.Guild{
		ID:      guildID,
		Name:    "Gophers",
		OwnerID: aliceID,
		Roles:   []chat.Role{{ID: guildID, Name: "@everyone", Permissions: chat.PermViewChannel}},
	}, chat.Channel{ID: hiddenID, Type: chat.ChannelText, Name: "mods", PermissionOverwrites: []chat.Overwrite{
		{ID: guildID, Type: chat.OverwriteRole, Deny: chat.PermViewChannel},
	}})
	client.AddMember(guildID, chat.Member{User: me})

	out := run(t, GetChannelMembers{}, client, `{"channelId":"205"}`)
	assert.Equal(t, "Bot doesn't have permission to view this channel", failed(t, out))
}
