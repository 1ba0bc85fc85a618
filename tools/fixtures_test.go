package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/nayeemcharx/discord-mcp-toolkit/chat"
	"github.com/nayeemcharx/discord-mcp-toolkit/chat/chattest"
)

const (
	guildID    chat.Snowflake = 100
	generalID  chat.Snowflake = 200
	voiceID    chat.Snowflake = 201
	categoryID chat.Snowflake = 202
	newsID     chat.Snowflake = 203
	lockedID   chat.Snowflake = 204
	hiddenID   chat.Snowflake = 205

	botID      chat.Snowflake = 10
	aliceID    chat.Snowflake = 11
	bobID      chat.Snowflake = 12
	carolID    chat.Snowflake = 13
	otherBotID chat.Snowflake = 14

	moderatorID chat.Snowflake = 300
)

var joined = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

// newGuildClient returns a platform with one guild laid out like a small
// community server.
func newGuildClient() *chattest.Client {
	me := chat.User{ID: botID, Username: "toolkit", Discriminator: "0001", Bot: true}
	client := chattest.New(me)

	guild := chat.Guild{
		ID:                     guildID,
		Name:                   "Gophers",
		OwnerID:                aliceID,
		PreferredLocale:        "en-US",
		PremiumTier:            1,
		VerificationLevel:      2,
		ExplicitContentFilter:  2,
		ApproximateMemberCount: 4,
		Roles:                  []chat.Role{
			{ID: guildID, Name: "@everyone", Permissions: chat.PermViewChannel | chat.PermSendMessages | chat.PermReadMessageHistory},
			{ID: moderatorID, Name: "Moderator", Color: 0x3498DB, Position: 2, Permissions: chat.PermManageChannels | chat.PermMentionEveryone},
		},
	}
	client.AddGuild(guild,
		chat.Channel{ID: categoryID, Type: chat.ChannelCategory, Name: "Community", Position: 0},
		chat.Channel{ID: generalID, Type: chat.ChannelText, Name: "general", Topic: "chit chat", Position: 1, ParentID: categoryID},
		chat.Channel{ID: voiceID, Type: chat.ChannelVoice, Name: "Lounge", Position: 2, ParentID: categoryID, Bitrate: 64000, UserLimit: 10},
		chat.Channel{ID: newsID, Type: chat.ChannelAnnouncement, Name: "news", Position: 3},
		chat.Channel{ID: lockedID, Type: chat.ChannelText, Name: "read-only", Position: 4, PermissionOverwrites: []chat.Overwrite{
			{ID: guildID, Type: chat.OverwriteRole, Deny: chat.PermSendMessages},
		}},
		chat.Channel{ID: hiddenID, Type: chat.ChannelText, Name: "mods", Position: 5, PermissionOverwrites: []chat.Overwrite{
			{ID: guildID, Type: chat.OverwriteRole, Deny: chat.PermViewChannel},
			{ID: moderatorID, Type: chat.OverwriteRole, Allow: chat.PermViewChannel},
			{ID: botID, Type: chat.OverwriteMember, Allow: chat.PermViewChannel},
		}},
	)

	client.AddMember(guildID, chat.Member{User: me, JoinedAt: joined, Status: chat.StatusOnline})
	client.AddMember(guildID, chat.Member{
		User:     chat.User{ID: aliceID, Username: "alice", GlobalName: "Alice A.", Discriminator: "0"},
		Nick:     "Al",
		JoinedAt: joined,
		Status:   chat.StatusDND,
	})
	client.AddMember(guildID, chat.Member{
		User:     chat.User{ID: bobID, Username: "bob", Discriminator: "0"},
		Roles:    []chat.Snowflake{moderatorID},
		JoinedAt: joined,
		Status:   chat.StatusOffline,
	})
	client.AddMember(guildID, chat.Member{
		User:   chat.User{ID: carolID, Username: "carol", Discriminator: "0"},
		Status: chat.StatusIdle,
	})
	client.AddUser(chat.User{ID: otherBotID, Username: "helper", Bot: true})
	return client
}

// run executes a tool and returns its encoded result for inspection.
func run(t *testing.T, tool chat.Tool, client chat.Client, args string) gjson.Result {
	t.Helper()
	result, err := tool.Execute(context.Background(), client, json.RawMessage(args))
	require.NoError(t, err)
	data, err := json.Marshal(result)
	require.NoError(t, err)
	return gjson.ParseBytes(data)
}

// failed asserts a tool failure and returns its message.
func failed(t *testing.T, out gjson.Result) string {
	t.Helper()
	require.True(t, out.Get("success").Exists(), out.Raw)
	require.False(t, out.Get("success").Bool(), out.Raw)
	return out.Get("error").String()
}

// succeeded asserts a tool success.
func succeeded(t *testing.T, out gjson.Result) gjson.Result {
	t.Helper()
	require.True(t, out.Get("success").Bool(), out.Raw)
	return out
}
