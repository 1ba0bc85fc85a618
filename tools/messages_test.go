package tools

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nayeemcharx/discord-mcp-toolkit/chat"
)

func history() []chat.Message {
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	edited := base.Add(time.Hour)
	color := 0x00FF00
	return []chat.Message{
		{
			ID:        1001,
			Content:   "hello gophers",
			Author:    chat.User{ID: aliceID, Username: "alice", GlobalName: "Alice A.", Discriminator: "0"},
			Timestamp: base,
		},
		{
			ID:              1002,
			Content:         "release notes @everyone",
			Author:          chat.User{ID: bobID, Username: "bob", Discriminator: "0", Avatar: "abc123"},
			Timestamp:       base.Add(time.Minute),
			EditedTimestamp: &edited,
			Pinned:          true,
			MentionEveryone: true,
			Mentions:        []chat.User{{ID: aliceID, Username: "alice"}},
			MentionRoles:    []chat.Snowflake{moderatorID},
			Attachments: []chat.Attachment{
				{ID: 5, Filename: "notes.txt", Size: 42, URL: "https://cdn.example/notes.txt", ContentType: "text/plain"},
			},
			Embeds: []chat.Embed{{
				Title:  "v1.2.0",
				URL:    "https://example.com/releases",
				Color:  &color,
				Footer: &chat.EmbedFooter{Text: "release bot"},
				Fields: []chat.EmbedField{{Name: "Fixes", Value: "12", Inline: true}},
			}},
			Reactions: []chat.Reaction{{Count: 3, Emoji: chat.Emoji{Name: "🎉"}}},
		},
		{
			ID:        1003,
			Type:      19,
			Content:   "nice",
			Author:    chat.User{ID: carolID, Username: "carol", Discriminator: "0"},
			Timestamp: base.Add(2 * time.Minute),
		},
	}
}

func TestReadChannelMessages(t *testing.T) {
	client := newGuildClient()
	client.AddMessages(generalID, history()...)

	out := succeeded(t, run(t, ReadChannelMessages{}, client, `{"channelId":"200"}`))

	data := out.Get("data")
	assert.Equal(t, "200", data.Get("channelId").String())
	assert.Equal(t, "general", data.Get("channelName").String())
	assert.Equal(t, "100", data.Get("guildId").String())
	assert.Equal(t, "Gophers", data.Get("guildName").String())
	assert.Equal(t, int64(10), data.Get("requestedLimit").Int())
	assert.Equal(t, int64(3), data.Get("actualCount").Int())

	var ids []string
	for _, m := range data.Get("messages").Array() {
		ids = append(ids, m.Get("id").String())
	}
	assert.Equal(t, []string{"1003", "1002", "1001"}, ids)

	reply := data.Get("messages.0")
	assert.Equal(t, "Reply", reply.Get("messageType").String())
	assert.Equal(t, "null", reply.Get("editedTimestamp").Raw)
	assert.Equal(t, "[]", reply.Get("attachments").Raw)

	rich := data.Get("messages.1")
	assert.Equal(t, "Default", rich.Get("messageType").String())
	assert.True(t, rich.Get("isPinned").Bool())
	assert.True(t, rich.Get("mentionsEveryone").Bool())
	assert.Equal(t, "2025-01-01T10:00:00Z", rich.Get("editedTimestamp").String())
	assert.JSONEq(t, `["11"]`, rich.Get("mentionedUsers").Raw)
	assert.JSONEq(t, `["300"]`, rich.Get("mentionedRoles").Raw)
	assert.Equal(t, "https://cdn.discordapp.com/avatars/12/abc123.png", rich.Get("author.avatarUrl").String())
	assert.JSONEq(t, `[{"id":"5","filename":"notes.txt","size":42,"url":"https://cdn.example/notes.txt","contentType":"text/plain"}]`,
		rich.Get("attachments").Raw)
	assert.JSONEq(t, `[{
		"title":"v1.2.0","description":null,"url":"https://example.com/releases","color":65280,"timestamp":null,
		"footerText":"release bot","authorName":null,"fields":[{"name":"Fixes","value":"12","inline":true}]
	}]`, rich.Get("embeds").Raw)
	assert.JSONEq(t, `[{"emote":"🎉","count":3}]`, rich.Get("reactions").Raw)

	first := data.Get("messages.2")
	assert.JSONEq(t, `{
		"id":"11","username":"alice","discriminator":"0","displayName":"Alice A.","isBot":false,
		"avatarUrl":"https://cdn.discordapp.com/embed/avatars/0.png"
	}`, first.Get("author").Raw)
	assert.Equal(t, "2025-01-01T09:00:00Z", first.Get("timestamp").String())
}

func TestReadChannelMessagesLimit(t *testing.T) {
	client := newGuildClient()
	client.AddMessages(generalID, history()...)

	out := succeeded(t, run(t, ReadChannelMessages{}, client, `{"channelId":"200","limit":2}`))

	assert.Equal(t, int64(2), out.Get("data.requestedLimit").Int())
	assert.Equal(t, int64(2), out.Get("data.actualCount").Int())
	assert.Equal(t, "1003", out.Get("data.messages.0.id").String())
	assert.Equal(t, "1002", out.Get("data.messages.1.id").String())
}

func TestReadChannelMessagesEmptyChannel(t *testing.T) {
	out := succeeded(t, run(t, ReadChannelMessages{}, newGuildClient(), `{"channelId":"203"}`))

	assert.Equal(t, "news", out.Get("data.channelName").String())
	assert.Equal(t, int64(0), out.Get("data.actualCount").Int())
	assert.Equal(t, "[]", out.Get("data.messages").Raw)
}

func TestReadChannelMessagesErrors(t *testing.T) {
	tests := []struct {
		name string
		args string
		want string
	}{
		{"missing channel", `{}`, "channelId parameter is required"},
		{"bad channel", `{"channelId":"abc"}`, "Invalid channelId format"},
		{"limit too small", `{"channelId":"200","limit":0}`, "Limit must be between 1 and 100"},
		{"limit too large", `{"channelId":"200","limit":101}`, "Limit must be between 1 and 100"},
		{"fractional limit", `{"channelId":"200","limit":2.5}`, "Invalid limit format"},
		{"voice channel", `{"channelId":"201"}`, "Text channel not found or bot doesn't have access"},
		{"unknown channel", `{"channelId":"999"}`, "Text channel not found or bot doesn't have access"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := run(t, ReadChannelMessages{}, newGuildClient(), tt.args)
			assert.Equal(t, tt.want, failed(t, out))
		})
	}
}

func TestReadChannelMessagesRemoteError(t *testing.T) {
	client := newGuildClient()
	client.Fail("Messages", &chat.RemoteError{Status: http.StatusForbidden, Code: 50001, Message: "Missing Access"})

	out := run(t, ReadChannelMessages{}, client, `{"channelId":"200"}`)
	assert.Equal(t, "Discord API error: Missing Access", failed(t, out))
}

func TestSendMessage(t *testing.T) {
	client := newGuildClient()

	out := succeeded(t, run(t, SendMessage{}, client, `{"channelId":"200","message":"hi there"}`))

	assert.Equal(t, "hi there", out.Get("content").String())
	assert.Equal(t, "200", out.Get("channelId").String())
	assert.Equal(t, "general", out.Get("channelName").String())
	assert.Equal(t, "100", out.Get("guildId").String())
	assert.Equal(t, "Gophers", out.Get("guildName").String())
	assert.Equal(t, "2025-01-02T03:04:05Z", out.Get("timestamp").String())
	assert.NotEmpty(t, out.Get("messageId").String())
	assert.False(t, out.Get("recipient").Exists())
	assert.JSONEq(t, `{"id":"10","username":"toolkit","displayName":"toolkit","isBot":true}`, out.Get("author").Raw)

	sent := client.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, generalID, sent[0].ChannelID)
	assert.Equal(t, "hi there", sent[0].Content)
}

func TestSendMessageCountsCharacters(t *testing.T) {
	client := newGuildClient()
	content := strings.Repeat("é", MaxMessageLength)

	out := succeeded(t, run(t, SendMessage{}, client, `{"channelId":"200","message":"`+content+`"}`))
	assert.Equal(t, content, out.Get("content").String())
}

func TestSendMessageErrors(t *testing.T) {
	tooLong := strings.Repeat("a", MaxMessageLength+1)
	tests := []struct {
		name string
		args string
		want string
	}{
		{"missing everything", `{}`, "channelId parameter is required"},
		{"missing message", `{"channelId":"123"}`, "message parameter is required"},
		{"missing message before bad channel", `{"channelId":"abc"}`, "message parameter is required"},
		{"bad channel", `{"channelId":"abc","message":"hi"}`, "Invalid channelId format"},
		{"empty message", `{"channelId":"200","message":""}`, "Message content cannot be empty"},
		{"blank message", `{"channelId":"200","message":"  \n\t"}`, "Message content cannot be empty"},
		{"null message", `{"channelId":"200","message":null}`, "Message content cannot be empty"},
		{"too long", `{"channelId":"200","message":"` + tooLong + `"}`, "Message content exceeds Discord's 2000 character limit"},
		{"voice channel", `{"channelId":"201","message":"hi"}`, "Text channel not found or bot doesn't have access"},
		{"no send permission", `{"channelId":"204","message":"hi"}`, "Bot doesn't have permission to send messages in this channel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newGuildClient()
			out := run(t, SendMessage{}, client, tt.args)
			assert.Equal(t, tt.want, failed(t, out))
			assert.Empty(t, client.SentMessages())
		})
	}
}

func TestSendMessageRemoteError(t *testing.T) {
	client := newGuildClient()
	client.Fail("SendMessage", &chat.RemoteError{Status: http.StatusTooManyRequests, Message: "You are being rate limited."})

	out := run(t, SendMessage{}, client, `{"channelId":"200","message":"hi"}`)
	assert.Equal(t, "Discord API error: You are being rate limited.", failed(t, out))
}

func TestSendDirectMessage(t *testing.T) {
	client := newGuildClient()

	out := succeeded(t, run(t, SendDirectMessage{}, client, `{"userId":"11","message":"hey alice"}`))

	assert.Equal(t, "hey alice", out.Get("content").String())
	assert.JSONEq(t, `{"id":"11","username":"alice","displayName":"Alice A.","discriminator":"0","isBot":false}`,
		out.Get("recipient").Raw)
	assert.Equal(t, "toolkit", out.Get("author.username").String())
	assert.False(t, out.Get("guildId").Exists())

	sent := client.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, sent[0].ChannelID.String(), out.Get("channelId").String())
	assert.Equal(t, "hey alice", sent[0].Content)

	again := succeeded(t, run(t, SendDirectMessage{}, client, `{"userId":"11","message":"again"}`))
	assert.Equal(t, out.Get("channelId").String(), again.Get("channelId").String())
	assert.Equal(t, 2, client.Calls("CreateDM"))
}

func TestSendDirectMessageErrors(t *testing.T) {
	tests := []struct {
		name string
		args string
		want string
	}{
		{"missing user", `{"message":"hi"}`, "userId parameter is required"},
		{"missing message", `{"userId":"11"}`, "message parameter is required"},
		{"bad user", `{"userId":"alice","message":"hi"}`, "Invalid userId format"},
		{"blank message", `{"userId":"11","message":" "}`, "Message content cannot be empty"},
		{"unknown user", `{"userId":"999","message":"hi"}`, "User not found or bot doesn't have access to this user"},
		{"bot user", `{"userId":"14","message":"hi"}`, "Cannot send direct messages to bots"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newGuildClient()
			out := run(t, SendDirectMessage{}, client, tt.args)
			assert.Equal(t, tt.want, failed(t, out))
			assert.Empty(t, client.SentMessages())
		})
	}
}

func TestSendDirectMessageRejected(t *testing.T) {
	blocked := &chat.RemoteError{Status: http.StatusForbidden, Code: chat.CodeCannotMessageUser, Message: "Cannot send messages to this user"}
	tests := []struct {
		name   string
		method string
		err    error
		want   string
	}{
		{
			name:   "dm refused",
			method: "SendMessage",
			err:    blocked,
			want:   "Cannot send message to this user. They may have DMs disabled or have blocked the bot.",
		},
		{
			name:   "channel refused",
			method: "CreateDM",
			err:    blocked,
			want:   "Cannot send message to this user. They may have DMs disabled or have blocked the bot.",
		},
		{
			name:   "other rejection",
			method: "SendMessage",
			err:    &chat.RemoteError{Status: http.StatusInternalServerError, Message: "Internal Server Error"},
			want:   "Discord API error: Internal Server Error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newGuildClient()
			client.Fail(tt.method, tt.err)

			out := run(t, SendDirectMessage{}, client, `{"userId":"12","message":"hi"}`)
			assert.Equal(t, tt.want, failed(t, out))
		})
	}
}
