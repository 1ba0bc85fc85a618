package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nayeemcharx/discord-mcp-toolkit/chat"
	"github.com/nayeemcharx/discord-mcp-toolkit/schema"
)

const (
	defaultMessageLimit = 10
	maxMessageLimit     = 100

	errTextChannelNotFound = "Text channel not found or bot doesn't have access"
)

type authorInfo struct {
	ID            chat.Snowflake `json:"id"`
	Username      string         `json:"username"`
	Discriminator string         `json:"discriminator"`
	DisplayName   string         `json:"displayName"`
	IsBot         bool           `json:"isBot"`
	AvatarURL     string         `json:"avatarUrl"`
}

// senderInfo is the bot account that posted a message.
type senderInfo struct {
	ID          chat.Snowflake `json:"id"`
	Username    string         `json:"username"`
	DisplayName string         `json:"displayName"`
	IsBot       bool           `json:"isBot"`
}

type attachmentInfo struct {
	ID          chat.Snowflake `json:"id"`
	Filename    string         `json:"filename"`
	Size        int            `json:"size"`
	URL         string         `json:"url"`
	ContentType *string        `json:"contentType"`
}

type embedFieldInfo struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedInfo struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	URL         *string          `json:"url"`
	Color       *int             `json:"color"`
	Timestamp   *time.Time       `json:"timestamp"`
	FooterText  *string          `json:"footerText"`
	AuthorName  *string          `json:"authorName"`
	Fields      []embedFieldInfo `json:"fields"`
}

type reactionInfo struct {
	Emote string `json:"emote"`
	Count int    `json:"count"`
}

type messageInfo struct {
	ID               chat.Snowflake   `json:"id"`
	Content          string           `json:"content"`
	Author           authorInfo       `json:"author"`
	Timestamp        time.Time        `json:"timestamp"`
	EditedTimestamp  *time.Time       `json:"editedTimestamp"`
	MessageType      string           `json:"messageType"`
	IsPinned         bool             `json:"isPinned"`
	MentionsEveryone bool             `json:"mentionsEveryone"`
	MentionedUsers   []chat.Snowflake `json:"mentionedUsers"`
	MentionedRoles   []chat.Snowflake `json:"mentionedRoles"`
	Attachments      []attachmentInfo `json:"attachments"`
	Embeds           []embedInfo      `json:"embeds"`
	Reactions        []reactionInfo   `json:"reactions"`
}

type channelMessages struct {
	ChannelID      chat.Snowflake `json:"channelId"`
	ChannelName    string         `json:"channelName"`
	GuildID        chat.Snowflake `json:"guildId"`
	GuildName      string         `json:"guildName"`
	RequestedLimit int            `json:"requestedLimit"`
	ActualCount    int            `json:"actualCount"`
	Messages       []messageInfo  `json:"messages"`
}

// ReadChannelMessages returns the most recent messages of a text channel.
type ReadChannelMessages struct{}

func (ReadChannelMessages) Name() string { return "read_text_channel_messages" }
func (ReadChannelMessages) Description() string {
	return "Read recent messages from a Discord text channel"
}

func (ReadChannelMessages) InputSchema() *schema.JSON {
	return schema.NewObject(map[string]*schema.JSON{
		"channelId": schema.Property(schema.String, "The ID of the Discord text channel"),
		"limit": schema.Property(schema.Integer,
			"Number of recent messages to retrieve (default: 10, max: 100)").Bounded(1, maxMessageLimit),
	}, "channelId")
}

func (ReadChannelMessages) Execute(ctx context.Context, client chat.Client, raw json.RawMessage) (chat.Result, error) {
	args := parseArgs(raw)
	channelID, err := args.id("channelId")
	if err != nil {
		return failure(err), nil
	}
	limit, err := args.intRange("limit", defaultMessageLimit, 1, maxMessageLimit)
	if err != nil {
		return failure(err), nil
	}

	channel, err := textChannel(ctx, client, channelID)
	if err != nil {
		return failure(err), nil
	}

	var (
		guild    chat.Guild
		messages []chat.Message
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		guild, err = client.Guild(gctx, channel.GuildID)
		return err
	})
	g.Go(func() (err error) {
		messages, err = client.Messages(gctx, channel.ID, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return failure(err), nil
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.After(messages[j].Timestamp)
	})

	out := channelMessages{
		ChannelID:      channel.ID,
		ChannelName:    channel.Name,
		GuildID:        guild.ID,
		GuildName:      guild.Name,
		RequestedLimit: limit,
		ActualCount:    len(messages),
		Messages:       make([]messageInfo, 0, len(messages)),
	}
	for _, m := range messages {
		out.Messages = append(out.Messages, describeMessage(m))
	}

	return chat.Success(struct {
		Data channelMessages `json:"data"`
	}{out}), nil
}

// textChannel looks up a guild text channel, reporting anything else as not found.
func textChannel(ctx context.Context, client chat.Client, id chat.Snowflake) (chat.Channel, error) {
	channel, err := client.Channel(ctx, id)
	if errors.Is(err, chat.ErrNotFound) || (err == nil && (channel.GuildID == 0 || !channel.Type.IsGuildText())) {
		return chat.Channel{}, argError(errTextChannelNotFound)
	}
	return channel, err
}

func describeSender(u chat.User) senderInfo {
	return senderInfo{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName(),
		IsBot:       u.Bot,
	}
}

func describeMessage(m chat.Message) messageInfo {
	info := messageInfo{
		ID:      m.ID,
		Content: m.Content,
		Author: authorInfo{
			ID:            m.Author.ID,
			Username:      m.Author.Username,
			Discriminator: m.Author.Discriminator,
			DisplayName:   m.Author.DisplayName(),
			IsBot:         m.Author.Bot,
			AvatarURL:     m.Author.AvatarURL(),
		},
		Timestamp:        m.Timestamp,
		EditedTimestamp:  m.EditedTimestamp,
		MessageType:      messageTypeName(m.Type),
		IsPinned:         m.Pinned,
		MentionsEveryone: m.MentionEveryone,
		MentionedUsers:   make([]chat.Snowflake, 0, len(m.Mentions)),
		MentionedRoles:   append([]chat.Snowflake{}, m.MentionRoles...),
		Attachments:      make([]attachmentInfo, 0, len(m.Attachments)),
		Embeds:           make([]embedInfo, 0, len(m.Embeds)),
		Reactions:        make([]reactionInfo, 0, len(m.Reactions)),
	}
	for _, u := range m.Mentions {
		info.MentionedUsers = append(info.MentionedUsers, u.ID)
	}
	for _, a := range m.Attachments {
		info.Attachments = append(info.Attachments, attachmentInfo{
			ID:          a.ID,
			Filename:    a.Filename,
			Size:        a.Size,
			URL:         a.URL,
			ContentType: optional(a.ContentType),
		})
	}
	for _, e := range m.Embeds {
		embed := embedInfo{
			Title:       optional(e.Title),
			Description: optional(e.Description),
			URL:         optional(e.URL),
			Color:       e.Color,
			Timestamp:   e.Timestamp,
			Fields:      make([]embedFieldInfo, 0, len(e.Fields)),
		}
		if e.Footer != nil {
			embed.FooterText = optional(e.Footer.Text)
		}
		if e.Author != nil {
			embed.AuthorName = optional(e.Author.Name)
		}
		for _, f := range e.Fields {
			embed.Fields = append(embed.Fields, embedFieldInfo(f))
		}
		info.Embeds = append(info.Embeds, embed)
	}
	for _, r := range m.Reactions {
		info.Reactions = append(info.Reactions, reactionInfo{Emote: r.Emoji.Name, Count: r.Count})
	}
	return info
}

type sentMessage struct {
	MessageID   chat.Snowflake `json:"messageId"`
	Content     string         `json:"content"`
	Timestamp   time.Time      `json:"timestamp"`
	ChannelID   chat.Snowflake `json:"channelId"`
	ChannelName string         `json:"channelName,omitzero"`
	GuildID     chat.Snowflake `json:"guildId,omitzero"`
	GuildName   string         `json:"guildName,omitzero"`
	Recipient   *recipientInfo `json:"recipient,omitzero"`
	Author      senderInfo     `json:"author"`
}

type recipientInfo struct {
	ID            chat.Snowflake `json:"id"`
	Username      string         `json:"username"`
	DisplayName   string         `json:"displayName"`
	Discriminator string         `json:"discriminator"`
	IsBot         bool           `json:"isBot"`
}

func messageSchema(idName, idDescription string) *schema.JSON {
	return schema.NewObject(map[string]*schema.JSON{
		idName:    schema.Property(schema.String, idDescription),
		"message": schema.Property(schema.String, "The message content to send").Limit(MaxMessageLength),
	}, idName, "message")
}

// SendMessage posts a message to a guild text channel.
type SendMessage struct{}

func (SendMessage) Name() string        { return "send_message" }
func (SendMessage) Description() string { return "Send a message to a Discord text channel" }
func (SendMessage) InputSchema() *schema.JSON {
	return messageSchema("channelId", "The ID of the Discord text channel")
}

func (SendMessage) Execute(ctx context.Context, client chat.Client, raw json.RawMessage) (chat.Result, error) {
	args := parseArgs(raw)
	if err := args.require("channelId", "message"); err != nil {
		return failure(err), nil
	}
	channelID, err := args.id("channelId")
	if err != nil {
		return failure(err), nil
	}
	content, err := args.message("message")
	if err != nil {
		return failure(err), nil
	}

	channel, err := textChannel(ctx, client, channelID)
	if err != nil {
		return failure(err), nil
	}

	var (
		guild chat.Guild
		me    chat.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		guild, err = client.Guild(gctx, channel.GuildID)
		return err
	})
	g.Go(func() (err error) {
		me, err = client.CurrentUser(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return failure(err), nil
	}

	bot, err := client.Member(ctx, guild.ID, me.ID)
	if err != nil {
		return failure(err), nil
	}
	if !chat.ChannelPermissions(guild, channel, bot).Has(chat.PermSendMessages) {
		return chat.Failure("Bot doesn't have permission to send messages in this channel"), nil
	}

	sent, err := client.SendMessage(ctx, channel.ID, content)
	if err != nil {
		return failure(err), nil
	}

	return chat.Success(sentMessage{
		MessageID:   sent.ID,
		Content:     sent.Content,
		Timestamp:   sent.Timestamp,
		ChannelID:   channel.ID,
		ChannelName: channel.Name,
		GuildID:     guild.ID,
		GuildName:   guild.Name,
		Author:      describeSender(sent.Author),
	}), nil
}

// SendDirectMessage opens a direct conversation with a user and posts to it.
type SendDirectMessage struct{}

func (SendDirectMessage) Name() string        { return "send_direct_message" }
func (SendDirectMessage) Description() string { return "Send a direct message to a Discord user" }
func (SendDirectMessage) InputSchema() *schema.JSON {
	return messageSchema("userId", "The ID of the Discord user to send a DM to")
}

func (SendDirectMessage) Execute(ctx context.Context, client chat.Client, raw json.RawMessage) (chat.Result, error) {
	args := parseArgs(raw)
	if err := args.require("userId", "message"); err != nil {
		return failure(err), nil
	}
	userID, err := args.id("userId")
	if err != nil {
		return failure(err), nil
	}
	content, err := args.message("message")
	if err != nil {
		return failure(err), nil
	}

	user, err := client.User(ctx, userID)
	if err != nil {
		var remote *chat.RemoteError
		if errors.As(err, &remote) {
			return chat.Failure("User not found or bot doesn't have access to this user"), nil
		}
		return failure(err), nil
	}
	if user.Bot {
		return chat.Failure("Cannot send direct messages to bots"), nil
	}

	dm, err := client.CreateDM(ctx, user.ID)
	if err != nil {
		return dmFailure(err), nil
	}
	sent, err := client.SendMessage(ctx, dm.ID, content)
	if err != nil {
		return dmFailure(err), nil
	}

	return chat.Success(sentMessage{
		MessageID: sent.ID,
		Content:   sent.Content,
		Timestamp: sent.Timestamp,
		ChannelID: dm.ID,
		Recipient: &recipientInfo{
			ID:            user.ID,
			Username:      user.Username,
			DisplayName:   user.DisplayName(),
			Discriminator: user.Discriminator,
			IsBot:         user.Bot,
		},
		Author: describeSender(sent.Author),
	}), nil
}

func dmFailure(err error) chat.Result {
	var remote *chat.RemoteError
	if errors.As(err, &remote) && remote.Code == chat.CodeCannotMessageUser {
		return chat.Failure("Cannot send message to this user. They may have DMs disabled or have blocked the bot.")
	}
	return failure(err)
}
