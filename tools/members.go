package tools

import (
	"context"
	"encoding/json"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/nayeemcharx/discord-mcp-toolkit/chat"
	"github.com/nayeemcharx/discord-mcp-toolkit/schema"
)

const (
	defaultMemberLimit = 100
	maxMemberLimit     = 1000
	joinedAtLayout     = "2006-01-02T15:04:05Z"
)

// GetChannelMembers lists the members who can see a channel.
type GetChannelMembers struct{}

type roleInfo struct {
	ID       chat.Snowflake `json:"id"`
	Name     string         `json:"name"`
	Color    string         `json:"color"`
	Position int            `json:"position"`
}

type memberPermissions struct {
	ManageChannel      bool `json:"manageChannel"`
	SendMessages       bool `json:"sendMessages"`
	ReadMessageHistory bool `json:"readMessageHistory"`
	MentionEveryone    bool `json:"mentionEveryone"`
}

type memberInfo struct {
	ID            chat.Snowflake    `json:"id"`
	Username      string            `json:"username"`
	DisplayName   string            `json:"displayName"`
	GlobalName    *string           `json:"globalName"`
	Discriminator string            `json:"discriminator"`
	Nickname      *string           `json:"nickname"`
	IsBot         bool              `json:"isBot"`
	Status        string            `json:"status"`
	JoinedAt      *string           `json:"joinedAt"`
	Roles         []roleInfo        `json:"roles"`
	Permissions   memberPermissions `json:"permissions"`
}

type channelMembers struct {
	ChannelID              chat.Snowflake `json:"channelId"`
	ChannelName            string         `json:"channelName"`
	GuildID                chat.Snowflake `json:"guildId"`
	GuildName              string         `json:"guildName"`
	MemberCount            int            `json:"memberCount"`
	TotalMembersWithAccess int            `json:"totalMembersWithAccess"`
	IncludeOffline         bool           `json:"includeOffline"`
	Members                []memberInfo   `json:"members"`
}

func (GetChannelMembers) Name() string { return "get_channel_members" }
func (GetChannelMembers) Description() string {
	return "Get a list of members who have access to a Discord channel"
}

func (GetChannelMembers) InputSchema() *schema.JSON {
	return schema.NewObject(map[string]*schema.JSON{
		"channelId": schema.Property(schema.String, "The ID of the Discord channel"),
		"limit": schema.Property(schema.Integer,
			"Maximum number of members to return (default: 100, max: 1000)").Bounded(1, maxMemberLimit),
		"includeOffline": schema.Property(schema.Boolean, "Whether to include offline members (default: true)"),
	}, "channelId")
}

func (GetChannelMembers) Execute(ctx context.Context, client chat.Client, raw json.RawMessage) (chat.Result, error) {
	args := parseArgs(raw)
	channelID, err := args.id("channelId")
	if err != nil {
		return failure(err), nil
	}
	limit, err := args.intRange("limit", defaultMemberLimit, 1, maxMemberLimit)
	if err != nil {
		return failure(err), nil
	}
	includeOffline, err := args.boolean("includeOffline", true)
	if err != nil {
		return failure(err), nil
	}

	channel, err := client.Channel(ctx, channelID)
	if errors.Is(err, chat.ErrNotFound) {
		return chat.Failure("Channel not found or bot doesn't have access"), nil
	}
	if err != nil {
		return failure(err), nil
	}
	if channel.GuildID == 0 {
		return chat.Failure("Channel is not a guild channel"), nil
	}

	var (
		guild   chat.Guild
		members []chat.Member
		me      chat.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		guild, err = client.Guild(gctx, channel.GuildID)
		return err
	})
	g.Go(func() (err error) {
		members, err = client.Members(gctx, channel.GuildID)
		return err
	})
	g.Go(func() (err error) {
		me, err = client.CurrentUser(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return failure(err), nil
	}

	bot, err := findMember(ctx, client, guild.ID, members, me.ID)
	if err != nil {
		return failure(err), nil
	}
	if !chat.ChannelPermissions(guild, channel, bot).Has(chat.PermViewChannel) {
		return chat.Failure("Bot doesn't have permission to view this channel"), nil
	}

	out := channelMembers{
		ChannelID:      channel.ID,
		ChannelName:    channel.Name,
		GuildID:        guild.ID,
		GuildName:      guild.Name,
		IncludeOffline: includeOffline,
		Members:        []memberInfo{},
	}
	for _, m := range members {
		perms := chat.ChannelPermissions(guild, channel, m)
		if !perms.Has(chat.PermViewChannel) {
			continue
		}
		if !includeOffline && !m.Status.Online() {
			continue
		}
		out.TotalMembersWithAccess++
		if len(out.Members) < limit {
			out.Members = append(out.Members, describeMember(guild, m, perms))
		}
	}
	out.MemberCount = len(out.Members)

	return chat.Success(out), nil
}

// findMember picks userID out of an already fetched member list, falling back
// to a direct lookup.
func findMember(ctx context.Context, client chat.Client, guildID chat.Snowflake, members []chat.Member, userID chat.Snowflake) (chat.Member, error) {
	for _, m := range members {
		if m.User.ID == userID {
			return m, nil
		}
	}
	return client.Member(ctx, guildID, userID)
}

func describeMember(guild chat.Guild, m chat.Member, perms chat.Permission) memberInfo {
	info := memberInfo{
		ID:            m.User.ID,
		Username:      m.User.Username,
		DisplayName:   m.DisplayName(),
		GlobalName:    optional(m.User.GlobalName),
		Discriminator: m.User.Discriminator,
		Nickname:      optional(m.Nick),
		IsBot:         m.User.Bot,
		Status:        statusName(m.Status),
		Roles:         []roleInfo{},
		Permissions: memberPermissions{
			ManageChannel:      perms.Has(chat.PermManageChannels),
			SendMessages:       perms.Has(chat.PermSendMessages),
			ReadMessageHistory: perms.Has(chat.PermReadMessageHistory),
			MentionEveryone:    perms.Has(chat.PermMentionEveryone),
		},
	}
	if !m.JoinedAt.IsZero() {
		joined := m.JoinedAt.UTC().Format(joinedAtLayout)
		info.JoinedAt = &joined
	}
	for _, id := range m.Roles {
		if id == guild.ID {
			continue
		}
		role, ok := guild.Role(id)
		if !ok {
			info.Roles = append(info.Roles, roleInfo{ID: id, Name: "Unknown", Color: "#000000"})
			continue
		}
		info.Roles = append(info.Roles, roleInfo{ID: id, Name: role.Name, Color: role.HexColor(), Position: role.Position})
	}
	return info
}
