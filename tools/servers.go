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

const errServerNotFound = "Server not found or bot is not a member of this server"

func guildIDSchema() *schema.JSON {
	return schema.NewObject(map[string]*schema.JSON{
		"guildId": schema.Property(schema.String, "The ID of the Discord server/guild"),
	}, "guildId")
}

// GetServers lists the servers the bot is a member of.
type GetServers struct{}

type serverRef struct {
	ID   chat.Snowflake `json:"id"`
	Name string         `json:"name"`
}

func (GetServers) Name() string        { return "get_discord_servers" }
func (GetServers) Description() string { return "List all Discord servers the bot is in" }
func (GetServers) InputSchema() *schema.JSON {
	return schema.NewObject(nil)
}

func (GetServers) Execute(ctx context.Context, client chat.Client, _ json.RawMessage) (chat.Result, error) {
	guilds, err := client.Guilds(ctx)
	if err != nil {
		return failure(err), nil
	}
	servers := make([]serverRef, 0, len(guilds))
	for _, g := range guilds {
		servers = append(servers, serverRef{ID: g.ID, Name: g.Name})
	}
	return chat.Success(struct {
		Servers []serverRef `json:"servers"`
	}{servers}), nil
}

// GetServerInfo describes one server.
type GetServerInfo struct{}

type serverInfo struct {
	ID                    chat.Snowflake `json:"id"`
	Name                  string         `json:"name"`
	Description           *string        `json:"description"`
	MemberCount           int            `json:"memberCount"`
	CreatedAt             time.Time      `json:"createdAt"`
	OwnerID               chat.Snowflake `json:"ownerId"`
	IconURL               *string        `json:"iconUrl"`
	BannerURL             *string        `json:"bannerUrl"`
	PreferredLocale       string         `json:"preferredLocale"`
	PremiumTier           string         `json:"premiumTier"`
	BoostCount            int            `json:"boostCount"`
	VerificationLevel     string         `json:"verificationLevel"`
	ExplicitContentFilter string         `json:"explicitContentFilter"`
	TextChannelCount      int            `json:"textChannelCount"`
	VoiceChannelCount     int            `json:"voiceChannelCount"`
	CategoryCount         int            `json:"categoryCount"`
	RoleCount             int            `json:"roleCount"`
}

func (GetServerInfo) Name() string { return "discord_get_server_info" }
func (GetServerInfo) Description() string {
	return "Get detailed information about a specific Discord server"
}
func (GetServerInfo) InputSchema() *schema.JSON { return guildIDSchema() }

func (GetServerInfo) Execute(ctx context.Context, client chat.Client, raw json.RawMessage) (chat.Result, error) {
	guildID, err := parseArgs(raw).id("guildId")
	if err != nil {
		return failure(err), nil
	}

	guild, channels, err := guildWithChannels(ctx, client, guildID)
	if errors.Is(err, chat.ErrNotFound) {
		return chat.Failure(errServerNotFound), nil
	}
	if err != nil {
		return failure(err), nil
	}

	info := serverInfo{
		ID:                    guild.ID,
		Name:                  guild.Name,
		Description:           optional(guild.Description),
		MemberCount:           guild.ApproximateMemberCount,
		CreatedAt:             guild.ID.Time(),
		OwnerID:               guild.OwnerID,
		IconURL:               optional(guild.IconURL()),
		BannerURL:             optional(guild.BannerURL()),
		PreferredLocale:       guild.PreferredLocale,
		PremiumTier:           enumName(premiumTiers, guild.PremiumTier),
		BoostCount:            guild.PremiumSubscriptionCount,
		VerificationLevel:     enumName(verificationLevels, guild.VerificationLevel),
		ExplicitContentFilter: enumName(explicitContentFilters, guild.ExplicitContentFilter),
		RoleCount:             len(guild.Roles),
	}
	for _, c := range channels {
		switch c.Type {
		case chat.ChannelText, chat.ChannelAnnouncement:
			info.TextChannelCount++
		case chat.ChannelVoice:
			info.VoiceChannelCount++
		case chat.ChannelCategory:
			info.CategoryCount++
		}
	}

	return chat.Success(struct {
		ServerInfo serverInfo `json:"serverInfo"`
	}{info}), nil
}

// GetServerChannels lists every channel of a server grouped by kind.
type GetServerChannels struct{}

type channelInfo struct {
	ID         chat.Snowflake  `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	CategoryID *chat.Snowflake `json:"categoryId,omitzero"`
	Position   int             `json:"position"`
	Topic      *string         `json:"topic,omitzero"`
	IsNSFW     *bool           `json:"isNsfw,omitzero"`
	UserLimit  *int            `json:"userLimit,omitzero"`
	Bitrate    *int            `json:"bitrate,omitzero"`
}

type serverChannels struct {
	GuildID          chat.Snowflake `json:"guildId"`
	GuildName        string         `json:"guildName"`
	TextChannels     []channelInfo  `json:"textChannels"`
	VoiceChannels    []channelInfo  `json:"voiceChannels"`
	CategoryChannels []channelInfo  `json:"categoryChannels"`
	ForumChannels    []channelInfo  `json:"forumChannels"`
	StageChannels    []channelInfo  `json:"stageChannels"`
	TotalChannels    int            `json:"totalChannels"`
}

func (GetServerChannels) Name() string { return "discord_get_server_channels" }
func (GetServerChannels) Description() string {
	return "Get all channels in a Discord server with their IDs"
}
func (GetServerChannels) InputSchema() *schema.JSON { return guildIDSchema() }

func (GetServerChannels) Execute(ctx context.Context, client chat.Client, raw json.RawMessage) (chat.Result, error) {
	guildID, err := parseArgs(raw).id("guildId")
	if err != nil {
		return failure(err), nil
	}

	guild, channels, err := guildWithChannels(ctx, client, guildID)
	if errors.Is(err, chat.ErrNotFound) {
		return chat.Failure(errServerNotFound), nil
	}
	if err != nil {
		return failure(err), nil
	}

	sort.SliceStable(channels, func(i, j int) bool {
		if channels[i].Position != channels[j].Position {
			return channels[i].Position < channels[j].Position
		}
		return channels[i].ID < channels[j].ID
	})

	out := serverChannels{
		GuildID:          guild.ID,
		GuildName:        guild.Name,
		TextChannels:     []channelInfo{},
		VoiceChannels:    []channelInfo{},
		CategoryChannels: []channelInfo{},
		ForumChannels:    []channelInfo{},
		StageChannels:    []channelInfo{},
	}
	for _, c := range channels {
		info := channelInfo{ID: c.ID, Name: c.Name, Position: c.Position}
		switch c.Type {
		case chat.ChannelText, chat.ChannelAnnouncement:
			info.Type = "text"
			info.CategoryID, info.Topic, info.IsNSFW = category(c), &c.Topic, &c.NSFW
			out.TextChannels = append(out.TextChannels, info)
		case chat.ChannelVoice:
			info.Type = "voice"
			info.CategoryID, info.UserLimit, info.Bitrate = category(c), &c.UserLimit, &c.Bitrate
			out.VoiceChannels = append(out.VoiceChannels, info)
		case chat.ChannelCategory:
			info.Type = "category"
			out.CategoryChannels = append(out.CategoryChannels, info)
		case chat.ChannelForum:
			info.Type = "forum"
			info.CategoryID, info.Topic, info.IsNSFW = category(c), &c.Topic, &c.NSFW
			out.ForumChannels = append(out.ForumChannels, info)
		case chat.ChannelStage:
			info.Type = "stage"
			info.CategoryID, info.UserLimit, info.Bitrate = category(c), &c.UserLimit, &c.Bitrate
			out.StageChannels = append(out.StageChannels, info)
		default:
			continue
		}
		out.TotalChannels++
	}

	return chat.Success(struct {
		Channels serverChannels `json:"channels"`
	}{out}), nil
}

// guildWithChannels fetches a guild and its channels concurrently.
func guildWithChannels(ctx context.Context, client chat.Client, guildID chat.Snowflake) (chat.Guild, []chat.Channel, error) {
	var (
		guild    chat.Guild
		channels []chat.Channel
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		guild, err = client.Guild(gctx, guildID)
		return err
	})
	g.Go(func() error {
		var err error
		channels, err = client.GuildChannels(gctx, guildID)
		return err
	})
	if err := g.Wait(); err != nil {
		return chat.Guild{}, nil, err
	}
	return guild, channels, nil
}

func category(c chat.Channel) *chat.Snowflake {
	if c.ParentID == 0 {
		return nil
	}
	id := c.ParentID
	return &id
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
