package chat

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// discordEpoch is the first millisecond of 2015, the origin of snowflake timestamps.
const discordEpoch = 1420070400000

const cdnURL = "https://cdn.discordapp.com"

// Snowflake is a platform id. It travels as a decimal string on the wire.
type Snowflake uint64

// ParseSnowflake parses a decimal id.
func ParseSnowflake(s string) (Snowflake, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse snowflake %q: %w", s, err)
	}
	return Snowflake(v), nil
}

func (s Snowflake) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// Time is the creation time encoded in the id.
func (s Snowflake) Time() time.Time {
	return time.UnixMilli(int64(s>>22) + discordEpoch).UTC()
}

func (s Snowflake) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

func (s *Snowflake) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}
	text := string(bytes.Trim(data, `"`))
	if text == "" {
		*s = 0
		return nil
	}
	v, err := ParseSnowflake(text)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// User is an account on the platform.
type User struct {
	ID            Snowflake `json:"id"`
	Username      string    `json:"username"`
	GlobalName    string    `json:"global_name"`
	Discriminator string    `json:"discriminator"`
	Avatar        string    `json:"avatar"`
	Bot           bool      `json:"bot"`
}

// DisplayName prefers the global display name over the username.
func (u User) DisplayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// AvatarURL returns the custom avatar, or the default one when unset.
func (u User) AvatarURL() string {
	if u.Avatar == "" {
		return fmt.Sprintf("%s/embed/avatars/%d.png", cdnURL, (uint64(u.ID)>>22)%6)
	}
	return fmt.Sprintf("%s/avatars/%s/%s.png", cdnURL, u.ID, u.Avatar)
}

// Role is a guild role.
type Role struct {
	ID          Snowflake  `json:"id"`
	Name        string     `json:"name"`
	Color       int        `json:"color"`
	Position    int        `json:"position"`
	Permissions Permission `json:"permissions"`
}

// HexColor renders the role color as #rrggbb.
func (r Role) HexColor() string {
	return fmt.Sprintf("#%06X", r.Color&0xFFFFFF)
}

// Guild is a server.
type Guild struct {
	ID                       Snowflake `json:"id"`
	Name                     string    `json:"name"`
	Description              string    `json:"description"`
	Icon                     string    `json:"icon"`
	Banner                   string    `json:"banner"`
	OwnerID                  Snowflake `json:"owner_id"`
	PreferredLocale          string    `json:"preferred_locale"`
	PremiumTier              int       `json:"premium_tier"`
	PremiumSubscriptionCount int       `json:"premium_subscription_count"`
	VerificationLevel        int       `json:"verification_level"`
	ExplicitContentFilter    int       `json:"explicit_content_filter"`
	ApproximateMemberCount   int       `json:"approximate_member_count"`
	Roles                    []Role    `json:"roles"`
}

// Role finds a role by id.
func (g Guild) Role(id Snowflake) (Role, bool) {
	for _, r := range g.Roles {
		if r.ID == id {
			return r, true
		}
	}
	return Role{}, false
}

// IconURL is empty when the guild has no icon.
func (g Guild) IconURL() string {
	if g.Icon == "" {
		return ""
	}
	return fmt.Sprintf("%s/icons/%s/%s.png", cdnURL, g.ID, g.Icon)
}

// BannerURL is empty when the guild has no banner.
func (g Guild) BannerURL() string {
	if g.Banner == "" {
		return ""
	}
	return fmt.Sprintf("%s/banners/%s/%s.png", cdnURL, g.ID, g.Banner)
}

// ChannelType is the platform channel kind.
type ChannelType int

const (
	ChannelText         ChannelType = 0
	ChannelDM           ChannelType = 1
	ChannelVoice        ChannelType = 2
	ChannelGroupDM      ChannelType = 3
	ChannelCategory     ChannelType = 4
	ChannelAnnouncement ChannelType = 5
	ChannelStage        ChannelType = 13
	ChannelForum        ChannelType = 15
)

// IsGuildText reports whether messages can be read from and posted to the
// channel inside a guild.
func (t ChannelType) IsGuildText() bool {
	return t == ChannelText || t == ChannelAnnouncement
}

// OverwriteType tells whether an overwrite targets a role or a member.
type OverwriteType int

const (
	OverwriteRole   OverwriteType = 0
	OverwriteMember OverwriteType = 1
)

// Overwrite is a per-channel permission adjustment.
type Overwrite struct {
	ID    Snowflake     `json:"id"`
	Type  OverwriteType `json:"type"`
	Allow Permission    `json:"allow"`
	Deny  Permission    `json:"deny"`
}

// Channel is a guild channel or a direct conversation.
type Channel struct {
	ID                   Snowflake   `json:"id"`
	Type                 ChannelType `json:"type"`
	GuildID              Snowflake   `json:"guild_id"`
	Name                 string      `json:"name"`
	Topic                string      `json:"topic"`
	Position             int         `json:"position"`
	ParentID             Snowflake   `json:"parent_id"`
	NSFW                 bool        `json:"nsfw"`
	Bitrate              int         `json:"bitrate"`
	UserLimit            int         `json:"user_limit"`
	PermissionOverwrites []Overwrite `json:"permission_overwrites"`
}

// Status is a member's presence.
type Status string

const (
	StatusOnline    Status = "online"
	StatusIdle      Status = "idle"
	StatusDND       Status = "dnd"
	StatusInvisible Status = "invisible"
	StatusOffline   Status = "offline"
)

// Online reports whether the status is visible as connected.
func (s Status) Online() bool {
	return s != "" && s != StatusOffline && s != StatusInvisible
}

// Member is a user's membership in a guild.
type Member struct {
	User     User        `json:"user"`
	Nick     string      `json:"nick"`
	Roles    []Snowflake `json:"roles"`
	JoinedAt time.Time   `json:"joined_at"`
	Status   Status      `json:"-"`
}

// DisplayName prefers the guild nickname, then the global name.
func (m Member) DisplayName() string {
	if m.Nick != "" {
		return m.Nick
	}
	return m.User.DisplayName()
}

// Attachment is a file attached to a message.
type Attachment struct {
	ID          Snowflake `json:"id"`
	Filename    string    `json:"filename"`
	Size        int       `json:"size"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
}

// EmbedField is a name/value pair inside an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Embed is rich content attached to a message.
type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	URL         string       `json:"url"`
	Color       *int         `json:"color"`
	Timestamp   *time.Time   `json:"timestamp"`
	Footer      *EmbedFooter `json:"footer"`
	Author      *EmbedAuthor `json:"author"`
	Fields      []EmbedField `json:"fields"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

type EmbedAuthor struct {
	Name string `json:"name"`
}

// Emoji identifies a reaction emoji; ID is zero for unicode emoji.
type Emoji struct {
	ID   Snowflake `json:"id"`
	Name string    `json:"name"`
}

// Reaction counts one emoji on a message.
type Reaction struct {
	Count int   `json:"count"`
	Emoji Emoji `json:"emoji"`
}

// Message is a posted message.
type Message struct {
	ID              Snowflake    `json:"id"`
	ChannelID       Snowflake    `json:"channel_id"`
	Content         string       `json:"content"`
	Author          User         `json:"author"`
	Timestamp       time.Time    `json:"timestamp"`
	EditedTimestamp *time.Time   `json:"edited_timestamp"`
	Type            int          `json:"type"`
	Pinned          bool         `json:"pinned"`
	MentionEveryone bool         `json:"mention_everyone"`
	Mentions        []User       `json:"mentions"`
	MentionRoles    []Snowflake  `json:"mention_roles"`
	Attachments     []Attachment `json:"attachments"`
	Embeds          []Embed      `json:"embeds"`
	Reactions       []Reaction   `json:"reactions"`
}
