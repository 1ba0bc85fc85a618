package chat

import (
	"bytes"
	"fmt"
	"strconv"
)

// Permission is a platform permission bitset.
type Permission uint64

const (
	PermCreateInstantInvite Permission = 1 << 0
	PermKickMembers         Permission = 1 << 1
	PermBanMembers          Permission = 1 << 2
	PermAdministrator       Permission = 1 << 3
	PermManageChannels      Permission = 1 << 4
	PermManageGuild         Permission = 1 << 5
	PermAddReactions        Permission = 1 << 6
	PermViewChannel         Permission = 1 << 10
	PermSendMessages        Permission = 1 << 11
	PermManageMessages      Permission = 1 << 13
	PermReadMessageHistory  Permission = 1 << 16
	PermMentionEveryone     Permission = 1 << 17

	PermAll Permission = ^Permission(0)
)

// Has reports whether every bit of want is set.
func (p Permission) Has(want Permission) bool {
	return p&want == want
}

func (p Permission) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatUint(uint64(p), 10))), nil
}

// UnmarshalJSON accepts the string form used by the REST API and bare numbers.
func (p *Permission) UnmarshalJSON(data []byte) error {
	text := string(bytes.Trim(data, `"`))
	if text == "" || text == "null" {
		*p = 0
		return nil
	}
	v, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return fmt.Errorf("parse permission %q: %w", text, err)
	}
	*p = Permission(v)
	return nil
}

// BasePermissions computes a member's guild-wide permissions: the owner and
// administrators hold everything, everyone else gets @everyone plus their roles.
func BasePermissions(g Guild, m Member) Permission {
	if m.User.ID == g.OwnerID {
		return PermAll
	}

	var perms Permission
	if everyone, ok := g.Role(g.ID); ok {
		perms = everyone.Permissions
	}
	for _, id := range m.Roles {
		if role, ok := g.Role(id); ok {
			perms |= role.Permissions
		}
	}
	if perms.Has(PermAdministrator) {
		return PermAll
	}
	return perms
}

// ChannelPermissions applies a channel's overwrites on top of the member's
// base permissions, in platform order: @everyone, then roles, then the member.
// A member who cannot view the channel holds no permissions in it.
func ChannelPermissions(g Guild, c Channel, m Member) Permission {
	perms := BasePermissions(g, m)
	if perms == PermAll {
		return PermAll
	}

	for _, ow := range c.PermissionOverwrites {
		if ow.Type == OverwriteRole && ow.ID == g.ID {
			perms = perms&^ow.Deny | ow.Allow
			break
		}
	}

	roles := make(map[Snowflake]bool, len(m.Roles))
	for _, id := range m.Roles {
		roles[id] = true
	}
	var allow, deny Permission
	for _, ow := range c.PermissionOverwrites {
		if ow.Type == OverwriteRole && roles[ow.ID] {
			allow |= ow.Allow
			deny |= ow.Deny
		}
	}
	perms = perms&^deny | allow

	for _, ow := range c.PermissionOverwrites {
		if ow.Type == OverwriteMember && ow.ID == m.User.ID {
			perms = perms&^ow.Deny | ow.Allow
			break
		}
	}

	if !perms.Has(PermViewChannel) {
		return 0
	}
	return perms
}
