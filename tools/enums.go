package tools

import (
	"strconv"

	"github.com/iancoleman/strcase"

	"github.com/nayeemcharx/discord-mcp-toolkit/chat"
)

var (
	premiumTiers           = []string{"none", "tier_1", "tier_2", "tier_3"}
	verificationLevels     = []string{"none", "low", "medium", "high", "very_high"}
	explicitContentFilters = []string{"disabled", "members_without_roles", "all_members"}

	messageTypes = map[int]string{
		0:  "default",
		1:  "recipient_add",
		2:  "recipient_remove",
		3:  "call",
		4:  "channel_name_change",
		5:  "channel_icon_change",
		6:  "channel_pinned_message",
		7:  "guild_member_join",
		8:  "user_premium_guild_subscription",
		9:  "user_premium_guild_subscription_tier_1",
		10: "user_premium_guild_subscription_tier_2",
		11: "user_premium_guild_subscription_tier_3",
		12: "channel_follow_add",
		14: "guild_discovery_disqualified",
		15: "guild_discovery_requalified",
		18: "thread_created",
		19: "reply",
		20: "application_command",
		21: "thread_starter_message",
		22: "guild_invite_reminder",
		23: "context_menu_command",
		24: "auto_moderation_action",
	}

	statuses = map[chat.Status]string{
		chat.StatusOnline:    "online",
		chat.StatusIdle:      "idle",
		chat.StatusDND:       "do_not_disturb",
		chat.StatusInvisible: "invisible",
		chat.StatusOffline:   "offline",
	}
)

// enumName renders a platform enum value the way client libraries name it,
// e.g. 1 in premiumTiers becomes "Tier1". Unknown values render as numbers.
func enumName(names []string, v int) string {
	if v < 0 || v >= len(names) {
		return strconv.Itoa(v)
	}
	return strcase.ToCamel(names[v])
}

func messageTypeName(t int) string {
	if name, ok := messageTypes[t]; ok {
		return strcase.ToCamel(name)
	}
	return strconv.Itoa(t)
}

func statusName(s chat.Status) string {
	if name, ok := statuses[s]; ok {
		return strcase.ToCamel(name)
	}
	return "Offline"
}
