package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is matched by errors.Is when the platform reports that a
// guild, channel, user or member does not exist or is not visible to the bot.
var ErrNotFound = errors.New("not found")

// Client is the chat platform as seen by tools. Every method is a fallible
// remote call; implementations return *RemoteError for platform rejections.
type Client interface {
	// CurrentUser returns the bot's own account.
	CurrentUser(ctx context.Context) (User, error)
	// Guilds lists the servers the bot is a member of.
	Guilds(ctx context.Context) ([]Guild, error)
	// Guild looks up a server, including its roles.
	Guild(ctx context.Context, id Snowflake) (Guild, error)
	// GuildChannels lists every channel of a server.
	GuildChannels(ctx context.Context, guildID Snowflake) ([]Channel, error)
	// Channel looks up a channel or direct conversation.
	Channel(ctx context.Context, id Snowflake) (Channel, error)
	// Members lists every member of a server with their presence status.
	Members(ctx context.Context, guildID Snowflake) ([]Member, error)
	// Member looks up one member of a server.
	Member(ctx context.Context, guildID, userID Snowflake) (Member, error)
	// User looks up any user by id.
	User(ctx context.Context, id Snowflake) (User, error)
	// Messages returns up to limit recent messages from a channel.
	Messages(ctx context.Context, channelID Snowflake, limit int) ([]Message, error)
	// SendMessage posts content to a channel or direct conversation.
	SendMessage(ctx context.Context, channelID Snowflake, content string) (Message, error)
	// CreateDM opens (or reuses) the direct conversation with a user.
	CreateDM(ctx context.Context, userID Snowflake) (Channel, error)
}

// Discord JSON error codes the tools react to.
const (
	CodeUnknownUser       = 10013
	CodeCannotMessageUser = 50007
)

// RemoteError is a rejection reported by the chat platform.
type RemoteError struct {
	Status  int    // HTTP status, 0 when not applicable
	Code    int    // platform error code, 0 when absent
	Message string // platform supplied message
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote error: status %d", e.Status)
	}
	return e.Message
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *RemoteError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}
