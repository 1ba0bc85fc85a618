// Package chattest provides an in-memory chat.Client for tests.
package chattest

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/nayeemcharx/discord-mcp-toolkit/chat"
)

// Sent records a message delivered through SendMessage.
type Sent struct {
	ChannelID chat.Snowflake
	Content   string
}

// Client is a chat.Client backed by maps. Populate it through the Add
// helpers; inject failures with Fail.
type Client struct {
	mu sync.Mutex

	Me       chat.User
	guilds   []chat.Guild
	channels map[chat.Snowflake]chat.Channel
	members  map[chat.Snowflake][]chat.Member
	users    map[chat.Snowflake]chat.User
	history  map[chat.Snowflake][]chat.Message
	dms      map[chat.Snowflake]chat.Channel
	failures map[string]error
	sent     []Sent
	nextID   chat.Snowflake
	calls    map[string]int
}

var _ chat.Client = (*Client)(nil)

// New returns an empty platform whose bot account is me.
func New(me chat.User) *Client {
	return &Client{
		Me:       me,
		channels: make(map[chat.Snowflake]chat.Channel),
		members:  make(map[chat.Snowflake][]chat.Member),
		users:    map[chat.Snowflake]chat.User{me.ID: me},
		history:  make(map[chat.Snowflake][]chat.Message),
		dms:      make(map[chat.Snowflake]chat.Channel),
		failures: make(map[string]error),
		nextID:   1 << 40,
		calls:    make(map[string]int),
	}
}

// AddGuild registers a guild and its channels.
func (c *Client) AddGuild(g chat.Guild, channels ...chat.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guilds = append(c.guilds, g)
	for _, ch := range channels {
		ch.GuildID = g.ID
		c.channels[ch.ID] = ch
	}
}

// AddMember adds a member to a guild and makes the user known.
func (c *Client) AddMember(guildID chat.Snowflake, m chat.Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members[guildID] = append(c.members[guildID], m)
	c.users[m.User.ID] = m.User
}

// AddUser makes a user known without guild membership.
func (c *Client) AddUser(u chat.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[u.ID] = u
}

// AddMessages appends channel history, oldest first.
func (c *Client) AddMessages(channelID chat.Snowflake, msgs ...chat.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range msgs {
		m.ChannelID = channelID
		c.history[channelID] = append(c.history[channelID], m)
	}
}

// Fail makes the named method return err until cleared with a nil err.
func (c *Client) Fail(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.failures, method)
		return
	}
	c.failures[method] = err
}

// SentMessages returns every message delivered so far.
func (c *Client) SentMessages() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// Calls reports how many times a method was invoked.
func (c *Client) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

func (c *Client) enter(method string) error {
	c.calls[method]++
	return c.failures[method]
}

func notFound(kind string, id chat.Snowflake) error {
	return &chat.RemoteError{Status: http.StatusNotFound, Message: fmt.Sprintf("Unknown %s %s", kind, id)}
}

func (c *Client) CurrentUser(ctx context.Context) (chat.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("CurrentUser"); err != nil {
		return chat.User{}, err
	}
	return c.Me, nil
}

func (c *Client) Guilds(ctx context.Context) ([]chat.Guild, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Guilds"); err != nil {
		return nil, err
	}
	return append([]chat.Guild(nil), c.guilds...), nil
}

func (c *Client) Guild(ctx context.Context, id chat.Snowflake) (chat.Guild, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Guild"); err != nil {
		return chat.Guild{}, err
	}
	for _, g := range c.guilds {
		if g.ID == id {
			return g, nil
		}
	}
	return chat.Guild{}, notFound("Guild", id)
}

func (c *Client) GuildChannels(ctx context.Context, guildID chat.Snowflake) ([]chat.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("GuildChannels"); err != nil {
		return nil, err
	}
	var out []chat.Channel
	for _, ch := range c.channels {
		if ch.GuildID == guildID {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *Client) Channel(ctx context.Context, id chat.Snowflake) (chat.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Channel"); err != nil {
		return chat.Channel{}, err
	}
	if ch, ok := c.channels[id]; ok {
		return ch, nil
	}
	for _, dm := range c.dms {
		if dm.ID == id {
			return dm, nil
		}
	}
	return chat.Channel{}, notFound("Channel", id)
}

func (c *Client) Members(ctx context.Context, guildID chat.Snowflake) ([]chat.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Members"); err != nil {
		return nil, err
	}
	return append([]chat.Member(nil), c.members[guildID]...), nil
}

func (c *Client) Member(ctx context.Context, guildID, userID chat.Snowflake) (chat.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Member"); err != nil {
		return chat.Member{}, err
	}
	for _, m := range c.members[guildID] {
		if m.User.ID == userID {
			return m, nil
		}
	}
	return chat.Member{}, notFound("Member", userID)
}

func (c *Client) User(ctx context.Context, id chat.Snowflake) (chat.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("User"); err != nil {
		return chat.User{}, err
	}
	if u, ok := c.users[id]; ok {
		return u, nil
	}
	return chat.User{}, &chat.RemoteError{Status: http.StatusNotFound, Code: chat.CodeUnknownUser, Message: "Unknown User"}
}

// Messages returns the newest limit messages, newest first, like the platform does.
func (c *Client) Messages(ctx context.Context, channelID chat.Snowflake, limit int) ([]chat.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("Messages"); err != nil {
		return nil, err
	}
	history := c.history[channelID]
	out := make([]chat.Message, 0, limit)
	for i := len(history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, history[i])
	}
	return out, nil
}

func (c *Client) SendMessage(ctx context.Context, channelID chat.Snowflake, content string) (chat.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("SendMessage"); err != nil {
		return chat.Message{}, err
	}
	c.nextID++
	msg := chat.Message{
		ID:        c.nextID,
		ChannelID: channelID,
		Content:   content,
		Author:    c.Me,
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	c.sent = append(c.sent, Sent{ChannelID: channelID, Content: content})
	c.history[channelID] = append(c.history[channelID], msg)
	return msg, nil
}

func (c *Client) CreateDM(ctx context.Context, userID chat.Snowflake) (chat.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enter("CreateDM"); err != nil {
		return chat.Channel{}, err
	}
	if dm, ok := c.dms[userID]; ok {
		return dm, nil
	}
	c.nextID++
	dm := chat.Channel{ID: c.nextID, Type: chat.ChannelDM}
	c.dms[userID] = dm
	return dm, nil
}
