// Package discord implements chat.Client over the Discord REST API. Member
// presence is not exposed over REST; it comes from a Gateway session when one
// is attached.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nayeemcharx/discord-mcp-toolkit/chat"
	"github.com/nayeemcharx/discord-mcp-toolkit/internal/logging"
)

const (
	DefaultAPIURL  = "https://discord.com/api/v10"
	DefaultTimeout = 30 * time.Second

	userAgent      = "DiscordBot (https://github.com/nayeemcharx/discord-mcp-toolkit, 1.0.0)"
	memberPageSize = 1000
	guildPageSize  = 200
	maxAttempts    = 3
	maxErrorBody   = 64 << 10
)

// PresenceSource reports the last known status of a guild member.
type PresenceSource interface {
	Presence(guildID, userID chat.Snowflake) (chat.Status, bool)
}

// Client talks to the Discord REST API with a bot token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	presence   PresenceSource
	logger     *slog.Logger
}

var _ chat.Client = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root, such as a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every request, including retries of rate limited calls.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithPresence attaches a presence source used to fill in member status.
func WithPresence(p PresenceSource) Option {
	return func(c *Client) {
		c.presence = p
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// normalizeToken strips surrounding space and an optional "Bot " scheme.
func normalizeToken(token string) string {
	token = strings.TrimSpace(token)
	if token == "Bot" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(token, "Bot "))
}

// NewClient creates a REST client authenticated as a bot.
func NewClient(token string, opts ...Option) (*Client, error) {
	token = normalizeToken(token)
	if token == "" {
		return nil, fmt.Errorf("discord client: token is required")
	}
	c := &Client{
		baseURL:    DefaultAPIURL,
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logging.Logger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Client) CurrentUser(ctx context.Context) (chat.User, error) {
	var user chat.User
	if err := c.get(ctx, "/users/@me", nil, &user); err != nil {
		return chat.User{}, fmt.Errorf("get current user: %w", err)
	}
	return user, nil
}

// Guilds pages through every guild the bot belongs to.
func (c *Client) Guilds(ctx context.Context) ([]chat.Guild, error) {
	var guilds []chat.Guild
	var after chat.Snowflake
	for {
		query := url.Values{"limit": {strconv.Itoa(guildPageSize)}}
		if after != 0 {
			query.Set("after", after.String())
		}
		var page []chat.Guild
		if err := c.get(ctx, "/users/@me/guilds", query, &page); err != nil {
			return nil, fmt.Errorf("list guilds: %w", err)
		}
		guilds = append(guilds, page...)
		if len(page) < guildPageSize {
			return guilds, nil
		}
		after = page[len(page)-1].ID
	}
}

func (c *Client) Guild(ctx context.Context, id chat.Snowflake) (chat.Guild, error) {
	var guild chat.Guild
	query := url.Values{"with_counts": {"true"}}
	if err := c.get(ctx, "/guilds/"+id.String(), query, &guild); err != nil {
		return chat.Guild{}, fmt.Errorf("get guild %s: %w", id, err)
	}
	return guild, nil
}

func (c *Client) GuildChannels(ctx context.Context, guildID chat.Snowflake) ([]chat.Channel, error) {
	var channels []chat.Channel
	if err := c.get(ctx, "/guilds/"+guildID.String()+"/channels", nil, &channels); err != nil {
		return nil, fmt.Errorf("list channels of guild %s: %w", guildID, err)
	}
	for i := range channels {
		channels[i].GuildID = guildID
	}
	return channels, nil
}

func (c *Client) Channel(ctx context.Context, id chat.Snowflake) (chat.Channel, error) {
	var channel chat.Channel
	if err := c.get(ctx, "/channels/"+id.String(), nil, &channel); err != nil {
		return chat.Channel{}, fmt.Errorf("get channel %s: %w", id, err)
	}
	return channel, nil
}

// Members pages through the whole member list. Requires the privileged
// GUILD_MEMBERS intent on the application.
func (c *Client) Members(ctx context.Context, guildID chat.Snowflake) ([]chat.Member, error) {
	var members []chat.Member
	var after chat.Snowflake
	for {
		query := url.Values{
			"limit": {strconv.Itoa(memberPageSize)},
			"after": {after.String()},
		}
		var page []chat.Member
		if err := c.get(ctx, "/guilds/"+guildID.String()+"/members", query, &page); err != nil {
			return nil, fmt.Errorf("list members of guild %s: %w", guildID, err)
		}
		for _, m := range page {
			members = append(members, c.withPresence(guildID, m))
		}
		if len(page) < memberPageSize {
			return members, nil
		}
		after = page[len(page)-1].User.ID
	}
}

func (c *Client) Member(ctx context.Context, guildID, userID chat.Snowflake) (chat.Member, error) {
	var member chat.Member
	if err := c.get(ctx, "/guilds/"+guildID.String()+"/members/"+userID.String(), nil, &member); err != nil {
		return chat.Member{}, fmt.Errorf("get member %s of guild %s: %w", userID, guildID, err)
	}
	return c.withPresence(guildID, member), nil
}

func (c *Client) withPresence(guildID chat.Snowflake, m chat.Member) chat.Member {
	m.Status = chat.StatusOffline
	if c.presence != nil {
		if status, ok := c.presence.Presence(guildID, m.User.ID); ok {
			m.Status = status
		}
	}
	return m
}

func (c *Client) User(ctx context.Context, id chat.Snowflake) (chat.User, error) {
	var user chat.User
	if err := c.get(ctx, "/users/"+id.String(), nil, &user); err != nil {
		return chat.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return user, nil
}

func (c *Client) Messages(ctx context.Context, channelID chat.Snowflake, limit int) ([]chat.Message, error) {
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	var messages []chat.Message
	if err := c.get(ctx, "/channels/"+channelID.String()+"/messages", query, &messages); err != nil {
		return nil, fmt.Errorf("list messages of channel %s: %w", channelID, err)
	}
	return messages, nil
}

func (c *Client) SendMessage(ctx context.Context, channelID chat.Snowflake, content string) (chat.Message, error) {
	body := struct {
		Content string `json:"content"`
	}{content}
	var msg chat.Message
	if err := c.post(ctx, "/channels/"+channelID.String()+"/messages", body, &msg); err != nil {
		return chat.Message{}, fmt.Errorf("send message to channel %s: %w", channelID, err)
	}
	return msg, nil
}

func (c *Client) CreateDM(ctx context.Context, userID chat.Snowflake) (chat.Channel, error) {
	body := struct {
		RecipientID chat.Snowflake `json:"recipient_id"`
	}{userID}
	var channel chat.Channel
	if err := c.post(ctx, "/users/@me/channels", body, &channel); err != nil {
		return chat.Channel{}, fmt.Errorf("open DM with user %s: %w", userID, err)
	}
	return channel, nil
}

// get performs a GET request against the API.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// post performs a POST request with a JSON body.
func (c *Client) post(ctx context.Context, path string, data any, result any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, body, result)
}

// do sends a request, waiting out rate limits up to maxAttempts times.
func (c *Client) do(ctx context.Context, method, path string, body []byte, result any) error {
	for attempt := 1; ; attempt++ {
		wait, err := c.once(ctx, method, path, body, result)
		if wait == 0 || attempt == maxAttempts {
			return err
		}
		c.logger.Warn("rate limited", "method", method, "path", path, "retry_after", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// once performs a single request. A positive wait means the request was rate
// limited and may be retried after that long.
func (c *Client) once(ctx context.Context, method, path string, body []byte, result any) (time.Duration, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("discord request", "method", method, "path", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remote, wait := remoteError(resp)
		return wait, remote
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return 0, fmt.Errorf("decode response: %w", err)
		}
	}
	return 0, nil
}

type errorBody struct {
	Code       int     `json:"code"`
	Message    string  `json:"message"`
	RetryAfter float64 `json:"retry_after"`
}

// remoteError decodes an error response. For 429 responses it also returns
// how long to wait before retrying.
func remoteError(resp *http.Response) (*chat.RemoteError, time.Duration) {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	remote := &chat.RemoteError{Status: resp.StatusCode}

	var body errorBody
	switch err := json.Unmarshal(raw, &body); {
	case err == nil && body.Message != "":
		remote.Code = body.Code
		remote.Message = body.Message
	case err != nil && len(bytes.TrimSpace(raw)) > 0:
		remote.Message = fmt.Sprintf("%d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	default:
		remote.Message = fmt.Sprintf("%d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	if resp.StatusCode != http.StatusTooManyRequests {
		return remote, 0
	}
	wait := time.Second
	if secs, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil && secs > 0 {
		wait = time.Duration(secs * float64(time.Second))
	} else if body.RetryAfter > 0 {
		wait = time.Duration(body.RetryAfter * float64(time.Second))
	}
	return remote, wait
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxErrorBody))
	_ = body.Close()
}
