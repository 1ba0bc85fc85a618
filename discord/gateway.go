package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nayeemcharx/discord-mcp-toolkit/chat"
	"github.com/nayeemcharx/discord-mcp-toolkit/internal/logging"
)

const DefaultGatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"

// Gateway opcodes.
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatACK   = 11
)

// Gateway intents requested by Identify.
const (
	IntentGuilds         = 1 << 0
	IntentGuildMembers   = 1 << 1
	IntentGuildPresences = 1 << 8

	DefaultIntents = IntentGuilds | IntentGuildMembers | IntentGuildPresences
)

// payload is a gateway frame as received.
type payload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
	S  *int64          `json:"s"`
	T  string          `json:"t"`
}

// frame is a gateway frame as sent.
type frame struct {
	Op int `json:"op"`
	D  any `json:"d"`
}

type hello struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

type identify struct {
	Token      string             `json:"token"`
	Intents    int                `json:"intents"`
	Properties identifyProperties `json:"properties"`
}

type identifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

type presenceUpdate struct {
	User struct {
		ID chat.Snowflake `json:"id"`
	} `json:"user"`
	GuildID chat.Snowflake `json:"guild_id"`
	Status  chat.Status    `json:"status"`
}

type guildCreate struct {
	ID        chat.Snowflake   `json:"id"`
	Presences []presenceUpdate `json:"presences"`
}

type guildDelete struct {
	ID chat.Snowflake `json:"id"`
}

// Gateway is a websocket session with Discord used only to learn member
// presence. It keeps a cache filled from GUILD_CREATE and PRESENCE_UPDATE
// events and implements PresenceSource. It does not resume or reconnect;
// once the connection drops the cache is kept as last seen.
type Gateway struct {
	url     string
	token   string
	intents int
	dialer  *websocket.Dialer
	logger  *slog.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu        sync.RWMutex
	presences map[chat.Snowflake]map[chat.Snowflake]chat.Status
	seq       *int64
	sessionID string

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ PresenceSource = (*Gateway)(nil)

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithGatewayURL sets the websocket URL to dial.
func WithGatewayURL(u string) GatewayOption {
	return func(g *Gateway) {
		if u != "" {
			g.url = u
		}
	}
}

// WithIntents overrides the intents sent in Identify.
func WithIntents(intents int) GatewayOption {
	return func(g *Gateway) {
		g.intents = intents
	}
}

// WithGatewayLogger sets the diagnostic logger.
func WithGatewayLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGateway creates an unconnected gateway session.
func NewGateway(token string, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		url:       DefaultGatewayURL,
		token:     normalizeToken(token),
		intents:   DefaultIntents,
		dialer:    websocket.DefaultDialer,
		logger:    logging.Logger(),
		presences: make(map[chat.Snowflake]map[chat.Snowflake]chat.Status),
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Open dials the gateway, waits for Hello and identifies. The heartbeat and
// read loops run until Close.
func (g *Gateway) Open(ctx context.Context) error {
	g.logger.Info("connecting to Discord gateway", "url", g.url)

	conn, _, err := g.dialer.DialContext(ctx, g.url, nil)
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}
	conn.SetReadLimit(32 << 20)

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	var p payload
	if err := conn.ReadJSON(&p); err != nil {
		conn.Close()
		return fmt.Errorf("read hello: %w", err)
	}
	if p.Op != opHello {
		conn.Close()
		return fmt.Errorf("expected hello, got op %d", p.Op)
	}
	var h hello
	if err := json.Unmarshal(p.D, &h); err != nil || h.HeartbeatInterval <= 0 {
		conn.Close()
		return fmt.Errorf("invalid hello payload: %s", p.D)
	}
	_ = conn.SetReadDeadline(time.Time{})

	g.conn = conn
	if err := g.send(frame{Op: opIdentify, D: identify{
		Token:   g.token,
		Intents: g.intents,
		Properties: identifyProperties{
			OS:      runtime.GOOS,
			Browser: "discord-mcp",
			Device:  "discord-mcp",
		},
	}}); err != nil {
		conn.Close()
		return fmt.Errorf("send identify: %w", err)
	}

	interval := time.Duration(h.HeartbeatInterval) * time.Millisecond
	g.wg.Add(2)
	go g.heartbeatLoop(interval)
	go g.readLoop()

	g.logger.Info("gateway identified", "heartbeat_interval", interval)
	return nil
}

// Ready is closed once the READY dispatch arrives.
func (g *Gateway) Ready() <-chan struct{} {
	return g.ready
}

// SessionID is the id from READY, empty before it.
func (g *Gateway) SessionID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sessionID
}

// Presence implements PresenceSource.
func (g *Gateway) Presence(guildID, userID chat.Snowflake) (chat.Status, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	status, ok := g.presences[guildID][userID]
	return status, ok
}

// Close ends the session and waits for the loops to exit. It is safe to call
// more than once and on a gateway that was never opened.
func (g *Gateway) Close(ctx context.Context) error {
	var err error
	g.closeOnce.Do(func() {
		close(g.done)
		if g.conn == nil {
			return
		}
		g.writeMu.Lock()
		_ = g.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		g.writeMu.Unlock()
		err = g.conn.Close()

		stopped := make(chan struct{})
		go func() {
			g.wg.Wait()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			err = errors.Join(err, ctx.Err())
		}
	})
	return err
}

func (g *Gateway) send(f frame) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	return g.conn.WriteJSON(f)
}

func (g *Gateway) heartbeat() error {
	g.mu.RLock()
	seq := g.seq
	g.mu.RUnlock()
	return g.send(frame{Op: opHeartbeat, D: seq})
}

func (g *Gateway) heartbeatLoop(interval time.Duration) {
	defer g.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-g.done:
			return
		case <-ticker.C:
			if err := g.heartbeat(); err != nil {
				g.logger.Warn("gateway heartbeat failed", "error", err)
				return
			}
		}
	}
}

func (g *Gateway) readLoop() {
	defer g.wg.Done()
	for {
		var p payload
		if err := g.conn.ReadJSON(&p); err != nil {
			select {
			case <-g.done:
			default:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					g.logger.Info("gateway closed by server")
				} else {
					g.logger.Error("gateway read error, presence updates stopped", "error", err)
				}
			}
			return
		}

		if p.S != nil {
			g.mu.Lock()
			g.seq = p.S
			g.mu.Unlock()
		}

		switch p.Op {
		case opDispatch:
			g.dispatch(p.T, p.D)
		case opHeartbeat:
			if err := g.heartbeat(); err != nil {
				g.logger.Warn("gateway heartbeat failed", "error", err)
			}
		case opHeartbeatACK:
		case opReconnect, opInvalidSession:
			g.logger.Warn("gateway session ended by server", "op", p.Op)
		default:
			g.logger.Debug("unhandled gateway op", "op", p.Op)
		}
	}
}

func (g *Gateway) dispatch(event string, data json.RawMessage) {
	switch event {
	case "READY":
		var ready struct {
			SessionID string `json:"session_id"`
		}
		if err := json.Unmarshal(data, &ready); err != nil {
			g.logger.Warn("decode gateway event", "event", event, "error", err)
			return
		}
		g.mu.Lock()
		g.sessionID = ready.SessionID
		g.mu.Unlock()
		g.readyOnce.Do(func() { close(g.ready) })
		g.logger.Info("gateway ready", "session", ready.SessionID)

	case "GUILD_CREATE":
		var guild guildCreate
		if err := json.Unmarshal(data, &guild); err != nil {
			g.logger.Warn("decode gateway event", "event", event, "error", err)
			return
		}
		statuses := make(map[chat.Snowflake]chat.Status, len(guild.Presences))
		for _, p := range guild.Presences {
			statuses[p.User.ID] = p.Status
		}
		g.mu.Lock()
		g.presences[guild.ID] = statuses
		g.mu.Unlock()
		g.logger.Debug("cached guild presences", "guild", guild.ID, "count", len(statuses))

	case "GUILD_DELETE":
		var guild guildDelete
		if err := json.Unmarshal(data, &guild); err != nil {
			g.logger.Warn("decode gateway event", "event", event, "error", err)
			return
		}
		g.mu.Lock()
		delete(g.presences, guild.ID)
		g.mu.Unlock()

	case "PRESENCE_UPDATE":
		var update presenceUpdate
		if err := json.Unmarshal(data, &update); err != nil {
			g.logger.Warn("decode gateway event", "event", event, "error", err)
			return
		}
		g.mu.Lock()
		if g.presences[update.GuildID] == nil {
			g.presences[update.GuildID] = make(map[chat.Snowflake]chat.Status)
		}
		g.presences[update.GuildID][update.User.ID] = update.Status
		g.mu.Unlock()
	}
}
