package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nayeemcharx/discord-mcp-toolkit/discord"
	"github.com/nayeemcharx/discord-mcp-toolkit/internal/config"
	"github.com/nayeemcharx/discord-mcp-toolkit/mcp"
	"github.com/nayeemcharx/discord-mcp-toolkit/persistence"
	"github.com/nayeemcharx/discord-mcp-toolkit/persistence/sqlitestore"
	"github.com/nayeemcharx/discord-mcp-toolkit/tools"
)

const gatewayOpenTimeout = 15 * time.Second

func runServe(cmd *cobra.Command, f *flags) error {
	cfg, err := readConfig(f)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	journal, err := openJournal(cfg.Journal.Path)
	if err != nil {
		return err
	}
	if journal != nil {
		defer journal.Close()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var presence discord.PresenceSource
	var shutdown func(context.Context) error
	if cfg.Discord.Gateway {
		gateway := discord.NewGateway(cfg.Discord.Token,
			discord.WithGatewayURL(cfg.Discord.GatewayURL),
			discord.WithGatewayLogger(logger()))
		openCtx, cancel := context.WithTimeout(ctx, gatewayOpenTimeout)
		err := gateway.Open(openCtx)
		cancel()
		if err != nil {
			logger().Warn("gateway unavailable, member status will read offline", "error", err)
		} else {
			presence = gateway
			shutdown = gateway.Close
		}
	}

	client, err := discord.NewClient(cfg.Discord.Token,
		discord.WithBaseURL(cfg.Discord.APIURL),
		discord.WithTimeout(cfg.Discord.Timeout),
		discord.WithPresence(presence),
		discord.WithLogger(logger()))
	if err != nil {
		return err
	}

	server, err := newServer(cfg, client, journal, shutdown)
	if err != nil {
		return err
	}

	logger().Info("serving MCP on stdio", "name", cfg.Server.Name, "version", cfg.Server.Version, "session", server.SessionID())
	return server.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
}

// newServer wires the tool catalog and the server options from cfg.
func newServer(cfg *config.Config, client *discord.Client, journal persistence.Journal, shutdown func(context.Context) error) (*mcp.Server, error) {
	registry := mcp.NewRegistry(mcp.WithRegistryLogger(logger()))
	registry.Discover(tools.Catalog(cfg.Tools.Disabled...))

	opts := []mcp.Option{
		mcp.WithProtocolVersion(cfg.Server.ProtocolVersion),
		mcp.WithInstructions(cfg.Server.Instructions),
		mcp.WithParseErrorResponses(cfg.Server.ParseErrors),
		mcp.WithLogger(logger()),
		mcp.WithShutdown(shutdown),
	}
	if journal != nil {
		opts = append(opts, mcp.WithJournal(journal))
	}
	return mcp.NewServer(registry, client, mcp.Implementation{Name: cfg.Server.Name, Version: cfg.Server.Version}, opts...)
}

// openJournal opens the configured journal. An empty path disables it;
// ":memory:" keeps entries for the life of the process only.
func openJournal(path string) (persistence.Journal, error) {
	switch path {
	case "":
		return nil, nil
	case ":memory:":
		return persistence.NewMemoryJournal(), nil
	}
	store, err := sqlitestore.New(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return store, nil
}

var errNoJournal = errors.New("no journal configured: pass --db or set journal.path")
