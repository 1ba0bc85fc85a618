// Command discord-mcp is an MCP server exposing Discord tools over stdio.
//
// Usage:
//
//	discord-mcp [--config path] [--log-level level]
//	discord-mcp tools
//	discord-mcp journal list [--db path]
//	discord-mcp journal show [--db path] --session SESSION_ID [--format json|jsonl]
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nayeemcharx/discord-mcp-toolkit/internal/config"
	"github.com/nayeemcharx/discord-mcp-toolkit/internal/logging"
)

const version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// flags shared by every command.
type flags struct {
	configPath string
	envFile    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:   "discord-mcp",
		Short: "MCP server exposing Discord tools over stdio",
		Long: `discord-mcp speaks the Model Context Protocol on stdin/stdout and lets an
MCP client list the servers, channels and members a Discord bot can see, read
channel history and send messages. Diagnostics go to stderr.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return applyLogLevel(f.logLevel)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, f)
		},
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "config file (default: search ./discord-mcp.yaml, ~/.config/discord-mcp, /etc/discord-mcp)")
	root.PersistentFlags().StringVar(&f.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)

	root.AddCommand(newToolsCmd(f), newJournalCmd(f))
	return root
}

func applyLogLevel(name string) error {
	if name == "" {
		return nil
	}
	level, ok := logging.ParseLevel(name)
	if !ok {
		return fmt.Errorf("unknown log level %q", name)
	}
	logging.SetLogLevel(level)
	return nil
}

// readConfig loads .env, locates the config file and reads it without
// validation. A missing config file is fine; the defaults apply.
func readConfig(f *flags) (*config.Config, error) {
	if f.envFile != "" {
		if err := config.LoadDotEnv(f.envFile); err != nil {
			return nil, err
		}
	}
	path, err := config.FindConfig(f.configPath)
	if errors.Is(err, config.ErrNoConfig) {
		path, err = "", nil
	}
	if err != nil {
		return nil, err
	}
	cfg, err := config.Read(path)
	if err != nil {
		return nil, err
	}
	if path != "" {
		logging.Logger().Debug("loaded config", "path", path)
	}
	if f.logLevel == "" && cfg.Log.Level != "" {
		if level, ok := logging.ParseLevel(cfg.Log.Level); ok {
			logging.SetLogLevel(level)
		}
	}
	return cfg, nil
}

func logger() *slog.Logger {
	return logging.Logger()
}
