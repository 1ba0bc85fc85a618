// Package config handles discord-mcp configuration loading.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nayeemcharx/discord-mcp-toolkit/internal/logging"
)

// Environment variables read on top of the config file.
const (
	EnvToken    = "DISCORD_BOT_TOKEN"
	EnvJournal  = "DISCORD_MCP_JOURNAL"
	EnvLogLevel = "DISCORD_MCP_LOG_LEVEL"
)

// ErrMissingToken is returned by Validate when no bot token is configured.
var ErrMissingToken = errors.New(EnvToken + " environment variable is not set")

// ErrNoConfig is returned by FindConfig when no search path holds a file.
var ErrNoConfig = errors.New("no config file found")

// DefaultSearchPaths returns the config file search order:
// ./discord-mcp.yaml, ~/.config/discord-mcp/config.yaml, /etc/discord-mcp/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"discord-mcp.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "discord-mcp", "config.yaml"))
	}

	paths = append(paths, "/etc/discord-mcp/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise the first existing DefaultSearchPaths entry is returned, or
// ErrNoConfig.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("%w (searched: %v)", ErrNoConfig, DefaultSearchPaths())
}

// Config holds all discord-mcp configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Discord DiscordConfig `yaml:"discord"`
	Tools   ToolsConfig   `yaml:"tools"`
	Journal JournalConfig `yaml:"journal"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig is what the MCP server reports about itself.
type ServerConfig struct {
	Name            string `yaml:"name"`
	Version         string `yaml:"version"`
	ProtocolVersion string `yaml:"protocol_version"`
	Instructions    string `yaml:"instructions"`
	ParseErrors     bool   `yaml:"parse_errors"` // answer undecodable lines with -32700
}

// DiscordConfig configures the platform connection.
type DiscordConfig struct {
	Token      string        `yaml:"token"` // fallback when DISCORD_BOT_TOKEN is unset
	APIURL     string        `yaml:"api_url"`
	GatewayURL string        `yaml:"gateway_url"`
	Gateway    bool          `yaml:"gateway"` // connect for member presence
	Timeout    time.Duration `yaml:"timeout"`
}

type ToolsConfig struct {
	Disabled []string `yaml:"disabled"`
}

// JournalConfig configures the tool-call journal. An empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:            "MCP-Discord",
			Version:         "1.0.0",
			ProtocolVersion: "2024-11-05",
		},
		Discord: DiscordConfig{
			APIURL:     "https://discord.com/api/v10",
			GatewayURL: "wss://gateway.discord.gg/?v=10&encoding=json",
			Gateway:    true,
			Timeout:    30 * time.Second,
		},
	}
}

// Parse decodes YAML over the defaults. ${VAR} references are expanded from
// the environment first.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ReadFrom parses the named file of fsys.
func ReadFrom(fsys fs.FS, name string) (*Config, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Read reads the config file at path, or the defaults when path is empty,
// and applies environment overrides. The result is not validated.
func Read(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if cfg, err = Parse(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// Load is Read followed by Validate.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads a .env file into the environment. Variables that are
// already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides file settings with environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if token := strings.TrimSpace(getenv(EnvToken)); token != "" {
		c.Discord.Token = token
	}
	c.Discord.Token = NormalizeToken(c.Discord.Token)
	if path := getenv(EnvJournal); path != "" {
		c.Journal.Path = path
	}
	if level := getenv(EnvLogLevel); level != "" {
		c.Log.Level = level
	}
}

// NormalizeToken strips surrounding space and an optional "Bot " scheme, so the
// REST client and the gateway see the same raw token.
func NormalizeToken(token string) string {
	token = strings.TrimSpace(token)
	if token == "Bot" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(token, "Bot "))
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Discord.Token) == "" {
		return ErrMissingToken
	}
	if c.Server.Name == "" {
		return fmt.Errorf("config: server.name is required")
	}
	if c.Server.Version == "" {
		return fmt.Errorf("config: server.version is required")
	}
	if c.Server.ProtocolVersion == "" {
		return fmt.Errorf("config: server.protocol_version is required")
	}
	if c.Discord.APIURL == "" {
		return fmt.Errorf("config: discord.api_url is required")
	}
	if c.Discord.Gateway && c.Discord.GatewayURL == "" {
		return fmt.Errorf("config: discord.gateway_url is required when the gateway is enabled")
	}
	if c.Discord.Timeout <= 0 {
		return fmt.Errorf("config: discord.timeout must be positive, got %s", c.Discord.Timeout)
	}
	if c.Log.Level != "" {
		if _, ok := logging.ParseLevel(c.Log.Level); !ok {
			return fmt.Errorf("config: unknown log.level %q", c.Log.Level)
		}
	}
	return nil
}
