package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nayeemcharx/discord-mcp-toolkit/mcp"
	"github.com/nayeemcharx/discord-mcp-toolkit/tools"
)

func newToolsCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tools/list result without connecting to Discord",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := readConfig(f)
			if err != nil {
				return err
			}

			registry := mcp.NewRegistry(mcp.WithRegistryLogger(logger()))
			registry.Discover(tools.Catalog(cfg.Tools.Disabled...))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			if err := enc.Encode(mcp.ListToolsResult{Tools: registry.List()}); err != nil {
				return fmt.Errorf("encode tools: %w", err)
			}
			return nil
		},
	}
}
