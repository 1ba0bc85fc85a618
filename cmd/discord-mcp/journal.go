package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nayeemcharx/discord-mcp-toolkit/persistence/sqlitestore"
)

func newJournalCmd(f *flags) *cobra.Command {
	var dbPath string
	journal := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the tool-call journal",
	}
	journal.PersistentFlags().StringVar(&dbPath, "db", "", "path to the SQLite journal (default: journal.path from config)")

	open := func() (*sqlitestore.SQLiteStore, error) {
		path := dbPath
		if path == "" {
			cfg, err := readConfig(f)
			if err != nil {
				return nil, err
			}
			path = cfg.Journal.Path
		}
		if path == "" || path == ":memory:" {
			return nil, errNoJournal
		}
		store, err := sqlitestore.New(path)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return store, nil
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the recorded server sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()

			sessions, err := store.ListSessions()
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SESSION\tCALLS\tFAILURES\tSTARTED\tLAST CALL")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", s.ID, s.Calls, s.Failures,
					s.Started.UTC().Format(time.RFC3339), s.LastCall.UTC().Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	var sessionID, format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the calls of one session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sessionID == "" {
				return fmt.Errorf("--session is required")
			}
			if format != "json" && format != "jsonl" {
				return fmt.Errorf("--format must be 'json' or 'jsonl'")
			}

			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.GetEntries(sessionID)
			if err != nil {
				return fmt.Errorf("get entries: %w", err)
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "no entries found for session: %s\n", sessionID)
				return nil
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			switch format {
			case "json":
				enc.SetIndent("", "  ")
				if err := enc.Encode(entries); err != nil {
					return fmt.Errorf("encode json: %w", err)
				}
			case "jsonl":
				for _, e := range entries {
					if err := enc.Encode(e); err != nil {
						return fmt.Errorf("encode jsonl: %w", err)
					}
				}
			}
			return nil
		},
	}
	show.Flags().StringVar(&sessionID, "session", "", "session ID to display")
	show.Flags().StringVar(&format, "format", "json", "output format: json or jsonl")

	journal.AddCommand(list, show)
	return journal
}
