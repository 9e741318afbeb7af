package commands

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var errCacheDisabled = errors.New("stub cache is disabled (set cache_path or pass --cache)")

// NewCacheCommand creates the cache command group.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the stub cache",
	}
	cmd.AddCommand(newCacheStatsCommand())
	cmd.AddCommand(newCacheClearCommand())
	return cmd
}

type cacheStats struct {
	Path        string `json:"path"`
	Entries     int    `json:"entries"`
	StubBytes   int64  `json:"stub_bytes"`
	LastUpdated string `json:"last_updated,omitempty"`
}

func newCacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show stub cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			if cmdCtx.Store == nil {
				return errCacheDisabled
			}

			stats, err := cmdCtx.Store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cacheStats{Path: cmdCtx.Cfg.CachePath, Entries: stats.Entries, StubBytes: stats.StubBytes}
			lastUpdated := "never"
			if !stats.LastUpdated.IsZero() {
				out.LastUpdated = stats.LastUpdated.UTC().Format("2006-01-02T15:04:05Z")
				lastUpdated = humanize.Time(stats.LastUpdated)
			}

			w := cmd.OutOrStdout()
			if wantJSON(cmdCtx.Cfg) {
				return writeJSON(w, out)
			}
			renderTable(w, table.Row{"Path", "Entries", "Size", "Last updated"}, []table.Row{
				{out.Path, out.Entries, humanize.Bytes(uint64(max(out.StubBytes, 0))), lastUpdated},
			})
			return nil
		},
	}
}

func newCacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached stub",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			if cmdCtx.Store == nil {
				return errCacheDisabled
			}

			n, err := cmdCtx.Store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached %s\n", n, plural(n, "stub", "stubs"))
			return err
		},
	}
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
