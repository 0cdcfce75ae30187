package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alucardeht/coffeeidx/internal/index"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&jsonFlag, "json", false, "print JSON")
}

func runStats(cmd *cobra.Command, _ []string) error {
	e, cfg, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	stats, err := e.Stats(cmd.Context())
	if err != nil {
		return err
	}
	if jsonFlag {
		return writeJSON(cmd.OutOrStdout(), stats)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "root\t%s\n", e.Root())
	fmt.Fprintf(tw, "database\t%s\n", cfg.IndexPath(e.Root()))
	fmt.Fprintf(tw, "index id\t%s\n", stats.IndexID)
	fmt.Fprintf(tw, "schema\tv%d\n", stats.SchemaVersion)
	fmt.Fprintf(tw, "files\t%d (%d indexed, %d failed, %d skipped)\n",
		stats.TotalFiles, stats.IndexedFiles, stats.FailedFiles, stats.SkippedFiles)
	fmt.Fprintf(tw, "entries\t%d\n", stats.TotalEntries)
	for _, k := range index.AllKeys {
		fmt.Fprintf(tw, "  %s\t%d\n", k, stats.EntriesByKey[k])
	}
	if !stats.LastIndexedAt.IsZero() {
		fmt.Fprintf(tw, "last indexed\t%s\n", stats.LastIndexedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}
