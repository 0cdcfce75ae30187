package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alucardeht/coffeeidx/internal/engine"
)

var (
	quietFlag bool
	watchFlag bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the project",
	Long: `Index discovers every CoffeeScript file of the project and brings the
index up to date. Unchanged files are skipped by content hash and files that
disappeared are dropped.

Examples:
  # Index the current directory
  coffeeidx index

  # Index, then keep the index live while files change
  coffeeidx index --watch
`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "no progress output")
	indexCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "keep indexing file changes until interrupted")
}

func runIndex(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	e, _, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	progress := newReindexProgress(cmd.ErrOrStderr(), quietFlag)
	res, err := e.Reindex(ctx, progress.callback())
	progress.finish(res)
	if err != nil {
		if errors.Is(err, ctx.Err()) {
			return fmt.Errorf("indexing interrupted")
		}
		return err
	}

	if !watchFlag {
		return nil
	}
	if !quietFlag {
		fmt.Fprintln(cmd.ErrOrStderr(), "watching for changes, press Ctrl+C to stop")
	}
	return e.Run(ctx, engine.RunOptions{Watch: true})
}
