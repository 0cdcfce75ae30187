package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alucardeht/coffeeidx/internal/engine"
	"github.com/alucardeht/coffeeidx/internal/lsp"
	"github.com/alucardeht/coffeeidx/internal/rpc"
)

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Run as a language server on stdin/stdout",
	Long: `Lsp speaks the Language Server Protocol on stdin and stdout, answering
document and workspace symbol requests from the index. Open documents are
synced in full and reindexed on every change. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runLSP,
}

func init() {
	rootCmd.AddCommand(lspCmd)
}

func runLSP(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	e, cfg, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	if e.NeedsReindex(ctx) {
		if _, err := e.Reindex(ctx, nil); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if e.Available() {
		g.Go(func() error {
			return e.Run(gctx, engine.RunOptions{Watch: cfg.Watcher.Enabled})
		})
	}
	g.Go(func() error {
		conn := rpc.NewServer(e).ServeConn(gctx, lsp.Stdio())
		select {
		case <-conn.DisconnectNotify():
			cancel()
		case <-gctx.Done():
		}
		return nil
	})
	return g.Wait()
}
