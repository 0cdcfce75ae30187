package cli

import (
	"github.com/spf13/cobra"

	"github.com/alucardeht/coffeeidx/internal/engine"
)

var (
	socketFlag  string
	noWatchFlag bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the index over JSON-RPC on a unix socket",
	Long: `Serve keeps the index of the project live and answers JSON-RPC requests
(index/classesInFile, index/update, ...) on a unix socket. An empty index is
built first.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&socketFlag, "socket", "", "socket path (default from config)")
	serveCmd.Flags().BoolVar(&noWatchFlag, "no-watch", false, "do not watch the file system")
}

func runServe(cmd *cobra.Command, _ []string) error {
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

	socket := socketFlag
	if socket == "" {
		socket = cfg.RPC.SocketPath
	}
	return e.Run(ctx, engine.RunOptions{
		Watch:      cfg.Watcher.Enabled && !noWatchFlag,
		SocketPath: socket,
	})
}
