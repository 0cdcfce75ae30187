package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alucardeht/coffeeidx/internal/daemon"
	"github.com/alucardeht/coffeeidx/internal/rpc"
)

var (
	callSocket  string
	callTimeout time.Duration
)

var callCmd = &cobra.Command{
	Use:   "call <method> [params-json]",
	Short: "Send one JSON-RPC request to a running server",
	Long: `Call sends a request to the server started by "coffeeidx serve" and
prints the result as JSON.

Examples:
  coffeeidx call index/stats
  coffeeidx call index/classesInFile '{"file":"src/app.coffee"}'
`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCall,
}

func init() {
	rootCmd.AddCommand(callCmd)
	callCmd.Flags().StringVar(&callSocket, "socket", "", "socket path (default from config)")
	callCmd.Flags().DurationVar(&callTimeout, "timeout", 10*time.Second, "request timeout")
}

func runCall(cmd *cobra.Command, args []string) error {
	socket := callSocket
	if socket == "" {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		socket = cfg.RPC.SocketPath
	}
	if !daemon.Running(socket) {
		return fmt.Errorf("no server on %s, start one with: coffeeidx serve", socket)
	}

	var params any
	if len(args) == 2 {
		var raw json.RawMessage
		if err := json.Unmarshal([]byte(args[1]), &raw); err != nil {
			return fmt.Errorf("params: %w", err)
		}
		params = raw
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, callTimeout)
	defer cancelTimeout()

	client, err := rpc.Dial(ctx, socket)
	if err != nil {
		return err
	}
	defer client.Close()

	var result json.RawMessage
	if err := client.Call(ctx, args[0], params, &result); err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), result)
}
