package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alucardeht/coffeeidx/internal/config"
	"github.com/alucardeht/coffeeidx/internal/engine"
	"github.com/alucardeht/coffeeidx/internal/logger"
)

var (
	rootDir string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "coffeeidx",
	Short: "Incremental definition index for CoffeeScript projects",
	Long: `coffeeidx extracts classes, methods, fields and parameters from the
CoffeeScript sources of a project and keeps them in an on-disk index that
editor tooling can query for completion and navigation.`,
	SilenceUsage: true,
}

// Execute runs the command line. It is called by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "r", ".", "project root")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig reads the project configuration and sets up logging from it.
func loadConfig() (*config.Config, string, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, "", err
	}

	level := logger.ParseLevel(cfg.Log.Level)
	if verbose {
		level = slog.LevelDebug
	}
	logger.Init(logger.Config{Level: level, Format: cfg.Log.Format, Output: os.Stderr})

	return cfg, root, nil
}

func openEngine() (*engine.Engine, *config.Config, error) {
	cfg, root, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, nil, fmt.Errorf("create index directory: %w", err)
	}
	e, err := engine.Open(cfg, root)
	if err != nil {
		return nil, nil, err
	}
	return e, cfg, nil
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
