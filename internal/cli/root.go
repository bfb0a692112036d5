package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/0x6d61/hopper/internal/client"
	"github.com/0x6d61/hopper/internal/config"
)

// Version information (set by build flags)
var (
	version = client.Version
	commit  = "none"
	date    = "unknown"
)

// NewRootCmd builds the hopper command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hopper",
		Short: "Redirect-aware HTTP client",
		Long: `hopper - Redirect-aware HTTP client

Fetches URLs and follows their redirect chains under a strict policy:
credentials are dropped when a redirect crosses origins, Referer is never
sent from https to http, and chains are bounded and checked for loops.
Every chain can be recorded to a SQLite trace database for later review.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "YAML configuration file")
	root.PersistentFlags().IntP("verbose", "v", 0, "Verbosity level (0-3)")
	root.PersistentFlags().String("trace-db", "", "SQLite database for redirect traces")

	root.AddCommand(newVersionCmd(), newFetchCmd(), newTraceCmd())
	return root
}

// Execute runs the hopper command line.
func Execute() error {
	return NewRootCmd().Execute()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hopper %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

// newLogger maps the -v level onto slog: 0 warnings, 1 info, 2+ debug.
func newLogger(w io.Writer, verbose int) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbose >= 2:
		level = slog.LevelDebug
	case verbose == 1:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads --config, or returns the defaults when it is unset.
// A --trace-db flag overrides the configured database.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("trace-db") {
		cfg.Trace.Database, _ = cmd.Flags().GetString("trace-db")
	}
	return cfg, nil
}
