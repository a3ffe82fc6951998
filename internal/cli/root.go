// Package cli implements the medsched command line interface.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medsched/medsched/internal/config"
	"github.com/medsched/medsched/internal/engine"
	"github.com/medsched/medsched/internal/logging"
	"github.com/medsched/medsched/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand creates the root command for the medsched CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "medsched",
		Short: "Personal medication schedule tracker",
		Long: `medsched keeps a local schedule of prescription medications.

Records live in a single SQLite file. Each prescription has a date
range and a time-of-day term; whether it is currently active and
whether today's dose was taken are recomputed automatically at start,
hourly, and after every change.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewRecomputeCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewReceivedCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))

	return cmd
}

// loadRuntime builds the shared runtime pieces every command needs.
func loadRuntime(opts *RootOptions) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}

	return cfg, logging.New(level, cfg.LogJSON), nil
}

// openStore opens the configured database, creating its directory on
// first use.
func openStore(cfg *config.Config) (*store.Store, error) {
	if dir := filepath.Dir(cfg.StorePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	return store.Open(cfg.StorePath)
}

// parseDay parses an ISO date flag value into an epoch-day count.
func parseDay(value string) (int64, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", value, err)
	}
	return engine.EpochDay(t), nil
}
