// Command scheduler runs scheduling windows, audits committed schedules,
// and serves engine metrics.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/workforce-scheduler/internal/config"
	"github.com/example/workforce-scheduler/internal/logging"
	"github.com/example/workforce-scheduler/internal/persistence/sqlite"
)

func main() {
	logger := logging.New(os.Stderr, slog.LevelInfo)
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:           "scheduler",
		Short:         "Assign work items to employees across a rolling window",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCommand(logger))
	root.AddCommand(newAuditCommand(logger))
	root.AddCommand(newServeCommand(logger))

	if err := root.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// openStore loads configuration and connects storage. Callers own Close.
func openStore() (config.Config, *sqlite.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load configuration: %w", err)
	}
	store, err := sqlite.Open(cfg.SQLiteDSN, cfg.Rotations)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("open storage: %w", err)
	}
	return cfg, store, nil
}
