// Root command and global flags for the shelf CLI.
package main

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

// Global flag values.
var (
	flagConfigDir string
	flagBackend   string
	flagAddr      string
	flagDataDir   string
	flagJSON      bool
	flagVerbose   bool
)

// logger is configured by PersistentPreRunE and used by every
// subcommand.
var logger *slog.Logger

var rootCmd = &cobra.Command{
	Use:           "shelf",
	Short:         "Shelf is a table layer over a Redis-class key-value store",
	Long: `Shelf models schema-validated tables, field-value indexes, sorted
indexes, and sessions on top of plain key-value primitives. It speaks
to a Redis server, an embedded SQLite database, or an in-memory store.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if flagVerbose {
			level = slog.LevelDebug
		}
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))

		return loadGlobalConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "store backend: redis, sqlite, or memory")
	rootCmd.PersistentFlags().StringVar(&flagAddr, "addr", "", "redis address, host:port")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "sqlite data directory (default: $(CWD)/.shelf-db)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(insertCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(sessionCmd)
}
