// Package cmd provides the CLI commands for slab-tariff.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"slab-tariff/internal/app"
	"slab-tariff/internal/config"
	"slab-tariff/internal/logging"
)

// Version is the CLI and server version
const Version = "0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tariff",
	Short: "Compute slab-based electricity bills",
	Long: `tariff computes electricity bills from slab-based rate tables.

Rate tables are resolved per state and consumer category from a JSON or HCL
file, the bundled dataset or Postgres, and cached with a TTL.

Examples:
  tariff compute --state "Tamil Nadu" --units 350
  tariff compute --state Delhi --units 420 --season summer --format json
  tariff table --state "Tamil Nadu" --category commercial
  tariff serve`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./tariff.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	path := cfgFile
	if path == "" {
		path = "tariff.json"
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	config.Set(cfg)

	// Initialize logging
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
	logging.Debug("config loaded",
		zap.String("path", path),
		zap.String("source_kind", cfg.Tariff.SourceKind),
		zap.String("cache_backend", cfg.Tariff.CacheBackend))
}

// withApp wires the engine from the global config and closes it after fn
func withApp(ctx context.Context, fn func(*app.App) error) error {
	a, err := app.New(ctx, config.Get())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tariff version %s\n", Version)
	},
}
