// Package cmd - serve and import commands
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"slab-tariff/adapters/source"
	"slab-tariff/api"
	"slab-tariff/internal/app"
	"slab-tariff/internal/errors"
	"slab-tariff/internal/logging"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the tariff API until interrupted.

Routes:
  POST   /dynamic-tariff/compute
  GET    /dynamic-tariff/table?state=&category=
  GET    /dynamic-tariff/jurisdictions
  DELETE /dynamic-tariff/cache
  GET    /health
  GET    /version`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withApp(ctx, func(a *app.App) error {
			addr := serveAddr
			if addr == "" {
				addr = a.Config.Server.Addr
			}
			srv := api.NewServer(Version, a.Engine, a.Resolver,
				api.WithRateLimit(a.Config.Server.RateLimitRPS, a.Config.Server.RateLimitBurst))
			defer logging.Sync()
			return srv.ListenAndServe(ctx, addr)
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load a JSON or HCL tariff file into Postgres",
	Long: `Validate a tariff file and replace the Postgres tariff tables with it
in a single transaction. Requires tariff.source_kind = postgres.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			if a.Postgres == nil {
				return errors.Config("import requires the postgres source kind", nil)
			}
			raw, err := source.ReadRaw(args[0])
			if err != nil {
				return err
			}
			if err := a.Postgres.Import(cmd.Context(), raw); err != nil {
				return err
			}
			if err := a.Resolver.Clear(cmd.Context()); err != nil {
				logging.Warn("clear tariff cache after import", zap.Error(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d jurisdictions from %s\n", len(raw), args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}
