// Package main - Entry point for the slab tariff API server
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"slab-tariff/api"
	"slab-tariff/internal/app"
	"slab-tariff/internal/config"
	"slab-tariff/internal/logging"
)

const version = "0.1.0"

func main() {
	cfgPath := flag.String("config", "tariff.json", "Config file")
	addr := flag.String("addr", "", "Server address (default from config)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
	defer logging.Sync()

	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log := logging.With(zap.String("version", version), zap.String("addr", cfg.Server.Addr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal("wire tariff engine", zap.Error(err))
	}
	defer a.Close()

	srv := api.NewServer(version, a.Engine, a.Resolver,
		api.WithRateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))

	if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		log.Error("server stopped", zap.Error(err))
		a.Close()
		logging.Sync()
		os.Exit(1)
	}
	log.Info("server stopped")
}
