// Package app builds the tariff source, cache, resolver and engine from config.
// The CLI and the standalone server share this wiring.
package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"slab-tariff/adapters/source"
	"slab-tariff/core/cache"
	"slab-tariff/core/tariff"
	"slab-tariff/internal/config"
	"slab-tariff/internal/errors"
	"slab-tariff/internal/logging"
)

// App holds the wired components
type App struct {
	Config   *config.Config
	Source   tariff.Source
	Resolver *tariff.Resolver
	Engine   *tariff.Engine

	// Postgres is set when the source kind is postgres
	Postgres *source.Postgres

	closers []func()
}

// New wires the application described by cfg
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.Named("app")
	a := &App{Config: cfg}

	src, err := a.buildSource(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Source = src

	c, err := a.buildCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Resolver = tariff.NewResolver(src, c, tariff.WithTTL(cfg.Tariff.CacheTTL()))
	a.Engine = tariff.NewEngine(a.Resolver)

	log.Info("tariff engine ready",
		zap.String("source", src.Name()),
		zap.String("cache", cfg.Tariff.CacheBackend),
		zap.Duration("ttl", cfg.Tariff.CacheTTL()),
	)
	return a, nil
}

func (a *App) buildSource(ctx context.Context) (tariff.Source, error) {
	cfg := a.Config
	switch cfg.Tariff.SourceKind {
	case config.SourceEmbedded:
		st, err := source.NewEmbedded()
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.SourcePostgres:
		pg, err := source.NewPostgres(ctx, cfg.Postgres.DSN, cfg.Postgres.MigrationsPath)
		if err != nil {
			return nil, err
		}
		a.Postgres = pg
		a.closers = append(a.closers, pg.Close)
		return pg, nil
	case config.SourceFile:
		f, err := source.NewFile(cfg.Tariff.Source)
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, errors.Config("unknown tariff source kind "+cfg.Tariff.SourceKind, nil)
	}
}

func (a *App) buildCache(ctx context.Context) (cache.Cache[*tariff.Table], error) {
	cfg := a.Config
	switch cfg.Tariff.CacheBackend {
	case config.CacheRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, func() { _ = rdb.Close() })

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			return nil, errors.Config("redis ping "+cfg.Redis.Addr, err)
		}
		return cache.NewRedis[*tariff.Table](rdb, cache.WithPrefix[*tariff.Table](cfg.Redis.Prefix+":cache")), nil
	case config.CacheMemory, "":
		return cache.NewMemory[*tariff.Table](), nil
	default:
		return nil, errors.Config("unknown cache backend "+cfg.Tariff.CacheBackend, nil)
	}
}

// Close releases connections in reverse order of creation
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
