package tariff

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"slab-tariff/core/cache"
	"slab-tariff/internal/errors"
	"slab-tariff/internal/logging"
)

// DefaultTTL is how long a resolved table stays cached
const DefaultTTL = time.Hour

// Source supplies the full tariff dataset
type Source interface {
	// Name identifies the backing data; it is part of every cache key
	Name() string

	// Load reads and normalizes the full dataset
	Load(ctx context.Context) (Dataset, error)
}

// Resolver looks tables up through a TTL cache, loading from the source on miss
type Resolver struct {
	source Source
	cache  cache.Cache[*Table]
	ttl    time.Duration
	group  singleflight.Group
	log    *zap.Logger
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithTTL sets the cache TTL for resolved tables
func WithTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) { r.ttl = ttl }
}

// WithResolverLogger overrides the logger
func WithResolverLogger(l *zap.Logger) ResolverOption {
	return func(r *Resolver) { r.log = l }
}

// NewResolver creates a resolver. A nil cache gets a fresh in-memory cache.
func NewResolver(source Source, c cache.Cache[*Table], opts ...ResolverOption) *Resolver {
	if c == nil {
		c = cache.NewMemory[*Table]()
	}
	r := &Resolver{
		source: source,
		cache:  c,
		ttl:    DefaultTTL,
		log:    logging.Named("tariff.resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CacheKey is the cache key for a jurisdiction and category of this resolver's source
func (r *Resolver) CacheKey(jurisdiction, category string) string {
	return "tariff_table::" + r.source.Name() + "::" + NormalizeKey(jurisdiction) + "::" + NormalizeKey(category)
}

// Table returns the rate table for jurisdiction and category, case-insensitively
func (r *Resolver) Table(ctx context.Context, jurisdiction, category string) (*Table, error) {
	key := r.CacheKey(jurisdiction, category)

	cached, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.log.Warn("cache read failed, loading from source", zap.String("key", key), zap.Error(err))
	} else if ok {
		r.log.Debug("tariff table cache hit", zap.String("key", key))
		return cached, nil
	}

	// The shared load must outlive any single caller; each caller still
	// stops waiting when its own context ends.
	loadCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (interface{}, error) {
		dataset, err := r.load(loadCtx)
		if err != nil {
			return nil, err
		}
		table, err := dataset.Lookup(jurisdiction, category)
		if err != nil {
			return nil, err
		}
		if err := r.cache.Set(loadCtx, key, table, r.ttl); err != nil {
			r.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
		return table, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Table), nil
	}
}

// Jurisdictions lists every jurisdiction and category in the source
func (r *Resolver) Jurisdictions(ctx context.Context) ([]JurisdictionIndex, error) {
	dataset, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return dataset.Index(), nil
}

// Invalidate evicts one cached table
func (r *Resolver) Invalidate(ctx context.Context, jurisdiction, category string) error {
	return r.cache.Delete(ctx, r.CacheKey(jurisdiction, category))
}

// Clear evicts every cached table
func (r *Resolver) Clear(ctx context.Context) error {
	return r.cache.Clear(ctx)
}

func (r *Resolver) load(ctx context.Context) (Dataset, error) {
	start := time.Now()
	dataset, err := r.source.Load(ctx)
	if err != nil {
		if errors.TypeOf(err) == "" {
			err = errors.SourceLoad(r.source.Name(), err)
		}
		r.log.Error("tariff source load failed", zap.String("source", r.source.Name()), zap.Error(err))
		return nil, err
	}
	r.log.Info("tariff source loaded",
		zap.String("source", r.source.Name()),
		zap.Int("jurisdictions", len(dataset)),
		zap.Duration("took", time.Since(start)))
	return dataset, nil
}
