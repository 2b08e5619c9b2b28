package tariff

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"slab-tariff/core/cache"
	"slab-tariff/internal/errors"
)

// countingSource records how often the backing data is read
type countingSource struct {
	name  string
	raw   RawDataset
	err   error
	loads atomic.Int32
	delay time.Duration
}

func (s *countingSource) Name() string { return s.name }

func (s *countingSource) Load(ctx context.Context) (Dataset, error) {
	s.loads.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	return Normalize(s.raw)
}

func sampleRaw() RawDataset {
	return RawDataset{
		"Tamil Nadu": {
			"domestic": {
				Slabs: []RawSlab{
					{Upto: dp("100"), Rate: d("0")},
					{Upto: dp("200"), Rate: d("2.35")},
					{Above: dp("200"), Rate: d("4.70")},
				},
			},
		},
	}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(by time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(by)
}

func TestResolverCachesUntilTTL(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{name: "/data/tariffs.json", raw: sampleRaw()}
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := NewResolver(src, cache.NewMemory[*Table](cache.WithClock[*Table](clk.Now)), WithTTL(time.Hour))

	if _, err := r.Table(ctx, "Tamil Nadu", "domestic"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if n := src.loads.Load(); n != 1 {
		t.Fatalf("expected 1 load, got %d", n)
	}

	clk.Advance(30 * time.Minute)
	if _, err := r.Table(ctx, "TAMIL NADU", "Domestic"); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if n := src.loads.Load(); n != 1 {
		t.Errorf("second call within TTL must not reload, got %d loads", n)
	}

	clk.Advance(31 * time.Minute)
	if _, err := r.Table(ctx, "tamil nadu", "domestic"); err != nil {
		t.Fatalf("third resolve: %v", err)
	}
	if n := src.loads.Load(); n != 2 {
		t.Errorf("call after TTL must reload, got %d loads", n)
	}
}

func TestResolverCacheKeyIncludesSource(t *testing.T) {
	shared := cache.NewMemory[*Table]()
	a := NewResolver(&countingSource{name: "/a.json", raw: sampleRaw()}, shared)
	b := NewResolver(&countingSource{name: "/b.json", raw: sampleRaw()}, shared)

	ka := a.CacheKey("Tamil Nadu", "Domestic")
	kb := b.CacheKey("tamil nadu", "domestic")
	if ka == kb {
		t.Fatalf("different sources must not share cache keys: %s", ka)
	}
	if ka != "tariff_table::/a.json::tamil nadu::domestic" {
		t.Errorf("unexpected key %s", ka)
	}
}

func TestResolverNotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{name: "src", raw: sampleRaw()}
	c := cache.NewMemory[*Table]()
	r := NewResolver(src, c)

	_, err := r.Table(ctx, "Tamil Nadu", "industrial")
	if !errors.IsType(err, errors.TypeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("misses must not populate the cache")
	}
}

func TestResolverSourceFailureIsDistinctFromNotFound(t *testing.T) {
	src := &countingSource{name: "broken.json", err: fmt.Errorf("unexpected EOF")}
	r := NewResolver(src, nil)

	_, err := r.Table(context.Background(), "Tamil Nadu", "domestic")
	if !errors.IsType(err, errors.TypeSourceLoad) {
		t.Fatalf("expected SOURCE_LOAD, got %v", err)
	}
	if errors.IsType(err, errors.TypeNotFound) {
		t.Errorf("source failure must not look like NOT_FOUND")
	}
}

func TestResolverCollapsesConcurrentMisses(t *testing.T) {
	src := &countingSource{name: "slow", raw: sampleRaw(), delay: 50 * time.Millisecond}
	r := NewResolver(src, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Table(context.Background(), "Tamil Nadu", "domestic"); err != nil {
				t.Errorf("resolve: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := src.loads.Load(); n != 1 {
		t.Errorf("expected concurrent misses to share one load, got %d", n)
	}
}

// gatedSource blocks in Load until released and honours cancellation
type gatedSource struct {
	started chan struct{}
	release chan struct{}
	loads   atomic.Int32
}

func (s *gatedSource) Name() string { return "gated" }

func (s *gatedSource) Load(ctx context.Context) (Dataset, error) {
	if s.loads.Add(1) == 1 {
		close(s.started)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.release:
		return Normalize(sampleRaw())
	}
}

func TestResolverSharedLoadSurvivesCallerCancel(t *testing.T) {
	src := &gatedSource{started: make(chan struct{}), release: make(chan struct{})}
	r := NewResolver(src, nil)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := r.Table(ctxA, "Tamil Nadu", "domestic")
		errA <- err
	}()
	<-src.started

	resB := make(chan error, 1)
	go func() {
		table, err := r.Table(context.Background(), "Tamil Nadu", "domestic")
		if err == nil && table.Jurisdiction != "Tamil Nadu" {
			err = fmt.Errorf("unexpected table %+v", table)
		}
		resB <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	if err := <-errA; err != context.Canceled {
		t.Fatalf("cancelled caller: expected context.Canceled, got %v", err)
	}

	close(src.release)
	if err := <-resB; err != nil {
		t.Fatalf("waiting caller must not inherit another caller's cancellation: %v", err)
	}
	if n := src.loads.Load(); n != 1 {
		t.Errorf("expected one shared load, got %d", n)
	}
}

func TestResolverInvalidateAndClear(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{name: "src", raw: sampleRaw()}
	r := NewResolver(src, nil)

	mustResolve := func() {
		t.Helper()
		if _, err := r.Table(ctx, "Tamil Nadu", "domestic"); err != nil {
			t.Fatal(err)
		}
	}

	mustResolve()
	if err := r.Invalidate(ctx, "tamil nadu", "DOMESTIC"); err != nil {
		t.Fatal(err)
	}
	mustResolve()
	if err := r.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	mustResolve()

	if n := src.loads.Load(); n != 3 {
		t.Errorf("expected explicit evictions to force reloads, got %d loads", n)
	}
}

func TestResolverJurisdictions(t *testing.T) {
	r := NewResolver(&countingSource{name: "src", raw: sampleRaw()}, nil)

	idx, err := r.Jurisdictions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(idx) != 1 || idx[0].Name != "Tamil Nadu" || idx[0].Categories[0] != "domestic" {
		t.Errorf("unexpected index %+v", idx)
	}
}
