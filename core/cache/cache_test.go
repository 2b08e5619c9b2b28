package cache

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryGetBeforeAndAfterExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := NewMemory[string](WithClock[string](clock.Now))

	require.NoError(t, c.Set(ctx, "k", "v", time.Hour))

	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	clock.Advance(59 * time.Minute)
	_, ok, _ = c.Get(ctx, "k")
	assert.True(t, ok, "entry should still be live before expiry")

	clock.Advance(time.Minute)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok, "entry read at its expiry instant must be absent")
	assert.Equal(t, 0, c.Len(), "expired entry must be evicted by the read")
}

func TestMemoryExpiredEntryStaysUntilRead(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := NewMemory[int](WithClock[int](clock.Now))

	require.NoError(t, c.Set(ctx, "a", 1, time.Second))
	require.NoError(t, c.Set(ctx, "b", 2, time.Hour))
	clock.Advance(2 * time.Second)

	assert.Equal(t, 2, c.Len(), "no background sweeping")

	_, ok, _ := c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestMemoryNonPositiveTTLIsImmediatelyExpired(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[int]()

	require.NoError(t, c.Set(ctx, "zero", 1, 0))
	require.NoError(t, c.Set(ctx, "neg", 1, -time.Second))

	_, ok, _ := c.Get(ctx, "zero")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "neg")
	assert.False(t, ok)
}

func TestMemoryDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[int]()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), i, time.Hour))
	}
	require.NoError(t, c.Delete(ctx, "k1"))
	_, ok, _ := c.Get(ctx, "k1")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Len())
}

func TestMemoryConcurrentSetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[int]()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			_ = c.Set(ctx, key, i, time.Hour)
			_, _, _ = c.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, c.Len())
}

func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	type row struct {
		Rate float64 `json:"rate"`
	}
	c := NewRedis[row](rdb, WithPrefix[row](fmt.Sprintf("tariff-test-%d", time.Now().UnixNano())))
	t.Cleanup(func() { _ = c.Clear(ctx) })

	require.NoError(t, c.Set(ctx, "tn", row{Rate: 2.35}, time.Minute))
	got, ok, err := c.Get(ctx, "tn")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 2.35, got.Rate, 1e-9)

	require.NoError(t, c.Clear(ctx))
	_, ok, err = c.Get(ctx, "tn")
	require.NoError(t, err)
	assert.False(t, ok)
}
