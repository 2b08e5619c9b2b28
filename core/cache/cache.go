// Package cache provides time-to-live caches for resolved tariff tables.
//
// Entries expire lazily: an entry read after its expiry instant is treated as
// absent and evicted by that read. There is no background sweeping and no
// capacity bound.
package cache

import (
	"context"
	"time"
)

// Cache is a key-value store whose entries expire a fixed duration after insertion
type Cache[V any] interface {
	// Get returns the value for key, or ok=false when absent or expired
	Get(ctx context.Context, key string) (value V, ok bool, err error)

	// Set stores value under key for ttl. A non-positive ttl stores an already-expired entry.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error

	// Delete evicts a single key
	Delete(ctx context.Context, key string) error

	// Clear evicts every key owned by this cache
	Clear(ctx context.Context) error
}

// Clock returns the current time
type Clock func() time.Time
