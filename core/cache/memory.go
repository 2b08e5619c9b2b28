package cache

import (
	"context"
	"sync"
	"time"
)

// Entry is a cached value with its expiry instant
type Entry[V any] struct {
	Value     V
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the entry has expired at now
func (e *Entry[V]) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Memory is an in-process TTL cache.
// Growth is unbounded; callers key it by a small, fixed domain.
type Memory[V any] struct {
	mu      sync.Mutex
	entries map[string]*Entry[V]
	now     Clock
}

// MemoryOption configures a Memory cache
type MemoryOption[V any] func(*Memory[V])

// WithClock overrides the time source
func WithClock[V any](clock Clock) MemoryOption[V] {
	return func(m *Memory[V]) { m.now = clock }
}

// NewMemory creates an empty in-process cache
func NewMemory[V any](opts ...MemoryOption[V]) *Memory[V] {
	m := &Memory[V]{
		entries: make(map[string]*Entry[V]),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a live entry, evicting it if it has expired
func (m *Memory[V]) Get(_ context.Context, key string) (V, bool, error) {
	var zero V

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return zero, false, nil
	}
	if entry.IsExpired(m.now()) {
		delete(m.entries, key)
		return zero, false, nil
	}
	return entry.Value, true, nil
}

// Set stores value for ttl
func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.entries[key] = &Entry[V]{
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	return nil
}

// Delete evicts key
func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Clear evicts everything
func (m *Memory[V]) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*Entry[V])
	return nil
}

// Len returns the number of stored entries, expired ones included until read
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
