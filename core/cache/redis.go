package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a TTL cache backed by Redis. Values are stored as JSON and expire
// server-side, so a read after expiry finds nothing.
type Redis[V any] struct {
	rdb    *redis.Client
	prefix string
}

// RedisOption configures a Redis cache
type RedisOption[V any] func(*Redis[V])

// WithPrefix sets the key namespace; Clear only touches keys under it
func WithPrefix[V any](prefix string) RedisOption[V] {
	return func(r *Redis[V]) { r.prefix = strings.Trim(prefix, ":") }
}

// NewRedis wraps an existing client
func NewRedis[V any](rdb *redis.Client, opts ...RedisOption[V]) *Redis[V] {
	r := &Redis[V]{
		rdb:    rdb,
		prefix: "tariff:cache",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis[V]) key(k string) string {
	return r.prefix + ":" + k
}

// Get returns the decoded value, or ok=false when the key is absent
func (r *Redis[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V

	raw, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var v V
	if err := json.Unmarshal(raw, &v); err != nil {
		// An undecodable entry is as good as absent; drop it so the next load repopulates.
		_ = r.rdb.Del(ctx, r.key(key)).Err()
		return zero, false, nil
	}
	return v, true, nil
}

// Set stores value with SET ... EX
func (r *Redis[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	if ttl <= 0 {
		return r.Delete(ctx, key)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.rdb.Set(ctx, r.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete evicts key
func (r *Redis[V]) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.key(key)).Err()
}

// Clear evicts every key under the prefix
func (r *Redis[V]) Clear(ctx context.Context) error {
	iter := r.rdb.Scan(ctx, 0, r.prefix+":*", 256).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 256 {
			if err := r.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return r.rdb.Del(ctx, batch...).Err()
	}
	return nil
}
