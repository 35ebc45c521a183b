package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long memoized downstream responses live.
const DefaultTTL = 30 * time.Minute

// Cache memoizes downstream responses under caller-supplied keys.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// GetJSON loads key into dst. It reports false on a miss.
func GetJSON(ctx context.Context, c Cache, key string, dst any) (bool, error) {
	if c == nil {
		return false, nil
	}
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode cached value %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores value under key.
func SetJSON(ctx context.Context, c Cache, key string, value any) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value %s: %w", key, err)
	}
	return c.Set(ctx, key, raw)
}

// Redis stores entries in redis with a key prefix and fixed TTL.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache wraps client.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisCacheFromURL parses a redis:// url and connects.
func NewRedisCacheFromURL(url, prefix string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewRedisCache(redis.NewClient(opts), prefix, ttl), nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	return raw, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// Close releases the redis connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Memory is an unbounded in-process TTL cache.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemoryCache builds an in-process cache; size 0 means unbounded.
func NewMemoryCache(size int, ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.lru.Add(key, value)
	return nil
}

// Len reports the number of live entries.
func (m *Memory) Len() int {
	return m.lru.Len()
}
