// Package cache stores normalized API responses between pulls so repeated
// queries for the same endpoint and date range do not hit the upstream API.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Cache is a byte-oriented TTL cache. Implementations must be safe for
// concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
}

// Category TTLs: how long a normalized response stays fresh per data kind.
var CategoryTTL = map[string]time.Duration{
	"prices":     30 * time.Minute,
	"demand":     15 * time.Minute,
	"generation": 15 * time.Minute,
	"datasets":   2 * time.Hour,
	"historical": 24 * time.Hour,
}

// TTLFor returns the TTL for a category, defaulting to five minutes.
func TTLFor(category string) time.Duration {
	if ttl, ok := CategoryTTL[category]; ok {
		return ttl
	}
	return 5 * time.Minute
}

// Key builds a deterministic cache key from source, endpoint and params.
func Key(source, endpoint string, params map[string]string) string {
	parts := []string{source, endpoint}
	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, params[k]))
		}
	}
	return strings.Join(parts, ":")
}

type memoryEntry struct {
	b   []byte
	exp time.Time
}

type memory struct {
	mu sync.Mutex
	m  map[string]memoryEntry
}

// NewMemory creates an in-process TTL cache.
func NewMemory() Cache {
	return &memory{m: make(map[string]memoryEntry)}
}

func (c *memory) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return nil, false
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(c.m, key)
		return nil, false
	}
	return e.b, true
}

func (c *memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := memoryEntry{b: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = time.Now().Add(ttl)
	}
	c.m[key] = e
}

type redisCache struct {
	r       *redis.Client
	timeout time.Duration
}

// NewRedis creates a cache backed by Redis at the given address.
func NewRedis(addr string) Cache {
	return &redisCache{
		r:       redis.NewClient(&redis.Options{Addr: addr}),
		timeout: 500 * time.Millisecond,
	}
}

// NewAuto picks the Redis backend when an address is configured, otherwise
// in-process memory.
func NewAuto(redisAddr string) Cache {
	if redisAddr != "" {
		return NewRedis(redisAddr)
	}
	return NewMemory()
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	v, err := c.r.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return v, true
}

func (c *redisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	_ = c.r.Set(ctx, key, val, ttl).Err()
}

// GetJSON unmarshals a cached value into out.
func GetJSON(ctx context.Context, c Cache, key string, out any) bool {
	b, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(b, out) == nil
}

// SetJSON marshals v and stores it under key. Marshal failures are dropped;
// the cache is an optimization, never a source of truth.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(ctx, key, b, ttl)
}
