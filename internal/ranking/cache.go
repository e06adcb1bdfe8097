package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/onnwee/valuesalign/internal/tracing"
)

// CacheKeyPrefix namespaces every cached ranking.
const CacheKeyPrefix = "ranking:v1:"

// Cache stores computed rankings. Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached items for key. ok is false on a miss.
	Get(ctx context.Context, key string) (items []RankedItem, ok bool, err error)
	// Set stores items under key for ttl.
	Set(ctx context.Context, key string, items []RankedItem, ttl time.Duration) error
	// Clear drops every cached ranking.
	Clear(ctx context.Context) error
}

// CacheKey builds the cache key for an unfiltered ranking. Geo-filtered
// requests are never cached as such: they are cut from the full ranking stored
// under CacheKey(t, 0) so every caller is measured from its own center.
func CacheKey(t EntityType, limit int) string {
	return CacheKeyPrefix + string(t) + ":" + strconv.Itoa(limit)
}

// RedisCache stores rankings as JSON strings in Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis-backed ranking cache.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (items []RankedItem, ok bool, err error) {
	ctx, endSpan := tracing.StartCacheSpan(ctx, "get", key)
	defer func() { endSpan(err) }()

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, fmt.Errorf("decode cached ranking %s: %w", key, err)
	}
	return items, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, items []RankedItem, ttl time.Duration) (err error) {
	ctx, endSpan := tracing.StartCacheSpan(ctx, "set", key)
	defer func() { endSpan(err) }()

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode ranking: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Clear implements Cache by scanning for the key prefix.
func (c *RedisCache) Clear(ctx context.Context) (err error) {
	ctx, endSpan := tracing.StartCacheSpan(ctx, "scan_del", CacheKeyPrefix+"*")
	defer func() { endSpan(err) }()

	iter := c.client.Scan(ctx, 0, CacheKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

type memoryEntry struct {
	items     []RankedItem
	expiresAt time.Time
}

// MemoryCache is an in-process Cache for single-instance deployments and tests.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]RankedItem, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return append([]RankedItem(nil), e.items...), true, nil
}

// Set implements Cache. A ttl <= 0 never expires.
func (c *MemoryCache) Set(_ context.Context, key string, items []RankedItem, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := memoryEntry{items: append([]RankedItem(nil), items...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}

// Clear implements Cache.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
	return nil
}
