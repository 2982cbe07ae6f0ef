package utils

import (
	"context"
	"errors"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const (
	// Default cache ttl when callers pass zero
	defaultCacheTTL = time.Hour
	redisOpTimeout  = 2 * time.Second
)

// Cache is a string key/value store with per-key TTL. Redis backs it when
// available; MemoryCache serves single-instance deployments and tests.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// GetDel returns and removes the value in one step.
	GetDel(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// RedisCache implements Cache on a go-redis client.
type RedisCache struct {
	rc *redis.Client
}

// NewRedisCache wraps an existing client.
func NewRedisCache(rc *redis.Client) *RedisCache {
	return &RedisCache{rc: rc}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	v, err := c.rc.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		if Sugar != nil {
			Sugar.Debugf("cache get failed key=%s err=%v", key, err)
		}
		return "", false, err
	}
	return v, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	return c.rc.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	return c.rc.SetNX(ctx, key, value, ttl).Result()
}

func (c *RedisCache) GetDel(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	// Prefer GETDEL (Redis >= 6.2)
	v, err := c.rc.GetDel(ctx, key).Result()
	if err == nil {
		return v, true, nil
	}
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	// Fallback to Lua: GET then DEL atomically
	script := `local v=redis.call('GET', KEYS[1]); if v then redis.call('DEL', KEYS[1]); end; return v`
	res, err := c.rc.Eval(ctx, script, []string{key}).Result()
	if errors.Is(err, redis.Nil) || (err == nil && res == nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	s, _ := res.(string)
	return s, true, nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	return c.rc.Del(ctx, keys...).Err()
}

// MemoryCache implements Cache in process memory (single instance only).
type MemoryCache struct {
	mu sync.Mutex
	c  *gocache.Cache
}

// NewMemoryCache creates an in-memory cache purging expired keys every cleanup interval.
func NewMemoryCache(cleanup time.Duration) *MemoryCache {
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	return &MemoryCache{c: gocache.New(defaultCacheTTL, cleanup)}
}

func memTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.DefaultExpiration
	}
	return ttl
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", false, nil
	}
	s, _ := v.(string)
	return s, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.c.Set(key, value, memTTL(ttl))
	return nil
}

// SetNX relies on go-cache's Add, which fails when a live item exists.
func (m *MemoryCache) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := m.c.Add(key, value, memTTL(ttl)); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *MemoryCache) GetDel(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.c.Get(key)
	if !ok {
		return "", false, nil
	}
	m.c.Delete(key)
	s, _ := v.(string)
	return s, true, nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.c.Delete(k)
	}
	return nil
}
