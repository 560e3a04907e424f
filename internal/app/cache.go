package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Cache stores fetched resources by path.
type Cache interface {
	Get(ctx context.Context, name string) ([]byte, bool, error)
	Set(ctx context.Context, name string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, names ...string) error
	Flush(ctx context.Context) error
}

// RedisCache keeps resources in Redis under a common prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache parses a redis:// URL and returns a cache using it.
func NewRedisCache(redisURL, prefix string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewRedisCacheFromClient(redis.NewClient(opts), prefix), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) key(name string) string {
	return c.prefix + name
}

// Get returns the cached bytes; a miss is not an error.
func (c *RedisCache) Get(ctx context.Context, name string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores data with the given TTL (0 keeps it until invalidated).
func (c *RedisCache) Set(ctx context.Context, name string, data []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(name), data, ttl).Err()
}

// Delete drops the given resources.
func (c *RedisCache) Delete(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = c.key(n)
	}
	return c.client.Del(ctx, keys...).Err()
}

// Flush drops every resource under the prefix.
func (c *RedisCache) Flush(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close releases the Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// CachedSource serves fetches from a Cache and collapses concurrent fetches of
// the same path into one upstream request.
type CachedSource struct {
	next  Source
	cache Cache
	ttl   time.Duration
	log   *zap.Logger
	group singleflight.Group
}

// NewCachedSource wraps next. A nil cache only deduplicates in-flight fetches.
func NewCachedSource(next Source, cache Cache, ttl time.Duration, log *zap.Logger) *CachedSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedSource{next: next, cache: cache, ttl: ttl, log: log}
}

// Fetch returns the cached copy or fetches and stores it. Cache errors only
// degrade to an upstream fetch. Cancelling ctx abandons the wait but not the
// upstream fetch other callers may share.
func (s *CachedSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if s.cache != nil {
		data, ok, err := s.cache.Get(ctx, name)
		if err != nil {
			s.log.Warn("Cache read failed", zap.String("path", name), zap.Error(err))
		} else if ok {
			cacheHits.WithLabelValues("hit").Inc()
			return data, nil
		}
		cacheHits.WithLabelValues("miss").Inc()
	}

	// The shared fetch outlives any single caller; each caller stops waiting
	// when its own context ends.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(name, func() (interface{}, error) {
		data, err := s.next.Fetch(flightCtx, name)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(flightCtx, name, data, s.ttl); err != nil {
				s.log.Warn("Cache write failed", zap.String("path", name), zap.Error(err))
			}
		}
		return data, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops the given paths from the cache.
func (s *CachedSource) Invalidate(ctx context.Context, names ...string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, names...)
}

// InvalidateAll empties the cache.
func (s *CachedSource) InvalidateAll(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Flush(ctx)
}
