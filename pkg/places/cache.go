package places

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"nicetravel/pkg/memcache"
)

type PhotoCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, url string) error
}

type MemoryPhotoCache struct {
	store *memcache.Store[string]
}

func NewMemoryPhotoCache(ttl time.Duration, maxSize int) *MemoryPhotoCache {
	store := memcache.NewStore[string](ttl, maxSize)
	store.StartJanitor(ttl)
	return &MemoryPhotoCache{store: store}
}

func (c *MemoryPhotoCache) Get(_ context.Context, key string) (string, bool, error) {
	url, ok := c.store.Get(key)
	return url, ok, nil
}

func (c *MemoryPhotoCache) Set(_ context.Context, key, url string) error {
	c.store.Set(key, url)
	return nil
}

func (c *MemoryPhotoCache) Close() { c.store.Close() }

type RedisPhotoCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisPhotoCache(client *redis.Client, prefix string, ttl time.Duration) *RedisPhotoCache {
	return &RedisPhotoCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisPhotoCache) Get(ctx context.Context, key string) (string, bool, error) {
	url, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return url, true, nil
}

func (c *RedisPhotoCache) Set(ctx context.Context, key, url string) error {
	return c.client.Set(ctx, c.key(key), url, c.ttl).Err()
}

func (c *RedisPhotoCache) key(k string) string {
	return c.prefix + ":photo:" + k
}
