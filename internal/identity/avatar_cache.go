package identity

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// AvatarCache stores avatar URLs by Roblox id. Misses and errors look the same.
type AvatarCache interface {
	GetAvatar(ctx context.Context, id int64) (string, bool)
	SetAvatar(ctx context.Context, id int64, url string)
}

// RedisAvatarCache keeps avatar URLs in Redis with a TTL.
type RedisAvatarCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisAvatarCache returns nil when no client is configured so callers skip caching.
func NewRedisAvatarCache(client *redis.Client, ttl time.Duration) *RedisAvatarCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisAvatarCache{client: client, ttl: ttl, prefix: "avatar:"}
}

func (c *RedisAvatarCache) key(id int64) string {
	return c.prefix + strconv.FormatInt(id, 10)
}

// GetAvatar returns a cached URL.
func (c *RedisAvatarCache) GetAvatar(ctx context.Context, id int64) (string, bool) {
	if c == nil {
		return "", false
	}
	val, err := c.client.Get(ctx, c.key(id)).Result()
	if err != nil || val == "" {
		return "", false
	}
	return val, true
}

// SetAvatar stores url; failures are ignored.
func (c *RedisAvatarCache) SetAvatar(ctx context.Context, id int64, url string) {
	if c == nil {
		return
	}
	_ = c.client.Set(ctx, c.key(id), url, c.ttl).Err()
}
