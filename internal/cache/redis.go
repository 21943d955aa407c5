package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/cardlink/internal/config"
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	return c.Client.Del(ctx, keys...).Err()
}

// KeyForAnalyticsSummary is the cache key of one profile's (or the global)
// analytics summary for the window of days starting at start.
func (c *RedisCache) KeyForAnalyticsSummary(profileID *uint64, start time.Time, days int) string {
	day := start.UTC().Format("20060102")
	if profileID == nil {
		return fmt.Sprintf("analytics:summary:all:%s:%d", day, days)
	}
	return fmt.Sprintf("analytics:summary:%d:%s:%d", *profileID, day, days)
}

// KeyForViewSeen marks that a client already counted a view of a profile.
func (c *RedisCache) KeyForViewSeen(profileID uint64, client string) string {
	return fmt.Sprintf("analytics:view:%d:%s", profileID, client)
}

// SetJSON stores v marshalled as JSON with a TTL.
func (c *RedisCache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, key, b, ttl).Err()
}

// GetJSON loads key into v. A miss returns (false, nil).
func (c *RedisCache) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	b, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil // cache miss
	} else if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, err
	}
	return true, nil
}

// FirstSeen sets key with a TTL iff it does not exist and reports whether
// this call created it.
func (c *RedisCache) FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.Client.SetNX(ctx, key, 1, ttl).Result()
}
