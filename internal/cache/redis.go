package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"tanishuv-bot/internal/config"
)

// likeWindowTTL bounds staleness of the cached like-window counter. The DB is
// the authority on a miss; the counter is only a fast path for quota checks.
const likeWindowTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes the Redis client from config.
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

func keyLikeWindow(userID int64) string {
	return fmt.Sprintf("likes:window:%d", userID)
}

func keyExpiryNotified(userID int64) string {
	return fmt.Sprintf("notified:expiry:%d", userID)
}

// GetLikeWindowCount returns the cached count of likes issued by the user in
// the rolling window, or (0, false) on a miss.
func (c *RedisCache) GetLikeWindowCount(ctx context.Context, userID int64) (int64, bool, error) {
	val, err := c.Client.Get(ctx, keyLikeWindow(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return n, true, nil
}

// SetLikeWindowCount primes the counter after a DB count.
func (c *RedisCache) SetLikeWindowCount(ctx context.Context, userID int64, count int64) error {
	return c.Client.Set(ctx, keyLikeWindow(userID), count, likeWindowTTL).Err()
}

// IncrLikeWindowCount bumps the counter after an accepted like. The increment
// only touches an existing key so a cold cache stays cold until the next DB
// count primes it.
func (c *RedisCache) IncrLikeWindowCount(ctx context.Context, userID int64) error {
	key := keyLikeWindow(userID)
	exists, err := c.Client.Exists(ctx, key).Result()
	if err != nil || exists == 0 {
		return err
	}
	if err := c.Client.Incr(ctx, key).Err(); err != nil {
		return err
	}
	return c.Client.Expire(ctx, key, likeWindowTTL).Err()
}

// MarkExpiryNotified dedups expiry-warning notifications. Returns true when
// this call won the right to notify (key was absent).
func (c *RedisCache) MarkExpiryNotified(ctx context.Context, userID int64, ttl time.Duration) (bool, error) {
	return c.Client.SetNX(ctx, keyExpiryNotified(userID), "1", ttl).Result()
}

// ClearExpiryNotified drops the dedup marker, e.g. after a new grant.
func (c *RedisCache) ClearExpiryNotified(ctx context.Context, userID int64) error {
	return c.Client.Del(ctx, keyExpiryNotified(userID)).Err()
}
