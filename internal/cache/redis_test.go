package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tanishuv-bot/internal/cache"
	"tanishuv-bot/internal/config"
)

func setupCache(t *testing.T) *cache.RedisCache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	return cache.NewRedisCache(cfg)
}

func TestLikeWindowCounter(t *testing.T) {
	ctx := context.Background()
	c := setupCache(t)

	// cold cache: miss, and an incr on a cold key stays cold
	_, hit, err := c.GetLikeWindowCount(ctx, 1)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.IncrLikeWindowCount(ctx, 1))
	_, hit, err = c.GetLikeWindowCount(ctx, 1)
	require.NoError(t, err)
	assert.False(t, hit)

	// primed counter accepts increments
	require.NoError(t, c.SetLikeWindowCount(ctx, 1, 5))
	require.NoError(t, c.IncrLikeWindowCount(ctx, 1))

	n, hit, err := c.GetLikeWindowCount(ctx, 1)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(6), n)
}

func TestExpiryNotifiedDedup(t *testing.T) {
	ctx := context.Background()
	c := setupCache(t)

	won, err := c.MarkExpiryNotified(ctx, 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = c.MarkExpiryNotified(ctx, 1, time.Hour)
	require.NoError(t, err)
	assert.False(t, won)

	require.NoError(t, c.ClearExpiryNotified(ctx, 1))
	won, err = c.MarkExpiryNotified(ctx, 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, won)
}
