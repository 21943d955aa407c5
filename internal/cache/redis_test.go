package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/cardlink/internal/cache"
	"github.com/oggyb/cardlink/internal/config"
)

func newCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	return cache.NewRedisCache(cfg), mr
}

func TestJSONRoundTripAndExpiry(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	type summary struct{ Views int64 }
	start := time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC)
	key := c.KeyForAnalyticsSummary(nil, start, 30)
	assert.Equal(t, "analytics:summary:all:20250214:30", key)
	id := uint64(9)
	assert.Equal(t, "analytics:summary:9:20250215:30", c.KeyForAnalyticsSummary(&id, start.AddDate(0, 0, 1), 30))

	var got summary
	hit, err := c.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.SetJSON(ctx, key, summary{Views: 7}, time.Minute))
	hit, err = c.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(7), got.Views)

	mr.FastForward(2 * time.Minute)
	hit, err = c.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestFirstSeen(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	key := c.KeyForViewSeen(4, "10.0.0.1")

	first, err := c.FirstSeen(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := c.FirstSeen(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, again)

	mr.FastForward(time.Minute + time.Second)
	afterTTL, err := c.FirstSeen(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, afterTTL)
}
