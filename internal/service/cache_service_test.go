package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/fms-tracker-api/internal/models"
	"github.com/noah-isme/fms-tracker-api/internal/repository"
)

func newRedisCache(t *testing.T, enabled bool) (*CacheService, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheService(repository.NewCacheRepository(client, nil), NewMetricsService(), time.Minute, nil, enabled), s
}

func TestCacheServiceRoundTrip(t *testing.T) {
	cache, s := newRedisCache(t, true)
	ctx := context.Background()

	var got []models.Template
	hit, err := cache.Get(ctx, "templates:list", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	want := []models.Template{{ID: "t1", Name: "Monthly close"}}
	require.NoError(t, cache.Set(ctx, "templates:list", want, 0))
	assert.Equal(t, time.Minute, s.TTL("templates:list"))

	hit, err = cache.Get(ctx, "templates:list", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Monthly close", got[0].Name)

	require.NoError(t, cache.Set(ctx, "templates:t1", want[0], time.Hour))
	require.NoError(t, cache.Invalidate(ctx, "templates:*"))
	assert.False(t, s.Exists("templates:list"))
	assert.False(t, s.Exists("templates:t1"))
}

func TestCacheServiceDisabled(t *testing.T) {
	cache, s := newRedisCache(t, false)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", "v", 0))
	assert.False(t, s.Exists("k"))

	var out string
	hit, err := cache.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
}

func TestCacheServiceSurfacesRedisErrors(t *testing.T) {
	cache, s := newRedisCache(t, true)
	s.SetError("ERR cache unavailable")

	var out string
	hit, err := cache.Get(context.Background(), "k", &out)
	assert.False(t, hit)
	assert.Error(t, err)
}
