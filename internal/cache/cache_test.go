package cache_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-grocer/internal/cache"
)

type payload struct {
	Total int64 `json:"total"`
}

func newCache(t *testing.T, ttl time.Duration) (*cache.JSON, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.New(client, ttl), mr
}

func TestJSONRoundTripAndExpiry(t *testing.T) {
	c, mr := newCache(t, time.Minute)
	ctx := context.Background()
	key := cache.KeyCompare("b1", 3)

	var got payload
	ok, err := c.Get(ctx, key, &got)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, key, payload{Total: 157}))
	ok, err = c.Get(ctx, key, &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(157), got.Total)

	mr.FastForward(2 * time.Minute)
	ok, err = c.Get(ctx, key, &got)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeletePrefix(t *testing.T) {
	c, mr := newCache(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, cache.KeyProduct("p1"), payload{}))
	require.NoError(t, c.Set(ctx, cache.KeyProductList("milk", "", 1, 20), payload{}))
	require.NoError(t, c.Set(ctx, cache.KeyCompare("b1", 1), payload{}))

	require.NoError(t, c.DeletePrefix(ctx, cache.ProductsPrefix()))
	require.False(t, mr.Exists(cache.KeyProduct("p1")))
	require.True(t, mr.Exists(cache.KeyCompare("b1", 1)))
}

func TestNilCacheIsEmpty(t *testing.T) {
	var c *cache.JSON
	ok, err := c.Get(context.Background(), "k", &payload{})
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, c.Set(context.Background(), "k", payload{}))
}

func TestKeysNormalise(t *testing.T) {
	require.Equal(t, cache.KeyProductList(" Milk ", "DAIRY", 1, 20), cache.KeyProductList("milk", "dairy", 1, 20))
	require.NotEqual(t, cache.KeyCompare("b1", 1), cache.KeyCompare("b1", 2))
}
