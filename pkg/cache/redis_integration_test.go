//go:build integration

package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/teamauth/pkg/cache"
	"github.com/dmitrymomot/teamauth/pkg/redis"
)

func TestRedis(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}

	ctx := context.Background()
	client, err := redis.Open(ctx, redis.Config{URL: url, ConnectRetries: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	prefix := "test:" + uuid.NewString()
	c := cache.NewRedis[uuid.UUID](client, prefix)

	_, err = c.Get(ctx, "acme")
	require.ErrorIs(t, err, cache.ErrNotFound)

	id := uuid.New()
	require.NoError(t, c.Set(ctx, "acme", id, time.Minute))

	got, err := c.Get(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, id, got)

	ttl, err := client.TTL(ctx, prefix+":acme").Result()
	require.NoError(t, err)
	require.Positive(t, ttl)

	require.NoError(t, c.Delete(ctx, "acme"))
	_, err = c.Get(ctx, "acme")
	require.ErrorIs(t, err, cache.ErrNotFound)
}
