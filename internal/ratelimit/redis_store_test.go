package ratelimit

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ieraasyl/StorefrontCore/internal/database"
	"github.com/ieraasyl/StorefrontCore/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisDB(t *testing.T) (*database.RedisDB, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)

	db, err := database.NewRedisDB(&config.RedisConfig{
		Host:     host,
		Port:     port,
		PoolSize: 10,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db, mr
}

func TestRedisStore_Allow(t *testing.T) {
	ctx := context.Background()

	t.Run("admits up to max then denies", func(t *testing.T) {
		db, _ := newTestRedisDB(t)
		store := NewRedisStore(db)

		for i := 0; i < 5; i++ {
			allowed, err := store.Allow(ctx, "gallery:1.2.3.4", 5, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed, "request %d should be admitted", i+1)
		}

		allowed, err := store.Allow(ctx, "gallery:1.2.3.4", 5, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("counter expires with the window", func(t *testing.T) {
		db, mr := newTestRedisDB(t)
		store := NewRedisStore(db)

		allowed, err := store.Allow(ctx, "auth:1.2.3.4", 1, time.Minute)
		require.NoError(t, err)
		require.True(t, allowed)

		allowed, err = store.Allow(ctx, "auth:1.2.3.4", 1, time.Minute)
		require.NoError(t, err)
		require.False(t, allowed)

		mr.FastForward(time.Minute + time.Second)

		allowed, err = store.Allow(ctx, "auth:1.2.3.4", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("surface errors when redis is down", func(t *testing.T) {
		db, mr := newTestRedisDB(t)
		store := NewRedisStore(db)
		mr.Close()

		_, err := store.Allow(ctx, "gallery:1.2.3.4", 5, time.Minute)
		assert.Error(t, err)
	})
}
