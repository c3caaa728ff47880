package tokenstore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

func testStore(t *testing.T, store user.TokenStore) {
	ctx := context.Background()

	v, err := store.Version(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v, "unknown users start at version 0")

	v, err = store.Revoke(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = store.Revoke(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	v, err = store.Version(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	v, err = store.Version(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v, "other users are not revoked")
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, core.RedisConfig{Address: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	// isolate runs from each other
	store := NewRedisStore(client, "test-"+uuid.NewString())
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, store.(*redisStore).prefix+"*").Result()
		if len(keys) > 0 {
			_ = client.Del(ctx, keys...).Err()
		}
	})
	testStore(t, store)
}
