package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisIdempotencyStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisIdempotencyStore(client), mr
}

func testReserveOnce(t *testing.T, store IdempotencyStore) {
	ctx := context.Background()

	existing, reserved, err := store.Reserve(ctx, "user-1:key-1", "order-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Empty(t, existing)

	existing, reserved, err = store.Reserve(ctx, "user-1:key-1", "order-2", time.Hour)
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, "order-1", existing)

	_, reserved, err = store.Reserve(ctx, "user-2:key-1", "order-3", time.Hour)
	require.NoError(t, err)
	assert.True(t, reserved)

	require.NoError(t, store.Release(ctx, "user-1:key-1"))
	_, reserved, err = store.Reserve(ctx, "user-1:key-1", "order-4", time.Hour)
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestRedisIdempotencyStore_Reserve(t *testing.T) {
	store, _ := setupTestRedis(t)
	testReserveOnce(t, store)
}

func TestRedisIdempotencyStore_Expiry(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	_, reserved, err := store.Reserve(ctx, "k", "order-1", time.Minute)
	require.NoError(t, err)
	require.True(t, reserved)
	assert.True(t, mr.Exists(idempotencyKey("k")))

	mr.FastForward(2 * time.Minute)

	_, reserved, err = store.Reserve(ctx, "k", "order-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, reserved)
	got, err := mr.Get(idempotencyKey("k"))
	require.NoError(t, err)
	assert.Equal(t, "order-2", got)
}

func TestRedisIdempotencyStore_Unavailable(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	_, _, err := store.Reserve(context.Background(), "k", "order-1", time.Minute)
	assert.Error(t, err)
}

func TestMemoryIdempotencyStore_Reserve(t *testing.T) {
	testReserveOnce(t, NewMemoryIdempotencyStore())
}

func TestMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewMemoryIdempotencyStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_, reserved, _ := store.Reserve(ctx, "k", "order-1", time.Minute)
	require.True(t, reserved)

	now = now.Add(2 * time.Minute)
	_, reserved, _ = store.Reserve(ctx, "k", "order-2", time.Minute)
	assert.True(t, reserved)
}
