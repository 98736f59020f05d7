package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStore instance
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStore(client, time.Hour)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return store, mr, cleanup
}

func TestReserve_NewKey(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	orderID, err := store.Reserve(context.Background(), "abc")

	require.NoError(t, err)
	assert.Empty(t, orderID)
	stored, err := mr.Get(storeKey("abc"))
	require.NoError(t, err)
	assert.Equal(t, pendingMarker, stored)
	assert.Equal(t, time.Minute, mr.TTL(storeKey("abc")))
}

func TestReserve_InProgress(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.Reserve(ctx, "abc")
	require.NoError(t, err)

	_, err = store.Reserve(ctx, "abc")
	assert.ErrorIs(t, err, ErrInProgress)
}

func TestReserve_Completed(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.Reserve(ctx, "abc")
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, "abc", "order-1"))

	orderID, err := store.Reserve(ctx, "abc")

	require.NoError(t, err)
	assert.Equal(t, "order-1", orderID)
	assert.Equal(t, time.Hour, mr.TTL(storeKey("abc")))
}

func TestLookup(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.Lookup(ctx, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, mr.Set(storeKey("abc"), "order-7"))
	orderID, err := store.Lookup(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "order-7", orderID)
}

func TestRelease(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.Reserve(ctx, "abc")
	require.NoError(t, err)

	require.NoError(t, store.Release(ctx, "abc"))
	assert.False(t, mr.Exists(storeKey("abc")))

	// releasing a missing key is not an error
	assert.NoError(t, store.Release(ctx, "missing"))
}

func TestReserve_PendingExpires(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.Reserve(ctx, "abc")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	orderID, err := store.Reserve(ctx, "abc")
	require.NoError(t, err)
	assert.Empty(t, orderID)
}

func TestRedisUnavailable(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	mr.Close()

	_, err := store.Reserve(context.Background(), "abc")
	require.Error(t, err)
	assert.ErrorContains(t, err, "redis setnx failed")
}

func TestStoreKey_Format(t *testing.T) {
	assert.Equal(t, "order-idempotency:k1", storeKey("k1"))
}
