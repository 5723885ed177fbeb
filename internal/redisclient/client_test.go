package redisclient

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient connects to TEST_REDIS_ADDR or skips
func newTestClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	c, err := NewClient(addr, os.Getenv("TEST_REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestIdempotencyReserveCompleteRelease(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := uuid.New().String()
	t.Cleanup(func() { c.Release(ctx, key) })

	id, reserved, err := c.Reserve(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Empty(t, id)

	id, reserved, err = c.Reserve(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Empty(t, id, "in-flight key has no product yet")

	require.NoError(t, c.Complete(ctx, key, "product-1", time.Minute))
	id, reserved, err = c.Reserve(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, "product-1", id)

	require.NoError(t, c.Release(ctx, key))
	_, reserved, err = c.Reserve(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestLockIsExclusive(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := "test-" + uuid.New().String()

	token, ok, err := c.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = c.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.ReleaseLock(ctx, key, token))
	token, ok, err = c.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, c.ReleaseLock(ctx, key, token))
}

func TestReleaseLockKeepsForeignHolder(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := "test-" + uuid.New().String()

	stale, ok, err := c.AcquireLock(ctx, key, 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		_, ok, err := c.AcquireLock(ctx, key, time.Minute)
		return err == nil && ok
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, c.ReleaseLock(ctx, key, stale))
	_, ok, err = c.AcquireLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "stale token must not free the new holder's lock")

	require.NoError(t, c.GetClient().Del(ctx, lockKey(key)).Err())
}
