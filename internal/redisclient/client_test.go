package redisclient

import (
	"context"
	"os"
	"testing"
	"time"

	"inventory-ledger/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupClient(t *testing.T) *Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	c, err := NewClient(addr, "", 15, time.Second)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() {
		c.GetClient().FlushDB(context.Background())
		c.Close()
	})
	return c
}

func TestLockIsExclusive(t *testing.T) {
	c := setupClient(t)
	ctx := context.Background()

	release, err := c.Lock(ctx, "inventory")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = c.Lock(waitCtx, "inventory")
	assert.ErrorIs(t, err, ErrLockTimeout)

	require.NoError(t, release(ctx))

	release2, err := c.Lock(ctx, "inventory")
	require.NoError(t, err)
	require.NoError(t, release2(ctx))
}

func TestStaleReleaseKeepsNewHolder(t *testing.T) {
	c := setupClient(t)
	ctx := context.Background()

	release, err := c.Lock(ctx, "inventory")
	require.NoError(t, err)

	// simulate expiry and a new holder
	c.GetClient().Del(ctx, "lock:inventory")
	_, err = c.Lock(ctx, "inventory")
	require.NoError(t, err)

	require.NoError(t, release(ctx))
	exists, err := c.GetClient().Exists(ctx, "lock:inventory").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}

func TestSessionStore(t *testing.T) {
	c := setupClient(t)
	store := NewSessionStore(c)
	ctx := context.Background()

	sess := &auth.Session{Token: "tok", Principal: "harsh", Role: auth.RoleAdmin, CreatedAt: time.Now()}
	require.NoError(t, store.Save(ctx, sess, time.Minute))

	got, err := store.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "harsh", got.Principal)
	assert.Equal(t, auth.RoleAdmin, got.Role)

	require.NoError(t, store.Delete(ctx, "tok"))
	_, err = store.Get(ctx, "tok")
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "tok"), auth.ErrSessionNotFound)
}
