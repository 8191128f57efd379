package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client), mr
}

func TestTryLockIsExclusive(t *testing.T) {
	l, _ := newLocker(t)
	ctx := context.Background()

	token, ok, err := l.TryLock(ctx, "billing:run:2024-01", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = l.TryLock(ctx, "billing:run:2024-01", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "billing:run:2024-01", token))
	_, ok, err = l.TryLock(ctx, "billing:run:2024-01", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseIgnoresForeignToken(t *testing.T) {
	l, mr := newLocker(t)
	ctx := context.Background()

	token, ok, err := l.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.Release(ctx, "k", "someone-else"))
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, token, got)
}

func TestLockExpires(t *testing.T) {
	l, mr := newLocker(t)
	ctx := context.Background()

	_, ok, err := l.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	_, ok, err = l.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDisabledLocker(t *testing.T) {
	var l *Locker
	assert.False(t, l.Enabled())
	_, _, err := l.TryLock(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NoError(t, l.Release(context.Background(), "k", "t"))

	real, _ := newLocker(t)
	_, _, err = real.TryLock(context.Background(), "", time.Second)
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, _, err = real.TryLock(context.Background(), "k", 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)
}
