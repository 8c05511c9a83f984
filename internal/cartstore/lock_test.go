package cartstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRedisLockAcquireRelease(t *testing.T) {
	ctx := context.Background()
	client := newMockRedis()

	first, err := NewRedisLock(client, "lock", time.Second)
	require.NoError(t, err)
	second, err := NewRedisLock(client, "lock", time.Second)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// Releasing a lock we never held leaves the owner's value alone.
	require.NoError(t, second.Release(ctx))
	require.Contains(t, client.data, "lock")

	require.NoError(t, first.Release(ctx))
	require.NotContains(t, client.data, "lock")
}

func TestRedisLockReleaseKeepsLockTakenOverAfterExpiry(t *testing.T) {
	ctx := context.Background()
	client := newMockRedis()

	lock, err := NewRedisLock(client, "lock", time.Second)
	require.NoError(t, err)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// TTL ran out and another worker now holds the key.
	client.data["lock"] = "other-owner"

	require.NoError(t, lock.Release(ctx))
	require.Equal(t, "other-owner", client.data["lock"])
}

func TestRedisLockReleaseSurfacesStoreErrors(t *testing.T) {
	ctx := context.Background()
	client := newMockRedis()

	lock, err := NewRedisLock(client, "lock", time.Second)
	require.NoError(t, err)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	client.err = errors.New("connection reset")
	require.ErrorContains(t, lock.Release(ctx), "release lock")
}

func TestRedisLockerGivesUpWhenBusy(t *testing.T) {
	ctx := context.Background()
	client := newMockRedis()
	locker, err := NewRedisLocker(client, time.Second)
	require.NoError(t, err)
	locker.attempts = 2
	locker.wait = time.Millisecond

	unlock, err := locker.Lock(ctx, "k")
	require.NoError(t, err)

	_, err = locker.Lock(ctx, "k")
	require.ErrorIs(t, err, ErrLockBusy)

	require.NoError(t, unlock(ctx))
	unlock, err = locker.Lock(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
}

func TestLocalLockerHonorsContext(t *testing.T) {
	locker := NewLocalLocker()
	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "k")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(context.Background()))
	require.NoError(t, unlock(context.Background()))

	unlock, err = locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	require.NoError(t, unlock(context.Background()))
}
