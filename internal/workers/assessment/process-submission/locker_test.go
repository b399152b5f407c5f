package processsubmission

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	t.Cleanup(cancel)
	return ctx
}

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()

	release, err := l.Acquire(t.Context(), "sub-1")
	require.NoError(t, err)

	_, err = l.Acquire(shortContext(t), "sub-1")
	assert.ErrorIs(t, err, ErrLockFailed)

	other, err := l.Acquire(shortContext(t), "sub-2")
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := l.Acquire(shortContext(t), "sub-1")
	require.NoError(t, err)
	again()
	assert.Equal(t, 0, l.size())
}

func TestLocalLocker_WaiterGetsLockAfterRelease(t *testing.T) {
	l := NewLocalLocker()
	release, err := l.Acquire(t.Context(), "sub-1")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		r, err := l.Acquire(context.Background(), "sub-1")
		if err == nil {
			r()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire did not wait")
	case <-time.After(30 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	l := NewRedisLocker(rdb, time.Minute)
	l.pollInterval = 5 * time.Millisecond
	return l, mr
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	l, mr := newRedisLocker(t)

	release, err := l.Acquire(t.Context(), "sub-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(lockPrefix+"sub-1"))
	assert.Greater(t, mr.TTL(lockPrefix+"sub-1"), time.Duration(0))

	_, err = l.Acquire(shortContext(t), "sub-1")
	assert.ErrorIs(t, err, ErrLockFailed)

	release()
	assert.False(t, mr.Exists(lockPrefix+"sub-1"))

	again, err := l.Acquire(shortContext(t), "sub-1")
	require.NoError(t, err)
	again()
}

func TestRedisLocker_ReleaseKeepsForeignOwner(t *testing.T) {
	l, mr := newRedisLocker(t)

	release, err := l.Acquire(t.Context(), "sub-1")
	require.NoError(t, err)

	// lock expired and was taken by another replica
	require.NoError(t, mr.Set(lockPrefix+"sub-1", "other-owner"))
	release()

	got, err := mr.Get(lockPrefix + "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "other-owner", got)
}

func TestRedisLocker_Unreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })

	_, err := NewRedisLocker(rdb, time.Minute).Acquire(t.Context(), "sub-1")
	assert.ErrorIs(t, err, ErrLockFailed)
}
