package review

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_SerializesOneKey(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	var inside, peak atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "txn-1")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			if n > peak.Load() {
				peak.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak.Load())
	assert.Equal(t, 0, l.Len(), "idle keys are dropped")
}

func TestLocalLocker_IndependentKeys(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	unlockA, err := l.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := l.Lock(ctx, "b")
		if assert.NoError(t, err) {
			unlockB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
}

func TestLocalLocker_ContextCanceled(t *testing.T) {
	l := NewLocalLocker()

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // second call is a no-op
	assert.Equal(t, 0, l.Len())

	unlock, err = l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
}

func newRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, ttl), mr
}

func TestRedisLocker_LockAndRelease(t *testing.T) {
	l, mr := newRedisLocker(t, 2*time.Second)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "txn-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:transaction:txn-1"))
	assert.Equal(t, 2*time.Second, mr.TTL("lock:transaction:txn-1"))

	other, err := l.Lock(ctx, "txn-2")
	require.NoError(t, err, "different keys never contend")
	other()

	unlock()
	assert.False(t, mr.Exists("lock:transaction:txn-1"))

	again, err := l.Lock(ctx, "txn-1")
	require.NoError(t, err)
	again()
}

func TestRedisLocker_NotObtained(t *testing.T) {
	l, _ := newRedisLocker(t, 5*time.Second)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "txn-1")
	require.NoError(t, err)
	defer unlock()

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "txn-1")
	require.ErrorIs(t, err, ErrLockNotObtained)
	assert.Contains(t, err.Error(), "txn-1")
}

func TestRedisLocker_WaiterGetsLockAfterRelease(t *testing.T) {
	l, _ := newRedisLocker(t, 5*time.Second)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "txn-1")
	require.NoError(t, err)

	var acquired atomic.Bool
	done := make(chan error, 1)
	go func() {
		waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		second, err := l.Lock(waitCtx, "txn-1")
		if err == nil {
			acquired.Store(true)
			second()
		}
		done <- err
	}()

	time.Sleep(100 * time.Millisecond)
	assert.False(t, acquired.Load(), "waiter must block while the key is held")
	unlock()

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.True(t, acquired.Load())
	case <-time.After(3 * time.Second):
		t.Fatal("waiter never obtained the lock")
	}
}

func TestRedisLocker_ServerDown(t *testing.T) {
	l, mr := newRedisLocker(t, time.Second)
	mr.Close()

	_, err := l.Lock(context.Background(), "txn-1")
	assert.Error(t, err)
}
