package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotObtained is returned when a distributed lock could not be
// acquired before its deadline.
var ErrLockNotObtained = errors.New("could not obtain transaction lock")

// Locker serializes work on a single key. Different keys never contend.
type Locker interface {
	// Lock blocks until the key is held or ctx is done. The returned
	// function releases the key and must be called exactly once.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

// LocalLocker is an in-process keyed mutex. Entries are removed once no
// goroutine holds or waits for them.
type LocalLocker struct {
	locks map[string]*lockEntry
	mu    sync.Mutex
}

// NewLocalLocker creates an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*lockEntry)}
}

// Lock implements Locker.
func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(key, e)
		})
	}, nil
}

func (l *LocalLocker) release(key string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// Len returns the number of keys currently held or waited on.
func (l *LocalLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// RedisLocker holds keys in Redis so corrections are serialized across
// processes sharing one database.
type RedisLocker struct {
	client  *redislock.Client
	prefix  string
	ttl     time.Duration
	backoff time.Duration
}

// NewRedisLocker creates a RedisLocker. ttl bounds both how long a lock is
// held if its owner dies and how long Lock waits without a ctx deadline.
func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisLocker{
		client:  redislock.New(rdb),
		prefix:  "lock:transaction:",
		ttl:     ttl,
		backoff: 25 * time.Millisecond,
	}
}

// Lock implements Locker.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := l.client.Obtain(ctx, l.prefix+key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.backoff),
	})
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %s", ErrLockNotObtained, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock for %s: %w", key, err)
	}

	return func() {
		// A background context lets the release run after a canceled request.
		_ = lock.Release(context.Background())
	}, nil
}
