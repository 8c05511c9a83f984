package cartstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultLockTTL      = 10 * time.Second
	defaultLockAttempts = 20
	defaultLockWait     = 50 * time.Millisecond
)

// ErrLockBusy is returned when a lock stays held by someone else.
var ErrLockBusy = errors.New("cart lock busy")

// Unlock releases a held lock.
type Unlock func(ctx context.Context) error

// Locker hands out exclusive locks by key.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// redisLockStore defines the operations used by RedisLock.
type redisLockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
}

// RedisLock is a single SETNX lock with an owner token.
type RedisLock struct {
	client redisLockStore
	key    string
	ttl    time.Duration
	owner  string
}

// NewRedisLock constructs a Redis-backed lock.
func NewRedisLock(client redisLockStore, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, key: key, ttl: ttl}, nil
}

// Acquire tries to own the lock for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx: %w", err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Release frees the lock only if the owner value still matches.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	// The owner check and delete run as one script so a lock that expired and
	// was re-acquired by someone else is never removed here.
	if _, err := l.client.CompareAndDelete(ctx, l.key, l.owner); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	l.owner = ""
	return nil
}

type redisLockerStore interface {
	redisLockStore
	LockKey(scope string) string
}

// RedisLocker polls a RedisLock per key until it is acquired or attempts run out.
type RedisLocker struct {
	client   redisLockerStore
	ttl      time.Duration
	attempts int
	wait     time.Duration
}

// NewRedisLocker builds a locker whose locks expire after ttl.
func NewRedisLocker(client redisLockerStore, ttl time.Duration) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for locker")
	}
	return &RedisLocker{
		client:   client,
		ttl:      ttl,
		attempts: defaultLockAttempts,
		wait:     defaultLockWait,
	}, nil
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	lock, err := NewRedisLock(l.client, l.client.LockKey(key), l.ttl)
	if err != nil {
		return nil, err
	}
	for attempt := 0; attempt < l.attempts; attempt++ {
		ok, err := lock.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			return lock.Release, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.wait):
		}
	}
	return nil, ErrLockBusy
}

// LocalLocker serializes keys inside one process.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocalLocker builds an in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: map[string]chan struct{}{}}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func(context.Context) error {
			once.Do(func() { <-slot })
			return nil
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
