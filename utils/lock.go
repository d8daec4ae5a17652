package utils

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
)

// Locker serialises writers on a set of keys. Keys are acquired in sorted
// order so two callers asking for overlapping sets cannot deadlock.
type Locker interface {
	Obtain(ctx context.Context, keys []string, ttl time.Duration) (release func(), err error)
}

// LocalLocker is an in-process keyed mutex.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*lockSlot)}
}

func (l *LocalLocker) Obtain(ctx context.Context, keys []string, _ time.Duration) (func(), error) {
	keys = SortedUniqueStrings(keys)
	held := make([]string, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.unlock(held[i])
		}
	}
	for _, key := range keys {
		if err := l.lock(ctx, key); err != nil {
			release()
			return nil, fmt.Errorf("%w %s: %v", ErrorLockNotObtained, key, err)
		}
		held = append(held, key)
	}
	return release, nil
}

func (l *LocalLocker) lock(ctx context.Context, key string) error {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		slot.refs--
		if slot.refs == 0 {
			delete(l.slots, key)
		}
		l.mu.Unlock()
		return ctx.Err()
	}
}

func (l *LocalLocker) unlock(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[key]
	if !ok {
		return
	}
	<-slot.ch
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}

// RedisLocker holds keyed locks in Redis so several API replicas share one
// mutual-exclusion boundary.
type RedisLocker struct {
	client  *redislock.Client
	backoff time.Duration
	retries int
}

func NewRedisLocker(client *redislock.Client) *RedisLocker {
	return &RedisLocker{client: client, backoff: 50 * time.Millisecond, retries: 100}
}

func (l *RedisLocker) Obtain(ctx context.Context, keys []string, ttl time.Duration) (func(), error) {
	if l == nil || l.client == nil {
		return nil, errors.New("service not ready (redis lock not initialized)")
	}
	keys = SortedUniqueStrings(keys)
	held := make([]*redislock.Lock, 0, len(keys))
	// Release uses a fresh context: the operation context may already be done.
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			_ = held[i].Release(context.Background())
		}
	}
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.backoff), l.retries),
	}
	for _, key := range keys {
		lock, err := l.client.Obtain(ctx, "lock:"+key, ttl, opts)
		if errors.Is(err, redislock.ErrNotObtained) {
			release()
			return nil, fmt.Errorf("%w %s", ErrorLockNotObtained, key)
		} else if err != nil {
			release()
			return nil, err
		}
		held = append(held, lock)
	}
	return release, nil
}
