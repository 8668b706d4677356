package redisclient

import (
	"context"
	"sync"
)

// LocalLocker serializes per-key critical sections inside a single process.
// It is the Locker used by tests and by single-instance deployments that
// run without Redis; semantics match the Redis locker except that waiting
// callers block instead of failing with ErrLockNotAcquired.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

// keyLock is reference-counted so the entry can be dropped once the last
// holder or waiter is gone, keeping the map bounded in long-lived processes.
type keyLock struct {
	sync.Mutex
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyLock)}
}

func (l *LocalLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.Lock()
	err := ctx.Err()
	if err == nil {
		err = fn(ctx)
	}
	kl.Unlock()

	l.mu.Lock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()

	return err
}
