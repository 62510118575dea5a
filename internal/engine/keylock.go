// Per-parent mutual exclusion. SQLite has no row locks, so the capacity
// decision is serialized with an in-process mutex registry keyed by the
// parent's normalized code. Callers on different parents never contend.
package engine

import (
	"context"
	"sync"
)

// keyLock is a context-aware mutex: a one-slot channel semaphore.
type keyLock struct {
	sem  chan struct{}
	refs int
}

// keyLocks hands out one lock per key, dropping entries when the last
// interested caller releases or gives up.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

// acquire blocks until the lock for key is held or ctx expires. On
// success it returns a release function; on failure it returns ctx's
// error and holds nothing.
func (k *keyLocks) acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{sem: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
		return func() {
			<-l.sem
			k.release(key, l)
		}, nil
	case <-ctx.Done():
		k.release(key, l)
		return nil, ctx.Err()
	}
}

// release drops one reference and removes the registry entry when no
// caller is holding or waiting.
func (k *keyLocks) release(key string, l *keyLock) {
	k.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

// size returns the number of tracked keys. Used by tests.
func (k *keyLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
