package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyLocksMutualExclusion(t *testing.T) {
	locks := newKeyLocks()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		holders int
		peak    int
	)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locks.acquire(ctx, "parent-1")
			require.NoError(t, err)
			defer release()

			mu.Lock()
			holders++
			if holders > peak {
				peak = holders
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, peak, "one holder per key at a time")
	assert.Equal(t, 0, locks.size(), "registry drains when all holders release")
}

func TestKeyLocksIndependentKeys(t *testing.T) {
	locks := newKeyLocks()
	ctx := context.Background()

	releaseA, err := locks.acquire(ctx, "parent-a")
	require.NoError(t, err)
	defer releaseA()

	// A held lock on one key never blocks another key.
	ctxB, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	releaseB, err := locks.acquire(ctxB, "parent-b")
	require.NoError(t, err)
	releaseB()

	assert.Equal(t, 2, locks.size())
}

func TestKeyLocksContextTimeout(t *testing.T) {
	locks := newKeyLocks()

	release, err := locks.acquire(context.Background(), "parent-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locks.acquire(ctx, "parent-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	assert.Equal(t, 0, locks.size(), "a failed waiter leaves no residue")

	// The key is usable again after release.
	release, err = locks.acquire(context.Background(), "parent-1")
	require.NoError(t, err)
	release()
}
