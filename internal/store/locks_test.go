package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLocksSerializeSameKey(t *testing.T) {
	locks := newKeyedLocks()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locks.acquire(context.Background(), "k", 0)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, locks.size())
}

func TestKeyedLocksIndependentKeys(t *testing.T) {
	locks := newKeyedLocks()
	releaseA, err := locks.acquire(context.Background(), "a", 0)
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := locks.acquire(context.Background(), "b", 10*time.Millisecond)
	require.NoError(t, err)
	releaseB()
}

func TestKeyedLocksTimeoutAndCancel(t *testing.T) {
	locks := newKeyedLocks()
	release, err := locks.acquire(context.Background(), "k", 0)
	require.NoError(t, err)

	_, err = locks.acquire(context.Background(), "k", 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrConflict)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locks.acquire(ctx, "k", time.Second)
	assert.ErrorIs(t, err, context.Canceled)

	release()
	assert.Equal(t, 0, locks.size())
}
