package xkeylock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newLocker(t *testing.T, opts ...Option) Locker {
	t.Helper()
	kl, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kl.Close() })
	return kl
}

func TestAcquireAndUnlock(t *testing.T) {
	kl := newLocker(t)

	h, err := kl.Acquire(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, "orders", h.Key())

	assert.NoError(t, h.Unlock())
	assert.ErrorIs(t, h.Unlock(), ErrLockNotHeld)
	assert.ErrorIs(t, h.Unlock(), ErrLockNotHeld)
}

func TestAcquireInvalidInput(t *testing.T) {
	kl := newLocker(t)

	//nolint:staticcheck // 测试 nil ctx
	_, err := kl.Acquire(nil, "orders")
	assert.ErrorIs(t, err, ErrNilContext)

	_, err = kl.Acquire(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = kl.TryAcquire("")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestTryAcquire(t *testing.T) {
	kl := newLocker(t)

	h, err := kl.TryAcquire("orders")
	require.NoError(t, err)

	_, err = kl.TryAcquire("orders")
	assert.ErrorIs(t, err, ErrLockOccupied)

	require.NoError(t, h.Unlock())

	h2, err := kl.TryAcquire("orders")
	require.NoError(t, err)
	assert.NoError(t, h2.Unlock())
}

func TestEntriesAreReused(t *testing.T) {
	kl := newLocker(t)

	for range 5 {
		h, err := kl.Acquire(context.Background(), "orders")
		require.NoError(t, err)
		require.NoError(t, h.Unlock())
	}
	h, err := kl.Acquire(context.Background(), "billing")
	require.NoError(t, err)
	require.NoError(t, h.Unlock())

	assert.Equal(t, 2, kl.Len())
}

func TestAcquireContextCancel(t *testing.T) {
	kl := newLocker(t)

	h, err := kl.Acquire(context.Background(), "orders")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = kl.Acquire(ctx, "orders")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// 放弃等待的调用方不会占用锁
	require.NoError(t, h.Unlock())
	h2, err := kl.TryAcquire("orders")
	require.NoError(t, err)
	assert.NoError(t, h2.Unlock())
}

func TestAcquireAlreadyCancelledContext(t *testing.T) {
	kl := newLocker(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := kl.Acquire(ctx, "orders")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCloseWakesWaiters(t *testing.T) {
	kl, err := New()
	require.NoError(t, err)

	h, err := kl.Acquire(context.Background(), "orders")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := kl.Acquire(context.Background(), "orders")
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, kl.Close())
	assert.ErrorIs(t, <-errCh, ErrClosed)
	assert.ErrorIs(t, kl.Close(), ErrClosed)

	_, err = kl.TryAcquire("billing")
	assert.ErrorIs(t, err, ErrClosed)

	// 已持有的锁不受影响
	assert.NoError(t, h.Unlock())
}

func TestShardCount(t *testing.T) {
	for _, n := range []int{0, -1, 3, maxShardCount * 2} {
		_, err := New(WithShardCount(n))
		assert.ErrorIs(t, err, ErrInvalidShardCount, "shard count %d", n)
	}

	kl, err := New(WithShardCount(1), nil)
	require.NoError(t, err)
	assert.NoError(t, kl.Close())
}

func TestConcurrentMutualExclusion(t *testing.T) {
	kl := newLocker(t)

	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := kl.Acquire(context.Background(), "orders")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			assert.NoError(t, h.Unlock())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	kl := newLocker(t, WithShardCount(1))

	h, err := kl.Acquire(context.Background(), "orders")
	require.NoError(t, err)
	defer func() { _ = h.Unlock() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	h2, err := kl.Acquire(ctx, "billing")
	require.NoError(t, err)
	assert.NoError(t, h2.Unlock())
}
