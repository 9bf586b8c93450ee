package xkeylock

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Handle 表示一次成功的锁获取。
type Handle interface {
	// Unlock 释放锁。
	// 幂等：第一次调用返回 nil，后续调用返回 [ErrLockNotHeld]。
	Unlock() error

	// Key 返回锁的 key。
	Key() string
}

// Locker 提供基于 key 的进程内互斥锁。
// 所有方法都是并发安全的。
type Locker interface {
	io.Closer

	// Acquire 阻塞式获取锁。
	// ctx 取消时放弃等待并返回 ctx.Err()，不会遗留锁占用。
	// 锁是非可重入的，与 sync.Mutex 一致。
	Acquire(ctx context.Context, key string) (Handle, error)

	// TryAcquire 非阻塞获取锁。
	// 锁被占用时返回 (nil, [ErrLockOccupied])。
	TryAcquire(key string) (Handle, error)

	// Len 返回已创建的 key 数量。
	Len() int
}

// New 创建一个新的 Locker 实例。
// 配置无效时返回错误（如分片数不是 2 的幂）。
func New(opts ...Option) (Locker, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	shards := make([]shard, o.shardCount)
	for i := range shards {
		shards[i].entries = make(map[string]*lockEntry)
	}
	return &keyLock{
		shards: shards,
		mask:   uint64(o.shardCount - 1),
		done:   make(chan struct{}),
	}, nil
}

type keyLock struct {
	shards   []shard
	mask     uint64
	closed   atomic.Bool
	keyCount atomic.Int64
	done     chan struct{}
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

// lockEntry 用 size=1 的 channel 作为互斥量：
// 发送成功即持有锁，接收即释放锁。
type lockEntry struct {
	ch chan struct{}
}

type handle struct {
	key   string
	entry *lockEntry
	done  atomic.Bool
}

func (kl *keyLock) entry(key string) *lockEntry {
	s := &kl.shards[xxhash.Sum64String(key)&kl.mask]
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		s.entries[key] = e
		kl.keyCount.Add(1)
	}
	return e
}

func (kl *keyLock) Acquire(ctx context.Context, key string) (Handle, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if key == "" {
		return nil, ErrInvalidKey
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if kl.closed.Load() {
		return nil, ErrClosed
	}

	e := kl.entry(key)
	select {
	case e.ch <- struct{}{}:
		return &handle{key: key, entry: e}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-kl.done:
		return nil, ErrClosed
	}
}

func (kl *keyLock) TryAcquire(key string) (Handle, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	if kl.closed.Load() {
		return nil, ErrClosed
	}

	e := kl.entry(key)
	select {
	case e.ch <- struct{}{}:
		return &handle{key: key, entry: e}, nil
	default:
		return nil, ErrLockOccupied
	}
}

func (kl *keyLock) Len() int {
	return int(kl.keyCount.Load())
}

func (kl *keyLock) Close() error {
	if !kl.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	close(kl.done)
	return nil
}

func (h *handle) Unlock() error {
	if !h.done.CompareAndSwap(false, true) {
		return ErrLockNotHeld
	}
	<-h.entry.ch
	return nil
}

func (h *handle) Key() string {
	return h.key
}

var (
	_ Locker = (*keyLock)(nil)
	_ Handle = (*handle)(nil)
)
