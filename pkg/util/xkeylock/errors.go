package xkeylock

import "errors"

var (
	// ErrLockNotHeld 表示锁已被释放。
	// Unlock 第二次及后续调用时返回此错误。
	ErrLockNotHeld = errors.New("xkeylock: lock not held")

	// ErrClosed 表示 Locker 已关闭。
	ErrClosed = errors.New("xkeylock: closed")

	// ErrLockOccupied 表示 TryAcquire 时锁已被占用。
	ErrLockOccupied = errors.New("xkeylock: lock occupied")

	// ErrInvalidKey 表示 key 为空。
	ErrInvalidKey = errors.New("xkeylock: key cannot be empty")

	// ErrNilContext 表示传入的 context 为 nil。
	ErrNilContext = errors.New("xkeylock: context cannot be nil")

	// ErrInvalidShardCount 表示分片数无效。
	ErrInvalidShardCount = errors.New("xkeylock: invalid shard count")
)
