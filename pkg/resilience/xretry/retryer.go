package xretry

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	retry "github.com/avast/retry-go/v5"
)

// safeIntToUint 安全地将 int 转换为 uint，负数返回 0
func safeIntToUint(n int) uint {
	if n <= 0 {
		return 0
	}
	return uint(n)
}

// safeUintToInt 安全地将 uint 转换为 int，溢出时返回 math.MaxInt
func safeUintToInt(n uint) int {
	if n > uint(math.MaxInt) {
		return math.MaxInt
	}
	return int(n)
}

// Retryer 重试执行器，组合 RetryPolicy 与 BackoffPolicy，底层使用 retry-go。
// Retryer 本身无状态，可被多个 goroutine 并发复用。
type Retryer struct {
	retryPolicy   RetryPolicy
	backoffPolicy BackoffPolicy
	onRetry       func(attempt int, delay time.Duration, err error)
}

// RetryerOption Retryer 配置选项
type RetryerOption func(*Retryer)

// WithRetryPolicy 设置重试策略
func WithRetryPolicy(p RetryPolicy) RetryerOption {
	return func(r *Retryer) {
		if p != nil {
			r.retryPolicy = p
		}
	}
}

// WithBackoffPolicy 设置退避策略
func WithBackoffPolicy(p BackoffPolicy) RetryerOption {
	return func(r *Retryer) {
		if p != nil {
			r.backoffPolicy = p
		}
	}
}

// WithOnRetry 设置重试回调。
// 回调在即将等待 delay 之前调用，attempt 为刚失败的尝试序号（从 1 开始）。
func WithOnRetry(f func(attempt int, delay time.Duration, err error)) RetryerOption {
	return func(r *Retryer) {
		if f != nil {
			r.onRetry = f
		}
	}
}

// NewRetryer 创建重试执行器
// 默认：最多 3 次尝试，按 IsRetryable 分类，100ms 中位的去相关抖动退避
func NewRetryer(opts ...RetryerOption) *Retryer {
	r := &Retryer{
		retryPolicy:   NewClassifiedRetry(3, nil),
		backoffPolicy: NewDecorrelatedJitterBackoff(0),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// DoWithResult 执行带重试的操作，所有尝试失败后返回最后一次的错误。
// Go 不支持方法的类型参数，因此为包级函数。
func DoWithResult[T any](ctx context.Context, r *Retryer, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if r == nil {
		return zero, ErrNilRetryer
	}
	if ctx == nil {
		return zero, ErrNilContext
	}
	if fn == nil {
		return zero, ErrNilFunc
	}

	return retry.NewWithData[T](r.buildOptions(ctx)...).Do(func() (T, error) {
		return fn(ctx)
	})
}

func (r *Retryer) buildOptions(ctx context.Context) []retry.Option {
	opts := make([]retry.Option, 0, 5)
	opts = append(opts, retry.Context(ctx))

	retryPolicy := r.retryPolicy
	if retryPolicy == nil {
		retryPolicy = NewClassifiedRetry(3, nil)
	}
	backoffPolicy := r.backoffPolicy
	if backoffPolicy == nil {
		backoffPolicy = NewNoBackoff()
	}
	if seq, ok := backoffPolicy.(SequenceBackoff); ok {
		backoffPolicy = seq.NewSequence()
	}

	// 负数或零一律按单次尝试处理，避免 Attempts(0) 变成无限重试
	opts = append(opts, retry.Attempts(safeIntToUint(max(retryPolicy.MaxAttempts(), 1))))

	var attemptCount atomic.Int64
	opts = append(opts, retry.RetryIf(func(err error) bool {
		count := int(attemptCount.Add(1))
		if !retry.IsRecoverable(err) {
			return false
		}
		return retryPolicy.ShouldRetry(ctx, count, err)
	}))

	onRetry := r.onRetry
	opts = append(opts, retry.DelayType(func(n uint, err error, _ retry.DelayContext) time.Duration {
		attempt := safeUintToInt(n)
		delay := backoffPolicy.NextDelay(attempt)
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
		return delay
	}))

	opts = append(opts, retry.LastErrorOnly(true))
	return opts
}
