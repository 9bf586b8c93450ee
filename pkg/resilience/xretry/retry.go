package xretry

import (
	"context"
	"time"
)

// RetryPolicy 定义重试策略接口
//
// 通过 Retryer 使用时：
//   - MaxAttempts() 设置 retry-go 的 Attempts 上限
//   - ShouldRetry() 在每次失败后被调用
//   - Unrecoverable 错误会在 ShouldRetry 之前被短路拦截
type RetryPolicy interface {
	// MaxAttempts 返回最大尝试次数（包含首次尝试）
	MaxAttempts() int

	// ShouldRetry 判断是否应该重试
	// attempt: 当前尝试次数（从 1 开始）
	ShouldRetry(ctx context.Context, attempt int, err error) bool
}

// BackoffPolicy 定义退避策略接口
type BackoffPolicy interface {
	// NextDelay 返回下次重试的延迟时间
	// attempt: 当前尝试次数（从 1 开始）
	NextDelay(attempt int) time.Duration
}

// SequenceBackoff 有状态的退避策略。
// Retryer 在每次 Do 调用开始时通过 NewSequence 取得独立的退避序列，
// 同一 Retryer 被并发使用时各调用之间互不干扰。
type SequenceBackoff interface {
	BackoffPolicy
	NewSequence() BackoffPolicy
}
