// Package xretry 提供重试策略和退避策略接口及实现。
//
// # 设计理念
//
// xretry 采用接口驱动设计：
//   - RetryPolicy：是否应该重试（最大尝试次数 + 错误分类）
//   - BackoffPolicy：重试间隔时间
//
// 底层使用 [avast/retry-go/v5] 实现重试循环。
//
// # 重试策略
//
//   - ClassifiedRetryPolicy：固定次数 + 分类函数，只重试指定类别；
//     分类函数为 nil 时使用 IsRetryable
//
// # 退避策略
//
//   - DecorrelatedJitterBackoff：去相关抖动退避，有状态，每次调用独立序列
//   - NoBackoff：无延迟
//
// # 使用方式
//
//	retryer := xretry.NewRetryer(
//	    xretry.WithRetryPolicy(xretry.NewClassifiedRetry(3, isTransient)),
//	    xretry.WithBackoffPolicy(xretry.NewDecorrelatedJitterBackoff(500*time.Millisecond)),
//	)
//	resp, err := xretry.DoWithResult(ctx, retryer, func(ctx context.Context) (*Response, error) {
//	    return send(ctx)
//	})
//
// # 错误分类
//
// 实现 RetryableError（Retryable() bool）的错误由 IsRetryable 识别，
// 未实现的错误默认可重试。
//
// [avast/retry-go/v5]: https://github.com/avast/retry-go
package xretry
