package xretry

import "context"

// ClassifiedRetryPolicy 按错误分类决定是否重试。
// 只有 classify 返回 true 的错误才会重试，其余错误立即返回。
type ClassifiedRetryPolicy struct {
	maxAttempts int
	classify    func(error) bool
}

// NewClassifiedRetry 创建分类重试策略。
// classify 为 nil 时退化为 IsRetryable。
func NewClassifiedRetry(maxAttempts int, classify func(error) bool) *ClassifiedRetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if classify == nil {
		classify = IsRetryable
	}
	return &ClassifiedRetryPolicy{maxAttempts: maxAttempts, classify: classify}
}

func (p *ClassifiedRetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}

func (p *ClassifiedRetryPolicy) ShouldRetry(ctx context.Context, attempt int, err error) bool {
	if ctx.Err() != nil || attempt >= p.maxAttempts {
		return false
	}
	return p.classify(err)
}

var _ RetryPolicy = (*ClassifiedRetryPolicy)(nil)
