package xbreaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
)

// TripPolicy 熔断策略，决定何时从 Closed 进入 Open
type TripPolicy interface {
	ReadyToTrip(counts Counts) bool
}

// SuccessPolicy 成功判定策略
//
// 默认只有 err == nil 视为成功。
// 自定义策略可把业务上的预期错误（如 4xx）计为成功，避免误熔断。
type SuccessPolicy interface {
	IsSuccessful(err error) bool
}

// Breaker 熔断器执行器，封装 gobreaker.CircuitBreaker
type Breaker struct {
	name          string
	tripPolicy    TripPolicy
	successPolicy SuccessPolicy
	timeout       time.Duration
	interval      time.Duration
	maxRequests   uint32
	onStateChange func(name string, from, to State)

	cb *gobreaker.CircuitBreaker[any]
}

// BreakerOption 熔断器配置选项
type BreakerOption func(*Breaker)

// WithTripPolicy 设置熔断策略，默认连续失败 5 次
func WithTripPolicy(p TripPolicy) BreakerOption {
	return func(b *Breaker) {
		if p != nil {
			b.tripPolicy = p
		}
	}
}

// WithSuccessPolicy 设置成功判定策略
func WithSuccessPolicy(p SuccessPolicy) BreakerOption {
	return func(b *Breaker) {
		b.successPolicy = p
	}
}

// WithTimeout 设置 Open 状态持续时间，之后进入 HalfOpen。默认 60s
func WithTimeout(d time.Duration) BreakerOption {
	return func(b *Breaker) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithInterval 设置 Closed 状态下清零计数的周期，0 表示不清零
func WithInterval(d time.Duration) BreakerOption {
	return func(b *Breaker) {
		if d >= 0 {
			b.interval = d
		}
	}
}

// WithMaxRequests 设置 HalfOpen 状态允许通过的请求数。默认 1
func WithMaxRequests(n uint32) BreakerOption {
	return func(b *Breaker) {
		if n > 0 {
			b.maxRequests = n
		}
	}
}

// WithOnStateChange 设置状态变化回调
func WithOnStateChange(f func(name string, from, to State)) BreakerOption {
	return func(b *Breaker) {
		b.onStateChange = f
	}
}

// NewBreaker 创建熔断器执行器
//
// 默认配置：
//   - 熔断策略：连续失败 5 次
//   - 超时时间：60 秒
//   - HalfOpen 最大请求数：1
func NewBreaker(name string, opts ...BreakerOption) *Breaker {
	b := &Breaker{
		name:        name,
		tripPolicy:  NewConsecutiveFailures(5),
		timeout:     60 * time.Second,
		maxRequests: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	b.cb = gobreaker.NewCircuitBreaker[any](b.settings())
	return b
}

func (b *Breaker) settings() gobreaker.Settings {
	st := gobreaker.Settings{
		Name:        b.name,
		MaxRequests: b.maxRequests,
		Interval:    b.interval,
		Timeout:     b.timeout,
		ReadyToTrip: b.tripPolicy.ReadyToTrip,
	}
	if b.successPolicy != nil {
		st.IsSuccessful = b.successPolicy.IsSuccessful
	}
	if b.onStateChange != nil {
		st.OnStateChange = b.onStateChange
	}
	return st
}

// Do 执行受熔断器保护的操作
//
// context 已取消时直接返回 ctx.Err()，不计入统计。
// 熔断器拒绝时返回 *BreakerError。
func (b *Breaker) Do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return wrapBreakerError(err, b.name)
}

// Execute 执行受熔断器保护的操作（泛型版本）
//
// Go 不支持方法的类型参数，因此为包级函数。
// 操作返回错误时，结果值仍原样返回给调用方。
func Execute[T any](ctx context.Context, b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	var result T
	_, err := b.cb.Execute(func() (any, error) {
		var err error
		result, err = fn()
		return nil, err
	})
	// 熔断器拒绝时 fn 未执行，result 保持零值
	return result, wrapBreakerError(err, b.name)
}

// State 返回熔断器当前状态
func (b *Breaker) State() State {
	return b.cb.State()
}

// Name 返回熔断器名称
func (b *Breaker) Name() string {
	return b.name
}

// Counts 返回当前统计计数
func (b *Breaker) Counts() Counts {
	return b.cb.Counts()
}
