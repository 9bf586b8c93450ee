package xbreaker

import (
	"errors"
	"fmt"
)

// BreakerError 熔断器错误包装类型
//
// 包装 ErrOpenState 与 ErrTooManyRequests，Retryable() 返回 false，
// 与 xretry 组合使用时熔断错误不会被重试。
type BreakerError struct {
	Err   error
	Name  string
	State State
}

func (e *BreakerError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("breaker %s: %v", e.Name, e.Err)
	}
	return e.Err.Error()
}

func (e *BreakerError) Unwrap() error {
	return e.Err
}

// Retryable 实现 xretry.RetryableError，始终返回 false
func (e *BreakerError) Retryable() bool {
	return false
}

func wrapBreakerError(err error, name string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrOpenState):
		return &BreakerError{Err: err, Name: name, State: StateOpen}
	case errors.Is(err, ErrTooManyRequests):
		return &BreakerError{Err: err, Name: name, State: StateHalfOpen}
	default:
		return err
	}
}

// IsBreakerError 判断错误是否由熔断器拒绝产生
func IsBreakerError(err error) bool {
	var be *BreakerError
	return errors.As(err, &be)
}
