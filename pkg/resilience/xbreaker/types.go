package xbreaker

import "github.com/sony/gobreaker/v2"

type (
	// Counts 熔断器统计计数
	Counts = gobreaker.Counts

	// State 熔断器状态
	State = gobreaker.State
)

const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

var (
	// ErrOpenState 熔断器处于打开状态
	ErrOpenState = gobreaker.ErrOpenState

	// ErrTooManyRequests 半开状态下请求数超过上限
	ErrTooManyRequests = gobreaker.ErrTooManyRequests
)
