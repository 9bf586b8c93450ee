package xrest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tatoand97/RestClient/pkg/resilience/xretry"
)

var (
	_ xretry.RetryableError = (*StatusError)(nil)
	_ xretry.RetryableError = (*TransportError)(nil)
	_ xretry.RetryableError = (*DecodeError)(nil)
)

// =============================================================================
// 配置错误
// =============================================================================

var (
	// ErrInvalidSettings 表示服务配置无效，具体原因通过 %w 包装给出。
	ErrInvalidSettings = errors.New("xrest: invalid settings")

	// ErrServiceNotConfigured 表示请求的服务不在当前配置中。
	ErrServiceNotConfigured = errors.New("xrest: service not configured")

	// ErrNilSettings 表示传入的配置为 nil。
	ErrNilSettings = errors.New("xrest: nil settings")

	// ErrInvalidPath 表示请求路径不是合法的相对路径。
	ErrInvalidPath = errors.New("xrest: invalid request path")
)

// =============================================================================
// 调用错误
// =============================================================================

var (
	// ErrNilContext 表示传入的 context 为 nil。
	ErrNilContext = errors.New("xrest: nil context")

	// ErrNilClient 表示传入的 Doer 为 nil。
	ErrNilClient = errors.New("xrest: nil client")

	// ErrNilRequest 表示传入的请求为 nil。
	ErrNilRequest = errors.New("xrest: nil request")

	// ErrClosed 表示 Client 已关闭。
	ErrClosed = errors.New("xrest: client closed")

	// ErrTransient 瞬时故障：网络错误、5xx、408。会被重试。
	ErrTransient = errors.New("xrest: transient failure")

	// ErrUnauthorized 表示重新认证后仍返回 401。
	ErrUnauthorized = errors.New("xrest: unauthorized")

	// ErrRequestFailed 表示服务返回了非 2xx 状态码。
	ErrRequestFailed = errors.New("xrest: request failed")

	// ErrDecode 表示响应体无法解码为目标类型。
	ErrDecode = errors.New("xrest: decode failed")

	// ErrCircuitOpen 表示服务的熔断器处于打开状态。
	ErrCircuitOpen = errors.New("xrest: circuit open")

	// ErrResponseTooLarge 表示响应体超过上限。
	ErrResponseTooLarge = errors.New("xrest: response body too large")
)

// StatusError 服务返回非 2xx 状态码。
//
// 所有 StatusError 都匹配 ErrRequestFailed；
// 401 额外匹配 ErrUnauthorized，5xx 和 408 额外匹配 ErrTransient。
type StatusError struct {
	Service    string
	Method     string
	Path       string
	StatusCode int
	// Body 响应体片段，最多 1KB。
	Body string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("xrest: %s %s on service %q returned %d %s",
		e.Method, e.Path, e.Service, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrRequestFailed:
		return true
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrTransient:
		return isTransientStatus(e.StatusCode)
	default:
		return false
	}
}

// Retryable 5xx 与 408 可重试。
func (e *StatusError) Retryable() bool {
	return isTransientStatus(e.StatusCode)
}

func isTransientStatus(code int) bool {
	return code >= 500 || code == http.StatusRequestTimeout
}

// TransportError 请求未得到响应（连接失败、超时、读取中断）。
// 调用方取消导致的失败不会包装为 TransportError。
type TransportError struct {
	Service string
	Method  string
	Path    string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("xrest: %s %s on service %q: %v", e.Method, e.Path, e.Service, e.Err)
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransient
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Retryable() bool {
	return true
}

// DecodeError 响应体解码失败。
type DecodeError struct {
	Service string
	Path    string
	Type    string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("xrest: decode response of %s on service %q into %s: %v", e.Path, e.Service, e.Type, e.Err)
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Retryable() bool {
	return false
}
