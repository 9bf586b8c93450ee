package xtoken

import (
	"errors"
	"fmt"
)

// =============================================================================
// 配置错误
// =============================================================================

var (
	// ErrNilIssuer 表示未提供 Issuer。
	ErrNilIssuer = errors.New("xtoken: nil issuer")

	// ErrNilSetting 表示令牌配置为 nil。
	ErrNilSetting = errors.New("xtoken: nil setting")

	// ErrEmptyService 表示服务名为空。
	ErrEmptyService = errors.New("xtoken: empty service name")

	// ErrInvalidSetting 表示令牌配置无效，具体字段通过 %w 包装给出。
	ErrInvalidSetting = errors.New("xtoken: invalid token setting")

	// ErrUnknownAuthMode 表示无法识别的凭据模式。
	ErrUnknownAuthMode = errors.New("xtoken: unknown auth mode")

	// ErrNilRedisClient 表示 Redis 客户端为 nil。
	ErrNilRedisClient = errors.New("xtoken: nil redis client")

	// ErrClosed 表示 Cache 已关闭。
	ErrClosed = errors.New("xtoken: cache closed")
)

// =============================================================================
// 运行时错误
// =============================================================================

var (
	// ErrTokenAcquisition 表示令牌获取失败，*AcquisitionError 匹配此错误。
	ErrTokenAcquisition = errors.New("xtoken: token acquisition failed")

	// ErrStoreMiss 表示 Store 中不存在该令牌。
	ErrStoreMiss = errors.New("xtoken: store miss")
)

// AcquisitionError 令牌端点调用失败。
//
// StatusCode 为 0 表示请求未得到响应（网络错误、超时等）。
// Body 是响应体的截断片段，不含完整令牌。
type AcquisitionError struct {
	Service    string
	StatusCode int
	Body       string
	Err        error
}

func (e *AcquisitionError) Error() string {
	msg := fmt.Sprintf("xtoken: token acquisition failed for service %q", e.Service)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Is 使 errors.Is(err, ErrTokenAcquisition) 成立。
func (e *AcquisitionError) Is(target error) bool {
	return target == ErrTokenAcquisition
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// Retryable 令牌获取失败不由请求重试处理。
func (e *AcquisitionError) Retryable() bool {
	return false
}
