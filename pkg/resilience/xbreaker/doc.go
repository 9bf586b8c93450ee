// Package xbreaker 提供熔断器功能，保护调用方免受下游持续故障拖累。
//
// # 熔断器状态
//
//   - StateClosed（关闭）：正常状态，请求正常通过
//   - StateOpen（打开）：熔断状态，请求直接失败
//   - StateHalfOpen（半开）：探测状态，允许部分请求通过
//
// # 熔断策略
//
//   - ConsecutiveFailuresPolicy：连续失败 N 次后熔断
//   - FailureRatioPolicy：失败率超过阈值后熔断
//
// SuccessPolicy 决定哪些错误计入失败。例如只把传输错误和 5xx 计为失败，
// 404 这类业务错误不会触发熔断。
//
// 熔断器拒绝的请求返回 *BreakerError，其 Retryable() 为 false，
// 与 xretry 组合时不会进入退避重试。
//
// 底层使用 [sony/gobreaker/v2]。
//
// [sony/gobreaker/v2]: https://github.com/sony/gobreaker
package xbreaker
