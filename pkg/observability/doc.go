// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，支持文件轮转与敏感字段脱敏
//   - xmetrics: 统一可观测性接口（指标、追踪），OpenTelemetry 实现
//
// 设计原则：
//   - 遵循 OpenTelemetry 语义规范
//   - 调用方注入实现，默认 Noop
package observability
