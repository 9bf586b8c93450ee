// Package xrest 是面向多个命名后端服务的 REST 客户端。
//
// 每个服务有自己的根地址、默认请求头，以及可选的 OAuth2 client credentials
// 令牌配置（见 xtoken）。一次调用的流程：
//
//	取配置快照 → 查找服务 → 拼接 URL → 附加请求头与令牌
//	→ 发送 → 401 时丢弃令牌并重放一次 → 分类响应
//	→ 瞬时故障按退避重试 → 返回
//
// # 错误
//
//   - ErrServiceNotConfigured / ErrInvalidSettings：配置问题，不重试
//   - xtoken.ErrTokenAcquisition：令牌申请失败，不重试
//   - ErrTransient：网络错误（调用方取消除外）、5xx、408，会重试
//   - ErrUnauthorized：重新认证后仍为 401
//   - ErrRequestFailed：所有非 2xx 响应
//   - ErrDecode：GetJSON 等泛型函数解码失败
//   - ErrCircuitOpen：启用熔断且熔断器打开
//
// # 重试
//
// Settings.RetryCount 是单次调用的最大尝试次数（含首次）。
// 默认退避为 decorrelated jitter，中位首次延迟为 Settings.RetryBaseDelay。
// 每次重试以 Warn 级别记录 "retrying request"。
//
// # 热更新
//
// UpdateSettings 原子替换配置快照，进行中的调用不受影响。
// WatchSettings 结合 xconf 监听配置文件。
package xrest
