// Package xtoken 实现 OAuth2 client credentials 令牌的获取与缓存。
//
// # 组成
//
//   - Setting：单个服务的令牌端点配置
//   - Issuer / HTTPIssuer：向令牌端点申请令牌
//   - Cache：按服务缓存令牌，过期后刷新
//   - Store / RedisStore：可选的共享 L2 存储
//
// # 并发
//
// Cache 为每个服务（名称大小写不敏感）维护一把独立的锁，延迟创建且不回收。
// 缓存未命中时，持锁二次检查后加入进行中的刷新或发起唯一一次刷新，
// 同一服务同一时刻最多只有一个令牌请求在途，不同服务互不阻塞。
//
// 刷新运行在 context.WithoutCancel 派生的上下文上，受 refresh timeout 约束，
// 单个调用方取消不会中断其他调用方共享的刷新。
// 刷新失败不做负缓存，所有等待者收到同一个错误，下一次调用重新发起。
//
// # 过期
//
// 端点返回的 expires_in 记为 e（秒）：
//
//	e <= 0          → e = 60
//	buffer          = clamp(e/10, 5, 60)
//	effective       = max(1, e - buffer)
//	ExpiresAt       = now + effective
package xtoken
