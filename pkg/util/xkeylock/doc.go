// Package xkeylock 提供基于 key 的进程内互斥锁。
//
// 每个 key 对应一个懒创建的互斥条目，条目创建后不会被删除，
// 同一 key 的后续获取复用同一条目，避免条目创建与回收之间的竞争。
// 适用于 key 集合有界的场景（如按服务名串行化令牌刷新）。
//
// # 特性
//
//   - 不同 key 互不阻塞：条目按 xxhash 分片，分片锁只保护 map 访问
//   - Context 支持：Acquire 阻塞等待时可被 ctx 取消，取消后不占用锁
//   - Handle 语义：Unlock 幂等（首次返回 nil，后续返回 ErrLockNotHeld）
//   - 关闭语义：Close() 拒绝新请求并唤醒所有等待者，已持有的锁不受影响
//
// # 使用示例
//
//	kl, _ := xkeylock.New()
//	h, err := kl.Acquire(ctx, "orders")
//	if err != nil {
//	    return err
//	}
//	defer h.Unlock()
package xkeylock
