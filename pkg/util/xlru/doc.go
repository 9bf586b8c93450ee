// Package xlru 提供带 TTL 的泛型 LRU 缓存，作为进程内 L1 缓存层。
//
// 基于 github.com/hashicorp/golang-lru/v2/expirable 封装。
// TTL 是条目级上限，从 Set 时刻开始计算；Set 覆盖已有 key 时刷新 TTL。
//
// 使用完毕后应调用 Close 停止底层的过期清理 goroutine。
// Close 通过 reflect+unsafe 关闭上游未导出的 done 通道，升级 golang-lru 时需验证。
package xlru
