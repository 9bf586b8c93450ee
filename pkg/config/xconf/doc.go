// Package xconf 提供配置加载和解析功能，基于 koanf 实现。
//
// xconf 定位为最小化配置加载器，负责文件/字节数据的加载、反序列化和热重载，
// 字段校验与默认值由使用方负责。
//
// # 支持的格式
//
//   - YAML：.yaml, .yml
//   - JSON：.json
//
// # 并发安全
//
// Reload() 串行执行，解析成功后通过 atomic.Pointer 原子替换内部 koanf 实例；
// 解析失败时保留旧快照。Unmarshal() 始终基于某一个完整快照。
//
// # 热重载
//
//	w, err := xconf.Watch(cfg, func(cfg xconf.Config, err error) {
//	    if err != nil {
//	        logger.Warn("config reload failed", slog.Any("error", err))
//	        return
//	    }
//	    // 重新 Unmarshal 并应用
//	})
//	w.Start()
//	defer w.Stop()
//
// 文件事件经过防抖（默认 100ms）后才触发 Reload，回调在监听 goroutine 中串行执行。
package xconf
