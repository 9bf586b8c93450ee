// Package xlog 基于 log/slog 的日志构建器。
//
// # 创建 Logger
//
//	logger, cleanup, err := xlog.New().
//	    SetLevelString("debug").
//	    SetFormat("json").
//	    SetRotation("/var/log/restclient.log", xlog.RotationConfig{MaxSizeMB: 50}).
//	    Build()
//	if err != nil {
//	    return err
//	}
//	defer cleanup()
//
// 也可以通过 [FromConfig] 从 xconf 反序列化得到的 [Config] 构建。
//
// # 脱敏
//
// 默认对 authorization、client_secret、access_token、password 属性脱敏，
// 值替换为 [RedactedValue]。令牌与密钥不应以其他属性名写入日志。
//
// 文件轮转使用 gopkg.in/natefinch/lumberjack.v2。
package xlog
