package xlog

import (
	"log/slog"
	"strings"
)

// RedactedValue 脱敏后的占位值
const RedactedValue = "[REDACTED]"

// DefaultRedactKeys 默认脱敏的属性名（大小写不敏感）。
var DefaultRedactKeys = []string{
	"authorization",
	"client_secret",
	"access_token",
	"password",
}

// ReplaceAttrFunc 与 slog.HandlerOptions.ReplaceAttr 签名一致。
type ReplaceAttrFunc func(groups []string, a slog.Attr) slog.Attr

// Redact 返回一个 ReplaceAttrFunc，将指定名称的属性值替换为 RedactedValue。
// next 非 nil 时在脱敏之后继续调用。
func Redact(next ReplaceAttrFunc, keys ...string) ReplaceAttrFunc {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[strings.ToLower(k)] = struct{}{}
	}
	return func(groups []string, a slog.Attr) slog.Attr {
		if _, ok := set[strings.ToLower(a.Key)]; ok && a.Value.Kind() != slog.KindGroup {
			a.Value = slog.StringValue(RedactedValue)
		}
		if next != nil {
			return next(groups, a)
		}
		return a
	}
}
