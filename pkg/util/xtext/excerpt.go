package xtext

import "unicode/utf8"

// TruncatedSuffix 截断后追加的标记
const TruncatedSuffix = "...(truncated)"

// Excerpt 截断 body 至 limit 字节以内（含 TruncatedSuffix），保证 UTF-8 边界完整。
// limit 小于后缀长度时只返回后缀。
func Excerpt(body []byte, limit int) string {
	if len(body) <= limit {
		return string(body)
	}
	cut := max(limit-len(TruncatedSuffix), 0)
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + TruncatedSuffix
}
