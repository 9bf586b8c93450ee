// Package xtext 提供错误信息中使用的文本截断工具。
//
// Excerpt 把响应体截断到给定字节数以内（含截断标记），
// 截断点回退到 UTF-8 字符边界，不会产生半个字符。
package xtext
