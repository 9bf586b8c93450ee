package xtoken

import (
	"strings"
	"time"
)

const (
	defaultExpiresIn = 60
	minExpiryBuffer  = 5
	maxExpiryBuffer  = 60
)

// Token 已获取的访问令牌。
type Token struct {
	Scheme     string    `json:"scheme"`
	Value      string    `json:"value"`
	ExpiresAt  time.Time `json:"expires_at"`
	ObtainedAt time.Time `json:"obtained_at"`
}

// Header 返回 Authorization 请求头的值。
func (t *Token) Header() string {
	scheme := t.Scheme
	if strings.EqualFold(scheme, "bearer") {
		scheme = "Bearer"
	}
	return scheme + " " + t.Value
}

// Valid 判断令牌在 now 时刻是否仍可用。
func (t *Token) Valid(now time.Time) bool {
	return t != nil && t.Value != "" && now.Before(t.ExpiresAt)
}

// EffectiveLifetime 按端点返回的 expires_in（秒）计算实际缓存时长。
// 预留 10% 的提前量，限制在 5 到 60 秒之间，结果至少 1 秒。
func EffectiveLifetime(expiresIn int64) time.Duration {
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}
	buffer := min(max(expiresIn/10, minExpiryBuffer), maxExpiryBuffer)
	return time.Duration(max(1, expiresIn-buffer)) * time.Second
}
