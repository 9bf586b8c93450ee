package xtext

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		limit int
		want  string
	}{
		{"短于上限", "short", 16, "short"},
		{"恰好等于上限", "0123456789", 10, "0123456789"},
		{"空", "", 4, ""},
		{"按字节截断", "0123456789abcdefghijklmnopqrstuvwxyz", 20, "012345" + TruncatedSuffix},
		{"回退到字符边界", "ab中文中文中文中文cd", len(TruncatedSuffix) + 4, "ab" + TruncatedSuffix},
		{"上限小于后缀", "0123456789abcdefghijklmnopqrstuvwxyz", 3, TruncatedSuffix},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Excerpt([]byte(tt.body), tt.limit))
		})
	}
}

func TestExcerpt_BoundedAndValidUTF8(t *testing.T) {
	body := []byte(strings.Repeat("令牌", 1000))
	for _, limit := range []int{16, 17, 18, 512, 1024} {
		out := Excerpt(body, limit)
		assert.LessOrEqual(t, len(out), limit)
		assert.True(t, utf8.ValidString(out))
		assert.True(t, strings.HasSuffix(out, TruncatedSuffix))
	}
}
