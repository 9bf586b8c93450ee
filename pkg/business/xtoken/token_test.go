package xtoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveLifetime(t *testing.T) {
	tests := []struct {
		expiresIn int64
		want      time.Duration
	}{
		{100, 90 * time.Second},
		{3600, 3540 * time.Second},
		{86400, 86340 * time.Second},
		{30, 25 * time.Second},
		{1, time.Second},
		{0, 54 * time.Second},
		{-5, 54 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EffectiveLifetime(tt.expiresIn), "expires_in=%d", tt.expiresIn)
	}
}

func TestToken_Header(t *testing.T) {
	assert.Equal(t, "Bearer abc", (&Token{Scheme: "bearer", Value: "abc"}).Header())
	assert.Equal(t, "Bearer abc", (&Token{Scheme: "BEARER", Value: "abc"}).Header())
	assert.Equal(t, "MAC abc", (&Token{Scheme: "MAC", Value: "abc"}).Header())
}

func TestToken_Valid(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var nilTok *Token
	assert.False(t, nilTok.Valid(now))
	assert.True(t, (&Token{Value: "v", ExpiresAt: now.Add(time.Second)}).Valid(now))
	assert.False(t, (&Token{Value: "v", ExpiresAt: now}).Valid(now), "expiry instant is already invalid")
	assert.False(t, (&Token{ExpiresAt: now.Add(time.Hour)}).Valid(now))
}
