package xrest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tatoand97/RestClient/pkg/business/xtoken"
	"github.com/tatoand97/RestClient/pkg/resilience/xretry"
)

// countingIssuer 每次调用签发新令牌；err 非 nil 时返回该错误。
type countingIssuer struct {
	calls atomic.Int32
	err   error
}

func (i *countingIssuer) Issue(_ context.Context, service string, _ *xtoken.Setting) (*xtoken.Token, error) {
	n := i.calls.Add(1)
	if i.err != nil {
		return nil, i.err
	}
	now := time.Now()
	return &xtoken.Token{
		Scheme:     "bearer",
		Value:      fmt.Sprintf("tok-%d", n),
		ObtainedAt: now,
		ExpiresAt:  now.Add(time.Hour),
	}, nil
}

// recorder 记录服务端收到的请求，按顺序返回预设状态码。
type recorder struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
	statuses []int
	body     string
}

func (rec *recorder) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}

		rec.mu.Lock()
		n := len(rec.requests)
		rec.requests = append(rec.requests, r.Clone(context.Background()))
		rec.bodies = append(rec.bodies, string(data))
		status := http.StatusOK
		if n < len(rec.statuses) {
			status = rec.statuses[n]
		} else if len(rec.statuses) > 0 {
			status = rec.statuses[len(rec.statuses)-1]
		}
		body := rec.body
		rec.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (rec *recorder) count() int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return len(rec.requests)
}

func (rec *recorder) request(i int) *http.Request {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.requests[i]
}

func newServer(t *testing.T, rec *recorder) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(rec.handler(t))
	t.Cleanup(srv.Close)
	return srv
}

func testTokenSetting() *xtoken.Setting {
	return &xtoken.Setting{TokenURL: "https://login.example.com/token", ClientID: "id", ClientSecret: "secret"}
}

func newTestSettings(t *testing.T, retryCount int, services ...ServiceSetting) *Settings {
	t.Helper()
	s, err := NewSettings(SettingsConfig{
		Services:       services,
		RetryCount:     retryCount,
		RetryBaseDelay: time.Millisecond,
	})
	require.NoError(t, err)
	return s
}

func noBackoff(time.Duration) xretry.BackoffPolicy {
	return xretry.NewNoBackoff()
}

func newTestClient(t *testing.T, settings *Settings, opts ...Option) *Client {
	t.Helper()
	c, err := New(settings, append([]Option{WithBackoff(noBackoff)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func (rec *recorder) bodyAt(i int) string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.bodies[i]
}
