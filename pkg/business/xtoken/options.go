package xtoken

import (
	"log/slog"
	"time"

	"github.com/tatoand97/RestClient/pkg/observability/xmetrics"
)

const (
	// DefaultRefreshTimeout 单次刷新的超时时间。
	DefaultRefreshTimeout = 30 * time.Second

	// DefaultLocalSize 本地缓存的服务数上限。
	DefaultLocalSize = 1024

	// DefaultLocalTTL 本地缓存条目的 TTL 上限，令牌自身过期时间优先。
	DefaultLocalTTL = time.Hour
)

type options struct {
	store          Store
	logger         *slog.Logger
	observer       xmetrics.Observer
	now            func() time.Time
	refreshTimeout time.Duration
	localSize      int
	localTTL       time.Duration
}

func defaultOptions() options {
	return options{
		store:          NoopStore{},
		logger:         slog.Default(),
		observer:       xmetrics.NoopObserver{},
		now:            time.Now,
		refreshTimeout: DefaultRefreshTimeout,
		localSize:      DefaultLocalSize,
		localTTL:       DefaultLocalTTL,
	}
}

// Option Cache 配置选项。
type Option func(*options)

// WithStore 设置 L2 共享存储，默认 NoopStore。
func WithStore(s Store) Option {
	return func(o *options) {
		if s != nil {
			o.store = s
		}
	}
}

// WithLogger 设置日志记录器，默认 slog.Default()。
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver 设置可观测性接口。
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithClock 设置时钟，用于判断令牌是否过期。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRefreshTimeout 设置单次刷新超时，非正值忽略。
func WithRefreshTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.refreshTimeout = d
		}
	}
}

// WithLocalSize 设置本地缓存容量，非正值忽略。
func WithLocalSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.localSize = n
		}
	}
}

// WithLocalTTL 设置本地缓存 TTL 上限，非正值忽略。
func WithLocalTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.localTTL = d
		}
	}
}
