package xrest

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/propagation"

	"github.com/tatoand97/RestClient/pkg/business/xtoken"
	"github.com/tatoand97/RestClient/pkg/observability/xmetrics"
	"github.com/tatoand97/RestClient/pkg/resilience/xbreaker"
	"github.com/tatoand97/RestClient/pkg/resilience/xretry"
)

// DefaultTimeout 默认 HTTP 客户端的单次请求超时。
const DefaultTimeout = 100 * time.Second

// BackoffFactory 按配置的基础延迟创建退避策略。
type BackoffFactory func(baseDelay time.Duration) xretry.BackoffPolicy

// RetryHook 每次重试前调用。attempt 从 1 开始，表示已失败的尝试序号。
type RetryHook func(service string, attempt int, delay time.Duration, err error)

type options struct {
	httpClient  *http.Client
	logger      *slog.Logger
	observer    xmetrics.Observer
	propagator  propagation.TextMapPropagator
	tokens      *xtoken.Cache
	issuer      xtoken.Issuer
	tokenStore  xtoken.Store
	backoff     BackoffFactory
	onRetry     RetryHook
	breakerOpts []xbreaker.BreakerOption
	breakerOn   bool
}

func defaultOptions() options {
	return options{
		logger:   slog.Default(),
		observer: xmetrics.NoopObserver{},
		backoff: func(base time.Duration) xretry.BackoffPolicy {
			return xretry.NewDecorrelatedJitterBackoff(base)
		},
	}
}

// Option Client 配置选项。
type Option func(*options)

// WithHTTPClient 设置发送请求与申请令牌使用的 HTTP 客户端。
// 默认创建独立的客户端，超时 DefaultTimeout。
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
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

// WithObserver 设置可观测性接口，默认 NoopObserver。
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithPropagator 设置链路上下文传播器，默认 otel.GetTextMapPropagator()。
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(o *options) {
		if p != nil {
			o.propagator = p
		}
	}
}

// WithTokenCache 使用外部令牌缓存，Client 关闭时不关闭它。
// 设置后 WithTokenIssuer 与 WithTokenStore 不生效。
func WithTokenCache(c *xtoken.Cache) Option {
	return func(o *options) {
		if c != nil {
			o.tokens = c
		}
	}
}

// WithTokenIssuer 设置令牌申请方式，默认 xtoken.HTTPIssuer。
func WithTokenIssuer(i xtoken.Issuer) Option {
	return func(o *options) {
		if i != nil {
			o.issuer = i
		}
	}
}

// WithTokenStore 设置令牌的共享存储，例如 xtoken.RedisStore。
func WithTokenStore(s xtoken.Store) Option {
	return func(o *options) {
		if s != nil {
			o.tokenStore = s
		}
	}
}

// WithBackoff 替换默认的 decorrelated jitter 退避。
func WithBackoff(f BackoffFactory) Option {
	return func(o *options) {
		if f != nil {
			o.backoff = f
		}
	}
}

// WithOnRetry 设置重试回调。
func WithOnRetry(h RetryHook) Option {
	return func(o *options) {
		o.onRetry = h
	}
}

// WithCircuitBreaker 为每个服务启用独立的熔断器。
// 只有瞬时故障计为失败；熔断打开时调用快速失败并返回 ErrCircuitOpen，不再重试。
func WithCircuitBreaker(opts ...xbreaker.BreakerOption) Option {
	return func(o *options) {
		o.breakerOn = true
		o.breakerOpts = append(o.breakerOpts, opts...)
	}
}
