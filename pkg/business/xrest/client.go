package xrest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/tatoand97/RestClient/pkg/business/xtoken"
	"github.com/tatoand97/RestClient/pkg/observability/xmetrics"
	"github.com/tatoand97/RestClient/pkg/resilience/xbreaker"
)

// Request 一次逻辑调用。
type Request struct {
	// Service 目标服务名（大小写不敏感）。
	Service string
	Method  string
	// Path 相对服务根地址的路径，可带查询参数。
	Path   string
	Header map[string]string
	// Body 支持 nil、string（已序列化的 JSON）、[]byte 与 io.Reader（原样发送），
	// 其他类型按 JSON 序列化。
	Body any
}

// RequestOption 单次请求选项。
type RequestOption func(*Request)

// WithHeader 设置单次请求的请求头，覆盖服务默认值。
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Header == nil {
			r.Header = make(map[string]string)
		}
		r.Header[key] = value
	}
}

// Response 已完整读取的成功响应。
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Doer 执行一次逻辑调用，*Client 实现了该接口。
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Client 多服务 REST 客户端，并发安全。
type Client struct {
	settings atomic.Pointer[Settings]

	http       *http.Client
	ownsHTTP   bool
	tokens     *xtoken.Cache
	ownsTokens bool
	breakers   sync.Map // service key → *xbreaker.Breaker

	logger     *slog.Logger
	observer   xmetrics.Observer
	propagator propagation.TextMapPropagator
	opts       options

	closed atomic.Bool
}

// New 创建 Client。
func New(settings *Settings, opts ...Option) (*Client, error) {
	if err := checkSettings(settings); err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	c := &Client{
		http:       o.httpClient,
		tokens:     o.tokens,
		logger:     o.logger,
		observer:   o.observer,
		propagator: o.propagator,
		opts:       o,
	}
	if c.http == nil {
		transport, ok := http.DefaultTransport.(*http.Transport)
		if ok {
			c.http = &http.Client{Transport: transport.Clone(), Timeout: DefaultTimeout}
		} else {
			c.http = &http.Client{Timeout: DefaultTimeout}
		}
		c.ownsHTTP = true
	}
	if c.propagator == nil {
		c.propagator = otel.GetTextMapPropagator()
	}
	if c.tokens == nil {
		issuer := o.issuer
		if issuer == nil {
			issuer = xtoken.NewHTTPIssuer(
				xtoken.WithHTTPClient(c.http),
				xtoken.WithIssuerLogger(o.logger),
				xtoken.WithIssuerObserver(o.observer),
			)
		}
		tokens, err := xtoken.NewCache(issuer,
			xtoken.WithStore(o.tokenStore),
			xtoken.WithLogger(o.logger),
			xtoken.WithObserver(o.observer),
		)
		if err != nil {
			return nil, err
		}
		c.tokens = tokens
		c.ownsTokens = true
	}
	c.settings.Store(settings)
	return c, nil
}

// Get 发送 GET 请求。
func (c *Client) Get(ctx context.Context, service, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, newRequest(service, http.MethodGet, path, nil, opts))
}

// Post 发送 POST 请求。
func (c *Client) Post(ctx context.Context, service, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, newRequest(service, http.MethodPost, path, body, opts))
}

// Put 发送 PUT 请求。
func (c *Client) Put(ctx context.Context, service, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, newRequest(service, http.MethodPut, path, body, opts))
}

// Delete 发送 DELETE 请求。
func (c *Client) Delete(ctx context.Context, service, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, newRequest(service, http.MethodDelete, path, nil, opts))
}

func newRequest(service, method, path string, body any, opts []RequestOption) *Request {
	req := &Request{Service: service, Method: method, Path: path, Body: body}
	for _, opt := range opts {
		if opt != nil {
			opt(req)
		}
	}
	return req
}

// InvalidateToken 丢弃服务的缓存令牌，下一次调用重新申请。
func (c *Client) InvalidateToken(ctx context.Context, service string) {
	c.tokens.Invalidate(ctx, service)
}

// UpdateSettings 原子替换配置快照，进行中的调用继续使用旧快照。
func (c *Client) UpdateSettings(settings *Settings) error {
	if err := checkSettings(settings); err != nil {
		return err
	}
	c.settings.Store(settings)
	return nil
}

// Settings 返回当前配置快照。
func (c *Client) Settings() *Settings {
	return c.settings.Load()
}

// Close 关闭 Client，之后的调用返回 ErrClosed，可重复调用。
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	if c.ownsTokens {
		err = c.tokens.Close()
	}
	if c.ownsHTTP {
		c.http.CloseIdleConnections()
	}
	return err
}

// breaker 按服务延迟创建熔断器，未启用时返回 nil。
func (c *Client) breaker(name string) *xbreaker.Breaker {
	if !c.opts.breakerOn {
		return nil
	}
	key := strings.ToLower(name)
	if b, ok := c.breakers.Load(key); ok {
		return b.(*xbreaker.Breaker)
	}

	opts := make([]xbreaker.BreakerOption, 0, len(c.opts.breakerOpts)+1)
	opts = append(opts, xbreaker.WithSuccessPolicy(xbreaker.SuccessFunc(func(err error) bool {
		return !errors.Is(err, ErrTransient)
	})))
	opts = append(opts, c.opts.breakerOpts...)
	b, _ := c.breakers.LoadOrStore(key, xbreaker.NewBreaker(name, opts...))
	return b.(*xbreaker.Breaker)
}
