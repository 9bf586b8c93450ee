package xrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/propagation"

	"github.com/tatoand97/RestClient/pkg/observability/xmetrics"
	"github.com/tatoand97/RestClient/pkg/resilience/xbreaker"
	"github.com/tatoand97/RestClient/pkg/resilience/xretry"
	"github.com/tatoand97/RestClient/pkg/util/xtext"
)

const (
	// maxResponseSize 成功响应体上限（10MB）。
	maxResponseSize = 10 << 20

	// maxErrorExcerpt StatusError 中保留的响应体长度。
	maxErrorExcerpt = 1 << 10

	jsonContentType = "application/json; charset=utf-8"
)

// IsTransient 判断错误是否为瞬时故障。
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// TransientRetryPolicy 只重试瞬时故障，maxAttempts 含首次尝试。
func TransientRetryPolicy(maxAttempts int) *xretry.ClassifiedRetryPolicy {
	return xretry.NewClassifiedRetry(maxAttempts, IsTransient)
}

// call 一次逻辑调用在各次尝试间共享的不可变部分。
type call struct {
	svc    *service
	method string
	path   string
	url    string
	header map[string]string
	body   []byte
	ctype  string
}

// Do 执行一次逻辑调用。
//
// 整个调用（含所有重试）使用同一个配置快照。瞬时故障按退避重试，
// 需要认证的服务收到 401 时丢弃令牌并重放一次。
func (c *Client) Do(ctx context.Context, req *Request) (resp *Response, err error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if req == nil {
		return nil, ErrNilRequest
	}
	if c.closed.Load() {
		return nil, ErrClosed
	}

	snap := c.settings.Load()
	svc, ok := snap.lookup(req.Service)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrServiceNotConfigured, req.Service)
	}
	target, err := svc.resolve(req.Path)
	if err != nil {
		return nil, err
	}
	body, ctype, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	cl := &call{
		svc:    svc,
		method: method,
		path:   req.Path,
		url:    target.String(),
		header: req.Header,
		body:   body,
		ctype:  ctype,
	}
	name := svc.setting.Name

	ctx, span := xmetrics.Start(ctx, c.observer, xmetrics.SpanOptions{
		Component: MetricsComponent,
		Operation: MetricsOpDispatch,
		Kind:      xmetrics.KindClient,
		Attrs: []xmetrics.Attr{
			xmetrics.String(MetricsAttrService, name),
			xmetrics.String(MetricsAttrHTTPMethod, method),
			xmetrics.String(MetricsAttrHTTPPath, sanitizePath(req.Path)),
		},
	})
	start := time.Now()
	attempts := 0
	defer func() {
		status := 0
		var se *StatusError
		switch {
		case resp != nil:
			status = resp.StatusCode
		case errors.As(err, &se):
			status = se.StatusCode
		}
		span.End(xmetrics.Result{
			Err: err,
			Attrs: []xmetrics.Attr{
				xmetrics.Int(MetricsAttrAttempts, attempts),
				xmetrics.Int(MetricsAttrHTTPStatus, status),
			},
		})
		c.logger.DebugContext(ctx, "request completed",
			slog.String("service", name),
			slog.String("method", method),
			slog.String("path", sanitizePath(req.Path)),
			slog.Int("status", status),
			slog.Int("attempts", attempts),
			slog.Duration("elapsed", time.Since(start)),
		)
	}()

	retryer := xretry.NewRetryer(
		xretry.WithRetryPolicy(TransientRetryPolicy(snap.retryCount)),
		xretry.WithBackoffPolicy(c.opts.backoff(snap.retryBaseDelay)),
		xretry.WithOnRetry(func(attempt int, delay time.Duration, cause error) {
			c.logger.WarnContext(ctx, "retrying request",
				slog.String("service", name),
				slog.String("method", method),
				slog.String("path", sanitizePath(req.Path)),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.Any("cause", cause),
			)
			if c.opts.onRetry != nil {
				c.opts.onRetry(name, attempt, delay, cause)
			}
		}),
	)

	return xretry.DoWithResult(ctx, retryer, func(ctx context.Context) (*Response, error) {
		attempts++
		return c.attempt(ctx, cl)
	})
}

// attempt 单次尝试，启用熔断时经过服务的熔断器。
func (c *Client) attempt(ctx context.Context, cl *call) (*Response, error) {
	b := c.breaker(cl.svc.setting.Name)
	if b == nil {
		return c.exchange(ctx, cl)
	}
	resp, err := xbreaker.Execute(ctx, b, func() (*Response, error) {
		return c.exchange(ctx, cl)
	})
	if xbreaker.IsBreakerError(err) {
		return nil, fmt.Errorf("%w: service %q: %w", ErrCircuitOpen, cl.svc.setting.Name, err)
	}
	return resp, err
}

// exchange 发送请求并分类响应；401 时丢弃令牌并重放一次。
func (c *Client) exchange(ctx context.Context, cl *call) (*Response, error) {
	resp, err := c.send(ctx, cl)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && cl.svc.setting.Token != nil {
		c.logger.InfoContext(ctx, "token rejected, re-authenticating",
			slog.String("service", cl.svc.setting.Name),
		)
		c.tokens.Invalidate(ctx, cl.svc.setting.Name)
		if resp, err = c.send(ctx, cl); err != nil {
			return nil, err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Service:    cl.svc.setting.Name,
			Method:     cl.method,
			Path:       cl.path,
			StatusCode: resp.StatusCode,
			Body:       xtext.Excerpt(resp.Body, maxErrorExcerpt),
		}
	}
	return resp, nil
}

// send 构造并发送一次 HTTP 请求，读取完整响应体。
func (c *Client) send(ctx context.Context, cl *call) (*Response, error) {
	var body io.Reader
	if cl.body != nil {
		body = bytes.NewReader(cl.body)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, cl.url, body)
	if err != nil {
		return nil, fmt.Errorf("xrest: create request: %w", err)
	}

	// 优先级：服务默认头 < 请求头 < 令牌
	for k, v := range cl.svc.setting.DefaultHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range cl.header {
		req.Header.Set(k, v)
	}
	if cl.ctype != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", cl.ctype)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if setting := cl.svc.setting.Token; setting != nil {
		auth, err := c.tokens.GetOrRefresh(ctx, cl.svc.setting.Name, setting)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", auth)
	}
	c.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(ctx, cl, err)
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // Close 错误无法传播

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, transportError(ctx, cl, err)
	}
	if len(data) > maxResponseSize {
		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			return nil, fmt.Errorf("%w: %s %s on service %q exceeds %d bytes",
				ErrResponseTooLarge, cl.method, cl.path, cl.svc.setting.Name, maxResponseSize)
		}
		data = data[:maxResponseSize]
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// transportError 调用方取消或超时返回 ctx 错误本身，不视为瞬时故障。
func transportError(ctx context.Context, cl *call, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &TransportError{
		Service: cl.svc.setting.Name,
		Method:  cl.method,
		Path:    cl.path,
		Err:     err,
	}
}

// encodeBody 在首次尝试前编码一次，重试与重放复用同一份字节。
func encodeBody(body any) ([]byte, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		// 字符串视为已序列化的 JSON
		return []byte(v), jsonContentType, nil
	case []byte:
		return v, "", nil
	case io.Reader:
		data, err := io.ReadAll(v)
		if err != nil {
			return nil, "", fmt.Errorf("xrest: read request body: %w", err)
		}
		return data, "", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("xrest: marshal request body: %w", err)
		}
		return data, jsonContentType, nil
	}
}

// sanitizePath 去掉查询参数，避免观测指标高基数。
func sanitizePath(p string) string {
	if path, _, found := strings.Cut(p, "?"); found {
		return path
	}
	return p
}
