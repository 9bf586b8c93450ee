package xtoken

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tatoand97/RestClient/pkg/observability/xmetrics"
	"github.com/tatoand97/RestClient/pkg/util/xtext"
)

const (
	// maxTokenResponseSize 令牌响应体上限（1MB）。
	maxTokenResponseSize = 1 << 20

	// maxErrorExcerpt 错误中保留的响应体长度。
	maxErrorExcerpt = 512
)

// Issuer 向令牌端点申请令牌。
type Issuer interface {
	Issue(ctx context.Context, service string, setting *Setting) (*Token, error)
}

// HTTPIssuer 通过 HTTP POST 调用 OAuth2 令牌端点。
type HTTPIssuer struct {
	client   *http.Client
	logger   *slog.Logger
	observer xmetrics.Observer
	now      func() time.Time
}

// IssuerOption HTTPIssuer 配置选项。
type IssuerOption func(*HTTPIssuer)

// WithHTTPClient 设置 HTTP 客户端，默认 http.DefaultClient。
func WithHTTPClient(c *http.Client) IssuerOption {
	return func(i *HTTPIssuer) {
		if c != nil {
			i.client = c
		}
	}
}

// WithIssuerLogger 设置日志记录器。
func WithIssuerLogger(l *slog.Logger) IssuerOption {
	return func(i *HTTPIssuer) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithIssuerObserver 设置可观测性接口。
func WithIssuerObserver(o xmetrics.Observer) IssuerOption {
	return func(i *HTTPIssuer) {
		if o != nil {
			i.observer = o
		}
	}
}

// WithIssuerClock 设置时钟，用于计算过期时间。
func WithIssuerClock(now func() time.Time) IssuerOption {
	return func(i *HTTPIssuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewHTTPIssuer 创建 HTTPIssuer。
func NewHTTPIssuer(opts ...IssuerOption) *HTTPIssuer {
	i := &HTTPIssuer{
		client:   http.DefaultClient,
		logger:   slog.Default(),
		observer: xmetrics.NoopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	return i
}

// tokenResponse 令牌端点响应。expires_in 兼容数字和数字字符串。
type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   json.Number `json:"expires_in"`
}

// Issue 申请令牌。所有失败均返回 *AcquisitionError。
func (i *HTTPIssuer) Issue(ctx context.Context, service string, setting *Setting) (tok *Token, err error) {
	if setting == nil {
		return nil, ErrNilSetting
	}

	ctx, span := xmetrics.Start(ctx, i.observer, xmetrics.SpanOptions{
		Component: MetricsComponent,
		Operation: MetricsOpIssue,
		Kind:      xmetrics.KindClient,
		Attrs: []xmetrics.Attr{
			xmetrics.String(MetricsAttrService, service),
			xmetrics.String(MetricsAttrAuthMode, setting.AuthMode.String()),
		},
	})
	statusCode := 0
	defer func() {
		span.End(xmetrics.Result{
			Err:   err,
			Attrs: []xmetrics.Attr{xmetrics.Int(MetricsAttrHTTPStatus, statusCode)},
		})
	}()

	req, err := i.newRequest(ctx, setting)
	if err != nil {
		return nil, &AcquisitionError{Service: service, Err: err}
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, &AcquisitionError{Service: service, Err: err}
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // Close 错误无法传播
	statusCode = resp.StatusCode

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if err != nil {
		return nil, &AcquisitionError{Service: service, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		i.logger.WarnContext(ctx, "token endpoint returned error status",
			slog.String("service", service),
			slog.Int("status", resp.StatusCode),
		)
		return nil, &AcquisitionError{
			Service:    service,
			StatusCode: resp.StatusCode,
			Body:       xtext.Excerpt(body, maxErrorExcerpt),
		}
	}

	return i.parse(service, resp.StatusCode, body)
}

func (i *HTTPIssuer) newRequest(ctx context.Context, setting *Setting) (*http.Request, error) {
	params := map[string]string{"grant_type": setting.grantType()}
	if setting.Scope != "" {
		params["scope"] = setting.Scope
	}
	if setting.Audience != "" {
		params["audience"] = setting.Audience
	}
	if setting.AuthMode == AuthModeCredentialsInBody {
		params["client_id"] = setting.ClientID
		params["client_secret"] = setting.ClientSecret
	}

	var body []byte
	if setting.isJSON() {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("xtoken: marshal token request: %w", err)
		}
		body = data
	} else {
		form := url.Values{}
		for k, v := range params {
			form.Set(k, v)
		}
		body = []byte(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, setting.TokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("xtoken: create token request: %w", err)
	}

	for k, v := range setting.Headers {
		if setting.AuthMode == AuthModeCredentialsInHeader && strings.EqualFold(k, "Authorization") {
			continue
		}
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", setting.contentType())
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if setting.AuthMode == AuthModeCredentialsInHeader {
		req.SetBasicAuth(setting.ClientID, setting.ClientSecret)
	}
	return req, nil
}

func (i *HTTPIssuer) parse(service string, status int, body []byte) (*Token, error) {
	var tr tokenResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&tr); err != nil {
		return nil, &AcquisitionError{
			Service:    service,
			StatusCode: status,
			Err:        fmt.Errorf("xtoken: decode token response: %w", err),
		}
	}

	if strings.TrimSpace(tr.AccessToken) == "" || strings.TrimSpace(tr.TokenType) == "" {
		return nil, &AcquisitionError{
			Service:    service,
			StatusCode: status,
			Err:        errors.New("xtoken: response missing access_token or token_type"),
		}
	}

	expiresIn, err := parseExpiresIn(tr.ExpiresIn)
	if err != nil {
		return nil, &AcquisitionError{Service: service, StatusCode: status, Err: err}
	}

	now := i.now()
	return &Token{
		Scheme:     strings.TrimSpace(tr.TokenType),
		Value:      tr.AccessToken,
		ObtainedAt: now,
		ExpiresAt:  now.Add(EffectiveLifetime(expiresIn)),
	}, nil
}

// parseExpiresIn 缺省返回 0，由 EffectiveLifetime 按默认值处理。
func parseExpiresIn(n json.Number) (int64, error) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return 0, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("xtoken: invalid expires_in %q", s)
	}
	return int64(f), nil
}
