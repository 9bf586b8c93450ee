package xtoken

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tatoand97/RestClient/pkg/observability/xmetrics"
	"github.com/tatoand97/RestClient/pkg/util/xkeylock"
	"github.com/tatoand97/RestClient/pkg/util/xlru"
)

// Cache 按服务缓存访问令牌。
//   - L1: 本地 LRU（xlru），按服务名存放
//   - L2: 可选共享 Store，按服务名与令牌身份存放
type Cache struct {
	issuer   Issuer
	store    Store
	local    *xlru.Cache[string, *entry]
	locks    xkeylock.Locker
	flights  singleflight.Group
	identity sync.Map // service key → 最近一次使用的 fingerprint

	logger         *slog.Logger
	observer       xmetrics.Observer
	now            func() time.Time
	refreshTimeout time.Duration

	closed atomic.Bool
}

type entry struct {
	fingerprint string
	token       *Token
}

// NewCache 创建令牌缓存。
func NewCache(issuer Issuer, opts ...Option) (*Cache, error) {
	if issuer == nil {
		return nil, ErrNilIssuer
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	local, err := xlru.New[string, *entry](xlru.Config{Size: o.localSize, TTL: o.localTTL})
	if err != nil {
		return nil, err
	}
	locks, err := xkeylock.New()
	if err != nil {
		local.Close()
		return nil, err
	}

	return &Cache{
		issuer:         issuer,
		store:          o.store,
		local:          local,
		locks:          locks,
		logger:         o.logger,
		observer:       o.observer,
		now:            o.now,
		refreshTimeout: o.refreshTimeout,
	}, nil
}

// GetOrRefresh 返回服务的 Authorization 头值，令牌缺失或过期时刷新。
//
// 同一服务的并发调用共享一次刷新。ctx 取消时立即返回 ctx.Err()，
// 已发起的刷新继续完成并写入缓存。
func (c *Cache) GetOrRefresh(ctx context.Context, service string, setting *Setting) (string, error) {
	if c.closed.Load() {
		return "", ErrClosed
	}
	if setting == nil {
		return "", ErrNilSetting
	}
	key := serviceKey(service)
	if key == "" {
		return "", ErrEmptyService
	}
	fp := setting.fingerprint()
	c.identity.Store(key, fp)

	if tok, ok := c.lookupLocal(key, fp); ok {
		return tok.Header(), nil
	}

	h, err := c.locks.Acquire(ctx, key)
	if err != nil {
		if errors.Is(err, xkeylock.ErrClosed) {
			return "", ErrClosed
		}
		return "", err
	}

	// 持锁二次检查：等锁期间其他调用方可能已完成刷新
	if tok, ok := c.lookupLocal(key, fp); ok {
		_ = h.Unlock() //nolint:errcheck // 首次 Unlock 不会失败
		return tok.Header(), nil
	}
	ch := c.flights.DoChan(storeKey(key, fp), func() (any, error) {
		return c.refresh(ctx, service, key, fp, setting)
	})
	_ = h.Unlock() //nolint:errcheck // 首次 Unlock 不会失败

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(*Token).Header(), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Invalidate 删除服务的缓存令牌（本地与共享存储），幂等。
func (c *Cache) Invalidate(ctx context.Context, service string) {
	key := serviceKey(service)
	if key == "" {
		return
	}
	c.local.Delete(key)

	fp, ok := c.identity.Load(key)
	if !ok {
		return
	}
	if err := c.store.Delete(context.WithoutCancel(ctx), storeKey(key, fp.(string))); err != nil {
		c.logger.WarnContext(ctx, "token store delete failed",
			slog.String("service", service),
			slog.Any("error", err),
		)
	}
}

// Close 关闭缓存，之后 GetOrRefresh 返回 ErrClosed。
// 正在等锁的调用方同样返回 ErrClosed，进行中的刷新自然结束。
func (c *Cache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := c.locks.Close()
	c.local.Close()
	return err
}

func (c *Cache) lookupLocal(key, fp string) (*Token, bool) {
	e, ok := c.local.Get(key)
	if !ok || e.fingerprint != fp || !e.token.Valid(c.now()) {
		return nil, false
	}
	return e.token, true
}

// refresh 在独立于调用方的上下文中运行：先查共享存储，未命中再请求令牌端点。
func (c *Cache) refresh(parent context.Context, service, key, fp string, setting *Setting) (tok *Token, err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), c.refreshTimeout)
	defer cancel()

	source := "issuer"
	ctx, span := xmetrics.Start(ctx, c.observer, xmetrics.SpanOptions{
		Component: MetricsComponent,
		Operation: MetricsOpRefresh,
		Kind:      xmetrics.KindClient,
		Attrs:     []xmetrics.Attr{xmetrics.String(MetricsAttrService, service)},
	})
	defer func() {
		span.End(xmetrics.Result{Err: err, Attrs: []xmetrics.Attr{xmetrics.String(MetricsAttrSource, source)}})
	}()

	skey := storeKey(key, fp)
	stored, serr := c.store.Get(ctx, skey)
	switch {
	case serr == nil && stored.Valid(c.now()):
		source = "store"
		c.local.Set(key, &entry{fingerprint: fp, token: stored})
		return stored, nil
	case serr != nil && !errors.Is(serr, ErrStoreMiss):
		c.logger.WarnContext(ctx, "token store get failed",
			slog.String("service", service),
			slog.Any("error", serr),
		)
	}

	tok, err = c.issuer.Issue(ctx, service, setting)
	if err == nil && tok == nil {
		err = &AcquisitionError{Service: service, Err: errors.New("xtoken: issuer returned no token")}
	}
	if err != nil {
		c.logger.WarnContext(ctx, "token refresh failed",
			slog.String("service", service),
			slog.Any("error", err),
		)
		return nil, err
	}

	c.local.Set(key, &entry{fingerprint: fp, token: tok})
	if err := c.store.Set(ctx, skey, tok); err != nil {
		c.logger.WarnContext(ctx, "token store set failed",
			slog.String("service", service),
			slog.Any("error", err),
		)
	}
	c.logger.InfoContext(ctx, "token refreshed",
		slog.String("service", service),
		slog.Time("expires_at", tok.ExpiresAt),
	)
	return tok, nil
}

func serviceKey(service string) string {
	return strings.ToLower(strings.TrimSpace(service))
}

func storeKey(key, fp string) string {
	return key + ":" + fp
}
