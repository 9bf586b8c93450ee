package xrest

import (
	"fmt"
	"maps"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/tatoand97/RestClient/pkg/business/xtoken"
)

// ServiceSetting 单个后端服务的配置。
type ServiceSetting struct {
	// Name 服务名，大小写不敏感且唯一。
	Name string

	// BaseAddress 服务根地址，必须是绝对 URL。请求路径相对它解析。
	BaseAddress string

	// DefaultHeaders 每个请求都会携带的请求头。
	DefaultHeaders map[string]string

	// Token 为 nil 表示该服务不需要认证。
	Token *xtoken.Setting
}

// SettingsConfig 构建 Settings 的输入。
type SettingsConfig struct {
	Services []ServiceSetting

	// RetryCount 单次调用的最大尝试次数（含首次），必须大于 0。
	RetryCount int

	// RetryBaseDelay 退避的中位首次延迟，必须大于 0。
	RetryBaseDelay time.Duration
}

// Settings 经过校验的不可变配置快照。
// 只能通过 NewSettings 创建；Client 每次调用取一次快照，热更新只影响之后的调用。
type Settings struct {
	services       map[string]*service
	names          []string
	retryCount     int
	retryBaseDelay time.Duration
}

type service struct {
	setting ServiceSetting
	base    *url.URL
}

// NewSettings 校验配置并创建快照，输入被深拷贝。
func NewSettings(cfg SettingsConfig) (*Settings, error) {
	if len(cfg.Services) == 0 {
		return nil, fmt.Errorf("%w: at least one service must be configured", ErrInvalidSettings)
	}
	if cfg.RetryCount <= 0 {
		return nil, fmt.Errorf("%w: retry count must be greater than 0, got %d", ErrInvalidSettings, cfg.RetryCount)
	}
	if cfg.RetryBaseDelay <= 0 {
		return nil, fmt.Errorf("%w: retry base delay must be greater than 0, got %s", ErrInvalidSettings, cfg.RetryBaseDelay)
	}

	s := &Settings{
		services:       make(map[string]*service, len(cfg.Services)),
		names:          make([]string, 0, len(cfg.Services)),
		retryCount:     cfg.RetryCount,
		retryBaseDelay: cfg.RetryBaseDelay,
	}
	for i, svc := range cfg.Services {
		name := strings.TrimSpace(svc.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: services[%d]: name must be provided", ErrInvalidSettings, i)
		}
		key := strings.ToLower(name)
		if _, dup := s.services[key]; dup {
			return nil, fmt.Errorf("%w: service %q is configured more than once", ErrInvalidSettings, name)
		}

		base, err := url.Parse(strings.TrimSpace(svc.BaseAddress))
		if err != nil || !base.IsAbs() || base.Host == "" {
			return nil, fmt.Errorf("%w: service %q: baseAddress %q must be an absolute URL",
				ErrInvalidSettings, name, svc.BaseAddress)
		}

		var token *xtoken.Setting
		if svc.Token != nil {
			if err := svc.Token.Validate(); err != nil {
				return nil, fmt.Errorf("%w: service %q: %w", ErrInvalidSettings, name, err)
			}
			cp := *svc.Token
			cp.Headers = maps.Clone(svc.Token.Headers)
			token = &cp
		}

		s.services[key] = &service{
			setting: ServiceSetting{
				Name:           name,
				BaseAddress:    base.String(),
				DefaultHeaders: maps.Clone(svc.DefaultHeaders),
				Token:          token,
			},
			base: base,
		}
		s.names = append(s.names, key)
	}
	return s, nil
}

// Lookup 按名称（大小写不敏感）查找服务配置，返回副本。
func (s *Settings) Lookup(name string) (ServiceSetting, bool) {
	svc, ok := s.lookup(name)
	if !ok {
		return ServiceSetting{}, false
	}
	return svc.setting.clone(), true
}

// Services 按声明顺序返回所有服务配置的副本。
func (s *Settings) Services() []ServiceSetting {
	out := make([]ServiceSetting, 0, len(s.names))
	for _, key := range s.names {
		out = append(out, s.services[key].setting.clone())
	}
	return out
}

// RetryCount 最大尝试次数（含首次）。
func (s *Settings) RetryCount() int { return s.retryCount }

// RetryBaseDelay 退避的中位首次延迟。
func (s *Settings) RetryBaseDelay() time.Duration { return s.retryBaseDelay }

func (s *Settings) lookup(name string) (*service, bool) {
	svc, ok := s.services[strings.ToLower(strings.TrimSpace(name))]
	return svc, ok
}

// checkSettings 拦截 nil 以及未经 NewSettings 创建的零值。
func checkSettings(s *Settings) error {
	if s == nil {
		return ErrNilSettings
	}
	if len(s.services) == 0 || s.retryCount <= 0 || s.retryBaseDelay <= 0 {
		return fmt.Errorf("%w: settings must be created with NewSettings", ErrInvalidSettings)
	}
	return nil
}

func (ss ServiceSetting) clone() ServiceSetting {
	ss.DefaultHeaders = maps.Clone(ss.DefaultHeaders)
	if ss.Token != nil {
		cp := *ss.Token
		cp.Headers = maps.Clone(ss.Token.Headers)
		ss.Token = &cp
	}
	return ss
}

// resolve 将相对路径拼接到服务根地址。
// 保留根地址的路径前缀（无论是否以 / 结尾），合并两侧的查询参数。
// 含 ".." 段或拼接后脱离根地址路径的请求返回 ErrInvalidPath。
func (svc *service) resolve(p string) (*url.URL, error) {
	ref, err := url.Parse(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPath, p, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return nil, fmt.Errorf("%w: %q must be relative to the service base address", ErrInvalidPath, p)
	}
	if hasDotDot(ref.Path) {
		return nil, fmt.Errorf("%w: %q must not contain '..' segments", ErrInvalidPath, p)
	}

	u := *svc.base
	u.Fragment = ""
	if ref.Path != "" {
		u = *u.JoinPath(ref.EscapedPath())
	}
	if !withinBase(svc.base.Path, u.Path) {
		return nil, fmt.Errorf("%w: %q escapes the service base path %q", ErrInvalidPath, p, svc.base.Path)
	}
	switch {
	case u.RawQuery == "":
		u.RawQuery = ref.RawQuery
	case ref.RawQuery != "":
		u.RawQuery += "&" + ref.RawQuery
	}
	return &u, nil
}

// withinBase 判断 joined 是否仍位于 base 路径之下（按段比较）。
func withinBase(base, joined string) bool {
	prefix := path.Clean("/" + base)
	target := path.Clean("/" + joined)
	if prefix == "/" || target == prefix {
		return true
	}
	return strings.HasPrefix(target, prefix+"/")
}

// hasDotDot 判断路径是否包含 ".." 段（已解码，%2e%2e 同样命中）。
func hasDotDot(p string) bool {
	for seg := range strings.SplitSeq(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}
