package xrest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/tatoand97/RestClient/pkg/business/xtoken"
	"github.com/tatoand97/RestClient/pkg/config/xconf"
)

// SettingsSection 配置文件中的节点名。
const SettingsSection = "restclient"

// fileSettings 配置文件结构：
//
//	restclient:
//	  httpClientRetry: 3
//	  httpClientDelay: 0.5        # 秒
//	  services:
//	    - name: orders
//	      baseUrl: https://orders.example.com/api/
//	      defaultRequestHeaders: {X-Tenant: acme}
//	      auth:
//	        type: oauth2           # none | oauth2
//	        tokenUrl: https://login.example.com/oauth2/token
//	        scope: orders.read
//	        clientId: ...
//	        clientSecret: ...
//	        credentials: body      # body | header | none
type fileSettings struct {
	HTTPClientRetry int           `koanf:"httpClientRetry"`
	HTTPClientDelay float64       `koanf:"httpClientDelay"`
	Services        []fileService `koanf:"services"`
}

type fileService struct {
	Name                  string            `koanf:"name"`
	BaseURL               string            `koanf:"baseUrl"`
	DefaultRequestHeaders map[string]string `koanf:"defaultRequestHeaders"`
	Auth                  *fileAuth         `koanf:"auth"`
}

type fileAuth struct {
	Type                  string            `koanf:"type"`
	TokenURL              string            `koanf:"tokenUrl"`
	GrantType             string            `koanf:"grantType"`
	Scope                 string            `koanf:"scope"`
	Audience              string            `koanf:"audience"`
	ClientID              string            `koanf:"clientId"`
	ClientSecret          string            `koanf:"clientSecret"`
	ContentType           string            `koanf:"contentType"`
	Credentials           string            `koanf:"credentials"`
	DefaultRequestHeaders map[string]string `koanf:"defaultRequestHeaders"`
}

// findSection 按大小写不敏感查找根节点，RestClient 与 restclient 等价。
// 字段名的大小写由 mapstructure 匹配处理。
func findSection(cfg xconf.Config) (string, bool) {
	if cfg.Exists(SettingsSection) {
		return SettingsSection, true
	}
	for _, k := range cfg.Keys("") {
		if strings.EqualFold(k, SettingsSection) {
			return k, true
		}
	}
	return "", false
}

// LoadSettings 从 xconf 配置的 restclient 节点构建 Settings。
func LoadSettings(cfg xconf.Config) (*Settings, error) {
	if cfg == nil {
		return nil, ErrNilSettings
	}
	section, ok := findSection(cfg)
	if !ok {
		return nil, fmt.Errorf("%w: missing configuration section %q", ErrInvalidSettings, SettingsSection)
	}

	var fs fileSettings
	if err := cfg.Unmarshal(section, &fs); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if fs.HTTPClientDelay <= 0 || math.IsNaN(fs.HTTPClientDelay) || math.IsInf(fs.HTTPClientDelay, 0) {
		return nil, fmt.Errorf("%w: %s.httpClientDelay must be a positive number of seconds",
			ErrInvalidSettings, SettingsSection)
	}

	services := make([]ServiceSetting, 0, len(fs.Services))
	for i, fsvc := range fs.Services {
		token, err := fsvc.Auth.tokenSetting()
		if err != nil {
			return nil, fmt.Errorf("%w: %s.services[%d].auth: %w", ErrInvalidSettings, SettingsSection, i, err)
		}
		services = append(services, ServiceSetting{
			Name:           fsvc.Name,
			BaseAddress:    fsvc.BaseURL,
			DefaultHeaders: fsvc.DefaultRequestHeaders,
			Token:          token,
		})
	}

	return NewSettings(SettingsConfig{
		Services:       services,
		RetryCount:     fs.HTTPClientRetry,
		RetryBaseDelay: time.Duration(fs.HTTPClientDelay * float64(time.Second)),
	})
}

// tokenSetting auth 缺省或 type 为 none 时返回 nil。
func (a *fileAuth) tokenSetting() (*xtoken.Setting, error) {
	if a == nil {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(a.Type)) {
	case "", "none":
		return nil, nil
	case "oauth2", "clientcredentials", "client_credentials":
	default:
		return nil, fmt.Errorf("unknown auth type %q", a.Type)
	}

	mode, err := xtoken.ParseAuthMode(a.Credentials)
	if err != nil {
		return nil, err
	}
	return &xtoken.Setting{
		TokenURL:     a.TokenURL,
		GrantType:    a.GrantType,
		Scope:        a.Scope,
		Audience:     a.Audience,
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		ContentType:  a.ContentType,
		AuthMode:     mode,
		Headers:      a.DefaultRequestHeaders,
	}, nil
}

// SettingsUpdater 可热更新配置的目标，*Client 实现了该接口。
type SettingsUpdater interface {
	UpdateSettings(settings *Settings) error
}

// WatchSettings 监听配置文件，变更后重新构建 Settings 并交给 target。
// 重新加载或校验失败时记录日志并保留原快照。调用方负责 Start 与 Stop。
func WatchSettings(cfg xconf.Config, target SettingsUpdater, logger *slog.Logger, opts ...xconf.WatchOption) (*xconf.Watcher, error) {
	if target == nil {
		return nil, ErrNilSettings
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx := context.Background()

	return xconf.Watch(cfg, func(cfg xconf.Config, err error) {
		if err != nil {
			logger.ErrorContext(ctx, "restclient settings reload failed", slog.Any("error", err))
			return
		}
		settings, err := LoadSettings(cfg)
		if err == nil {
			err = target.UpdateSettings(settings)
		}
		if err != nil {
			logger.ErrorContext(ctx, "restclient settings rejected, keeping previous snapshot", slog.Any("error", err))
			return
		}
		logger.InfoContext(ctx, "restclient settings reloaded", slog.Int("services", len(settings.names)))
	}, opts...)
}
