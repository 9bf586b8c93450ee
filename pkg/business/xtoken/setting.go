package xtoken

import (
	"fmt"
	"mime"
	"net/url"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	// DefaultGrantType 默认授权类型。
	DefaultGrantType = "client_credentials"

	// DefaultContentType 默认令牌请求体编码。
	DefaultContentType = "application/x-www-form-urlencoded"
)

// AuthMode 客户端凭据的发送方式，零值为 AuthModeCredentialsInBody。
type AuthMode int

const (
	// AuthModeCredentialsInBody client_id / client_secret 放在请求体中。
	AuthModeCredentialsInBody AuthMode = iota
	// AuthModeCredentialsInHeader 使用 HTTP Basic 认证头。
	AuthModeCredentialsInHeader
	// AuthModeNone 不发送客户端凭据。
	AuthModeNone
)

func (m AuthMode) String() string {
	switch m {
	case AuthModeCredentialsInBody:
		return "CredentialsInBody"
	case AuthModeCredentialsInHeader:
		return "CredentialsInHeader"
	case AuthModeNone:
		return "None"
	default:
		return "AuthMode(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseAuthMode 解析凭据模式（大小写不敏感），空字符串返回默认值。
//
// 可接受：none、body、credentialsinbody、header、credentialsinheader。
func ParseAuthMode(s string) (AuthMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "body", "credentialsinbody":
		return AuthModeCredentialsInBody, nil
	case "header", "credentialsinheader":
		return AuthModeCredentialsInHeader, nil
	case "none":
		return AuthModeNone, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAuthMode, s)
	}
}

// Setting 单个服务的令牌端点配置。
type Setting struct {
	// TokenURL 令牌端点，必须是绝对地址。
	TokenURL string

	// GrantType 为空时使用 DefaultGrantType。
	GrantType string

	Scope    string
	Audience string

	ClientID     string
	ClientSecret string

	// ContentType 为空时使用 DefaultContentType。
	// 媒体类型为 application/json 时请求体按 JSON 编码。
	ContentType string

	AuthMode AuthMode

	// Headers 令牌请求的默认请求头。
	// AuthModeCredentialsInHeader 下其中的 Authorization 被忽略。
	Headers map[string]string
}

// Validate 校验配置。
func (s *Setting) Validate() error {
	if s == nil {
		return ErrNilSetting
	}
	u, err := url.Parse(s.TokenURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: tokenUrl %q must be an absolute URL", ErrInvalidSetting, s.TokenURL)
	}
	switch s.AuthMode {
	case AuthModeCredentialsInBody, AuthModeCredentialsInHeader:
		if strings.TrimSpace(s.ClientID) == "" {
			return fmt.Errorf("%w: clientId is required for %s", ErrInvalidSetting, s.AuthMode)
		}
	case AuthModeNone:
	default:
		return fmt.Errorf("%w: %w: %d", ErrInvalidSetting, ErrUnknownAuthMode, int(s.AuthMode))
	}
	if s.ContentType != "" {
		if _, _, err := mime.ParseMediaType(s.ContentType); err != nil {
			return fmt.Errorf("%w: contentType %q: %w", ErrInvalidSetting, s.ContentType, err)
		}
	}
	return nil
}

func (s *Setting) grantType() string {
	if s.GrantType == "" {
		return DefaultGrantType
	}
	return s.GrantType
}

func (s *Setting) contentType() string {
	if s.ContentType == "" {
		return DefaultContentType
	}
	return s.ContentType
}

// isJSON 比较媒体类型，忽略大小写与参数。
func (s *Setting) isJSON() bool {
	mediaType, _, err := mime.ParseMediaType(s.contentType())
	return err == nil && mediaType == "application/json"
}

// fingerprint 标识一组令牌身份（端点、客户端、权限范围），不含密钥。
// 配置热更新后身份变化的旧令牌不会被复用。
func (s *Setting) fingerprint() string {
	d := xxhash.New()
	for _, part := range []string{s.TokenURL, s.grantType(), s.Scope, s.Audience, s.ClientID} {
		_, _ = d.WriteString(part)
		_, _ = d.Write([]byte{0})
	}
	return strconv.FormatUint(d.Sum64(), 16)
}
