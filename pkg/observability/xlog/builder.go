package xlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config 日志配置，可直接由 xconf 反序列化。
type Config struct {
	Level     string         `koanf:"level"`
	Format    string         `koanf:"format"`
	AddSource bool           `koanf:"addSource"`
	File      string         `koanf:"file"`
	Rotation  RotationConfig `koanf:"rotation"`
}

// RotationConfig 文件轮转配置，零值字段使用默认值。
type RotationConfig struct {
	MaxSizeMB  int  `koanf:"maxSizeMB"`
	MaxBackups int  `koanf:"maxBackups"`
	MaxAgeDays int  `koanf:"maxAgeDays"`
	Compress   bool `koanf:"compress"`
}

const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 7
	defaultMaxAgeDays = 30
)

// Builder 日志构建器
//
// first-error-wins：遇到第一个配置错误后，Build 返回该错误。
// 默认对 DefaultRedactKeys 中的属性脱敏。
type Builder struct {
	output      io.Writer
	levelVar    *slog.LevelVar
	format      string
	addSource   bool
	redactKeys  []string
	replaceAttr ReplaceAttrFunc
	rotator     *lumberjack.Logger
	err         error
}

// New 创建 Builder：stderr、Info 级别、text 格式
func New() *Builder {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)

	return &Builder{
		output:     os.Stderr,
		levelVar:   levelVar,
		format:     "text",
		redactKeys: DefaultRedactKeys,
	}
}

// FromConfig 按配置创建 Builder
func FromConfig(cfg Config) *Builder {
	b := New().
		SetLevelString(cfg.Level).
		SetFormat(cfg.Format).
		SetAddSource(cfg.AddSource)
	if cfg.File != "" {
		b.SetRotation(cfg.File, cfg.Rotation)
	}
	return b
}

// SetOutput 设置输出目标
func (b *Builder) SetOutput(w io.Writer) *Builder {
	if w != nil {
		b.output = w
	}
	return b
}

// SetLevel 设置日志级别
func (b *Builder) SetLevel(level Level) *Builder {
	b.levelVar.Set(slog.Level(level))
	return b
}

// SetLevelString 从字符串设置日志级别
func (b *Builder) SetLevelString(s string) *Builder {
	level, err := ParseLevel(s)
	if err != nil {
		b.setErr(err)
		return b
	}
	return b.SetLevel(level)
}

// SetFormat 设置输出格式：text 或 json，空字符串为 text
func (b *Builder) SetFormat(format string) *Builder {
	normalized := strings.ToLower(strings.TrimSpace(format))
	switch normalized {
	case "":
		b.format = "text"
	case "text", "json":
		b.format = normalized
	default:
		b.setErr(fmt.Errorf("%w: %q", ErrUnknownFormat, format))
	}
	return b
}

// SetAddSource 是否记录源码位置
func (b *Builder) SetAddSource(enable bool) *Builder {
	b.addSource = enable
	return b
}

// SetRotation 输出到按大小轮转的文件
func (b *Builder) SetRotation(filename string, cfg RotationConfig) *Builder {
	if strings.TrimSpace(filename) == "" {
		b.setErr(ErrEmptyFilename)
		return b
	}
	b.rotator = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    orDefault(cfg.MaxSizeMB, defaultMaxSizeMB),
		MaxBackups: orDefault(cfg.MaxBackups, defaultMaxBackups),
		MaxAge:     orDefault(cfg.MaxAgeDays, defaultMaxAgeDays),
		Compress:   cfg.Compress,
	}
	b.output = b.rotator
	return b
}

// SetRedactKeys 替换需要脱敏的属性名，传空表示关闭脱敏
func (b *Builder) SetRedactKeys(keys ...string) *Builder {
	b.redactKeys = keys
	return b
}

// SetReplaceAttr 设置额外的属性替换函数，在脱敏之后执行
func (b *Builder) SetReplaceAttr(fn ReplaceAttrFunc) *Builder {
	b.replaceAttr = fn
	return b
}

// Build 构建 Logger。
// 返回的 cleanup 关闭轮转文件，可重复调用。
func (b *Builder) Build() (*slog.Logger, func() error, error) {
	if b.err != nil {
		return nil, nil, b.err
	}

	opts := &slog.HandlerOptions{
		Level:     b.levelVar,
		AddSource: b.addSource,
	}
	switch {
	case len(b.redactKeys) > 0:
		opts.ReplaceAttr = Redact(b.replaceAttr, b.redactKeys...)
	case b.replaceAttr != nil:
		opts.ReplaceAttr = b.replaceAttr
	}

	var handler slog.Handler
	if b.format == "json" {
		handler = slog.NewJSONHandler(b.output, opts)
	} else {
		handler = slog.NewTextHandler(b.output, opts)
	}

	var once sync.Once
	rotator := b.rotator
	cleanup := func() error {
		var err error
		once.Do(func() {
			if rotator != nil {
				err = rotator.Close()
			}
		})
		return err
	}

	return slog.New(handler), cleanup, nil
}

// LevelVar 返回可在运行时调整的级别变量
func (b *Builder) LevelVar() *slog.LevelVar {
	return b.levelVar
}

func (b *Builder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
