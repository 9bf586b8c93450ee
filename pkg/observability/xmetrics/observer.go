package xmetrics

import (
	"context"
	"strconv"
)

// Kind 表示操作类型，映射到 OTel SpanKind。
type Kind int

const (
	KindInternal Kind = iota
	KindServer
	KindClient
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "Internal"
	case KindServer:
		return "Server"
	case KindClient:
		return "Client"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Status 表示操作结果状态。
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Attr 描述一个可观测属性。
type Attr struct {
	Key   string
	Value any
}

// SpanOptions 启动观测时的参数。
type SpanOptions struct {
	// Component 组件名，如 "xrest"
	Component string
	// Operation 操作名，如 "dispatch"
	Operation string
	Kind      Kind
	Attrs     []Attr
}

// Result 结束观测时的结果。
// Status 为空时根据 Err 推断。
type Result struct {
	Status Status
	Err    error
	Attrs  []Attr
}

// Span 表示一次进行中的观测，End 只生效一次。
type Span interface {
	End(result Result)
}

// Observer 统一的观测入口。
type Observer interface {
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// NoopObserver 空实现。
type NoopObserver struct{}

func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, NoopSpan{}
}

// NoopSpan 空实现。
type NoopSpan struct{}

func (NoopSpan) End(_ Result) {}

// Start 是 nil 安全的便捷入口，observer 为 nil 时退化为空实现。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observer == nil {
		return ctx, NoopSpan{}
	}
	retCtx, span := observer.Start(ctx, opts)
	if retCtx == nil {
		retCtx = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return retCtx, span
}
