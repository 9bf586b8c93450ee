package xretry

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	"time"
)

const (
	// decorrelatedPFactor 控制曲线前段的上升速度
	decorrelatedPFactor = 4.0
	// decorrelatedScale 使中位延迟约等于配置的首次延迟
	decorrelatedScale = 1 / 1.4
)

// DecorrelatedJitterBackoff 去相关抖动退避策略。
//
// 第 n 次重试（n 从 0 开始）取 t = n + rand[0,1)，
// f(t) = 2^t * tanh(sqrt(4t))，延迟为 (f(t_n) - f(t_{n-1})) / 1.4 * median。
// 延迟整体按 2 的幂增长，相邻重试之间不产生同步尖峰。
//
// 该曲线依赖上一次的取值，因此实现了 SequenceBackoff：
// Retryer 每次调用都会创建独立序列。
type DecorrelatedJitterBackoff struct {
	median   time.Duration
	maxDelay time.Duration
	random   func() float64
}

// DecorrelatedJitterOption 去相关抖动退避配置选项
type DecorrelatedJitterOption func(*DecorrelatedJitterBackoff)

// WithDecorrelatedMaxDelay 设置单次延迟上限，d <= 0 时忽略
func WithDecorrelatedMaxDelay(d time.Duration) DecorrelatedJitterOption {
	return func(b *DecorrelatedJitterBackoff) {
		if d > 0 {
			b.maxDelay = d
		}
	}
}

// WithRandomSource 替换 [0,1) 随机源，主要用于测试中固定抖动
func WithRandomSource(fn func() float64) DecorrelatedJitterOption {
	return func(b *DecorrelatedJitterBackoff) {
		if fn != nil {
			b.random = fn
		}
	}
}

// NewDecorrelatedJitterBackoff 创建去相关抖动退避策略。
// median 为首次重试的中位延迟，<= 0 时使用 100ms；默认上限 30s。
func NewDecorrelatedJitterBackoff(median time.Duration, opts ...DecorrelatedJitterOption) *DecorrelatedJitterBackoff {
	if median <= 0 {
		median = 100 * time.Millisecond
	}
	b := &DecorrelatedJitterBackoff{
		median:   median,
		maxDelay: 30 * time.Second,
		random:   randomFloat64,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.maxDelay < b.median {
		b.maxDelay = b.median
	}
	return b
}

// NewSequence 返回一个新的退避序列，序列本身不是并发安全的
func (b *DecorrelatedJitterBackoff) NewSequence() BackoffPolicy {
	return &decorrelatedSequence{b: b}
}

// NextDelay 返回新序列第 attempt 次重试的延迟
func (b *DecorrelatedJitterBackoff) NextDelay(attempt int) time.Duration {
	seq := b.NewSequence()
	var d time.Duration
	for i := 1; i <= max(attempt, 1); i++ {
		d = seq.NextDelay(i)
	}
	return d
}

type decorrelatedSequence struct {
	b    *DecorrelatedJitterBackoff
	n    int
	prev float64
}

func (s *decorrelatedSequence) NextDelay(_ int) time.Duration {
	t := float64(s.n) + s.b.random()
	next := math.Pow(2, t) * math.Tanh(math.Sqrt(decorrelatedPFactor*t))
	delay := (next - s.prev) * decorrelatedScale * float64(s.b.median)
	s.prev = next
	s.n++

	if math.IsNaN(delay) || delay >= float64(s.b.maxDelay) {
		return s.b.maxDelay
	}
	if delay < 0 {
		return 0
	}
	return time.Duration(delay)
}

// NoBackoff 无延迟退避策略
type NoBackoff struct{}

// NewNoBackoff 创建无延迟退避策略
func NewNoBackoff() *NoBackoff {
	return &NoBackoff{}
}

func (b *NoBackoff) NextDelay(_ int) time.Duration {
	return 0
}

var (
	_ SequenceBackoff = (*DecorrelatedJitterBackoff)(nil)
	_ BackoffPolicy   = (*NoBackoff)(nil)
)

const (
	floatBits  = 53
	floatScale = 1.0 / (1 << floatBits)
)

func randomFloat64() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand 失败时返回 0，即无抖动
		return 0
	}
	return float64(binary.LittleEndian.Uint64(buf[:])>>11) * floatScale
}
