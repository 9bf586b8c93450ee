package xbreaker

// ConsecutiveFailuresPolicy 连续失败熔断策略
//
// 当连续失败次数达到阈值时触发熔断。
type ConsecutiveFailuresPolicy struct {
	threshold uint32
}

// NewConsecutiveFailures 创建连续失败熔断策略，threshold 为 0 时按 1 处理
func NewConsecutiveFailures(threshold uint32) *ConsecutiveFailuresPolicy {
	return &ConsecutiveFailuresPolicy{threshold: max(threshold, 1)}
}

// ReadyToTrip 判断是否应该触发熔断
func (p *ConsecutiveFailuresPolicy) ReadyToTrip(counts Counts) bool {
	return counts.ConsecutiveFailures >= p.threshold
}

// Threshold 返回阈值
func (p *ConsecutiveFailuresPolicy) Threshold() uint32 {
	return p.threshold
}

// FailureRatioPolicy 失败率熔断策略
//
// 请求数达到 minRequests 后，失败率不低于 ratio 时触发熔断。
type FailureRatioPolicy struct {
	ratio       float64
	minRequests uint32
}

// NewFailureRatio 创建失败率熔断策略，ratio 会被限制在 [0, 1]
func NewFailureRatio(ratio float64, minRequests uint32) *FailureRatioPolicy {
	return &FailureRatioPolicy{
		ratio:       min(max(ratio, 0), 1),
		minRequests: minRequests,
	}
}

// ReadyToTrip 判断是否应该触发熔断
func (p *FailureRatioPolicy) ReadyToTrip(counts Counts) bool {
	if counts.Requests == 0 || counts.Requests < p.minRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= p.ratio
}

// SuccessFunc 将函数适配为 SuccessPolicy
type SuccessFunc func(err error) bool

// IsSuccessful 实现 SuccessPolicy
func (f SuccessFunc) IsSuccessful(err error) bool {
	return f(err)
}

var (
	_ TripPolicy    = (*ConsecutiveFailuresPolicy)(nil)
	_ TripPolicy    = (*FailureRatioPolicy)(nil)
	_ SuccessPolicy = SuccessFunc(nil)
)
