package xrest

// =============================================================================
// 指标名称常量
// =============================================================================

const (
	// MetricsComponent 组件名称。
	MetricsComponent = "xrest"

	// 操作名称
	MetricsOpDispatch = "dispatch"
	MetricsOpAttempt  = "attempt"

	// 属性 Key
	MetricsAttrService    = "service"
	MetricsAttrHTTPMethod = "http.method"
	MetricsAttrHTTPPath   = "http.path"
	MetricsAttrHTTPStatus = "http.status"
	MetricsAttrAttempts   = "attempts"
	MetricsAttrReplayed   = "replayed"
)
