package xtoken

// =============================================================================
// 指标名称常量
// =============================================================================

const (
	// MetricsComponent 组件名称。
	MetricsComponent = "xtoken"

	// 操作名称
	MetricsOpRefresh = "refresh"
	MetricsOpIssue   = "issue"

	// 属性 Key
	MetricsAttrService    = "service"
	MetricsAttrAuthMode   = "auth_mode"
	MetricsAttrHTTPStatus = "http.status"
	MetricsAttrSource     = "source"
)
