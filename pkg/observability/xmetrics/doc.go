// Package xmetrics 提供统一的可观测接口，用于 trace 与 metrics 采集。
//
// 业务包只依赖 Observer/Span 抽象：
//
//	ctx, span := xmetrics.Start(ctx, observer, xmetrics.SpanOptions{
//	    Component: "xrest",
//	    Operation: "dispatch",
//	    Kind:      xmetrics.KindClient,
//	})
//	defer func() { span.End(xmetrics.Result{Err: err}) }()
//
// NoopObserver 为默认实现；NewOTelObserver 基于 OpenTelemetry，
// 每次操作生成一个 span，并记录两个指标：
//   - restclient.operation.total（计数，标签 component/operation/status）
//   - restclient.operation.duration（直方图，单位秒）
package xmetrics
