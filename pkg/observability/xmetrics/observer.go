package xmetrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName Observer 使用的 meter 名称
const meterName = "github.com/omeyang/xsafe/pkg/observability/xmetrics"

// Observer 策略事件的指标观测器。并发安全，跨执行共享。
type Observer struct {
	completions metric.Int64Counter
	retries     metric.Int64Counter
	rejections  metric.Int64Counter
	transitions metric.Int64Counter
	duration    metric.Float64Histogram
}

// Options 观测器构建选项
type Options struct {
	provider metric.MeterProvider
}

// Option 观测器配置选项
type Option func(*Options)

// WithMeterProvider 设置 MeterProvider，默认使用全局 Provider。
func WithMeterProvider(p metric.MeterProvider) Option {
	return func(o *Options) {
		if p != nil {
			o.provider = p
		}
	}
}

// NewObserver 创建指标观测器。
func NewObserver(opts ...Option) (*Observer, error) {
	o := &Options{provider: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(o)
	}
	meter := o.provider.Meter(meterName)

	completions, err := meter.Int64Counter("xsafe.executions.completed",
		metric.WithDescription("终结的调用数，按结果分类"))
	if err != nil {
		return nil, err
	}
	retries, err := meter.Int64Counter("xsafe.retries",
		metric.WithDescription("调度的重试次数"))
	if err != nil {
		return nil, err
	}
	rejections, err := meter.Int64Counter("xsafe.rejections",
		metric.WithDescription("策略准入拒绝数，按策略分类"))
	if err != nil {
		return nil, err
	}
	transitions, err := meter.Int64Counter("xsafe.breaker.transitions",
		metric.WithDescription("熔断器状态转换数"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("xsafe.execution.duration",
		metric.WithDescription("调用耗时"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Observer{
		completions: completions,
		retries:     retries,
		rejections:  rejections,
		transitions: transitions,
		duration:    duration,
	}, nil
}

// RecordCompletion 记录一次调用终结。
func (o *Observer) RecordCompletion(ctx context.Context, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	o.completions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordDuration 记录一次调用耗时。
func (o *Observer) RecordDuration(ctx context.Context, elapsed time.Duration) {
	o.duration.Record(ctx, elapsed.Seconds())
}

// RecordRetry 记录一次重试调度。
func (o *Observer) RecordRetry(ctx context.Context) {
	o.retries.Add(ctx, 1)
}

// RecordRejection 记录一次准入拒绝。policy 为拒绝来源
// （breaker / bulkhead / rate_limit）。
func (o *Observer) RecordRejection(ctx context.Context, policy string) {
	o.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("policy", policy)))
}

// RecordStateChange 记录一次熔断器状态转换。
func (o *Observer) RecordStateChange(ctx context.Context, from, to string) {
	o.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}
