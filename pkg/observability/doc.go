// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，引擎记录调用终态
//   - xmetrics: OpenTelemetry 指标观测，记录策略事件
//
// 设计原则：
//   - 遵循 OpenTelemetry 语义规范
//   - 观测不反向依赖策略包，回调在装配处接线
//   - 支持动态级别控制
package observability
