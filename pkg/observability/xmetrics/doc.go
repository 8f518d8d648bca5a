// Package xmetrics 提供弹性引擎的 OpenTelemetry 指标观测。
//
// Observer 持有一组预建的计数器与直方图，记录策略事件：
// 调用完成（按结果分类）、重试、准入拒绝（按策略分类）、
// 熔断器状态转换、调用耗时。
//
// Observer 不反向依赖任何策略包：各策略的回调选项
// （OnRetry、OnStateChange、OnFull、OnExceeded 等）在装配处
// 接到 Observer 的 Record 系列方法上。
//
// # 使用方式
//
//	obs, err := xmetrics.NewObserver()
//
//	retry := xretry.New[string](
//	    xretry.OnRetry[string](func(attempt int, err error) {
//	        obs.RecordRetry(ctx)
//	    }),
//	)
//	runner := xexec.With[string](retry).OnComplete(func(v string, err error) {
//	    obs.RecordCompletion(ctx, err == nil)
//	})
package xmetrics
