// Package xbulkhead 提供组合执行引擎的舱壁（并发隔离）策略。
//
// 舱壁用带权信号量限制同时在途的尝试数：准入时占一个许可，
// 结果记录时释放。许可耗尽时准入立即失败（FullError）；
// 配置 WithMaxWaitTime 后准入会在上限内等待许可。
//
// 舱壁跨执行共享：同一个舱壁实例保护同一资源的所有调用方。
//
// # 使用方式
//
//	bh := xbulkhead.New[string](10, xbulkhead.WithMaxWaitTime[string](50*time.Millisecond))
//	result, err := xexec.With[string](bh).Get(fetchRemote)
package xbulkhead
