// Package xlimit 提供组合执行引擎的限流策略。
//
// # 两种算法
//
//   - Smooth 平滑限流：把周期均分成许可间隔，按间隔排队发放许可，
//     流量被整形为匀速
//   - Bursty 突发限流：固定窗口内发放 maxExecutions 个许可，
//     窗口边界整体补给，允许窗口内突发
//
// 两种算法都基于引擎时钟的单调流逝计算，单锁保证并发调用方的
// 线性化。许可不足时准入立即以 ExceededError 拒绝；配置
// WithMaxWaitTime 后准入会在上限内等待排到的许可
// （等待发生在发起尝试的 goroutine 上）。
//
// # 使用方式
//
//	// 每秒至多 100 次，匀速
//	rl := xlimit.Smooth[string](100, time.Second)
//
//	// 每秒至多 100 次，允许突发，最多等 200ms
//	rl := xlimit.Bursty[string](100, time.Second,
//	    xlimit.WithMaxWaitTime[string](200*time.Millisecond))
//
//	result, err := xexec.With[string](rl).Get(fetchRemote)
package xlimit
