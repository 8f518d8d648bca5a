// Package xbreaker 提供组合执行引擎的熔断器策略。
//
// # 状态机
//
// 三态：Closed → Open → HalfOpen → Closed/Open。
//
//   - Closed：结果进入容量为 n 的环形窗口；窗口内失败数达到 m 时
//     转为 Open 并记录打开时刻
//   - Open：拒绝执行；距打开时刻超过 delay 后转为 HalfOpen，
//     发放 successThreshold 窗口容量个试探许可
//   - HalfOpen：结果进入容量为 n 的试探窗口；成功数达到 m 转回
//     Closed，失败数超过 n−m 重新打开
//
// 计数式阈值（WithFailureThreshold(m)：窗口即 m）与比例式阈值
// （WithFailureThresholdRatio(m, n)：最近 n 个结果中 m 个失败）
// 共用同一个环形窗口实现。
//
// # 并发
//
// 熔断器跨执行共享，内部单锁保证状态转换线性化。
// 熔断器自身不重试也不降级：失败钩子原样放行结果，
// 由外层策略决定后续动作。
//
// # 使用方式
//
//	cb := xbreaker.New[string](
//	    xbreaker.WithFailureThresholdRatio[string](3, 5),
//	    xbreaker.WithDelay[string](30*time.Second),
//	    xbreaker.WithSuccessThreshold[string](2),
//	)
//	result, err := xexec.With[string](retry, cb).Get(fetchRemote)
package xbreaker
