// Package xretry 提供组合执行引擎的重试策略。
//
// # 设计理念
//
// 重试策略是策略栈中唯一会重新进入内层函数的策略：其他策略对每次
// 尝试至多返回一次结果，重试策略的失败钩子返回"重试请求"
// （不完整结果 + 等待时长），由执行骨架完成等待与重入。
//
// # 配置维度
//
//   - 预算：WithMaxRetries / WithMaxAttempts / WithMaxDuration
//   - 延迟：WithDelay（固定）、WithBackoffPolicy（退避曲线）、
//     WithDelayFunc（按次计算）
//   - 抖动：WithJitterFactor（比例，均匀分布于 [d·(1−j), d·(1+j)]）
//     或 WithJitter（绝对值，均匀分布于 [d−j, d+j]），下限截到 0
//   - 分类：HandleErrors / HandleIf / HandleResult 判定失败，
//     AbortOnErrors / AbortIf 强制终止
//
// # 使用方式
//
//	retry := xretry.New[string](
//	    xretry.WithMaxRetries[string](3),
//	    xretry.WithBackoffPolicy[string](xretry.ExponentialBackoff(100*time.Millisecond, 10*time.Second, 2.0)),
//	    xretry.WithJitterFactor[string](0.25),
//	)
//	result, err := xexec.With[string](retry).Get(fetchRemote)
package xretry
