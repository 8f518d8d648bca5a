// Package xfallback 提供组合执行引擎的降级策略。
//
// 失败钩子调用降级函数，把失败替换为替代值（或替代失败），并把结果
// 标记为完整，外层策略观察到的是降级后的结果。替代值是成功结果，
// 外层重试不再重试；替代失败对外层策略仍是普通失败，外层重试照常
// 用自己的分类器判定，可能再次重试。
//
// # 使用方式
//
//	fb := xfallback.Of[string]("cached")
//	result, _ := xexec.With[string](retry, fb).Get(fetchRemote)
//
// 降级放在重试内层且给出替代值时，每次尝试失败都会被降级吞掉（重试不再发生）；
// 放在重试外层时，降级只处理重试耗尽后的最终失败。
package xfallback
