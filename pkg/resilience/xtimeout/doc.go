// Package xtimeout 提供组合执行引擎的超时策略。
//
// # 行为
//
// 每次尝试开始时调度一个看门狗；到点时看门狗以 ExceededError 记录
// 本次尝试（每次尝试首个记录生效），配置了 WithInterrupt 时还会在
// 打断窗口内协作式打断正在运行的操作（取消其尝试 context）。
//
// 被打断的操作返回的取消错误不会外泄：调用方看到的失败始终是
// ExceededError。操作自身因外部原因产生的取消错误照常传播。
//
// 超时策略自己不重试；外层重试策略把超时当作普通失败，
// 按自己的分类器决定是否重试。
//
// # 使用方式
//
//	timeout := xtimeout.New[string](200*time.Millisecond, xtimeout.WithInterrupt[string]())
//	result, err := xexec.With[string](retry, timeout).Get(func(ctx context.Context) (string, error) {
//	    // 操作应响应 ctx 取消，打断才能及时生效
//	    return slowCall(ctx)
//	})
package xtimeout
