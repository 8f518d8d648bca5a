// Package xexec 提供弹性执行引擎的核心：策略组合执行器。
//
// # 设计理念
//
// xexec 将用户操作（同步或异步）包装在一组有序的容错策略中执行：
//   - Policy / Executor：策略与策略执行器的统一契约
//     （PreExecute / OnSuccess / OnFailure / IsFailure 四钩子协议）
//   - Result：单次尝试的不可变执行结果
//   - Execution / AsyncExecution：单次调用的可变上下文
//     （尝试计数、打断状态、结果记录）
//   - Future：用户可见的一次性 promise，支持取消函数注入
//   - Scheduler / Clock：延迟任务提交与时间源抽象
//
// 策略按外到内的顺序组合，执行链由内向外构建：最内层包装用户操作，
// 每一层策略都可以观察、替换或重试内层的结果。
//
// # 组合顺序
//
// With 接收的策略顺序即外到内顺序。外层策略观察到的是内层栈的最终结果：
// 重试在熔断器外层时，重试可以感知熔断拒绝并继续重试；
// 重试在熔断器内层时，熔断器把整组重试视为一次逻辑尝试。两种顺序都合法。
//
// # 使用方式
//
// 同步执行：
//
//	result, err := xexec.With[string](retry, breaker).Get(func(ctx context.Context) (string, error) {
//	    return callRemoteService(ctx)
//	})
//
// 异步执行：
//
//	future := xexec.With[string](retry).GetAsync(func(ctx context.Context) (string, error) {
//	    return callRemoteService(ctx)
//	})
//	result, err := future.Get(context.Background())
//
// 手动编排：
//
//	exec, _ := xexec.NewExecution[any](retry)
//	for !exec.IsComplete() {
//	    if err := doSomething(); err != nil {
//	        exec.RecordFailure(err)
//	        time.Sleep(exec.WaitDuration())
//	    } else {
//	        exec.RecordResult(nil)
//	    }
//	}
//
// 具体策略实现参见 xretry、xbreaker、xtimeout、xfallback、xbulkhead、xlimit。
package xexec
