package xexec

// Policy 容错策略。
//
// 策略对象携带配置与（有状态策略的）线程安全状态机，可跨执行共享。
// ToExecutor 在给定组合位置上产出该策略的执行器。
type Policy[R any] interface {
	// ToExecutor 返回位于 policyIndex 的策略执行器。
	// policyIndex 0 为最内层，越大越靠外。
	ToExecutor(policyIndex int) Executor[R]
}

// ExecutionFn 同步执行函数：运行一次尝试（或其内层组合）并返回结果。
type ExecutionFn[R any] func(*Execution[R]) *Result[R]

// AsyncExecutionFn 异步执行函数：返回承载尝试结果的 Promise。
// 以 nil 结果完成的 Promise 表示结果将通过 AsyncExecution.Record 带外到达。
type AsyncExecutionFn[R any] func(*AsyncExecution[R]) *Promise[R]

// Executor 策略执行器：把一个策略包装到执行链的一个位置上。
//
// 四钩子协议：
//   - PreExecute 在内层函数运行前调用，返回非 nil 直接短路本次尝试
//     （熔断打开、舱壁已满、超出限流）
//   - OnSuccess 通知策略结果成功，不做变换
//   - OnFailure 可以返回重试请求（complete=false 且带等待时长）、
//     变换为成功（降级）、或原样放行
//   - IsFailure 按策略自己的分类器判断结果是否算失败
//
// Apply / ApplyAsync 把钩子织入执行链；绝大多数策略直接复用
// BaseExecutor 的实现，只有超时策略需要自定义包装。
type Executor[R any] interface {
	// PolicyIndex 返回执行器在组合中的位置（0 = 最内层）
	PolicyIndex() int

	// PreExecute 尝试运行前的准入检查。返回非 nil 结果短路本次尝试。
	PreExecute(exec *Execution[R]) *Result[R]

	// Apply 包装同步执行链
	Apply(inner ExecutionFn[R]) ExecutionFn[R]

	// ApplyAsync 包装异步执行链
	ApplyAsync(inner AsyncExecutionFn[R]) AsyncExecutionFn[R]

	// PostExecute 按分类结果路由到 OnSuccess / OnFailure
	PostExecute(exec *Execution[R], r *Result[R]) *Result[R]

	// OnSuccess 结果成功时的通知钩子
	OnSuccess(exec *Execution[R], r *Result[R])

	// OnFailure 结果失败时的处理钩子，可替换结果
	OnFailure(exec *Execution[R], r *Result[R]) *Result[R]

	// IsFailure 判断结果对本策略而言是否为失败
	IsFailure(r *Result[R]) bool
}

// BaseExecutor 策略执行器的统一骨架。
//
// 具体策略执行器内嵌 BaseExecutor 并按需覆盖钩子；Self 指向完整的
// 执行器实例，保证骨架算法调用的是覆盖后的钩子而非默认实现。
// 这里用接口加回指字段保持四钩子契约，不引入继承树。
type BaseExecutor[R any] struct {
	// Self 完整执行器实例，构造时回填
	Self Executor[R]
	// Index 组合位置（0 = 最内层）
	Index int
}

// NewBaseExecutor 创建执行器骨架。self 为内嵌方自身。
func NewBaseExecutor[R any](policyIndex int, self Executor[R]) *BaseExecutor[R] {
	return &BaseExecutor[R]{Self: self, Index: policyIndex}
}

// PolicyIndex 返回组合位置。
func (b *BaseExecutor[R]) PolicyIndex() int {
	return b.Index
}

// PreExecute 默认不做准入检查。
func (b *BaseExecutor[R]) PreExecute(_ *Execution[R]) *Result[R] {
	return nil
}

// IsFailure 默认分类器：带错误的结果即失败。
func (b *BaseExecutor[R]) IsFailure(r *Result[R]) bool {
	return r != nil && r.err != nil
}

// OnSuccess 默认不处理。
func (b *BaseExecutor[R]) OnSuccess(_ *Execution[R], _ *Result[R]) {}

// OnFailure 默认原样放行。
func (b *BaseExecutor[R]) OnFailure(_ *Execution[R], r *Result[R]) *Result[R] {
	return r
}

// PostExecute 按 IsFailure 分类，路由到相应钩子。
func (b *BaseExecutor[R]) PostExecute(exec *Execution[R], r *Result[R]) *Result[R] {
	if r == nil {
		return nil
	}
	if b.Self.IsFailure(r) {
		return b.Self.OnFailure(exec, r.WithFailure())
	}
	r = r.WithDone(true, true)
	b.Self.OnSuccess(exec, r)
	return r
}

// Apply 同步执行链包装。
//
// 控制流：
//  1. PreExecute 非 nil → 以完整失败短路返回，准入拒绝对外层策略
//     可见，本策略自身的 OnFailure 不参与（拒绝不计入自身统计）。
//  2. 运行内层函数。
//  3. 结果经 PostExecute 分类处理；返回不完整结果表示重试请求，
//     等待其 Delay 后重新进入第 1 步。只有重试策略会产生不完整结果。
func (b *BaseExecutor[R]) Apply(inner ExecutionFn[R]) ExecutionFn[R] {
	return func(exec *Execution[R]) *Result[R] {
		for {
			if pre := b.Self.PreExecute(exec); pre != nil {
				return pre.WithDone(true, false)
			}
			r := b.Self.PostExecute(exec, inner(exec))
			if r == nil || r.IsComplete() {
				return r
			}
			if err := exec.waitForRetry(r.Delay()); err != nil {
				return FailureResult[R](err)
			}
			exec.initializeRetry()
		}
	}
}

// ApplyAsync 异步执行链包装，结构与 Apply 一致：
// 重试等待不阻塞，改为把重新进入调度到 Scheduler 上；
// 外层 Promise 只在到达终态结果时完成。
// 以 nil 结果完成的内层 Promise（带外完成哨兵）原样向外传播。
func (b *BaseExecutor[R]) ApplyAsync(inner AsyncExecutionFn[R]) AsyncExecutionFn[R] {
	return func(exec *AsyncExecution[R]) *Promise[R] {
		outer := NewPromise[R]()
		b.applyAsyncAttempt(exec, inner, outer)
		return outer
	}
}

func (b *BaseExecutor[R]) applyAsyncAttempt(exec *AsyncExecution[R], inner AsyncExecutionFn[R], outer *Promise[R]) {
	// 执行已取消或已终结时放弃，不再发起尝试
	if exec.future.IsCancelled() || exec.future.IsDone() {
		outer.Complete(nil)
		return
	}
	// 带外记录的结果重新进入管道时不再做准入检查：
	// 准入守护的是新尝试，重入处理的是已取得的结果
	if exec.RecordedResult() == nil {
		if pre := b.Self.PreExecute(exec.Execution); pre != nil {
			outer.Complete(pre.WithDone(true, false))
			return
		}
	}
	inner(exec).WhenComplete(func(r *Result[R]) {
		if r == nil {
			outer.Complete(nil)
			return
		}
		// 取消后到达的结果不再进入策略钩子
		if exec.future.IsCancelled() {
			outer.Complete(nil)
			return
		}
		r = b.Self.PostExecute(exec.Execution, r)
		if r.IsComplete() {
			outer.Complete(r)
			return
		}
		// 重试请求：调度下一次尝试，并注册取消函数以便外部取消
		// 能在等待期间阻止后续尝试
		job, err := exec.Scheduler().Schedule(func() {
			exec.initializeRetry()
			b.applyAsyncAttempt(exec, inner, outer)
		}, r.Delay())
		if err != nil {
			outer.Complete(FailureResult[R](err))
			return
		}
		exec.future.injectCancelFn(b.Index, func(mayInterrupt bool, cancelResult *Result[R]) {
			job.Cancel(mayInterrupt)
			outer.Complete(cancelResult)
		})
	})
}
