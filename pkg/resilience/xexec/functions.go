package xexec

import (
	"context"
	"sync"
	"sync/atomic"
)

// 本文件构建执行链最内层的用户操作适配器。
// 各适配器统一遵守：运行前做尝试簿记（preExecuteAttempt），
// 运行后记录结果并关闭可打断窗口（closeAttempt）；
// 每次尝试首个记录生效。异步适配器在记录竞争失败
// （超时看门狗已接管本次尝试）时以 nil 完成 Promise，
// 放弃当前链路，由接管方的重入链路继续处理。

// syncFn 同步供给函数适配器。
func syncFn[R any](fn func(ctx context.Context) (R, error)) ExecutionFn[R] {
	return func(exec *Execution[R]) *Result[R] {
		ctx, attempt := exec.preExecuteAttempt()
		value, err := fn(ctx)
		rec, _ := exec.closeAttempt(attempt, resultOf(value, err))
		return rec
	}
}

// syncExecutionFn 携带执行上下文的同步供给函数适配器。
func syncExecutionFn[R any](fn func(exec *Execution[R]) (R, error)) ExecutionFn[R] {
	return func(exec *Execution[R]) *Result[R] {
		_, attempt := exec.preExecuteAttempt()
		value, err := fn(exec)
		rec, _ := exec.closeAttempt(attempt, resultOf(value, err))
		return rec
	}
}

// promiseFn 异步供给函数适配器：在当前 goroutine 上运行操作，
// 返回已完成的 Promise。首次调用的调度切换由 toAsync 负责。
func promiseFn[R any](fn func(ctx context.Context) (R, error)) AsyncExecutionFn[R] {
	return func(exec *AsyncExecution[R]) *Promise[R] {
		ctx, attempt := exec.preExecuteAttempt()
		exec.markAttemptStarted()
		value, err := fn(ctx)
		rec, won := exec.closeAttempt(attempt, resultOf(value, err))
		if !won {
			return CompletedPromise[R](nil)
		}
		return CompletedPromise(rec)
	}
}

// promiseExecutionFn 带外完成形态的适配器：用户操作收到 AsyncExecution，
// 自行调用 Record 提交结果；适配器返回 NULL_FUTURE 哨兵（nil 完成的
// Promise）告知管道结果稍后到达。操作返回错误视同 Record 一次失败。
// 一把锁保证适配器不会与自己并发运行。
func promiseExecutionFn[R any](fn func(exec *AsyncExecution[R]) error) AsyncExecutionFn[R] {
	var fnMu sync.Mutex
	return func(exec *AsyncExecution[R]) *Promise[R] {
		fnMu.Lock()
		defer fnMu.Unlock()
		exec.preExecuteAttempt()
		exec.markAttemptStarted()
		if err := fn(exec); err != nil {
			var zero R
			exec.Record(zero, err)
		}
		// 结果稍后通过 AsyncExecution.Record 到达
		return CompletedPromise[R](nil)
	}
}

// stageFn 阶段供给形态的适配器：订阅用户 stage 的完成，
// 并把 stage 注入 Future 以便外部取消向下传播。
func stageFn[R any](fn func(ctx context.Context) (Stage[R], error)) AsyncExecutionFn[R] {
	return func(exec *AsyncExecution[R]) *Promise[R] {
		ctx, attempt := exec.preExecuteAttempt()
		exec.markAttemptStarted()
		stage, err := fn(ctx)
		if err != nil || stage == nil {
			if err == nil {
				err = ErrNilFunc
			}
			rec, won := exec.closeAttempt(attempt, FailureResult[R](err))
			if !won {
				return CompletedPromise[R](nil)
			}
			return CompletedPromise(rec)
		}
		exec.future.injectStage(stage)
		promise := NewPromise[R]()
		stage.Subscribe(func(value R, serr error) {
			rec, won := exec.closeAttempt(attempt, resultOf(value, serr))
			if !won {
				promise.Complete(nil)
				return
			}
			promise.Complete(rec)
		})
		return promise
	}
}

// stageExecutionFn 带外完成的阶段供给形态：结合 promiseExecutionFn 与
// stageFn。一槽互斥保证供给函数不会与自己上一次的完成路径并发运行：
// 槽在调用供给函数前占住，到其 stage 终结时才释放。
// stage 的失败由适配器记录；成功结果由用户通过 Record 提交。
func stageExecutionFn[R any](fn func(exec *AsyncExecution[R]) (Stage[R], error)) AsyncExecutionFn[R] {
	slot := make(chan struct{}, 1)
	return func(exec *AsyncExecution[R]) *Promise[R] {
		exec.preExecuteAttempt()
		exec.markAttemptStarted()
		slot <- struct{}{}
		stage, err := fn(exec)
		if err != nil || stage == nil {
			if err == nil {
				err = ErrNilFunc
			}
			var zero R
			exec.Record(zero, err)
			<-slot
			return CompletedPromise[R](nil)
		}
		exec.future.injectStage(stage)
		stage.Subscribe(func(_ R, serr error) {
			if serr != nil {
				var zero R
				exec.Record(zero, serr)
			}
			<-slot
		})
		return CompletedPromise[R](nil)
	}
}

// toExecutionAware 短路包装：执行已带有记录结果时直接返回该结果，
// 不再调用内层函数。带外 Record 之后的重入经由此处回到管道，
// 而重试产生的新尝试（结果已清空）会真正重跑用户操作。
func toExecutionAware[R any](inner AsyncExecutionFn[R]) AsyncExecutionFn[R] {
	return func(exec *AsyncExecution[R]) *Promise[R] {
		if r := exec.RecordedResult(); r != nil {
			return CompletedPromise(r)
		}
		return inner(exec)
	}
}

// toAsync 一次性装饰器：首次调用把内层函数调度到 Scheduler 上运行，
// 后续（重试）调用在完成方 goroutine 上同步运行。
//
// 首次调用注册编排层（索引 -1）取消函数：取消已调度任务；
// 若尝试尚未开始运行，直接以取消结果完成 Promise；
// mayInterrupt 转译为对当前尝试的协作式打断。
func toAsync[R any](inner AsyncExecutionFn[R]) AsyncExecutionFn[R] {
	var scheduled atomic.Bool
	return func(exec *AsyncExecution[R]) *Promise[R] {
		if !scheduled.CompareAndSwap(false, true) {
			exec.future.injectCancelFn(orchestrationIndex, func(mayInterrupt bool, _ *Result[R]) {
				if job := exec.currentInnerJob(); job != nil {
					job.Cancel(mayInterrupt)
				}
				if mayInterrupt {
					exec.InterruptAttemptFor(exec.Attempts())
				}
			})
			return inner(exec)
		}

		promise := NewPromise[R]()
		job, err := exec.Scheduler().Schedule(func() {
			inner(exec).WhenComplete(func(r *Result[R]) {
				promise.Complete(r)
			})
		}, 0)
		if err != nil {
			promise.Complete(FailureResult[R](err))
			return promise
		}
		exec.setInnerJob(job)
		exec.future.injectCancelFn(orchestrationIndex, func(mayInterrupt bool, cancelResult *Result[R]) {
			job.Cancel(mayInterrupt)
			if !exec.isAttemptStarted() {
				promise.Complete(cancelResult)
			}
			if mayInterrupt {
				exec.InterruptAttemptFor(exec.Attempts())
			}
		})
		return promise
	}
}
