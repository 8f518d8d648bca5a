package xexec

import "sync"

// AsyncExecution 异步调用的执行上下文。
//
// 在 Execution 之上增加用户可见的 Future、当前已调度尝试的任务句柄、
// 尝试已开始标记，以及带外完成入口：用户异步操作收到 AsyncExecution
// 后自行调用 Record / Complete 提交结果。
type AsyncExecution[R any] struct {
	*Execution[R]

	future  *Future[R]
	outerFn AsyncExecutionFn[R] // 完整执行链，Record 重入时使用

	asyncMu        sync.Mutex // 串行化并发的 Record 调用
	innerJob       ScheduledJob
	attemptStarted bool
}

func newAsyncExecution[R any](exec *Execution[R]) *AsyncExecution[R] {
	return &AsyncExecution[R]{
		Execution: exec,
		future:    newFuture[R](),
	}
}

// Future 返回用户可见的 Future。
func (e *AsyncExecution[R]) Future() *Future[R] {
	return e.future
}

// RecordResult 带外记录一次成功结果。
func (e *AsyncExecution[R]) RecordResult(value R) {
	e.Record(value, nil)
}

// RecordError 带外记录一次失败。
func (e *AsyncExecution[R]) RecordError(err error) {
	var zero R
	e.Record(zero, err)
}

// Record 带外记录当前尝试的结果并重新进入执行管道：
// 策略栈据此决定终结还是调度下一次尝试（重试时用户操作会被重新运行）。
//
// 并发调用被串行化；每次尝试只有第一个 Record 生效，其余为空操作。
// Future 已终结（含已取消）后的记录被忽略。
func (e *AsyncExecution[R]) Record(value R, err error) {
	e.asyncMu.Lock()
	defer e.asyncMu.Unlock()
	if e.future.IsDone() {
		return
	}
	r := resultOf(value, err)
	if _, won := e.RecordAttemptFor(e.Attempts(), r); !won {
		// 本次尝试已有结果，后到的记录不生效
		return
	}
	e.reenter()
}

// ResumeWithFor 供策略执行器使用：为序号为 attempt 的尝试记录结果并
// 携带其重新进入管道（超时看门狗接管挂起尝试时使用）。
// 返回记录是否生效；不生效时管道不受影响。
func (e *AsyncExecution[R]) ResumeWithFor(attempt int, r *Result[R]) bool {
	e.asyncMu.Lock()
	defer e.asyncMu.Unlock()
	if e.future.IsDone() {
		return false
	}
	if _, won := e.RecordAttemptFor(attempt, r); !won {
		return false
	}
	e.reenter()
	return true
}

// Complete 以当前尝试已记录的结果终结执行；当前尝试尚无记录时
// （包括重试已准备、上一结果已清空时）以零值成功终结。
func (e *AsyncExecution[R]) Complete() {
	e.asyncMu.Lock()
	defer e.asyncMu.Unlock()
	if e.future.IsDone() {
		return
	}
	r := e.RecordedResult()
	if r == nil {
		var zero R
		r, _ = e.RecordAttemptFor(e.Attempts(), SuccessResult(zero))
		if r == nil {
			r = SuccessResult(zero)
		}
	}
	e.completeWith(r.WithComplete())
}

// reenter 携带已记录的结果重新进入执行管道。
// 最内层的 execution-aware 包装会直接返回该结果而不重跑用户操作，
// 各策略钩子照常处理；终态结果完成用户 Future。
func (e *AsyncExecution[R]) reenter() {
	e.outerFn(e).WhenComplete(func(r *Result[R]) {
		if r != nil {
			e.completeWith(r)
		}
	})
}

// completeWith 终结执行并完成用户 Future。
func (e *AsyncExecution[R]) completeWith(r *Result[R]) {
	e.complete(r)
	e.future.completeResult(r)
}

// markAttemptStarted 标记一次尝试已真正开始运行。
func (e *AsyncExecution[R]) markAttemptStarted() {
	e.mu.Lock()
	e.attemptStarted = true
	e.mu.Unlock()
}

// isAttemptStarted 返回当前是否已有尝试开始运行。
func (e *AsyncExecution[R]) isAttemptStarted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attemptStarted
}

// setInnerJob 记录当前已调度尝试的任务句柄。
func (e *AsyncExecution[R]) setInnerJob(job ScheduledJob) {
	e.mu.Lock()
	e.innerJob = job
	e.mu.Unlock()
}

// currentInnerJob 返回当前已调度尝试的任务句柄。
func (e *AsyncExecution[R]) currentInnerJob() ScheduledJob {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.innerJob
}
