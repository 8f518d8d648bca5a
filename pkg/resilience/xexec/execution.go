package xexec

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// interruptState 尝试完成与超时打断之间的竞态保护。
//
// canInterrupt 仅在用户操作运行期间为 true；对 interrupted 的观察
// 与清除和 canInterrupt 的转换在同一把锁下原子进行。
type interruptState struct {
	mu           sync.Mutex
	canInterrupt bool
	interrupted  bool
}

// Execution 单次调用的可变执行上下文。
//
// 携带尝试计数、起始时间、打断状态与已记录的结果。
// 由执行管道创建并驱动，也可以通过 NewExecution 手动编排：
// 调用方自行执行操作，把结果交给 Record 系列方法，由策略栈
// 决定是否允许继续尝试。
//
// 一个 Execution 只服务一次调用，终结后丢弃。
// 策略对象可以跨执行共享，Execution 不可以。
type Execution[R any] struct {
	id        string
	ctx       context.Context
	clock     Clock
	scheduler Scheduler
	executors []Executor[R] // 按 policyIndex 升序排列（0 = 最内层）

	interrupt interruptState

	mu               sync.Mutex
	attempts         int
	executions       int
	startTime        time.Time
	attemptStartTime time.Time
	result           *Result[R] // 当前尝试已记录的结果；initializeRetry 时清空
	lastResult       *Result[R] // 最近一次观察到的结果，跨尝试保留
	retryPrepared    bool       // 重试已就绪、新尝试尚未开始的窗口标记
	completed        bool
	waitTime         time.Duration
	attemptCtx       context.Context
	cancelAttempt    context.CancelFunc
}

// NewExecution 创建手动编排的执行上下文。
// policies 按外到内顺序传入。
//
// 手动编排时调用方自己执行操作并记录结果：
//
//	exec, err := xexec.NewExecution[string](retry)
//	for !exec.IsComplete() {
//	    v, err := doSomething()
//	    exec.Record(v, err)
//	}
func NewExecution[R any](policies ...Policy[R]) (*Execution[R], error) {
	return newExecution[R](context.Background(), SystemClock(), NewScheduler(), policies)
}

// NewExecutionContext 创建带 context 的手动执行上下文。
func NewExecutionContext[R any](ctx context.Context, policies ...Policy[R]) (*Execution[R], error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return newExecution[R](ctx, SystemClock(), NewScheduler(), policies)
}

func newExecution[R any](ctx context.Context, clock Clock, scheduler Scheduler, policies []Policy[R]) (*Execution[R], error) {
	if len(policies) == 0 {
		return nil, ErrNoPolicies
	}
	for _, p := range policies {
		if p == nil {
			return nil, ErrNilPolicy
		}
	}
	e := &Execution[R]{
		id:        uuid.NewString(),
		ctx:       ctx,
		clock:     clock,
		scheduler: scheduler,
		executors: make([]Executor[R], 0, len(policies)),
	}
	// 传入顺序是外到内；executors 按 policyIndex 升序存放，0 为最内层
	for i := len(policies) - 1; i >= 0; i-- {
		e.executors = append(e.executors, policies[i].ToExecutor(len(policies)-1-i))
	}
	now := e.clock.Now()
	e.startTime = now
	e.attemptStartTime = now
	return e, nil
}

// ID 返回执行的唯一标识，用于日志关联。
func (e *Execution[R]) ID() string {
	return e.id
}

// Context 返回整次调用的 context。
func (e *Execution[R]) Context() context.Context {
	return e.ctx
}

// AttemptContext 返回当前尝试的 context。
// 超时策略打断尝试时取消的是这个 context；尚未开始任何尝试时
// 返回整次调用的 context。
func (e *Execution[R]) AttemptContext() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.attemptCtx != nil {
		return e.attemptCtx
	}
	return e.ctx
}

// Clock 返回执行使用的时钟。
func (e *Execution[R]) Clock() Clock {
	return e.clock
}

// Scheduler 返回执行使用的调度器。
func (e *Execution[R]) Scheduler() Scheduler {
	return e.scheduler
}

// Attempts 返回已开始的尝试次数。
func (e *Execution[R]) Attempts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attempts
}

// Executions 返回已记录结果的执行次数。
func (e *Execution[R]) Executions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.executions
}

// IsFirstAttempt 返回当前是否为首次尝试。
func (e *Execution[R]) IsFirstAttempt() bool {
	return e.Attempts() <= 1
}

// IsRetry 返回当前是否为重试尝试。
func (e *Execution[R]) IsRetry() bool {
	return e.Attempts() > 1
}

// StartTime 返回整次调用的开始时间。
func (e *Execution[R]) StartTime() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startTime
}

// ElapsedTime 返回整次调用至今的已用时长。
func (e *Execution[R]) ElapsedTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Now().Sub(e.startTime)
}

// ElapsedAttemptTime 返回当前尝试至今的已用时长。
func (e *Execution[R]) ElapsedAttemptTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Now().Sub(e.attemptStartTime)
}

// LastResult 返回最近一次记录的结果值。尚无记录时返回零值。
func (e *Execution[R]) LastResult() R {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastResult != nil {
		return e.lastResult.value
	}
	var zero R
	return zero
}

// LastError 返回最近一次记录的失败。尚无记录或上次成功时返回 nil。
func (e *Execution[R]) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastResult != nil {
		return e.lastResult.err
	}
	return nil
}

// IsComplete 返回执行是否已终结。
func (e *Execution[R]) IsComplete() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completed
}

// WaitDuration 返回策略栈要求的下次尝试前等待时长。
// 手动编排时调用方应在下次操作前等待该时长。
func (e *Execution[R]) WaitDuration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.waitTime
}

// RecordResult 记录一次成功结果，返回执行是否已终结。
func (e *Execution[R]) RecordResult(value R) bool {
	return e.Record(value, nil)
}

// RecordFailure 记录一次失败，返回执行是否已终结。
func (e *Execution[R]) RecordFailure(err error) bool {
	var zero R
	return e.Record(zero, err)
}

// Record 记录一次尝试的结果，依次经过每个策略的结果钩子
// （最内层优先），返回执行是否已终结。
// 已终结的执行忽略后续记录。
func (e *Execution[R]) Record(value R, err error) bool {
	e.mu.Lock()
	if e.completed {
		e.mu.Unlock()
		return true
	}
	e.attempts++
	e.executions++
	e.mu.Unlock()

	r := e.applyPostExecute(resultOf(value, err))

	e.mu.Lock()
	e.lastResult = r
	e.completed = r.IsComplete()
	e.waitTime = r.Delay()
	if !e.completed {
		// 下一次尝试从现在开始计时
		e.attemptStartTime = e.clock.Now()
	}
	e.mu.Unlock()
	return r.IsComplete()
}

// CanRetryFor 记录一次尝试并返回策略栈是否允许继续尝试。
// 注意：与原地检查不同，此调用会消耗一次尝试预算并更新策略状态。
func (e *Execution[R]) CanRetryFor(value R, err error) bool {
	return !e.Record(value, err)
}

// applyPostExecute 让结果依次通过每个策略执行器的结果钩子，最内层优先。
func (e *Execution[R]) applyPostExecute(r *Result[R]) *Result[R] {
	for _, ex := range e.executors {
		r = ex.PostExecute(e, r)
	}
	return r
}

// preExecuteAttempt 在用户操作运行前做尝试簿记：
// 递增尝试计数、刷新尝试开始时间、开启可打断窗口、
// 创建本次尝试的可取消 context。
// 返回尝试 context 与本次尝试的序号。
func (e *Execution[R]) preExecuteAttempt() (context.Context, int) {
	e.mu.Lock()
	e.attempts++
	e.retryPrepared = false
	attempt := e.attempts
	e.attemptStartTime = e.clock.Now()
	if e.cancelAttempt != nil {
		e.cancelAttempt()
	}
	ctx, cancel := context.WithCancel(e.ctx)
	e.attemptCtx, e.cancelAttempt = ctx, cancel
	e.mu.Unlock()

	e.interrupt.mu.Lock()
	e.interrupt.canInterrupt = true
	e.interrupt.interrupted = false
	e.interrupt.mu.Unlock()
	return ctx, attempt
}

// RecordAttemptFor 供策略执行器使用：为序号为 attempt 的尝试记录结果。
// 仅当该尝试仍是当前尝试且尚无结果时生效（每次尝试首个记录生效）。
// 返回当前尝试的有效结果与本次记录是否生效。
func (e *Execution[R]) RecordAttemptFor(attempt int, r *Result[R]) (*Result[R], bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.attempts != attempt || e.retryPrepared {
		return e.result, false
	}
	if e.result != nil {
		return e.result, false
	}
	e.result = r
	e.lastResult = r
	e.executions++
	return e.result, true
}

// RecordedResult 返回当前尝试已记录的结果，无记录时返回 nil。
func (e *Execution[R]) RecordedResult() *Result[R] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

// InterruptAttemptFor 供超时策略使用：协作式打断序号为 attempt 的尝试。
// 仅在该尝试仍是当前尝试且可打断窗口开启时生效：标记 interrupted
// 并取消尝试 context，被打断的操作产生的取消错误不会外泄给调用方。
func (e *Execution[R]) InterruptAttemptFor(attempt int) bool {
	e.mu.Lock()
	if e.attempts != attempt {
		e.mu.Unlock()
		return false
	}
	cancel := e.cancelAttempt
	e.mu.Unlock()

	e.interrupt.mu.Lock()
	if !e.interrupt.canInterrupt {
		e.interrupt.mu.Unlock()
		return false
	}
	e.interrupt.interrupted = true
	e.interrupt.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return true
}

// closeAttempt 在用户操作返回后关闭可打断窗口并记录结果。
// 返回本次尝试的有效结果与本方记录是否生效：超时看门狗抢先记录时
// 以其结果为准，won 为 false。
func (e *Execution[R]) closeAttempt(attempt int, r *Result[R]) (*Result[R], bool) {
	rec, won := e.RecordAttemptFor(attempt, r)

	// 只关闭仍属于本尝试的打断窗口：尝试序号已推进时，
	// 窗口归正在运行的新尝试所有
	e.mu.Lock()
	current := e.attempts == attempt
	e.mu.Unlock()
	if current {
		e.interrupt.mu.Lock()
		e.interrupt.canInterrupt = false
		e.interrupt.mu.Unlock()
	}

	if rec == nil {
		// 尝试序号已推进（结果被接管后重试已开始），本方结果作废
		rec = r
	}
	return rec, won
}

// initializeRetry 为下一次尝试重置执行状态。
func (e *Execution[R]) initializeRetry() {
	e.mu.Lock()
	e.result = nil
	e.retryPrepared = true
	e.mu.Unlock()

	e.interrupt.mu.Lock()
	e.interrupt.canInterrupt = false
	e.interrupt.interrupted = false
	e.interrupt.mu.Unlock()
}

// complete 以终态结果终结执行。
func (e *Execution[R]) complete(r *Result[R]) {
	e.mu.Lock()
	e.lastResult = r
	e.completed = true
	if e.cancelAttempt != nil {
		e.cancelAttempt()
		e.cancelAttempt = nil
	}
	e.mu.Unlock()
}

// waitForRetry 在两次尝试之间等待。context 取消时提前返回其错误。
func (e *Execution[R]) waitForRetry(d time.Duration) error {
	if d <= 0 {
		return e.ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return e.ctx.Err()
	case <-e.ctx.Done():
		return e.ctx.Err()
	}
}
