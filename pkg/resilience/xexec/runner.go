package xexec

import (
	"context"
	"log/slog"

	"github.com/omeyang/xsafe/pkg/observability/xlog"
)

// Runner 策略组合执行入口。
//
// With 接收外到内顺序的策略栈，返回可复用的 Runner；
// WithX 系列方法返回派生副本，原 Runner 不受影响，可安全并发使用。
type Runner[R any] struct {
	policies   []Policy[R]
	ctx        context.Context
	scheduler  Scheduler
	clock      Clock
	logger     xlog.Logger
	onComplete func(value R, err error)
}

// With 以外到内顺序的策略栈创建 Runner。
//
//	runner := xexec.With[string](retry, breaker)
//	result, err := runner.Get(fetchRemote)
//
// 策略校验推迟到执行时：空栈返回 ErrNoPolicies，nil 策略返回 ErrNilPolicy。
func With[R any](policies ...Policy[R]) *Runner[R] {
	return &Runner[R]{
		policies:  policies,
		ctx:       context.Background(),
		scheduler: NewScheduler(),
		clock:     SystemClock(),
	}
}

// WithContext 返回绑定 context 的派生 Runner。
// context 取消会中止重试等待并传播到用户操作。
func (r *Runner[R]) WithContext(ctx context.Context) *Runner[R] {
	if ctx == nil {
		return r
	}
	c := *r
	c.ctx = ctx
	return &c
}

// WithScheduler 返回使用指定调度器的派生 Runner。
func (r *Runner[R]) WithScheduler(s Scheduler) *Runner[R] {
	if s == nil {
		return r
	}
	c := *r
	c.scheduler = s
	return &c
}

// WithClock 返回使用指定时钟的派生 Runner，主要用于测试。
func (r *Runner[R]) WithClock(clock Clock) *Runner[R] {
	if clock == nil {
		return r
	}
	c := *r
	c.clock = clock
	return &c
}

// WithLogger 返回带日志的派生 Runner，记录每次调用的终态结果。
func (r *Runner[R]) WithLogger(logger xlog.Logger) *Runner[R] {
	if logger == nil {
		return r
	}
	c := *r
	c.logger = logger
	return &c
}

// OnComplete 返回带完成回调的派生 Runner。
// 回调在执行终结（成功、失败或取消）时触发一次。
func (r *Runner[R]) OnComplete(fn func(value R, err error)) *Runner[R] {
	if fn == nil {
		return r
	}
	c := *r
	c.onComplete = fn
	return &c
}

// Run 同步执行无返回值操作。
func (r *Runner[R]) Run(fn func(ctx context.Context) error) error {
	if fn == nil {
		return ErrNilFunc
	}
	var zero R
	_, err := r.executeSync(syncFn(func(ctx context.Context) (R, error) {
		return zero, fn(ctx)
	}))
	return err
}

// Get 同步执行并返回结果。
func (r *Runner[R]) Get(fn func(ctx context.Context) (R, error)) (R, error) {
	if fn == nil {
		var zero R
		return zero, ErrNilFunc
	}
	return r.executeSync(syncFn(fn))
}

// GetWithExecution 同步执行，操作可访问执行上下文
// （尝试计数、上次失败等）。
func (r *Runner[R]) GetWithExecution(fn func(exec *Execution[R]) (R, error)) (R, error) {
	if fn == nil {
		var zero R
		return zero, ErrNilFunc
	}
	return r.executeSync(syncExecutionFn(fn))
}

// RunAsync 异步执行无返回值操作，立即返回 Future。
func (r *Runner[R]) RunAsync(fn func(ctx context.Context) error) *Future[R] {
	if fn == nil {
		return failedFuture[R](ErrNilFunc)
	}
	var zero R
	return r.executeAsync(promiseFn(func(ctx context.Context) (R, error) {
		return zero, fn(ctx)
	}))
}

// GetAsync 异步执行并通过 Future 交付结果。
func (r *Runner[R]) GetAsync(fn func(ctx context.Context) (R, error)) *Future[R] {
	if fn == nil {
		return failedFuture[R](ErrNilFunc)
	}
	return r.executeAsync(promiseFn(fn))
}

// GetStageAsync 异步执行返回 stage 的操作：引擎订阅 stage 的完成，
// 外部取消传播到 stage。
func (r *Runner[R]) GetStageAsync(fn func(ctx context.Context) (Stage[R], error)) *Future[R] {
	if fn == nil {
		return failedFuture[R](ErrNilFunc)
	}
	return r.executeAsync(stageFn(fn))
}

// RunAsyncWithExecution 异步执行带外完成形态的操作：
// 操作收到 AsyncExecution，自行调用 Record / Complete 提交结果。
func (r *Runner[R]) RunAsyncWithExecution(fn func(exec *AsyncExecution[R]) error) *Future[R] {
	if fn == nil {
		return failedFuture[R](ErrNilFunc)
	}
	return r.executeAsync(promiseExecutionFn(fn))
}

// GetStageAsyncWithExecution 异步执行带外完成的阶段供给操作。
func (r *Runner[R]) GetStageAsyncWithExecution(fn func(exec *AsyncExecution[R]) (Stage[R], error)) *Future[R] {
	if fn == nil {
		return failedFuture[R](ErrNilFunc)
	}
	return r.executeAsync(stageExecutionFn(fn))
}

// executeSync 构建执行链并在调用方 goroutine 上运行到终态。
func (r *Runner[R]) executeSync(fn ExecutionFn[R]) (R, error) {
	exec, err := newExecution[R](r.ctx, r.clock, r.scheduler, r.policies)
	if err != nil {
		var zero R
		return zero, err
	}
	wrapped := fn
	for _, ex := range exec.executors {
		wrapped = ex.Apply(wrapped)
	}
	res := wrapped(exec)
	exec.complete(res)
	r.notifyDone(exec, res)
	// 对调用方而言有无错误是唯一口径：success 标记只驱动策略逻辑。
	// 按返回值分类的失败（success=false、err=nil）把最终值交还调用方。
	if res.err != nil {
		var zero R
		return zero, res.err
	}
	return res.value, nil
}

// executeAsync 构建异步执行链，立即返回 Future。
func (r *Runner[R]) executeAsync(innerFn AsyncExecutionFn[R]) *Future[R] {
	exec, err := newExecution[R](r.ctx, r.clock, r.scheduler, r.policies)
	if err != nil {
		return failedFuture[R](err)
	}
	aexec := newAsyncExecution(exec)
	fn := toExecutionAware(toAsync(innerFn))
	for _, ex := range exec.executors {
		fn = ex.ApplyAsync(fn)
	}
	aexec.outerFn = fn
	aexec.future.whenDone(func(res *Result[R]) {
		r.notifyDone(exec, res)
	})
	fn(aexec).WhenComplete(func(res *Result[R]) {
		if res != nil {
			aexec.completeWith(res)
		}
	})
	return aexec.future
}

// notifyDone 触发日志与完成回调。
func (r *Runner[R]) notifyDone(exec *Execution[R], res *Result[R]) {
	if r.logger != nil {
		attrs := []slog.Attr{
			slog.String("execution_id", exec.ID()),
			slog.Int("attempts", exec.Attempts()),
			slog.Duration("elapsed", exec.ElapsedTime()),
		}
		if res.err == nil {
			r.logger.Info(r.ctx, "execution completed", attrs...)
		} else {
			r.logger.Warn(r.ctx, "execution failed",
				append(attrs, slog.Any("error", res.err))...)
		}
	}
	if r.onComplete != nil {
		if res.err != nil {
			var zero R
			r.onComplete(zero, res.err)
		} else {
			r.onComplete(res.value, nil)
		}
	}
}

// failedFuture 返回以给定错误立即终结的 Future。
func failedFuture[R any](err error) *Future[R] {
	f := newFuture[R]()
	f.completeResult(FailureResult[R](err))
	return f
}
