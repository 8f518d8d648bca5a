package xtimeout

import (
	"time"

	"github.com/omeyang/xsafe/pkg/resilience/xexec"
)

// 确保 *Timeout 实现 Policy 接口
var _ xexec.Policy[any] = (*Timeout[any])(nil)

// Timeout 超时策略。无状态，可跨执行共享。
type Timeout[R any] struct {
	timeout       time.Duration
	interruptable bool
	onExceeded    func(attempt int)
}

// Option 超时策略配置选项
type Option[R any] func(*Timeout[R])

// WithInterrupt 到点时协作式打断正在运行的操作
// （取消其尝试 context）。默认只让尝试失败、不打断操作。
func WithInterrupt[R any]() Option[R] {
	return func(t *Timeout[R]) {
		t.interruptable = true
	}
}

// OnExceeded 设置超时回调。
func OnExceeded[R any](fn func(attempt int)) Option[R] {
	return func(t *Timeout[R]) {
		if fn != nil {
			t.onExceeded = fn
		}
	}
}

// New 创建超时策略。timeout 必须为正，非正值按 1ns 处理。
func New[R any](timeout time.Duration, opts ...Option[R]) *Timeout[R] {
	if timeout <= 0 {
		timeout = time.Nanosecond
	}
	t := &Timeout[R]{timeout: timeout}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Duration 返回配置的时限。
func (t *Timeout[R]) Duration() time.Duration {
	return t.timeout
}

// ToExecutor 实现 xexec.Policy。
func (t *Timeout[R]) ToExecutor(policyIndex int) xexec.Executor[R] {
	e := &timeoutExecutor[R]{policy: t}
	e.BaseExecutor = xexec.NewBaseExecutor[R](policyIndex, e)
	return e
}

// timeoutExecutor Timeout 的策略执行器。
// 看门狗的调度与尝试记录的竞争规则见包文档；
// Apply / ApplyAsync 自行包装执行链，不使用骨架的默认包装。
type timeoutExecutor[R any] struct {
	*xexec.BaseExecutor[R]
	policy *Timeout[R]
}

// newExceededResult 构建超时失败结果。
func (e *timeoutExecutor[R]) newExceededResult() *xexec.Result[R] {
	return xexec.FailureResult[R](&ExceededError{Timeout: e.policy.timeout})
}

// Apply 同步包装：为即将开始的尝试布置看门狗。
// 看门狗先记录超时结果再打断，保证被打断操作的取消错误
// 不会成为本次尝试的结果。
func (e *timeoutExecutor[R]) Apply(inner xexec.ExecutionFn[R]) xexec.ExecutionFn[R] {
	return func(exec *xexec.Execution[R]) *xexec.Result[R] {
		attempt := exec.Attempts() + 1
		job, err := exec.Scheduler().Schedule(func() {
			tr := e.newExceededResult()
			if _, won := exec.RecordAttemptFor(attempt, tr); won {
				if e.policy.onExceeded != nil {
					e.policy.onExceeded(attempt)
				}
				if e.policy.interruptable {
					exec.InterruptAttemptFor(attempt)
				}
			}
		}, e.policy.timeout)
		if err != nil {
			return e.PostExecute(exec, xexec.FailureResult[R](err))
		}
		r := inner(exec)
		job.Cancel(false)
		return e.PostExecute(exec, r)
	}
}

// ApplyAsync 异步包装。
//
// 看门狗到点时通过 ResumeWithFor 接管本次尝试：记录超时结果并携带
// 其重新进入管道；原链路的内层 Promise 以 nil 完成、就地放弃。
// 对带外完成形态（内层立即返回 NULL_FUTURE 哨兵），看门狗保持守护，
// 与用户的 Record 以"每次尝试首个记录生效"竞争。
func (e *timeoutExecutor[R]) ApplyAsync(inner xexec.AsyncExecutionFn[R]) xexec.AsyncExecutionFn[R] {
	return func(exec *xexec.AsyncExecution[R]) *xexec.Promise[R] {
		outer := xexec.NewPromise[R]()

		// 重入：结果已取得，直接处理，不再布置看门狗
		if exec.RecordedResult() != nil {
			inner(exec).WhenComplete(func(r *xexec.Result[R]) {
				if r == nil {
					outer.Complete(nil)
					return
				}
				outer.Complete(e.PostExecute(exec.Execution, r))
			})
			return outer
		}

		attempt := exec.Attempts() + 1
		job, err := exec.Scheduler().Schedule(func() {
			tr := e.newExceededResult()
			if exec.ResumeWithFor(attempt, tr) {
				if e.policy.onExceeded != nil {
					e.policy.onExceeded(attempt)
				}
				if e.policy.interruptable {
					exec.InterruptAttemptFor(attempt)
				}
			}
		}, e.policy.timeout)
		if err != nil {
			outer.Complete(e.PostExecute(exec.Execution, xexec.FailureResult[R](err)))
			return outer
		}

		inner(exec).WhenComplete(func(r *xexec.Result[R]) {
			if r == nil {
				// 带外完成：看门狗继续守护，结果经 Record / 看门狗重入到达
				outer.Complete(nil)
				return
			}
			job.Cancel(false)
			outer.Complete(e.PostExecute(exec.Execution, r))
		})
		return outer
	}
}
