package xbulkhead

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/omeyang/xsafe/pkg/resilience/xexec"
)

// FullError 舱壁许可耗尽时的错误。
type FullError struct{}

// Error 实现 error 接口
func (e *FullError) Error() string {
	return "xbulkhead: bulkhead is full"
}

// IsFull 检查错误是否为舱壁拒绝。
func IsFull(err error) bool {
	var fe *FullError
	return errors.As(err, &fe)
}

// 确保 *Bulkhead 实现 Policy 接口
var _ xexec.Policy[any] = (*Bulkhead[any])(nil)

// Bulkhead 舱壁策略。有状态且并发安全，跨执行共享。
type Bulkhead[R any] struct {
	capacity    int64
	maxWaitTime time.Duration
	sem         *semaphore.Weighted
	onFull      func()
}

// Option 舱壁配置选项
type Option[R any] func(*Bulkhead[R])

// WithMaxWaitTime 设置准入等待上限：许可耗尽时最多等待 d 再拒绝。
// 默认不等待、立即拒绝。
func WithMaxWaitTime[R any](d time.Duration) Option[R] {
	return func(b *Bulkhead[R]) {
		if d > 0 {
			b.maxWaitTime = d
		}
	}
}

// OnFull 设置拒绝回调。
func OnFull[R any](fn func()) Option[R] {
	return func(b *Bulkhead[R]) {
		if fn != nil {
			b.onFull = fn
		}
	}
}

// New 创建舱壁。capacity 为最大并发尝试数，非正值按 1 处理。
func New[R any](capacity int, opts ...Option[R]) *Bulkhead[R] {
	if capacity < 1 {
		capacity = 1
	}
	b := &Bulkhead[R]{
		capacity: int64(capacity),
		sem:      semaphore.NewWeighted(int64(capacity)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Capacity 返回最大并发尝试数。
func (b *Bulkhead[R]) Capacity() int {
	return int(b.capacity)
}

// TryAcquirePermit 手动占用一个许可，立即返回是否成功。
func (b *Bulkhead[R]) TryAcquirePermit() bool {
	return b.sem.TryAcquire(1)
}

// ReleasePermit 手动释放一个许可。
func (b *Bulkhead[R]) ReleasePermit() {
	b.sem.Release(1)
}

// ToExecutor 实现 xexec.Policy。
func (b *Bulkhead[R]) ToExecutor(policyIndex int) xexec.Executor[R] {
	e := &bulkheadExecutor[R]{policy: b}
	e.BaseExecutor = xexec.NewBaseExecutor[R](policyIndex, e)
	return e
}

// bulkheadExecutor Bulkhead 的策略执行器。
// 准入占用的许可在结果钩子（成功或失败）里释放一次；
// 准入被拒绝的尝试没有占到许可，不触发释放。
type bulkheadExecutor[R any] struct {
	*xexec.BaseExecutor[R]
	policy *Bulkhead[R]
}

// PreExecute 占用许可：许可耗尽时按配置等待或立即拒绝。
func (e *bulkheadExecutor[R]) PreExecute(exec *xexec.Execution[R]) *xexec.Result[R] {
	b := e.policy
	if b.sem.TryAcquire(1) {
		return nil
	}
	if b.maxWaitTime > 0 {
		ctx, cancel := context.WithTimeout(exec.Context(), b.maxWaitTime)
		err := b.sem.Acquire(ctx, 1)
		cancel()
		if err == nil {
			return nil
		}
	}
	if b.onFull != nil {
		b.onFull()
	}
	return xexec.FailureResult[R](&FullError{})
}

func (e *bulkheadExecutor[R]) OnSuccess(_ *xexec.Execution[R], _ *xexec.Result[R]) {
	e.policy.sem.Release(1)
}

func (e *bulkheadExecutor[R]) OnFailure(_ *xexec.Execution[R], r *xexec.Result[R]) *xexec.Result[R] {
	e.policy.sem.Release(1)
	return r
}
