package xexec

import (
	"context"
	"sort"
	"sync"
)

// Stage 可订阅、可取消的异步结果，用于桥接用户自己的 future 实现。
// Future 本身实现了 Stage，嵌套的 xsafe 执行可以直接作为 Stage 返回。
type Stage[R any] interface {
	// Subscribe 注册完成回调；已完成时立即触发
	Subscribe(fn func(value R, err error))

	// Cancel 请求取消底层计算
	Cancel(mayInterrupt bool) bool
}

// cancelFn 取消回调：mayInterrupt 表示是否打断正在运行的尝试，
// cancelResult 是取消对应的终态结果。
type cancelFn[R any] func(mayInterrupt bool, cancelResult *Result[R])

// orchestrationIndex 编排层取消函数的注册位置。
// 取消按索引降序（外到内）执行，编排层最后。
const orchestrationIndex = -1

// Future 用户可见的一次性 promise。
//
// 执行过程中各策略层按自己的 policyIndex 注册取消函数；外部取消时
// 按外到内（索引降序）各执行一次。终结后的 Future 忽略一切后续记录。
//
// Future 可能被外部取消方与尝试线程并发观察，状态转换全部在内部
// 锁下进行。
type Future[R any] struct {
	mu        sync.Mutex
	done      chan struct{}
	result    *Result[R]
	cancelled bool
	cancelFns map[int]cancelFn[R]
	stage     Stage[R]
	onDone    []func(*Result[R])
}

var _ Stage[any] = (*Future[any])(nil)

func newFuture[R any]() *Future[R] {
	return &Future[R]{
		done:      make(chan struct{}),
		cancelFns: make(map[int]cancelFn[R]),
	}
}

// Done 返回完成时关闭的通道。
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// IsDone 返回 Future 是否已终结。
func (f *Future[R]) IsDone() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result != nil
}

// IsCancelled 返回 Future 是否因取消而终结。
func (f *Future[R]) IsCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

// Get 阻塞等待结果。ctx 取消时提前返回 ctx 错误，Future 本身不受影响。
func (f *Future[R]) Get(ctx context.Context) (R, error) {
	if ctx == nil {
		var zero R
		return zero, ErrNilContext
	}
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// Result 返回已终结的结果。尚未终结时返回零值与 nil 错误，
// 调用方应先通过 Done/Get 等待。
func (f *Future[R]) Result() (R, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.result == nil {
		var zero R
		return zero, nil
	}
	if f.result.err != nil {
		var zero R
		return zero, f.result.err
	}
	return f.result.value, nil
}

// Subscribe 实现 Stage：注册完成回调。
func (f *Future[R]) Subscribe(fn func(value R, err error)) {
	if fn == nil {
		return
	}
	f.whenDone(func(r *Result[R]) {
		if r.err != nil {
			var zero R
			fn(zero, r.err)
		} else {
			fn(r.value, nil)
		}
	})
}

// Cancel 取消执行。
//
// 流程：标记取消并生成取消结果；按索引降序（外到内）执行每个已注册
// 的取消函数，各至多一次；取消已注入的用户 stage；最后以取消结果
// 完成 Future。已终结的 Future 返回 false。
func (f *Future[R]) Cancel(mayInterrupt bool) bool {
	f.mu.Lock()
	if f.result != nil {
		f.mu.Unlock()
		return false
	}
	f.cancelled = true
	cancelResult := FailureResult[R](context.Canceled)
	indexes := make([]int, 0, len(f.cancelFns))
	for i := range f.cancelFns {
		indexes = append(indexes, i)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(indexes)))
	fns := make([]cancelFn[R], 0, len(indexes))
	for _, i := range indexes {
		fns = append(fns, f.cancelFns[i])
		delete(f.cancelFns, i)
	}
	stage := f.stage
	f.mu.Unlock()

	for _, fn := range fns {
		fn(mayInterrupt, cancelResult)
	}
	if stage != nil {
		stage.Cancel(mayInterrupt)
	}
	f.completeResult(cancelResult)
	return true
}

// completeResult 以终态结果完成 Future。首次生效，返回是否生效。
func (f *Future[R]) completeResult(r *Result[R]) bool {
	f.mu.Lock()
	if f.result != nil {
		f.mu.Unlock()
		return false
	}
	f.result = r
	callbacks := f.onDone
	f.onDone = nil
	close(f.done)
	f.mu.Unlock()

	for _, fn := range callbacks {
		fn(r)
	}
	return true
}

// whenDone 注册内部完成回调。
func (f *Future[R]) whenDone(fn func(*Result[R])) {
	f.mu.Lock()
	if f.result != nil {
		r := f.result
		f.mu.Unlock()
		fn(r)
		return
	}
	f.onDone = append(f.onDone, fn)
	f.mu.Unlock()
}

// injectCancelFn 注册指定位置的取消函数。
// 同一位置的后续注册覆盖前者（每个策略层同一时刻至多守护一个挂起任务）。
// Future 已取消时立即执行传入的取消函数。
func (f *Future[R]) injectCancelFn(policyIndex int, fn cancelFn[R]) {
	f.mu.Lock()
	if f.cancelled {
		r := f.result
		f.mu.Unlock()
		if r == nil {
			r = FailureResult[R](context.Canceled)
		}
		fn(false, r)
		return
	}
	f.cancelFns[policyIndex] = fn
	f.mu.Unlock()
}

// injectStage 注入用户返回的底层 stage，取消时随 Future 一并取消。
func (f *Future[R]) injectStage(s Stage[R]) {
	f.mu.Lock()
	cancelled := f.cancelled
	f.stage = s
	f.mu.Unlock()
	if cancelled && s != nil {
		s.Cancel(false)
	}
}
