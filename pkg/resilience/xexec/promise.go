package xexec

import "sync"

// Promise 一次性完成的内部承诺。
//
// 策略执行器的异步链路通过 Promise 传递尝试结果：
// 首次 Complete 生效，后续调用被忽略；回调在完成后立即触发，
// 完成前注册的回调在完成时触发。
//
// 以 nil 结果完成的 Promise 是 NULL_FUTURE 哨兵：表示本次尝试的
// 结果将稍后通过 AsyncExecution.Record 从带外到达。
type Promise[R any] struct {
	mu        sync.Mutex
	completed bool
	result    *Result[R]
	callbacks []func(*Result[R])
}

// NewPromise 创建未完成的 Promise。
func NewPromise[R any]() *Promise[R] {
	return &Promise[R]{}
}

// CompletedPromise 创建已完成的 Promise。
// r 为 nil 时即 NULL_FUTURE 哨兵。
func CompletedPromise[R any](r *Result[R]) *Promise[R] {
	return &Promise[R]{completed: true, result: r}
}

// Complete 完成 Promise。首次调用生效并返回 true；重复调用被忽略。
func (p *Promise[R]) Complete(r *Result[R]) bool {
	p.mu.Lock()
	if p.completed {
		p.mu.Unlock()
		return false
	}
	p.completed = true
	p.result = r
	callbacks := p.callbacks
	p.callbacks = nil
	p.mu.Unlock()

	for _, fn := range callbacks {
		fn(r)
	}
	return true
}

// IsCompleted 返回 Promise 是否已完成。
func (p *Promise[R]) IsCompleted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed
}

// WhenComplete 注册完成回调。
// 已完成的 Promise 在当前 goroutine 上立即触发回调。
func (p *Promise[R]) WhenComplete(fn func(*Result[R])) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	if p.completed {
		r := p.result
		p.mu.Unlock()
		fn(r)
		return
	}
	p.callbacks = append(p.callbacks, fn)
	p.mu.Unlock()
}
