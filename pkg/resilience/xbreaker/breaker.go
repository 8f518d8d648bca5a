package xbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/omeyang/xsafe/pkg/resilience/xexec"
)

// 确保 *CircuitBreaker 实现 Policy 接口
var _ xexec.Policy[any] = (*CircuitBreaker[any])(nil)

// CircuitBreaker 熔断器策略。
//
// 有状态且并发安全，跨执行共享。状态转换见包文档。
// 也可脱离执行引擎手动使用：AllowsExecution 做准入检查，
// RecordSuccess / RecordFailure 回填结果。
type CircuitBreaker[R any] struct {
	failureThreshold int
	failureCapacity  int
	successThreshold int
	successCapacity  int
	delay            time.Duration
	slowCallLimit    time.Duration
	clock            xexec.Clock

	handleErrors []error
	handleIf     func(value R, err error) bool

	onStateChange func(StateChange)

	mu       sync.Mutex
	state    State
	stats    *windowStats
	openedAt time.Time
	permits  int
}

// Option 熔断器配置选项
type Option[R any] func(*CircuitBreaker[R])

// WithFailureThreshold 设置计数式失败阈值：
// 最近 m 个结果全部失败时打开熔断器。
func WithFailureThreshold[R any](m int) Option[R] {
	return WithFailureThresholdRatio[R](m, m)
}

// WithFailureThresholdRatio 设置比例式失败阈值：
// 最近 n 个结果中出现 m 个失败时打开熔断器。
func WithFailureThresholdRatio[R any](m, n int) Option[R] {
	return func(b *CircuitBreaker[R]) {
		if m < 1 {
			m = 1
		}
		if n < m {
			n = m
		}
		b.failureThreshold = m
		b.failureCapacity = n
	}
}

// WithSuccessThreshold 设置计数式成功阈值：
// 半开状态下最近 m 个试探全部成功时关闭熔断器。
func WithSuccessThreshold[R any](m int) Option[R] {
	return WithSuccessThresholdRatio[R](m, m)
}

// WithSuccessThresholdRatio 设置比例式成功阈值：
// 半开状态下 n 个试探中 m 个成功时关闭熔断器。
func WithSuccessThresholdRatio[R any](m, n int) Option[R] {
	return func(b *CircuitBreaker[R]) {
		if m < 1 {
			m = 1
		}
		if n < m {
			n = m
		}
		b.successThreshold = m
		b.successCapacity = n
	}
}

// WithDelay 设置 Open → HalfOpen 的恢复延迟，默认 60 秒。
func WithDelay[R any](d time.Duration) Option[R] {
	return func(b *CircuitBreaker[R]) {
		if d > 0 {
			b.delay = d
		}
	}
}

// WithSlowCallThreshold 设置慢调用阈值：
// 尝试耗时达到阈值的成功结果按失败统计。默认不启用。
func WithSlowCallThreshold[R any](d time.Duration) Option[R] {
	return func(b *CircuitBreaker[R]) {
		if d > 0 {
			b.slowCallLimit = d
		}
	}
}

// WithClock 设置时钟，主要用于测试恢复延迟。
func WithClock[R any](clock xexec.Clock) Option[R] {
	return func(b *CircuitBreaker[R]) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// HandleErrors 追加失败分类错误（errors.Is 匹配）。
// 配置任意分类器后，默认的"有错误即失败"规则不再生效。
func HandleErrors[R any](errs ...error) Option[R] {
	return func(b *CircuitBreaker[R]) {
		b.handleErrors = append(b.handleErrors, errs...)
	}
}

// HandleIf 设置失败分类谓词。
func HandleIf[R any](fn func(value R, err error) bool) Option[R] {
	return func(b *CircuitBreaker[R]) {
		if fn != nil {
			b.handleIf = fn
		}
	}
}

// OnStateChange 设置状态变化回调，可用于日志与监控。
// 回调在熔断器锁外触发。
func OnStateChange[R any](fn func(StateChange)) Option[R] {
	return func(b *CircuitBreaker[R]) {
		if fn != nil {
			b.onStateChange = fn
		}
	}
}

// New 创建熔断器。
// 默认配置：单次失败打开、单次试探成功关闭、恢复延迟 60 秒。
func New[R any](opts ...Option[R]) *CircuitBreaker[R] {
	b := &CircuitBreaker[R]{
		failureThreshold: 1,
		failureCapacity:  1,
		successThreshold: 1,
		successCapacity:  1,
		delay:            60 * time.Second,
		clock:            xexec.SystemClock(),
		state:            StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.stats = newWindowStats(b.failureCapacity)
	return b
}

// State 返回当前状态。
func (b *CircuitBreaker[R]) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsClosed 返回熔断器是否处于关闭状态。
func (b *CircuitBreaker[R]) IsClosed() bool {
	return b.State() == StateClosed
}

// IsOpen 返回熔断器是否处于打开状态。
func (b *CircuitBreaker[R]) IsOpen() bool {
	return b.State() == StateOpen
}

// Delay 返回 Open → HalfOpen 的恢复延迟。
func (b *CircuitBreaker[R]) Delay() time.Duration {
	return b.delay
}

// FailureCount 返回当前窗口内的失败数。
func (b *CircuitBreaker[R]) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats.failureCount()
}

// SuccessCount 返回当前窗口内的成功数。
func (b *CircuitBreaker[R]) SuccessCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats.successCount()
}

// ExecutionCount 返回当前窗口内已记录的结果数。
func (b *CircuitBreaker[R]) ExecutionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats.executionCount()
}

// AllowsExecution 返回当前是否放行执行。
// Open 状态下恢复延迟已过时顺带转入 HalfOpen。
func (b *CircuitBreaker[R]) AllowsExecution() bool {
	b.mu.Lock()
	notify := b.allowsExecutionLocked()
	allowed := false
	switch b.state {
	case StateClosed:
		allowed = true
	case StateHalfOpen:
		allowed = b.permits > 0
	}
	b.mu.Unlock()
	b.fireStateChanges(notify)
	return allowed
}

// Open 手动打开熔断器。
func (b *CircuitBreaker[R]) Open() {
	b.mu.Lock()
	notify := b.transitionLocked(StateOpen)
	b.mu.Unlock()
	b.fireStateChanges(notify)
}

// Close 手动关闭熔断器并清空统计。
func (b *CircuitBreaker[R]) Close() {
	b.mu.Lock()
	notify := b.transitionLocked(StateClosed)
	b.mu.Unlock()
	b.fireStateChanges(notify)
}

// HalfOpen 手动转入半开状态。
func (b *CircuitBreaker[R]) HalfOpen() {
	b.mu.Lock()
	notify := b.transitionLocked(StateHalfOpen)
	b.mu.Unlock()
	b.fireStateChanges(notify)
}

// RecordSuccess 记录一次成功结果。
func (b *CircuitBreaker[R]) RecordSuccess() {
	b.record(true)
}

// RecordFailure 记录一次失败结果。
func (b *CircuitBreaker[R]) RecordFailure() {
	b.record(false)
}

// RecordError 按分类器记录一个错误结果。
func (b *CircuitBreaker[R]) RecordError(err error) {
	var zero R
	b.record(!b.isFailure(zero, err))
}

// RecordResult 按分类器记录一个返回值结果。
func (b *CircuitBreaker[R]) RecordResult(value R) {
	b.record(!b.isFailure(value, nil))
}

// ToExecutor 实现 xexec.Policy。
func (b *CircuitBreaker[R]) ToExecutor(policyIndex int) xexec.Executor[R] {
	e := &breakerExecutor[R]{policy: b}
	e.BaseExecutor = xexec.NewBaseExecutor[R](policyIndex, e)
	return e
}

// record 记录结果并按状态机推进。
func (b *CircuitBreaker[R]) record(success bool) {
	b.mu.Lock()
	var notify []StateChange
	switch b.state {
	case StateClosed:
		b.stats.record(success)
		if b.stats.failureCount() >= b.failureThreshold {
			notify = b.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		b.stats.record(success)
		if b.stats.failureCount() > b.successCapacity-b.successThreshold {
			notify = b.transitionLocked(StateOpen)
		} else if b.stats.successCount() >= b.successThreshold {
			notify = b.transitionLocked(StateClosed)
		}
	case StateOpen:
		// 打开期间完成的滞留尝试不参与统计
	}
	b.mu.Unlock()
	b.fireStateChanges(notify)
}

// tryAcquirePermit 准入检查并占用半开试探许可。
func (b *CircuitBreaker[R]) tryAcquirePermit() bool {
	b.mu.Lock()
	notify := b.allowsExecutionLocked()
	ok := false
	switch b.state {
	case StateClosed:
		ok = true
	case StateHalfOpen:
		if b.permits > 0 {
			b.permits--
			ok = true
		}
	}
	b.mu.Unlock()
	b.fireStateChanges(notify)
	return ok
}

// allowsExecutionLocked 在锁内推进 Open → HalfOpen 转换。
func (b *CircuitBreaker[R]) allowsExecutionLocked() []StateChange {
	if b.state == StateOpen && b.clock.Now().Sub(b.openedAt) >= b.delay {
		return b.transitionLocked(StateHalfOpen)
	}
	return nil
}

// transitionLocked 在锁内执行状态转换，返回待通知的变化事件。
func (b *CircuitBreaker[R]) transitionLocked(to State) []StateChange {
	if b.state == to {
		return nil
	}
	from := b.state
	b.state = to
	switch to {
	case StateOpen:
		b.openedAt = b.clock.Now()
	case StateHalfOpen:
		b.stats = newWindowStats(b.successCapacity)
		b.permits = b.successCapacity
	case StateClosed:
		b.stats = newWindowStats(b.failureCapacity)
	}
	return []StateChange{{From: from, To: to}}
}

// fireStateChanges 在锁外触发状态变化回调。
func (b *CircuitBreaker[R]) fireStateChanges(changes []StateChange) {
	if b.onStateChange == nil {
		return
	}
	for _, c := range changes {
		b.onStateChange(c)
	}
}

// isFailure 按分类器判定结果是否算失败。
func (b *CircuitBreaker[R]) isFailure(value R, err error) bool {
	if len(b.handleErrors) == 0 && b.handleIf == nil {
		return err != nil
	}
	for _, target := range b.handleErrors {
		if err != nil && errors.Is(err, target) {
			return true
		}
	}
	return b.handleIf != nil && b.handleIf(value, err)
}

// breakerExecutor CircuitBreaker 的策略执行器
type breakerExecutor[R any] struct {
	*xexec.BaseExecutor[R]
	policy *CircuitBreaker[R]
}

// PreExecute 准入检查：不放行时以 OpenError 短路本次尝试。
func (e *breakerExecutor[R]) PreExecute(_ *xexec.Execution[R]) *xexec.Result[R] {
	if e.policy.tryAcquirePermit() {
		return nil
	}
	return xexec.FailureResult[R](&OpenError{State: e.policy.State()})
}

func (e *breakerExecutor[R]) IsFailure(r *xexec.Result[R]) bool {
	return r != nil && e.policy.isFailure(r.Value(), r.Error())
}

// OnSuccess 记录成功；达到慢调用阈值的成功按失败统计。
func (e *breakerExecutor[R]) OnSuccess(exec *xexec.Execution[R], _ *xexec.Result[R]) {
	if e.policy.slowCallLimit > 0 && exec.ElapsedAttemptTime() >= e.policy.slowCallLimit {
		e.policy.record(false)
		return
	}
	e.policy.record(true)
}

// OnFailure 记录失败并原样放行：熔断器自己不重试也不降级。
func (e *breakerExecutor[R]) OnFailure(_ *xexec.Execution[R], r *xexec.Result[R]) *xexec.Result[R] {
	e.policy.record(false)
	return r
}
