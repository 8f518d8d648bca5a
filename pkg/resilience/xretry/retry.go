package xretry

import (
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/omeyang/xsafe/pkg/resilience/xexec"
)

// Unlimited 表示不限制重试次数。
const Unlimited = -1

// 确保 *RetryPolicy 实现 Policy 接口
var _ xexec.Policy[any] = (*RetryPolicy[any])(nil)

// RetryPolicy 重试策略。
//
// 无状态：每次执行的失败尝试计数由该次执行创建的执行器携带，策略对象可跨执行共享。
// 默认配置：至多 2 次重试（3 次尝试），无延迟，任何错误都算失败。
type RetryPolicy[R any] struct {
	maxRetries   int
	delay        time.Duration
	delayFn      func(attempt int, lastErr error) time.Duration
	backoff      BackoffPolicy
	jitterFactor float64
	jitter       time.Duration
	maxDuration  time.Duration

	handleErrors  []error
	handleIf      func(value R, err error) bool
	handleResults []R
	abortErrors   []error
	abortIf       func(value R, err error) bool

	onRetry           func(attempt int, err error)
	onRetriesExceeded func(attempt int, err error)
	onAbort           func(attempt int, err error)
}

// Option 重试策略配置选项
type Option[R any] func(*RetryPolicy[R])

// WithMaxRetries 设置最大重试次数（不含首次尝试）。
// 传入 Unlimited 表示不限次数。
func WithMaxRetries[R any](n int) Option[R] {
	return func(p *RetryPolicy[R]) {
		if n < 0 {
			n = Unlimited
		}
		p.maxRetries = n
	}
}

// WithMaxAttempts 设置最大尝试次数（含首次尝试）。
// 传入 Unlimited 表示不限次数。
func WithMaxAttempts[R any](n int) Option[R] {
	return func(p *RetryPolicy[R]) {
		if n <= 0 {
			p.maxRetries = Unlimited
			return
		}
		p.maxRetries = n - 1
	}
}

// WithDelay 设置固定重试延迟。
func WithDelay[R any](d time.Duration) Option[R] {
	return func(p *RetryPolicy[R]) {
		if d > 0 {
			p.delay = d
		}
	}
}

// WithBackoff 设置指数退避：首次 initial，逐次乘 multiplier，上限 maxDelay。
func WithBackoff[R any](initial, maxDelay time.Duration, multiplier float64) Option[R] {
	return func(p *RetryPolicy[R]) {
		p.backoff = ExponentialBackoff(initial, maxDelay, multiplier)
	}
}

// WithBackoffPolicy 设置自定义退避策略。
func WithBackoffPolicy[R any](b BackoffPolicy) Option[R] {
	return func(p *RetryPolicy[R]) {
		if b != nil {
			p.backoff = b
		}
	}
}

// WithDelayFunc 设置按次计算的延迟函数，优先级高于固定延迟与退避策略。
// attempt 从 1 开始，lastErr 为本次失败原因。
func WithDelayFunc[R any](fn func(attempt int, lastErr error) time.Duration) Option[R] {
	return func(p *RetryPolicy[R]) {
		if fn != nil {
			p.delayFn = fn
		}
	}
}

// WithJitterFactor 设置比例抖动因子（0-1）：
// 延迟均匀分布于 [d·(1−j), d·(1+j)]。
func WithJitterFactor[R any](j float64) Option[R] {
	return func(p *RetryPolicy[R]) {
		if j < 0 {
			j = 0
		} else if j > 1 {
			j = 1
		}
		p.jitterFactor = j
	}
}

// WithJitter 设置绝对抖动：延迟均匀分布于 [d−jitter, d+jitter]，下限 0。
func WithJitter[R any](jitter time.Duration) Option[R] {
	return func(p *RetryPolicy[R]) {
		if jitter > 0 {
			p.jitter = jitter
		}
	}
}

// WithMaxDuration 设置整次调用的时长预算：
// 超出后不再重试，剩余不足一个延迟时延迟被截短。
func WithMaxDuration[R any](d time.Duration) Option[R] {
	return func(p *RetryPolicy[R]) {
		if d > 0 {
			p.maxDuration = d
		}
	}
}

// HandleErrors 追加失败分类错误：匹配（errors.Is）任一即视为失败。
// 配置任意分类器后，默认的"有错误即失败"规则不再生效。
func HandleErrors[R any](errs ...error) Option[R] {
	return func(p *RetryPolicy[R]) {
		p.handleErrors = append(p.handleErrors, errs...)
	}
}

// HandleIf 设置失败分类谓词。
func HandleIf[R any](fn func(value R, err error) bool) Option[R] {
	return func(p *RetryPolicy[R]) {
		if fn != nil {
			p.handleIf = fn
		}
	}
}

// HandleResult 追加失败分类结果值：返回值与之深度相等即视为失败。
func HandleResult[R any](value R) Option[R] {
	return func(p *RetryPolicy[R]) {
		p.handleResults = append(p.handleResults, value)
	}
}

// AbortOnErrors 追加终止分类错误：匹配任一立即终止，不再重试。
func AbortOnErrors[R any](errs ...error) Option[R] {
	return func(p *RetryPolicy[R]) {
		p.abortErrors = append(p.abortErrors, errs...)
	}
}

// AbortIf 设置终止分类谓词。
func AbortIf[R any](fn func(value R, err error) bool) Option[R] {
	return func(p *RetryPolicy[R]) {
		if fn != nil {
			p.abortIf = fn
		}
	}
}

// OnRetry 设置重试回调，在每次调度重试前触发。
func OnRetry[R any](fn func(attempt int, err error)) Option[R] {
	return func(p *RetryPolicy[R]) {
		if fn != nil {
			p.onRetry = fn
		}
	}
}

// OnRetriesExceeded 设置预算耗尽回调。
func OnRetriesExceeded[R any](fn func(attempt int, err error)) Option[R] {
	return func(p *RetryPolicy[R]) {
		if fn != nil {
			p.onRetriesExceeded = fn
		}
	}
}

// OnAbort 设置强制终止回调。
func OnAbort[R any](fn func(attempt int, err error)) Option[R] {
	return func(p *RetryPolicy[R]) {
		if fn != nil {
			p.onAbort = fn
		}
	}
}

// New 创建重试策略。
// 默认：2 次重试、无延迟、任何错误都算失败。
func New[R any](opts ...Option[R]) *RetryPolicy[R] {
	p := &RetryPolicy[R]{maxRetries: 2}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxRetries 返回最大重试次数，Unlimited 表示不限。
func (p *RetryPolicy[R]) MaxRetries() int {
	return p.maxRetries
}

// MaxDuration 返回整次调用的时长预算，0 表示不限。
func (p *RetryPolicy[R]) MaxDuration() time.Duration {
	return p.maxDuration
}

// ToExecutor 实现 xexec.Policy。
func (p *RetryPolicy[R]) ToExecutor(policyIndex int) xexec.Executor[R] {
	e := &retryExecutor[R]{policy: p}
	e.BaseExecutor = xexec.NewBaseExecutor[R](policyIndex, e)
	return e
}

// isFailure 按分类器判定结果是否算失败。
// 未配置任何分类器时，有错误即失败。
func (p *RetryPolicy[R]) isFailure(value R, err error) bool {
	if len(p.handleErrors) == 0 && p.handleIf == nil && len(p.handleResults) == 0 {
		return err != nil
	}
	for _, target := range p.handleErrors {
		if err != nil && errors.Is(err, target) {
			return true
		}
	}
	for _, rv := range p.handleResults {
		if err == nil && reflect.DeepEqual(value, rv) {
			return true
		}
	}
	if p.handleIf != nil && p.handleIf(value, err) {
		return true
	}
	return false
}

// isAbort 判定结果是否触发强制终止。默认不终止。
func (p *RetryPolicy[R]) isAbort(value R, err error) bool {
	for _, target := range p.abortErrors {
		if err != nil && errors.Is(err, target) {
			return true
		}
	}
	return p.abortIf != nil && p.abortIf(value, err)
}

// nextDelay 计算下一次重试的基础延迟并施加抖动。
func (p *RetryPolicy[R]) nextDelay(attempt int, lastErr error) time.Duration {
	var d time.Duration
	switch {
	case p.delayFn != nil:
		d = p.delayFn(attempt, lastErr)
	case p.backoff != nil:
		d = p.backoff.NextDelay(attempt)
	default:
		d = p.delay
	}
	if d < 0 {
		d = 0
	}
	if p.jitterFactor > 0 {
		d = time.Duration(float64(d) * (1 + (randomFloat64()*2-1)*p.jitterFactor))
	} else if p.jitter > 0 {
		d += time.Duration((randomFloat64()*2 - 1) * float64(p.jitter))
	}
	if d < 0 {
		d = 0
	}
	return d
}

// retryExecutor RetryPolicy 的策略执行器。
// 执行器随每次调用创建，failedAttempts 是本次调用的本地失败计数：
// 与执行上下文的尝试计数不同，它把准入拒绝（未真正运行操作的尝试）
// 也计入预算，保证被持续拒绝的调用同样会耗尽而终结。
type retryExecutor[R any] struct {
	*xexec.BaseExecutor[R]
	policy *RetryPolicy[R]

	mu             sync.Mutex
	failedAttempts int
}

func (e *retryExecutor[R]) IsFailure(r *xexec.Result[R]) bool {
	return r != nil && e.policy.isFailure(r.Value(), r.Error())
}

// OnFailure 决定终止还是请求重试：
//  1. 命中终止分类 → 完整且强制终止
//  2. 尝试或时长预算耗尽 → 完整
//  3. 否则计算延迟（抖动后截到剩余时长预算内），返回重试请求
func (e *retryExecutor[R]) OnFailure(exec *xexec.Execution[R], r *xexec.Result[R]) *xexec.Result[R] {
	p := e.policy
	e.mu.Lock()
	e.failedAttempts++
	attempt := e.failedAttempts
	e.mu.Unlock()

	if p.isAbort(r.Value(), r.Error()) {
		if p.onAbort != nil {
			p.onAbort(attempt, r.Error())
		}
		return r.WithAbort()
	}

	elapsed := exec.ElapsedTime()
	if (p.maxRetries != Unlimited && attempt >= p.maxRetries+1) ||
		(p.maxDuration > 0 && elapsed >= p.maxDuration) {
		if p.onRetriesExceeded != nil {
			p.onRetriesExceeded(attempt, r.Error())
		}
		return r.WithComplete()
	}

	d := p.nextDelay(attempt, r.Error())
	if p.maxDuration > 0 && d > p.maxDuration-elapsed {
		d = p.maxDuration - elapsed
		if d < 0 {
			d = 0
		}
	}
	if p.onRetry != nil {
		p.onRetry(attempt, r.Error())
	}
	return r.WithDelay(d).WithNotComplete()
}
