package xlimit

import (
	"sync"
	"time"

	"github.com/omeyang/xsafe/pkg/resilience/xexec"
)

// 确保 *RateLimiter 实现 Policy 接口
var _ xexec.Policy[any] = (*RateLimiter[any])(nil)

// RateLimiter 限流策略。有状态且并发安全，跨执行共享。
// 通过 Smooth 或 Bursty 创建。
type RateLimiter[R any] struct {
	maxWaitTime time.Duration
	clock       xexec.Clock
	onExceeded  func()

	mu    sync.Mutex
	stats limiterStats
}

// Option 限流配置选项
type Option[R any] func(*RateLimiter[R])

// WithMaxWaitTime 设置准入等待上限：许可不足时最多排队等待 d。
// 默认不等待、立即拒绝。
func WithMaxWaitTime[R any](d time.Duration) Option[R] {
	return func(l *RateLimiter[R]) {
		if d > 0 {
			l.maxWaitTime = d
		}
	}
}

// WithClock 设置时钟，主要用于测试窗口推进。
func WithClock[R any](clock xexec.Clock) Option[R] {
	return func(l *RateLimiter[R]) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// OnExceeded 设置限流拒绝回调。
func OnExceeded[R any](fn func()) Option[R] {
	return func(l *RateLimiter[R]) {
		if fn != nil {
			l.onExceeded = fn
		}
	}
}

// Smooth 创建平滑限流器：period 内至多 maxExecutions 次，匀速发放。
// 非正参数按 1 处理。
func Smooth[R any](maxExecutions int, period time.Duration, opts ...Option[R]) *RateLimiter[R] {
	maxExecutions, period = sanitize(maxExecutions, period)
	return newLimiter[R](newSmoothStats(maxExecutions, period), opts)
}

// Bursty 创建突发限流器：每个 period 窗口发放 maxExecutions 个许可。
// 非正参数按 1 处理。
func Bursty[R any](maxExecutions int, period time.Duration, opts ...Option[R]) *RateLimiter[R] {
	maxExecutions, period = sanitize(maxExecutions, period)
	return newLimiter[R](newBurstyStats(maxExecutions, period), opts)
}

func sanitize(maxExecutions int, period time.Duration) (int, time.Duration) {
	if maxExecutions < 1 {
		maxExecutions = 1
	}
	if period <= 0 {
		period = time.Second
	}
	return maxExecutions, period
}

func newLimiter[R any](stats limiterStats, opts []Option[R]) *RateLimiter[R] {
	l := &RateLimiter[R]{
		stats: stats,
		clock: xexec.SystemClock(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TryAcquirePermit 手动获取一个许可，不等待，返回是否成功。
func (l *RateLimiter[R]) TryAcquirePermit() bool {
	delay, ok := l.reservePermit(0)
	return ok && delay == 0
}

// ReservePermit 手动预订一个许可，返回需等待的时长。
// 等待会超过 maxWait 时不预订，返回 ok=false。
func (l *RateLimiter[R]) ReservePermit(maxWait time.Duration) (time.Duration, bool) {
	return l.reservePermit(maxWait)
}

func (l *RateLimiter[R]) reservePermit(maxWait time.Duration) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats.acquireDelay(l.clock.Now(), maxWait)
}

// ToExecutor 实现 xexec.Policy。
func (l *RateLimiter[R]) ToExecutor(policyIndex int) xexec.Executor[R] {
	e := &limiterExecutor[R]{policy: l}
	e.BaseExecutor = xexec.NewBaseExecutor[R](policyIndex, e)
	return e
}

// limiterExecutor RateLimiter 的策略执行器
type limiterExecutor[R any] struct {
	*xexec.BaseExecutor[R]
	policy *RateLimiter[R]
}

// PreExecute 预订许可：超出等待上限立即拒绝；排到的许可
// 在发起尝试的 goroutine 上等待到点。
func (e *limiterExecutor[R]) PreExecute(exec *xexec.Execution[R]) *xexec.Result[R] {
	l := e.policy
	delay, ok := l.reservePermit(l.maxWaitTime)
	if !ok {
		if l.onExceeded != nil {
			l.onExceeded()
		}
		return xexec.FailureResult[R](&ExceededError{})
	}
	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-exec.Context().Done():
			return xexec.FailureResult[R](exec.Context().Err())
		}
	}
	return nil
}
