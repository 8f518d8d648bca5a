package xfallback

import (
	"errors"

	"github.com/omeyang/xsafe/pkg/resilience/xexec"
)

// 确保 *Fallback 实现 Policy 接口
var _ xexec.Policy[any] = (*Fallback[any])(nil)

// FallbackFunc 降级函数：输入失败时的 (value, err)，返回替代结果。
// 返回非 nil 错误表示以替代失败终结。
type FallbackFunc[R any] func(value R, err error) (R, error)

// Fallback 降级策略。无状态，可跨执行共享。
type Fallback[R any] struct {
	fn FallbackFunc[R]

	handleErrors []error
	handleIf     func(value R, err error) bool

	onFailedAttempt func(attempt int, err error)
}

// Option 降级策略配置选项
type Option[R any] func(*Fallback[R])

// HandleErrors 追加失败分类错误：只有匹配（errors.Is）的失败才会被降级。
// 配置任意分类器后，默认的"有错误即降级"规则不再生效。
func HandleErrors[R any](errs ...error) Option[R] {
	return func(f *Fallback[R]) {
		f.handleErrors = append(f.handleErrors, errs...)
	}
}

// HandleIf 设置失败分类谓词。
func HandleIf[R any](fn func(value R, err error) bool) Option[R] {
	return func(f *Fallback[R]) {
		if fn != nil {
			f.handleIf = fn
		}
	}
}

// OnFailedAttempt 设置降级触发回调，在降级函数运行前触发。
func OnFailedAttempt[R any](fn func(attempt int, err error)) Option[R] {
	return func(f *Fallback[R]) {
		if fn != nil {
			f.onFailedAttempt = fn
		}
	}
}

// Of 以固定替代值创建降级策略。
func Of[R any](value R, opts ...Option[R]) *Fallback[R] {
	return OfFunc(func(R, error) (R, error) {
		return value, nil
	}, opts...)
}

// OfError 以固定替代失败创建降级策略。
func OfError[R any](err error, opts ...Option[R]) *Fallback[R] {
	return OfFunc(func(R, error) (R, error) {
		var zero R
		return zero, err
	}, opts...)
}

// OfFunc 以降级函数创建降级策略。fn 为 nil 时降级为零值成功。
func OfFunc[R any](fn FallbackFunc[R], opts ...Option[R]) *Fallback[R] {
	if fn == nil {
		fn = func(R, error) (R, error) {
			var zero R
			return zero, nil
		}
	}
	f := &Fallback[R]{fn: fn}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ToExecutor 实现 xexec.Policy。
func (f *Fallback[R]) ToExecutor(policyIndex int) xexec.Executor[R] {
	e := &fallbackExecutor[R]{policy: f}
	e.BaseExecutor = xexec.NewBaseExecutor[R](policyIndex, e)
	return e
}

// isFailure 按分类器判定结果是否需要降级。
func (f *Fallback[R]) isFailure(value R, err error) bool {
	if len(f.handleErrors) == 0 && f.handleIf == nil {
		return err != nil
	}
	for _, target := range f.handleErrors {
		if err != nil && errors.Is(err, target) {
			return true
		}
	}
	return f.handleIf != nil && f.handleIf(value, err)
}

// fallbackExecutor Fallback 的策略执行器
type fallbackExecutor[R any] struct {
	*xexec.BaseExecutor[R]
	policy *Fallback[R]
}

func (e *fallbackExecutor[R]) IsFailure(r *xexec.Result[R]) bool {
	return r != nil && e.policy.isFailure(r.Value(), r.Error())
}

// OnFailure 调用降级函数，以完整的替代结果终结。
func (e *fallbackExecutor[R]) OnFailure(exec *xexec.Execution[R], r *xexec.Result[R]) *xexec.Result[R] {
	if e.policy.onFailedAttempt != nil {
		e.policy.onFailedAttempt(exec.Attempts(), r.Error())
	}
	value, err := e.policy.fn(r.Value(), r.Error())
	if err != nil {
		return xexec.FailureResult[R](err)
	}
	return xexec.SuccessResult(value)
}
