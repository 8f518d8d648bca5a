package xbreaker

import "errors"

// OpenError 熔断器拒绝执行时的错误。
// 外层策略（重试、降级）可以像普通失败一样对其分类。
type OpenError struct {
	// State 拒绝发生时的熔断器状态（Open 或许可耗尽的 HalfOpen）
	State State
}

// Error 实现 error 接口
func (e *OpenError) Error() string {
	return "xbreaker: circuit breaker is " + e.State.String()
}

// IsOpen 检查错误是否为熔断器拒绝。
//
// 示例:
//
//	result, err := xexec.With[string](cb).Get(fn)
//	if xbreaker.IsOpen(err) {
//	    return cachedValue, nil
//	}
func IsOpen(err error) bool {
	var oe *OpenError
	return errors.As(err, &oe)
}
