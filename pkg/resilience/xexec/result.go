package xexec

import (
	"errors"
	"fmt"
	"reflect"
	"time"
)

// Result 单次执行尝试的不可变结果。
//
// value 与 failure 二者只有一个有意义。complete 表示组合管道是否接受
// 此结果为最终结果；success 表示策略是否认为该结果非失败；
// delay 是编排器在下次重试前应等待的时间；abortive 表示无论剩余
// 重试预算如何都强制终止。
//
// Result 一经创建不再修改，策略通过 WithX 系列方法产生副本。
// nil *Result 表示"尚无结果"。
type Result[R any] struct {
	value    R
	err      error
	complete bool
	success  bool
	delay    time.Duration
	abortive bool
}

// SuccessResult 创建成功结果。
// 成功结果默认是完整的（complete=true）。
func SuccessResult[R any](value R) *Result[R] {
	return &Result[R]{
		value:    value,
		complete: true,
		success:  true,
	}
}

// FailureResult 创建失败结果。
// 失败结果默认是完整的，由策略钩子决定是否转为重试请求。
func FailureResult[R any](err error) *Result[R] {
	return &Result[R]{
		err:      err,
		complete: true,
	}
}

// resultOf 根据 (value, err) 构建结果：err 非 nil 视为失败。
func resultOf[R any](value R, err error) *Result[R] {
	if err != nil {
		return FailureResult[R](err)
	}
	return SuccessResult(value)
}

// Value 返回结果值。失败结果返回零值。
func (r *Result[R]) Value() R {
	return r.value
}

// Error 返回失败原因。成功结果返回 nil。
func (r *Result[R]) Error() error {
	return r.err
}

// IsComplete 返回组合管道是否接受此结果为最终结果。
func (r *Result[R]) IsComplete() bool {
	return r.complete
}

// IsSuccess 返回策略是否认为此结果非失败。
func (r *Result[R]) IsSuccess() bool {
	return r.success
}

// Delay 返回下次重试前应等待的时间。
func (r *Result[R]) Delay() time.Duration {
	return r.delay
}

// IsAbortive 返回此结果是否强制终止执行。
func (r *Result[R]) IsAbortive() bool {
	return r.abortive
}

// WithDelay 返回设置了重试等待时间的副本。负值按 0 处理。
func (r *Result[R]) WithDelay(d time.Duration) *Result[R] {
	if d < 0 {
		d = 0
	}
	c := *r
	c.delay = d
	return &c
}

// WithComplete 返回标记为完整的副本。
func (r *Result[R]) WithComplete() *Result[R] {
	c := *r
	c.complete = true
	return &c
}

// WithNotComplete 返回标记为不完整的副本（重试请求）。
func (r *Result[R]) WithNotComplete() *Result[R] {
	c := *r
	c.complete = false
	return &c
}

// WithDone 返回设置了 complete 与 success 标记的副本。
func (r *Result[R]) WithDone(complete, success bool) *Result[R] {
	c := *r
	c.complete = complete
	c.success = success
	return &c
}

// WithAbort 返回标记为强制终止的副本。
func (r *Result[R]) WithAbort() *Result[R] {
	c := *r
	c.abortive = true
	c.complete = true
	return &c
}

// WithFailure 返回标记为失败的副本（success=false），不改变 value/err。
func (r *Result[R]) WithFailure() *Result[R] {
	c := *r
	c.success = false
	return &c
}

// Equal 判断两个结果是否结构相等。
// 值使用 reflect.DeepEqual 比较，错误使用 errors.Is 双向比较。
func (r *Result[R]) Equal(other *Result[R]) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.complete != other.complete || r.success != other.success ||
		r.delay != other.delay || r.abortive != other.abortive {
		return false
	}
	if (r.err == nil) != (other.err == nil) {
		return false
	}
	if r.err != nil && !errors.Is(r.err, other.err) && !errors.Is(other.err, r.err) {
		return false
	}
	return reflect.DeepEqual(r.value, other.value)
}

// String 返回结果的简要描述，用于日志与诊断。
func (r *Result[R]) String() string {
	if r == nil {
		return "Result[none]"
	}
	return fmt.Sprintf("Result[value=%v, err=%v, complete=%t, success=%t, delay=%s, abortive=%t]",
		r.value, r.err, r.complete, r.success, r.delay, r.abortive)
}
