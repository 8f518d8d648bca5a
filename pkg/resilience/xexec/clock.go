package xexec

import "time"

// Clock 时间源抽象。
//
// 引擎的所有时间判断（已用时长、熔断恢复、限流窗口）都走 Clock，
// 测试可以注入假时钟获得确定性行为。
type Clock interface {
	// Now 返回当前时间
	Now() time.Time
}

// systemClock 基于 time.Now 的默认时钟
type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock 返回基于 time.Now 的系统时钟。
func SystemClock() Clock {
	return systemClock{}
}
