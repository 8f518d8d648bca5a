package xretry

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	"time"
)

// BackoffPolicy 退避策略：给出第 attempt 次尝试失败后的重试延迟。
// attempt 从 1 开始计数。
type BackoffPolicy interface {
	// NextDelay 返回下一次重试前的延迟
	NextDelay(attempt int) time.Duration
}

// backoffFunc 函数式退避策略
type backoffFunc func(attempt int) time.Duration

func (f backoffFunc) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return f(attempt)
}

// NoBackoff 无延迟退避。
func NoBackoff() BackoffPolicy {
	return backoffFunc(func(int) time.Duration { return 0 })
}

// FixedBackoff 固定延迟退避。负值按 0 处理。
func FixedBackoff(delay time.Duration) BackoffPolicy {
	if delay < 0 {
		delay = 0
	}
	return backoffFunc(func(int) time.Duration { return delay })
}

// LinearBackoff 线性退避：delay = initial + increment·(attempt−1)，
// 上限 maxDelay。
func LinearBackoff(initial, increment, maxDelay time.Duration) BackoffPolicy {
	if initial < 0 {
		initial = 0
	}
	if increment < 0 {
		increment = 0
	}
	if maxDelay < initial {
		maxDelay = initial
	}
	return backoffFunc(func(attempt int) time.Duration {
		// 溢出前判定：乘数超过可用余量时直接封顶
		if increment > 0 && attempt > 1 {
			if time.Duration(attempt-1) > (maxDelay-initial)/increment {
				return maxDelay
			}
		}
		d := initial + increment*time.Duration(attempt-1)
		if d > maxDelay {
			return maxDelay
		}
		return d
	})
}

// ExponentialBackoff 指数退避：delay = initial·multiplier^(attempt−1)，
// 上限 maxDelay。multiplier 小于 1 时按 2.0 处理。
func ExponentialBackoff(initial, maxDelay time.Duration, multiplier float64) BackoffPolicy {
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	if maxDelay < initial {
		maxDelay = initial
	}
	if multiplier < 1 {
		multiplier = 2.0
	}
	return backoffFunc(func(attempt int) time.Duration {
		d := float64(initial) * math.Pow(multiplier, float64(attempt-1))
		// attempt 极大时 math.Pow 溢出为 +Inf；NaN 的比较全为 false，
		// 会绕过上限判断，这里一并封顶
		if math.IsNaN(d) || d < 0 || d >= float64(maxDelay) {
			return maxDelay
		}
		return time.Duration(d)
	})
}

const (
	floatBits  = 53
	floatScale = 1.0 / (1 << floatBits)
)

// randomFloat64 返回 [0, 1) 内的随机数，用于抖动计算。
// crypto/rand 读取失败时返回 0，等价于无抖动。
func randomFloat64() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return float64(binary.LittleEndian.Uint64(buf[:])>>11) * floatScale
}
