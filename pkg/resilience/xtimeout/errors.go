package xtimeout

import (
	"errors"
	"fmt"
	"time"
)

// ExceededError 尝试超出时限时的错误。
type ExceededError struct {
	// Timeout 配置的时限
	Timeout time.Duration
}

// Error 实现 error 接口
func (e *ExceededError) Error() string {
	return fmt.Sprintf("xtimeout: attempt exceeded timeout of %s", e.Timeout)
}

// IsExceeded 检查错误是否为超时失败。
func IsExceeded(err error) bool {
	var te *ExceededError
	return errors.As(err, &te)
}
