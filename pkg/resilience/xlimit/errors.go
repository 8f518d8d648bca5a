package xlimit

import "errors"

// ExceededError 超出限流配额时的错误。
type ExceededError struct{}

// Error 实现 error 接口
func (e *ExceededError) Error() string {
	return "xlimit: rate limit exceeded"
}

// IsExceeded 检查错误是否为限流拒绝。
func IsExceeded(err error) bool {
	var re *ExceededError
	return errors.As(err, &re)
}
