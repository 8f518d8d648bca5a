package xconf

import "errors"

var (
	// ErrEmptyPath 配置文件路径为空
	ErrEmptyPath = errors.New("xconf: config path cannot be empty")

	// ErrUnsupportedFormat 不支持的配置格式
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")

	// ErrLoadFailed 配置加载失败
	ErrLoadFailed = errors.New("xconf: failed to load config")

	// ErrUnmarshalFailed 配置反序列化失败
	ErrUnmarshalFailed = errors.New("xconf: failed to unmarshal config")

	// ErrNilConfig 传入的配置为 nil
	ErrNilConfig = errors.New("xconf: config cannot be nil")

	// ErrUnknownPolicy 策略顺序中出现未知的策略名
	ErrUnknownPolicy = errors.New("xconf: unknown policy name in order")

	// ErrPolicyNotConfigured 策略顺序引用了未配置的策略
	ErrPolicyNotConfigured = errors.New("xconf: policy in order is not configured")
)
