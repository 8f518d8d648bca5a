package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format 配置格式
type Format string

const (
	// FormatYAML YAML 格式
	FormatYAML Format = "yaml"
	// FormatJSON JSON 格式
	FormatJSON Format = "json"
)

// configRoot 配置根节点
const configRoot = "resilience"

// Config 策略栈配置。
// 各策略块为 nil 表示未配置；Order 给出外到内的组合顺序，
// 缺省时按已配置策略的默认顺序排列。
type Config struct {
	Order     []string         `koanf:"order"`
	Retry     *RetryConfig     `koanf:"retry"`
	Breaker   *BreakerConfig   `koanf:"breaker"`
	Timeout   *TimeoutConfig   `koanf:"timeout"`
	Bulkhead  *BulkheadConfig  `koanf:"bulkhead"`
	RateLimit *RateLimitConfig `koanf:"rate_limit"`
}

// RetryConfig 重试策略配置
type RetryConfig struct {
	MaxRetries        int           `koanf:"max_retries"`
	Delay             time.Duration `koanf:"delay"`
	BackoffInitial    time.Duration `koanf:"backoff_initial"`
	BackoffMax        time.Duration `koanf:"backoff_max"`
	BackoffMultiplier float64       `koanf:"backoff_multiplier"`
	JitterFactor      float64       `koanf:"jitter_factor"`
	MaxDuration       time.Duration `koanf:"max_duration"`
}

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	FailureThreshold  int           `koanf:"failure_threshold"`
	FailureCapacity   int           `koanf:"failure_capacity"`
	SuccessThreshold  int           `koanf:"success_threshold"`
	SuccessCapacity   int           `koanf:"success_capacity"`
	Delay             time.Duration `koanf:"delay"`
	SlowCallThreshold time.Duration `koanf:"slow_call_threshold"`
}

// TimeoutConfig 超时策略配置
type TimeoutConfig struct {
	Duration  time.Duration `koanf:"duration"`
	Interrupt bool          `koanf:"interrupt"`
}

// BulkheadConfig 舱壁配置
type BulkheadConfig struct {
	Capacity    int           `koanf:"capacity"`
	MaxWaitTime time.Duration `koanf:"max_wait_time"`
}

// RateLimitConfig 限流配置。Mode 为 smooth 或 bursty，默认 smooth。
type RateLimitConfig struct {
	Mode          string        `koanf:"mode"`
	MaxExecutions int           `koanf:"max_executions"`
	Period        time.Duration `koanf:"period"`
	MaxWaitTime   time.Duration `koanf:"max_wait_time"`
}

// Load 从文件加载配置。
// 根据扩展名检测格式（.yaml / .yml / .json）。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	var format Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	case ".json":
		format = FormatJSON
	default:
		return nil, ErrUnsupportedFormat
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return LoadBytes(data, format)
}

// LoadBytes 从字节数据加载配置，需显式指定格式。
// 适用于内嵌配置与 ConfigMap 场景。
func LoadBytes(data []byte, format Format) (*Config, error) {
	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = kyaml.Parser()
	case FormatJSON:
		parser = kjson.Parser()
	default:
		return nil, ErrUnsupportedFormat
	}

	k := koanf.New(".")
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
		}
	}

	cfg := &Config{}
	if err := k.UnmarshalWithConf(configRoot, cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return cfg, nil
}
