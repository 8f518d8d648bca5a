package xconf

import (
	"fmt"
	"strings"

	"github.com/omeyang/xsafe/pkg/resilience/xbreaker"
	"github.com/omeyang/xsafe/pkg/resilience/xbulkhead"
	"github.com/omeyang/xsafe/pkg/resilience/xexec"
	"github.com/omeyang/xsafe/pkg/resilience/xlimit"
	"github.com/omeyang/xsafe/pkg/resilience/xretry"
	"github.com/omeyang/xsafe/pkg/resilience/xtimeout"
)

// 策略名
const (
	PolicyRetry     = "retry"
	PolicyBreaker   = "breaker"
	PolicyTimeout   = "timeout"
	PolicyBulkhead  = "bulkhead"
	PolicyRateLimit = "rate_limit"
)

// defaultOrder 缺省的外到内组合顺序：
// 限流与舱壁最外（尽早拒绝），重试包住熔断与超时。
var defaultOrder = []string{PolicyRateLimit, PolicyBulkhead, PolicyRetry, PolicyBreaker, PolicyTimeout}

// Build 按配置构建外到内排序的策略栈。
// Order 为空时按缺省顺序排列已配置的策略；
// Order 引用未配置的策略或未知策略名时返回错误。
func Build[R any](cfg *Config) ([]xexec.Policy[R], error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	order := cfg.Order
	if len(order) == 0 {
		for _, name := range defaultOrder {
			if cfg.configured(name) {
				order = append(order, name)
			}
		}
	}

	policies := make([]xexec.Policy[R], 0, len(order))
	for _, name := range order {
		p, err := buildOne[R](cfg, strings.ToLower(strings.TrimSpace(name)))
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, nil
}

// configured 返回指定策略是否有配置块。
func (c *Config) configured(name string) bool {
	switch name {
	case PolicyRetry:
		return c.Retry != nil
	case PolicyBreaker:
		return c.Breaker != nil
	case PolicyTimeout:
		return c.Timeout != nil
	case PolicyBulkhead:
		return c.Bulkhead != nil
	case PolicyRateLimit:
		return c.RateLimit != nil
	default:
		return false
	}
}

func buildOne[R any](cfg *Config, name string) (xexec.Policy[R], error) {
	switch name {
	case PolicyRetry:
		if cfg.Retry == nil {
			return nil, fmt.Errorf("%w: %s", ErrPolicyNotConfigured, name)
		}
		return buildRetry[R](cfg.Retry), nil
	case PolicyBreaker:
		if cfg.Breaker == nil {
			return nil, fmt.Errorf("%w: %s", ErrPolicyNotConfigured, name)
		}
		return buildBreaker[R](cfg.Breaker), nil
	case PolicyTimeout:
		if cfg.Timeout == nil {
			return nil, fmt.Errorf("%w: %s", ErrPolicyNotConfigured, name)
		}
		return xtimeout.New[R](cfg.Timeout.Duration, timeoutOpts[R](cfg.Timeout)...), nil
	case PolicyBulkhead:
		if cfg.Bulkhead == nil {
			return nil, fmt.Errorf("%w: %s", ErrPolicyNotConfigured, name)
		}
		return buildBulkhead[R](cfg.Bulkhead), nil
	case PolicyRateLimit:
		if cfg.RateLimit == nil {
			return nil, fmt.Errorf("%w: %s", ErrPolicyNotConfigured, name)
		}
		return buildRateLimit[R](cfg.RateLimit), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

func buildRetry[R any](c *RetryConfig) xexec.Policy[R] {
	opts := []xretry.Option[R]{xretry.WithMaxRetries[R](c.MaxRetries)}
	if c.BackoffInitial > 0 {
		multiplier := c.BackoffMultiplier
		if multiplier < 1 {
			multiplier = 2.0
		}
		maxDelay := c.BackoffMax
		if maxDelay < c.BackoffInitial {
			maxDelay = c.BackoffInitial
		}
		opts = append(opts, xretry.WithBackoff[R](c.BackoffInitial, maxDelay, multiplier))
	} else if c.Delay > 0 {
		opts = append(opts, xretry.WithDelay[R](c.Delay))
	}
	if c.JitterFactor > 0 {
		opts = append(opts, xretry.WithJitterFactor[R](c.JitterFactor))
	}
	if c.MaxDuration > 0 {
		opts = append(opts, xretry.WithMaxDuration[R](c.MaxDuration))
	}
	return xretry.New[R](opts...)
}

func buildBreaker[R any](c *BreakerConfig) xexec.Policy[R] {
	var opts []xbreaker.Option[R]
	if c.FailureThreshold > 0 {
		capacity := c.FailureCapacity
		if capacity < c.FailureThreshold {
			capacity = c.FailureThreshold
		}
		opts = append(opts, xbreaker.WithFailureThresholdRatio[R](c.FailureThreshold, capacity))
	}
	if c.SuccessThreshold > 0 {
		capacity := c.SuccessCapacity
		if capacity < c.SuccessThreshold {
			capacity = c.SuccessThreshold
		}
		opts = append(opts, xbreaker.WithSuccessThresholdRatio[R](c.SuccessThreshold, capacity))
	}
	if c.Delay > 0 {
		opts = append(opts, xbreaker.WithDelay[R](c.Delay))
	}
	if c.SlowCallThreshold > 0 {
		opts = append(opts, xbreaker.WithSlowCallThreshold[R](c.SlowCallThreshold))
	}
	return xbreaker.New[R](opts...)
}

func timeoutOpts[R any](c *TimeoutConfig) []xtimeout.Option[R] {
	var opts []xtimeout.Option[R]
	if c.Interrupt {
		opts = append(opts, xtimeout.WithInterrupt[R]())
	}
	return opts
}

func buildBulkhead[R any](c *BulkheadConfig) xexec.Policy[R] {
	var opts []xbulkhead.Option[R]
	if c.MaxWaitTime > 0 {
		opts = append(opts, xbulkhead.WithMaxWaitTime[R](c.MaxWaitTime))
	}
	return xbulkhead.New[R](c.Capacity, opts...)
}

func buildRateLimit[R any](c *RateLimitConfig) xexec.Policy[R] {
	var opts []xlimit.Option[R]
	if c.MaxWaitTime > 0 {
		opts = append(opts, xlimit.WithMaxWaitTime[R](c.MaxWaitTime))
	}
	if strings.EqualFold(c.Mode, "bursty") {
		return xlimit.Bursty[R](c.MaxExecutions, c.Period, opts...)
	}
	return xlimit.Smooth[R](c.MaxExecutions, c.Period, opts...)
}
