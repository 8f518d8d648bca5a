// Package xconf 提供声明式的策略栈配置。
//
// 基于 koanf 加载 YAML / JSON 配置，反序列化为各策略的配置块，
// 再构建成按外到内排好序的策略栈：
//
//	resilience:
//	  order: [rate_limit, retry, breaker, timeout]
//	  retry:
//	    max_retries: 3
//	    backoff_initial: 100ms
//	    backoff_max: 10s
//	    jitter_factor: 0.25
//	  breaker:
//	    failure_threshold: 3
//	    failure_capacity: 5
//	    delay: 30s
//	  timeout:
//	    duration: 2s
//	    interrupt: true
//	  rate_limit:
//	    mode: bursty
//	    max_executions: 100
//	    period: 1s
//
// 加载与构建：
//
//	cfg, err := xconf.Load("resilience.yaml")
//	policies, err := xconf.Build[string](cfg)
//	runner := xexec.With[string](policies...)
//
// 降级策略需要函数值，不参与声明式配置，由调用方在构建后自行
// 追加到策略栈。配置热加载是明确的非目标，进程重启后生效。
package xconf
