package xexec

import "errors"

// 参数校验错误
var (
	// ErrNoPolicies 未提供任何策略
	ErrNoPolicies = errors.New("xexec: at least one policy is required")

	// ErrNilPolicy 传入的策略为 nil
	ErrNilPolicy = errors.New("xexec: policy cannot be nil")

	// ErrNilFunc 传入的操作函数为 nil
	ErrNilFunc = errors.New("xexec: function cannot be nil")

	// ErrNilContext 传入的 context 为 nil
	ErrNilContext = errors.New("xexec: context cannot be nil")

	// ErrNilScheduler 传入的调度器为 nil
	ErrNilScheduler = errors.New("xexec: scheduler cannot be nil")

	// ErrSchedulerClosed 调度器已关闭，无法提交新任务
	ErrSchedulerClosed = errors.New("xexec: scheduler is closed")

	// ErrExecutionCompleted 执行已终结，不再接受记录
	ErrExecutionCompleted = errors.New("xexec: execution is already complete")
)
