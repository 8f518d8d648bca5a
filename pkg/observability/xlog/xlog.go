package xlog

import (
	"context"
	"log/slog"
)

// Logger 日志接口。
//
// 所有方法都需要 context.Context 参数，确保追踪信息正确传播。
// 方法签名只接受 slog.Attr，保证类型安全。
type Logger interface {
	// Debug 记录 Debug 级别日志
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)

	// Info 记录 Info 级别日志
	Info(ctx context.Context, msg string, attrs ...slog.Attr)

	// Warn 记录 Warn 级别日志
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)

	// Error 记录 Error 级别日志
	Error(ctx context.Context, msg string, attrs ...slog.Attr)

	// With 返回带额外属性的派生 Logger。
	// 派生 Logger 共享父级的动态级别。
	With(attrs ...slog.Attr) Logger
}

// Leveler 级别控制接口。
// 与 Logger 分离，避免污染核心日志接口。
type Leveler interface {
	// SetLevel 动态设置日志级别，运行时生效
	SetLevel(level slog.Level)

	// GetLevel 获取当前日志级别
	GetLevel() slog.Level

	// Enabled 检查指定级别是否启用
	Enabled(ctx context.Context, level slog.Level) bool
}

// LoggerWithLevel 组合接口：Logger + Leveler。
// Build 返回此接口，避免业务代码频繁类型断言。
type LoggerWithLevel interface {
	Logger
	Leveler
}

// Discard 返回丢弃所有日志的 Logger，用于默认值与测试。
func Discard() LoggerWithLevel {
	lv := new(slog.LevelVar)
	return &xlogger{
		handler:  slog.DiscardHandler,
		levelVar: lv,
	}
}
