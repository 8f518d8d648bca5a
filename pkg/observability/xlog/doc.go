// Package xlog 提供弹性引擎使用的结构化日志能力。
//
// # 设计理念
//
//   - 强制 context 传递，方便后续接入追踪信息
//   - 基于 log/slog，方法签名只接受 slog.Attr，避免隐式 key-value 转换
//   - 动态级别控制：slog.LevelVar 运行时调整，无需重建 Logger
//   - 可选 lumberjack 滚动输出，适合长驻进程
//
// # 使用方式
//
//	logger, cleanup, err := xlog.Build(
//	    xlog.WithLevel(slog.LevelInfo),
//	    xlog.WithFormat(xlog.FormatJSON),
//	    xlog.WithRotation("/var/log/xsafe.log", 100, 3, 7),
//	)
//	defer cleanup()
//
//	logger.Info(ctx, "执行完成", slog.Int("attempts", 3))
//
// 执行引擎通过 Runner.WithLogger 接入，记录每次调用的终态结果。
package xlog
