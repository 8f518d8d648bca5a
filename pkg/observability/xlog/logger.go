package xlog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// 编译时接口检查
var (
	_ Logger          = (*xlogger)(nil)
	_ Leveler         = (*xlogger)(nil)
	_ LoggerWithLevel = (*xlogger)(nil)
)

// Format 输出格式
type Format string

const (
	// FormatJSON JSON 行格式，适合采集
	FormatJSON Format = "json"
	// FormatText 键值对文本格式，适合本地调试
	FormatText Format = "text"
)

// Options 构建选项
type Options struct {
	level     slog.Level
	format    Format
	output    io.Writer
	addSource bool

	rotateFile    string
	rotateSizeMB  int
	rotateBackups int
	rotateAgeDays int
}

// Option 构建选项函数
type Option func(*Options)

// WithLevel 设置初始日志级别，默认 Info。
func WithLevel(level slog.Level) Option {
	return func(o *Options) {
		o.level = level
	}
}

// WithFormat 设置输出格式，默认 JSON。
func WithFormat(f Format) Option {
	return func(o *Options) {
		if f == FormatJSON || f == FormatText {
			o.format = f
		}
	}
}

// WithOutput 设置输出目标，默认 os.Stderr。
// 与 WithRotation 同时设置时以 WithRotation 为准。
func WithOutput(w io.Writer) Option {
	return func(o *Options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithAddSource 记录调用方源码位置。有额外开销，默认关闭。
func WithAddSource() Option {
	return func(o *Options) {
		o.addSource = true
	}
}

// WithRotation 输出到滚动文件。
// maxSizeMB 单文件上限，maxBackups 保留个数，maxAgeDays 保留天数。
func WithRotation(file string, maxSizeMB, maxBackups, maxAgeDays int) Option {
	return func(o *Options) {
		o.rotateFile = file
		o.rotateSizeMB = maxSizeMB
		o.rotateBackups = maxBackups
		o.rotateAgeDays = maxAgeDays
	}
}

// Build 构建 Logger。
// 返回的 cleanup 负责释放输出资源（滚动文件句柄），进程退出前调用。
func Build(opts ...Option) (LoggerWithLevel, func() error, error) {
	o := &Options{
		level:  slog.LevelInfo,
		format: FormatJSON,
		output: os.Stderr,
	}
	for _, opt := range opts {
		opt(o)
	}

	cleanup := func() error { return nil }
	output := o.output
	if o.rotateFile != "" {
		lj := &lumberjack.Logger{
			Filename:   o.rotateFile,
			MaxSize:    o.rotateSizeMB,
			MaxBackups: o.rotateBackups,
			MaxAge:     o.rotateAgeDays,
			Compress:   true,
		}
		output = lj
		cleanup = lj.Close
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(o.level)
	hopts := &slog.HandlerOptions{
		Level:     levelVar,
		AddSource: o.addSource,
	}

	var handler slog.Handler
	if o.format == FormatText {
		handler = slog.NewTextHandler(output, hopts)
	} else {
		handler = slog.NewJSONHandler(output, hopts)
	}

	return &xlogger{handler: handler, levelVar: levelVar}, cleanup, nil
}

// xlogger Logger 接口的实现
type xlogger struct {
	handler  slog.Handler
	levelVar *slog.LevelVar
}

func (l *xlogger) log(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.handler.Enabled(ctx, level) {
		return
	}
	r := slog.NewRecord(time.Now(), level, msg, 0)
	r.AddAttrs(attrs...)
	_ = l.handler.Handle(ctx, r)
}

func (l *xlogger) Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelDebug, msg, attrs)
}

func (l *xlogger) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelInfo, msg, attrs)
}

func (l *xlogger) Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelWarn, msg, attrs)
}

func (l *xlogger) Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelError, msg, attrs)
}

func (l *xlogger) With(attrs ...slog.Attr) Logger {
	if len(attrs) == 0 {
		return l
	}
	return &xlogger{
		handler:  l.handler.WithAttrs(attrs),
		levelVar: l.levelVar,
	}
}

func (l *xlogger) SetLevel(level slog.Level) {
	l.levelVar.Set(level)
}

func (l *xlogger) GetLevel() slog.Level {
	return l.levelVar.Level()
}

func (l *xlogger) Enabled(ctx context.Context, level slog.Level) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	return l.handler.Enabled(ctx, level)
}
