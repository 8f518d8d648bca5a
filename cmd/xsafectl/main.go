// xsafectl 是弹性策略栈的命令行探测工具。
//
// 用法:
//
//	xsafectl probe --config resilience.yaml --target https://example.com [--count 5]
//
// probe 命令按配置文件构建策略栈，在其保护下对目标地址发起
// HTTP GET 探测，输出每次调用的结果（状态码或错误）与耗时。
// 可用于验证一份策略配置在真实故障下的行为。
//
// 退出码:
//
//	0: 所有探测成功
//	1: 存在失败的探测
//	2: 参数或配置错误
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xsafe/pkg/config/xconf"
	"github.com/omeyang/xsafe/pkg/observability/xlog"
	"github.com/omeyang/xsafe/pkg/resilience/xexec"
)

// 版本信息（可通过 -ldflags 注入）
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	app := createApp()
	if err := app.Run(context.Background(), args); err != nil {
		fmt.Fprintln(os.Stderr, "xsafectl:", err)
		var ec *exitError
		if errors.As(err, &ec) {
			return ec.code
		}
		return 2
	}
	return 0
}

// exitError 携带退出码的错误
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	return e.msg
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xsafectl",
		Usage:   "弹性策略栈探测工具",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Commands: []*cli.Command{
			{
				Name:  "probe",
				Usage: "在策略栈保护下探测目标地址",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "策略配置文件路径 (yaml/json)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "target",
						Aliases:  []string{"t"},
						Usage:    "探测目标 URL",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "count",
						Usage: "探测次数",
						Value: 1,
					},
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "输出 Debug 级别日志",
					},
				},
				Action: probeAction,
			},
		},
	}
}

func probeAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := xconf.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	policies, err := xconf.Build[int](cfg)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger, cleanup, err := xlog.Build(
		xlog.WithLevel(level),
		xlog.WithFormat(xlog.FormatText),
	)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()

	target := cmd.String("target")
	runner := xexec.With[int](policies...).
		WithContext(ctx).
		WithLogger(logger)

	client := &http.Client{}
	failures := 0
	count := int(cmd.Int("count"))
	for i := 0; i < count; i++ {
		start := time.Now()
		status, err := runner.Get(func(ctx context.Context) (int, error) {
			return fetchStatus(ctx, client, target)
		})
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			failures++
			fmt.Printf("probe %d/%d: FAIL (%s) %v\n", i+1, count, elapsed, err)
			continue
		}
		fmt.Printf("probe %d/%d: %d (%s)\n", i+1, count, status, elapsed)
	}

	if failures > 0 {
		return &exitError{code: 1, msg: fmt.Sprintf("%d/%d probes failed", failures, count)}
	}
	return nil
}

// fetchStatus 对目标发起 GET，返回状态码；5xx 按失败处理。
func fetchStatus(ctx context.Context, client *http.Client, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return resp.StatusCode, fmt.Errorf("server error: %s", resp.Status)
	}
	return resp.StatusCode, nil
}
