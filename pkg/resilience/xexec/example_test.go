package xexec_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/omeyang/xsafe/pkg/resilience/xexec"
	"github.com/omeyang/xsafe/pkg/resilience/xfallback"
	"github.com/omeyang/xsafe/pkg/resilience/xretry"
)

// 基本用法：重试 + 降级组合执行。
func Example() {
	retry := xretry.New[string](
		xretry.WithMaxRetries[string](2),
	)
	fallback := xfallback.Of[string]("fallback-value")

	var attempts int
	result, err := xexec.With[string](fallback, retry).Get(func(ctx context.Context) (string, error) {
		attempts++
		return "", errors.New("service unavailable")
	})

	fmt.Println(result, err, attempts)
	// Output: fallback-value <nil> 3
}

// 手动编排：调用方自己执行操作并记录结果。
func ExampleNewExecution() {
	retry := xretry.New[int](xretry.WithMaxRetries[int](2))
	exec, _ := xexec.NewExecution[int](retry)

	for !exec.IsComplete() {
		if err := errors.New("boom"); err != nil {
			exec.RecordFailure(err)
		}
	}

	fmt.Println(exec.Attempts(), exec.LastError())
	// Output: 3 boom
}

// 异步执行：Future 交付结果。
func ExampleRunner_GetAsync() {
	retry := xretry.New[int](
		xretry.WithMaxRetries[int](3),
		xretry.WithDelay[int](10*time.Millisecond),
	)

	var attempts int
	future := xexec.With[int](retry).GetAsync(func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 2 {
			return 0, errors.New("transient")
		}
		return attempts, nil
	})

	result, err := future.Get(context.Background())
	fmt.Println(result, err)
	// Output: 2 <nil>
}
