package xretry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xsafe/pkg/resilience/xexec"
)

func TestRetryPolicy_Defaults(t *testing.T) {
	p := New[string]()
	assert.Equal(t, 2, p.MaxRetries())
	assert.Equal(t, time.Duration(0), p.MaxDuration())
	// 默认分类：有错误即失败
	assert.True(t, p.isFailure("", errors.New("x")))
	assert.False(t, p.isFailure("v", nil))
}

func TestRetryPolicy_Classifiers(t *testing.T) {
	sentinel := errors.New("sentinel")

	t.Run("HandleErrors", func(t *testing.T) {
		p := New[string](HandleErrors[string](sentinel))
		assert.True(t, p.isFailure("", wrapErr(sentinel)))
		assert.False(t, p.isFailure("", errors.New("other")))
	})

	t.Run("HandleResult", func(t *testing.T) {
		p := New[string](HandleResult[string]("bad"))
		assert.True(t, p.isFailure("bad", nil))
		assert.False(t, p.isFailure("good", nil))
	})

	t.Run("HandleIf", func(t *testing.T) {
		p := New[int](HandleIf[int](func(v int, err error) bool { return v < 0 }))
		assert.True(t, p.isFailure(-1, nil))
		assert.False(t, p.isFailure(1, nil))
	})

	t.Run("AbortOnErrors", func(t *testing.T) {
		p := New[string](AbortOnErrors[string](sentinel))
		assert.True(t, p.isAbort("", sentinel))
		assert.False(t, p.isAbort("", errors.New("other")))
	})
}

// wrapErr 包一层错误链，验证 errors.Is 匹配
func wrapErr(err error) error {
	return &wrapped{err}
}

type wrapped struct{ inner error }

func (w *wrapped) Error() string { return "wrapped: " + w.inner.Error() }
func (w *wrapped) Unwrap() error { return w.inner }

func TestRetryPolicy_NextDelay(t *testing.T) {
	t.Run("FixedDelay", func(t *testing.T) {
		p := New[any](WithDelay[any](100 * time.Millisecond))
		assert.Equal(t, 100*time.Millisecond, p.nextDelay(1, nil))
	})

	t.Run("DelayFuncWins", func(t *testing.T) {
		p := New[any](
			WithDelay[any](time.Hour),
			WithDelayFunc[any](func(attempt int, _ error) time.Duration {
				return time.Duration(attempt) * time.Millisecond
			}),
		)
		assert.Equal(t, 3*time.Millisecond, p.nextDelay(3, nil))
	})

	t.Run("JitterFactorBounds", func(t *testing.T) {
		p := New[any](
			WithDelay[any](100*time.Millisecond),
			WithJitterFactor[any](0.5),
		)
		for i := 0; i < 200; i++ {
			d := p.nextDelay(1, nil)
			assert.GreaterOrEqual(t, d, 50*time.Millisecond)
			assert.LessOrEqual(t, d, 150*time.Millisecond)
		}
	})

	t.Run("JitterAbsoluteBounds", func(t *testing.T) {
		p := New[any](
			WithDelay[any](100*time.Millisecond),
			WithJitter[any](20*time.Millisecond),
		)
		for i := 0; i < 200; i++ {
			d := p.nextDelay(1, nil)
			assert.GreaterOrEqual(t, d, 80*time.Millisecond)
			assert.LessOrEqual(t, d, 120*time.Millisecond)
		}
	})
}

// 完整性属性：maxRetries=k 时第 k+1 次失败恰好终结。
func TestRetryPolicy_CompletesAtKPlusOneFailures(t *testing.T) {
	for _, k := range []int{0, 1, 2, 5} {
		p := New[any](WithMaxRetries[any](k))
		exec, err := xexec.NewExecution[any](p)
		require.NoError(t, err)

		for i := 0; i < k; i++ {
			assert.False(t, exec.RecordFailure(errors.New("boom")), "k=%d i=%d", k, i)
		}
		assert.True(t, exec.RecordFailure(errors.New("boom")), "k=%d", k)
	}
}

func TestRetryPolicy_AbortStopsRetries(t *testing.T) {
	fatal := errors.New("fatal")
	var aborted bool
	p := New[string](
		WithMaxRetries[string](5),
		AbortOnErrors[string](fatal),
		OnAbort[string](func(int, error) { aborted = true }),
	)

	var attempts int
	_, err := xexec.With[string](p).Get(func(ctx context.Context) (string, error) {
		attempts++
		return "", fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, attempts)
	assert.True(t, aborted)
}

func TestRetryPolicy_MaxDuration(t *testing.T) {
	p := New[any](
		WithMaxRetries[any](Unlimited),
		WithDelay[any](30*time.Millisecond),
		WithMaxDuration[any](150*time.Millisecond),
	)

	start := time.Now()
	err := xexec.With[any](p).Run(func(ctx context.Context) error {
		return errors.New("boom")
	})

	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRetryPolicy_OnRetryListener(t *testing.T) {
	var retries []int
	p := New[any](
		WithMaxRetries[any](2),
		OnRetry[any](func(attempt int, err error) { retries = append(retries, attempt) }),
	)

	_ = xexec.With[any](p).Run(func(ctx context.Context) error {
		return errors.New("boom")
	})
	assert.Equal(t, []int{1, 2}, retries)
}

func TestRetryPolicy_HandleResultRetries(t *testing.T) {
	// 返回值分类：特定值也会触发重试
	p := New[string](
		WithMaxRetries[string](2),
		HandleResult[string]("retry-me"),
	)

	var attempts int
	result, err := xexec.With[string](p).Get(func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 2 {
			return "retry-me", nil
		}
		return "done", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, 2, attempts)
}

func TestRetryPolicy_WithMaxAttempts(t *testing.T) {
	p := New[any](WithMaxAttempts[any](4))
	assert.Equal(t, 3, p.MaxRetries())

	p = New[any](WithMaxAttempts[any](Unlimited))
	assert.Equal(t, Unlimited, p.MaxRetries())
}
