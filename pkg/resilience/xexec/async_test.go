package xexec_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/omeyang/xsafe/pkg/resilience/xexec"
	"github.com/omeyang/xsafe/pkg/resilience/xretry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunner_GetAsync(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		rp := xretry.New[string]()
		future := xexec.With[string](rp).GetAsync(func(ctx context.Context) (string, error) {
			return "ok", nil
		})

		result, err := future.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.True(t, future.IsDone())
		assert.False(t, future.IsCancelled())
	})

	t.Run("RetryThenSuccess", func(t *testing.T) {
		var attempts atomic.Int32
		rp := xretry.New[string](xretry.WithMaxRetries[string](3))
		future := xexec.With[string](rp).GetAsync(func(ctx context.Context) (string, error) {
			if attempts.Add(1) < 3 {
				return "", errors.New("transient")
			}
			return "ok", nil
		})

		result, err := future.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("FailAfterRetriesExhausted", func(t *testing.T) {
		boom := errors.New("persistent")
		rp := xretry.New[string](xretry.WithMaxRetries[string](1))
		future := xexec.With[string](rp).GetAsync(func(ctx context.Context) (string, error) {
			return "", boom
		})

		_, err := future.Get(context.Background())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("NilFunc", func(t *testing.T) {
		future := xexec.With[string](xretry.New[string]()).GetAsync(nil)
		_, err := future.Get(context.Background())
		assert.ErrorIs(t, err, xexec.ErrNilFunc)
	})
}

// 带外记录 + 重试：用户操作每次尝试记录一次失败，
// 重试预算 2 时恰好运行三次，Future 以失败终结。
func TestRunner_RunAsyncWithExecution_ExternalRecord(t *testing.T) {
	boom := errors.New("boom")
	var invocations atomic.Int32
	rp := xretry.New[any](xretry.WithMaxRetries[any](2))

	future := xexec.With[any](rp).RunAsyncWithExecution(func(exec *xexec.AsyncExecution[any]) error {
		invocations.Add(1)
		exec.RecordError(boom)
		return nil
	})

	_, err := future.Get(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(3), invocations.Load())
}

// 带外成功记录立即终结。
func TestRunner_RunAsyncWithExecution_RecordSuccess(t *testing.T) {
	rp := xretry.New[string](xretry.WithMaxRetries[string](5))
	future := xexec.With[string](rp).RunAsyncWithExecution(func(exec *xexec.AsyncExecution[string]) error {
		exec.RecordResult("done")
		return nil
	})

	result, err := future.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", result)
}

// 重试等待期间取消：第二次尝试不再运行，Future 以取消终结，
// 策略状态不再变化。
func TestFuture_CancelDuringRetryDelay(t *testing.T) {
	var invocations atomic.Int32
	firstAttempt := make(chan struct{})
	var once sync.Once

	rp := xretry.New[any](
		xretry.WithMaxRetries[any](5),
		xretry.WithDelay[any](300*time.Millisecond),
	)
	future := xexec.With[any](rp).RunAsync(func(ctx context.Context) error {
		invocations.Add(1)
		once.Do(func() { close(firstAttempt) })
		return errors.New("boom")
	})

	<-firstAttempt
	// 等待进入重试延迟
	time.Sleep(50 * time.Millisecond)
	assert.True(t, future.Cancel(false))

	_, err := future.Get(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, future.IsCancelled())

	// 延迟过后也不会有第二次尝试
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), invocations.Load())

	// 取消是一次性的
	assert.False(t, future.Cancel(false))
}

// 尝试尚未开始时取消：操作一次都不运行。
func TestFuture_CancelBeforeFirstAttempt(t *testing.T) {
	var invocations atomic.Int32
	slow := &delayedScheduler{extra: 150 * time.Millisecond}

	rp := xretry.New[any](xretry.WithMaxRetries[any](1))
	future := xexec.With[any](rp).WithScheduler(slow).RunAsync(func(ctx context.Context) error {
		invocations.Add(1)
		return nil
	})

	assert.True(t, future.Cancel(false))

	_, err := future.Get(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int32(0), invocations.Load())
}

// delayedScheduler 给每个任务附加固定延迟，制造"已调度未开始"窗口。
type delayedScheduler struct {
	extra time.Duration
}

func (s *delayedScheduler) Schedule(fn func(), delay time.Duration) (xexec.ScheduledJob, error) {
	return xexec.NewScheduler().Schedule(fn, delay+s.extra)
}

// testStage 简单的 Stage 实现
type testStage[R any] struct {
	mu        sync.Mutex
	done      bool
	value     R
	err       error
	cancelled bool
	subs      []func(R, error)
}

func (s *testStage[R]) Subscribe(fn func(R, error)) {
	s.mu.Lock()
	if s.done {
		v, err := s.value, s.err
		s.mu.Unlock()
		fn(v, err)
		return
	}
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *testStage[R]) Cancel(_ bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
	return !s.done
}

func (s *testStage[R]) complete(value R, err error) {
	s.mu.Lock()
	s.done = true
	s.value, s.err = value, err
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()
	for _, fn := range subs {
		fn(value, err)
	}
}

func TestRunner_GetStageAsync(t *testing.T) {
	t.Run("StageCompletes", func(t *testing.T) {
		stage := &testStage[string]{}
		rp := xretry.New[string]()
		future := xexec.With[string](rp).GetStageAsync(func(ctx context.Context) (xexec.Stage[string], error) {
			go func() {
				time.Sleep(20 * time.Millisecond)
				stage.complete("staged", nil)
			}()
			return stage, nil
		})

		result, err := future.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "staged", result)
	})

	t.Run("CancelPropagatesToStage", func(t *testing.T) {
		stage := &testStage[string]{}
		started := make(chan struct{})
		var once sync.Once
		rp := xretry.New[string]()
		future := xexec.With[string](rp).GetStageAsync(func(ctx context.Context) (xexec.Stage[string], error) {
			once.Do(func() { close(started) })
			return stage, nil
		})

		<-started
		time.Sleep(20 * time.Millisecond)
		assert.True(t, future.Cancel(false))

		_, err := future.Get(context.Background())
		assert.ErrorIs(t, err, context.Canceled)

		stage.mu.Lock()
		cancelled := stage.cancelled
		stage.mu.Unlock()
		assert.True(t, cancelled)
	})
}

func TestFuture_GetRespectsContext(t *testing.T) {
	rp := xretry.New[any](
		xretry.WithMaxRetries[any](10),
		xretry.WithDelay[any](200*time.Millisecond),
	)
	future := xexec.With[any](rp).RunAsync(func(ctx context.Context) error {
		return errors.New("boom")
	})
	defer future.Cancel(false)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := future.Get(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
