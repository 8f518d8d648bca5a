package xtimeout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xsafe/pkg/resilience/xexec"
	"github.com/omeyang/xsafe/pkg/resilience/xretry"
)

func TestTimeout_New(t *testing.T) {
	assert.Equal(t, 50*time.Millisecond, New[any](50*time.Millisecond).Duration())
	// 非正时限归一为最小值
	assert.Equal(t, time.Nanosecond, New[any](0).Duration())
}

func TestTimeout_SyncExceeded(t *testing.T) {
	timeout := New[string](30*time.Millisecond, WithInterrupt[string]())

	start := time.Now()
	_, err := xexec.With[string](timeout).Get(func(ctx context.Context) (string, error) {
		select {
		case <-time.After(500 * time.Millisecond):
			return "late", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})

	assert.True(t, IsExceeded(err), "expected ExceededError, got %v", err)
	// 打断生效：不需要等满 500ms
	assert.Less(t, time.Since(start), 300*time.Millisecond)
}

func TestTimeout_SyncCompletesInTime(t *testing.T) {
	timeout := New[string](200 * time.Millisecond)

	result, err := xexec.With[string](timeout).Get(func(ctx context.Context) (string, error) {
		return "fast", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "fast", result)
}

// 超时 + 重试：操作每次都超时，两次尝试都被打断，
// 最终失败是 ExceededError，取消错误不外泄。
func TestTimeout_WithRetry(t *testing.T) {
	rp := xretry.New[string](xretry.WithMaxRetries[string](1))
	timeout := New[string](20*time.Millisecond, WithInterrupt[string]())

	var attempts atomic.Int32
	_, err := xexec.With[string](rp, timeout).Get(func(ctx context.Context) (string, error) {
		attempts.Add(1)
		select {
		case <-time.After(200 * time.Millisecond):
			return "late", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})

	assert.True(t, IsExceeded(err), "expected ExceededError, got %v", err)
	assert.NotErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestTimeout_WithoutInterruptStillFailsAttempt(t *testing.T) {
	timeout := New[string](20 * time.Millisecond)

	start := time.Now()
	_, err := xexec.With[string](timeout).Get(func(ctx context.Context) (string, error) {
		time.Sleep(80 * time.Millisecond)
		return "late-success", nil
	})

	// 操作跑完也无济于事：尝试在 20ms 时已被判超时
	assert.True(t, IsExceeded(err))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestTimeout_AsyncExceeded(t *testing.T) {
	rp := xretry.New[string](xretry.WithMaxRetries[string](1))
	timeout := New[string](20*time.Millisecond, WithInterrupt[string]())

	var attempts atomic.Int32
	future := xexec.With[string](rp, timeout).GetAsync(func(ctx context.Context) (string, error) {
		attempts.Add(1)
		select {
		case <-time.After(200 * time.Millisecond):
			return "late", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})

	_, err := future.Get(context.Background())
	assert.True(t, IsExceeded(err), "expected ExceededError, got %v", err)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestTimeout_AsyncExternalRecordGuarded(t *testing.T) {
	// 带外完成形态：用户一直不 Record，看门狗接管尝试
	timeout := New[any](30 * time.Millisecond)

	future := xexec.With[any](timeout).RunAsyncWithExecution(func(exec *xexec.AsyncExecution[any]) error {
		// 故意不记录结果
		return nil
	})

	_, err := future.Get(context.Background())
	assert.True(t, IsExceeded(err))
}

func TestTimeout_AsyncExternalRecordBeatsWatcher(t *testing.T) {
	timeout := New[string](200 * time.Millisecond)

	future := xexec.With[string](timeout).RunAsyncWithExecution(func(exec *xexec.AsyncExecution[string]) error {
		exec.RecordResult("quick")
		return nil
	})

	result, err := future.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "quick", result)
}

func TestTimeout_ExternalCancellationPropagates(t *testing.T) {
	// 外部 context 取消不是超时造成的，错误照常传播
	ctx, cancel := context.WithCancel(context.Background())
	timeout := New[string](time.Second)

	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	_, err := xexec.With[string](timeout).WithContext(ctx).Get(func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsExceeded(err))
}

func TestExceededError(t *testing.T) {
	err := &ExceededError{Timeout: time.Second}
	assert.Contains(t, err.Error(), "1s")
	assert.True(t, IsExceeded(err))
	assert.False(t, IsExceeded(errors.New("other")))
}
