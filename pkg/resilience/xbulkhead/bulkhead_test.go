package xbulkhead

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xsafe/pkg/resilience/xexec"
)

func TestBulkhead_New(t *testing.T) {
	assert.Equal(t, 3, New[any](3).Capacity())
	// 非正容量归一为 1
	assert.Equal(t, 1, New[any](0).Capacity())
}

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	bh := New[string](1)
	runner := xexec.With[string](bh)

	started := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = runner.Get(func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "slow", nil
		})
	}()

	<-started
	_, err := runner.Get(func(ctx context.Context) (string, error) {
		return "fast", nil
	})
	assert.True(t, IsFull(err), "expected FullError, got %v", err)

	close(release)
	wg.Wait()
}

func TestBulkhead_ReleasedAfterCompletion(t *testing.T) {
	bh := New[string](1)
	runner := xexec.With[string](bh)

	for i := 0; i < 5; i++ {
		result, err := runner.Get(func(ctx context.Context) (string, error) {
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", result)
	}
}

func TestBulkhead_ReleasedAfterFailure(t *testing.T) {
	bh := New[string](1)
	runner := xexec.With[string](bh)

	// 失败同样释放许可
	_, err := runner.Get(func(ctx context.Context) (string, error) {
		return "", errors.New("boom")
	})
	assert.Error(t, err)

	result, err := runner.Get(func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestBulkhead_MaxWaitTime(t *testing.T) {
	bh := New[string](1, WithMaxWaitTime[string](300*time.Millisecond))
	runner := xexec.With[string](bh)

	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = runner.Get(func(ctx context.Context) (string, error) {
			close(started)
			time.Sleep(100 * time.Millisecond)
			return "slow", nil
		})
	}()

	<-started
	// 在等待上限内许可会被释放，第二个调用等到后照常执行
	result, err := runner.Get(func(ctx context.Context) (string, error) {
		return "waited", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "waited", result)
	wg.Wait()
}

func TestBulkhead_OnFull(t *testing.T) {
	var rejected bool
	bh := New[string](1, OnFull[string](func() { rejected = true }))

	require.True(t, bh.TryAcquirePermit())
	_, err := xexec.With[string](bh).Get(func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	assert.True(t, IsFull(err))
	assert.True(t, rejected)
	bh.ReleasePermit()
}

func TestBulkhead_ManualPermits(t *testing.T) {
	bh := New[any](2)
	assert.True(t, bh.TryAcquirePermit())
	assert.True(t, bh.TryAcquirePermit())
	assert.False(t, bh.TryAcquirePermit())
	bh.ReleasePermit()
	assert.True(t, bh.TryAcquirePermit())
	bh.ReleasePermit()
	bh.ReleasePermit()
}
