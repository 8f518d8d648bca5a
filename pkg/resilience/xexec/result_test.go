package xexec

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResult_Constructors(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r := SuccessResult("ok")
		assert.Equal(t, "ok", r.Value())
		assert.NoError(t, r.Error())
		assert.True(t, r.IsComplete())
		assert.True(t, r.IsSuccess())
		assert.False(t, r.IsAbortive())
	})

	t.Run("Failure", func(t *testing.T) {
		boom := errors.New("boom")
		r := FailureResult[string](boom)
		assert.Equal(t, boom, r.Error())
		assert.True(t, r.IsComplete())
		assert.False(t, r.IsSuccess())
	})

	t.Run("ResultOf", func(t *testing.T) {
		assert.True(t, resultOf("v", nil).IsSuccess())
		assert.False(t, resultOf("v", errors.New("x")).IsSuccess())
	})
}

func TestResult_WithCopies(t *testing.T) {
	base := FailureResult[int](errors.New("boom"))

	t.Run("WithDelay", func(t *testing.T) {
		r := base.WithDelay(time.Second)
		assert.Equal(t, time.Second, r.Delay())
		// 原结果不受影响
		assert.Equal(t, time.Duration(0), base.Delay())
	})

	t.Run("WithDelayNegative", func(t *testing.T) {
		assert.Equal(t, time.Duration(0), base.WithDelay(-time.Second).Delay())
	})

	t.Run("WithNotComplete", func(t *testing.T) {
		r := base.WithNotComplete()
		assert.False(t, r.IsComplete())
		assert.True(t, base.IsComplete())
	})

	t.Run("WithAbort", func(t *testing.T) {
		r := base.WithNotComplete().WithAbort()
		assert.True(t, r.IsAbortive())
		assert.True(t, r.IsComplete())
	})

	t.Run("WithDone", func(t *testing.T) {
		r := base.WithDone(true, true)
		assert.True(t, r.IsComplete())
		assert.True(t, r.IsSuccess())
	})

	t.Run("WithFailure", func(t *testing.T) {
		r := SuccessResult(1).WithFailure()
		assert.False(t, r.IsSuccess())
		assert.Equal(t, 1, r.Value())
	})
}

func TestResult_Equal(t *testing.T) {
	boom := errors.New("boom")

	assert.True(t, SuccessResult(1).Equal(SuccessResult(1)))
	assert.False(t, SuccessResult(1).Equal(SuccessResult(2)))
	assert.True(t, FailureResult[int](boom).Equal(FailureResult[int](boom)))
	assert.False(t, FailureResult[int](boom).Equal(SuccessResult(0)))
	assert.False(t, SuccessResult(1).Equal(SuccessResult(1).WithNotComplete()))

	var nilResult *Result[int]
	assert.True(t, nilResult.Equal(nil))
	assert.False(t, nilResult.Equal(SuccessResult(1)))
}

func TestResult_String(t *testing.T) {
	var nilResult *Result[int]
	assert.Equal(t, "Result[none]", nilResult.String())
	assert.Contains(t, SuccessResult(7).String(), "complete=true")
}
