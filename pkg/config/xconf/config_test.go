package xconf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
resilience:
  order: [rate_limit, retry, breaker, timeout]
  retry:
    max_retries: 3
    backoff_initial: 100ms
    backoff_max: 10s
    backoff_multiplier: 2.0
    jitter_factor: 0.25
  breaker:
    failure_threshold: 3
    failure_capacity: 5
    success_threshold: 2
    delay: 30s
  timeout:
    duration: 2s
    interrupt: true
  rate_limit:
    mode: bursty
    max_executions: 100
    period: 1s
    max_wait_time: 200ms
`

func TestLoadBytes_YAML(t *testing.T) {
	cfg, err := LoadBytes([]byte(sampleYAML), FormatYAML)
	require.NoError(t, err)

	require.NotNil(t, cfg.Retry)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Retry.BackoffInitial)
	assert.Equal(t, 10*time.Second, cfg.Retry.BackoffMax)
	assert.InDelta(t, 0.25, cfg.Retry.JitterFactor, 1e-9)

	require.NotNil(t, cfg.Breaker)
	assert.Equal(t, 3, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 5, cfg.Breaker.FailureCapacity)
	assert.Equal(t, 30*time.Second, cfg.Breaker.Delay)

	require.NotNil(t, cfg.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Timeout.Duration)
	assert.True(t, cfg.Timeout.Interrupt)

	require.NotNil(t, cfg.RateLimit)
	assert.Equal(t, "bursty", cfg.RateLimit.Mode)
	assert.Equal(t, 100, cfg.RateLimit.MaxExecutions)
	assert.Equal(t, 200*time.Millisecond, cfg.RateLimit.MaxWaitTime)

	assert.Equal(t, []string{"rate_limit", "retry", "breaker", "timeout"}, cfg.Order)
	assert.Nil(t, cfg.Bulkhead)
}

func TestLoadBytes_JSON(t *testing.T) {
	data := []byte(`{"resilience":{"retry":{"max_retries":1},"bulkhead":{"capacity":8}}}`)
	cfg, err := LoadBytes(data, FormatJSON)
	require.NoError(t, err)
	require.NotNil(t, cfg.Retry)
	assert.Equal(t, 1, cfg.Retry.MaxRetries)
	require.NotNil(t, cfg.Bulkhead)
	assert.Equal(t, 8, cfg.Bulkhead.Capacity)
}

func TestLoadBytes_Empty(t *testing.T) {
	cfg, err := LoadBytes(nil, FormatYAML)
	require.NoError(t, err)
	assert.Nil(t, cfg.Retry)
	assert.Empty(t, cfg.Order)
}

func TestLoadBytes_UnsupportedFormat(t *testing.T) {
	_, err := LoadBytes([]byte("{}"), Format("toml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resilience.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
}

func TestLoad_Validation(t *testing.T) {
	_, err := Load("")
	assert.ErrorIs(t, err, ErrEmptyPath)

	_, err = Load("config.toml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrLoadFailed)
}
