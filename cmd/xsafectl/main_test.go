package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const probeConfig = `
resilience:
  retry:
    max_retries: 2
  timeout:
    duration: 5s
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resilience.yaml")
	require.NoError(t, os.WriteFile(path, []byte(probeConfig), 0o600))
	return path
}

func TestProbe_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	code := run([]string{"xsafectl", "probe", "--config", writeConfig(t), "--target", srv.URL})
	assert.Equal(t, 0, code)
}

func TestProbe_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	code := run([]string{"xsafectl", "probe", "--config", writeConfig(t), "--target", srv.URL})
	assert.Equal(t, 0, code)
	assert.Equal(t, int32(3), hits.Load())
}

func TestProbe_FailureExitCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	code := run([]string{"xsafectl", "probe", "--config", writeConfig(t), "--target", srv.URL})
	assert.Equal(t, 1, code)
}

func TestProbe_BadConfig(t *testing.T) {
	code := run([]string{"xsafectl", "probe", "--config", "missing.yaml", "--target", "http://127.0.0.1:1"})
	assert.Equal(t, 2, code)
}

func TestFetchStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	status, err := fetchStatus(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, status)
}
