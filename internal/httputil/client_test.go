package httputil_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrocast/astrocast/internal/httputil"
)

func fastConfig(name string) httputil.Config {
	return httputil.Config{
		Name:            name,
		Timeout:         2 * time.Second,
		MaxRetries:      3,
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     20 * time.Millisecond,
	}
}

func TestGetBytes_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "astrocast-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := httputil.NewResilient(fastConfig("test"))
	body, err := client.GetBytes(context.Background(), server.URL, http.Header{"User-Agent": {"astrocast-test"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestGetBytes_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := httputil.NewResilient(fastConfig("retry"))
	body, err := client.GetBytes(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestGetBytes_ClientErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid API key"}`))
	}))
	defer server.Close()

	client := httputil.NewResilient(fastConfig("auth"))
	_, err := client.GetBytes(context.Background(), server.URL, nil)
	require.Error(t, err)

	var statusErr *httputil.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "Invalid API key")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestGetBytes_CircuitOpens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := fastConfig("breaker")
	cfg.MaxRetries = 1
	client := httputil.NewResilient(cfg)

	var lastErr error
	for range 5 {
		_, lastErr = client.GetBytes(context.Background(), server.URL, nil)
	}
	require.Error(t, lastErr)
	assert.ErrorIs(t, lastErr, httputil.ErrCircuitOpen)
	assert.Equal(t, "open", client.State())
}

func TestGetBytes_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := httputil.NewResilient(fastConfig("cancel"))
	_, err := client.GetBytes(ctx, server.URL, nil)
	require.Error(t, err)
}
