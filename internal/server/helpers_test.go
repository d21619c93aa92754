package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8080":      "http://localhost:8080/health",
		"ws://localhost:8080/ws":     "http://localhost:8080/health",
		"wss://quiz.example.com/ws/": "https://quiz.example.com/health",
		"https://quiz.example.com/":  "https://quiz.example.com/health",
	}
	for in, want := range cases {
		got, err := HealthURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := HealthURL("ftp://localhost")
	assert.Error(t, err)
}

func TestWaitForHealthy(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, WaitForHealthy(ctx, ts.URL))
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestWaitForHealthyTimesOut(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	err := WaitForHealthy(ctx, ts.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
