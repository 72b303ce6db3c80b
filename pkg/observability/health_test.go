package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker_Check(t *testing.T) {
	t.Run("healthy without checks", func(t *testing.T) {
		hc := NewHealthChecker("test")
		resp := hc.Check(context.Background())
		assert.Equal(t, HealthStatusHealthy, resp.Status)
		assert.Equal(t, "test", resp.Version)
	})

	t.Run("non critical failure degrades", func(t *testing.T) {
		hc := NewHealthChecker("test")
		hc.RegisterCheck(&HealthCheck{Name: "cache", CheckFunc: func(context.Context) error { return errors.New("down") }})

		resp := hc.Check(context.Background())
		assert.Equal(t, HealthStatusDegraded, resp.Status)
		assert.Equal(t, "down", resp.Checks["cache"].Message)
	})

	t.Run("critical failure is unhealthy", func(t *testing.T) {
		hc := NewHealthChecker("test")
		hc.RegisterCheck(ServerCheck(func(context.Context) error { return errors.New("refused") }))

		resp := hc.Check(context.Background())
		assert.Equal(t, HealthStatusUnhealthy, resp.Status)
	})

	t.Run("slow check times out", func(t *testing.T) {
		hc := NewHealthChecker("test")
		hc.RegisterCheck(&HealthCheck{
			Name:     "slow",
			Timeout:  10 * time.Millisecond,
			Critical: true,
			CheckFunc: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		})

		resp := hc.Check(context.Background())
		assert.Equal(t, HealthStatusUnhealthy, resp.Status)
	})
}

func TestServer_Routes(t *testing.T) {
	hc := NewHealthChecker("test")
	fail := false
	hc.RegisterCheck(ServerCheck(func(context.Context) error {
		if fail {
			return errors.New("refused")
		}
		return nil
	}))
	srv := httptest.NewServer(NewServer("127.0.0.1:0", hc).Handler())
	defer srv.Close()

	get := func(path string) (int, map[string]any) {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		var body map[string]any
		require.NoError(t, sonic.ConfigStd.NewDecoder(resp.Body).Decode(&body))
		return resp.StatusCode, body
	}

	code, body := get("/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])

	code, body = get("/health/live")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alive", body["status"])

	fail = true
	code, body = get("/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not ready", body["status"])

	code, _ = get("/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
