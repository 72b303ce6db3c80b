package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gremlin.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_FileSizeLimit(t *testing.T) {
	path := writeConfig(t, strings.Repeat("# padding\n", 200000))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
url: wss://neptune.example.com:8182/gremlin
provider: neptune
pool_size: 4
connect_backoff: 1s
request_timeout: 2m
keepalive: "@every 30s"
rate_limit:
  requests_per_second: 50
  burst: 10
tls:
  server_name: neptune.example.com
session_registry:
  store: redis
  redis_addr: localhost:6379
  ttl: 10m
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "wss://neptune.example.com:8182/gremlin", cfg.URL)
	assert.Equal(t, "neptune", cfg.Provider)
	assert.Equal(t, 4, cfg.PoolSize)
	assert.Equal(t, time.Second, cfg.ConnectBackoff)
	assert.Equal(t, 2*time.Minute, cfg.RequestTimeout)
	assert.Equal(t, 50.0, cfg.RateLimit.RequestsPerSecond)
	require.NotNil(t, cfg.TLS)
	assert.Equal(t, "neptune.example.com", cfg.TLS.ServerName)
	assert.Equal(t, "redis", cfg.Registry.Store)
	assert.Equal(t, 10*time.Minute, cfg.Registry.TTL)

	// untouched fields keep their defaults
	assert.Equal(t, 3, cfg.ConnectRetries)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default().URL, cfg.URL)
	assert.Equal(t, 10, cfg.PoolSize)
}

func TestLoadConfig_NonexistentFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "url: ws://x\ninvalid yaml here: [[[\n"))
	assert.Error(t, err)
}

func TestLoadConfig_UnknownKey(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "poolsize: 3\n"))
	assert.ErrorContains(t, err, "poolsize")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("GREMLIN_URL", "ws://env:8182/gremlin")
	t.Setenv("GREMLIN_PROVIDER", "neptune")
	t.Setenv("GREMLIN_POOL_SIZE", "7")

	t.Run("fills defaults", func(t *testing.T) {
		cfg, err := Parse(nil)
		require.NoError(t, err)
		assert.Equal(t, "ws://env:8182/gremlin", cfg.URL)
		assert.Equal(t, "neptune", cfg.Provider)
		assert.Equal(t, 7, cfg.PoolSize)
	})

	t.Run("file wins over env", func(t *testing.T) {
		cfg, err := Parse([]byte("url: ws://file:8182/gremlin\npool_size: 2\n"))
		require.NoError(t, err)
		assert.Equal(t, "ws://file:8182/gremlin", cfg.URL)
		assert.Equal(t, 2, cfg.PoolSize)
	})

	t.Run("invalid pool size", func(t *testing.T) {
		t.Setenv("GREMLIN_POOL_SIZE", "many")
		_, err := Parse(nil)
		assert.ErrorContains(t, err, "GREMLIN_POOL_SIZE")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "missing url", mutate: func(c *Config) { c.URL = "" }, wantErr: "url is required"},
		{name: "http url", mutate: func(c *Config) { c.URL = "http://localhost:8182" }, wantErr: "scheme"},
		{name: "unknown provider", mutate: func(c *Config) { c.Provider = "janus" }, wantErr: "provider"},
		{name: "zero pool", mutate: func(c *Config) { c.PoolSize = 0 }, wantErr: "pool_size"},
		{name: "negative retries", mutate: func(c *Config) { c.ConnectRetries = -1 }, wantErr: "connect_retries"},
		{name: "bad keepalive", mutate: func(c *Config) { c.Keepalive = "every now and then" }, wantErr: "keepalive"},
		{name: "redis without addr", mutate: func(c *Config) { c.Registry.Store = "redis" }, wantErr: "redis_addr"},
		{name: "unknown store", mutate: func(c *Config) { c.Registry.Store = "etcd" }, wantErr: "session_registry.store"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Provider = "neptune"

	require.NoError(t, SaveConfig(&cfg, path))
	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "neptune", loaded.Provider)
	assert.Equal(t, cfg.RequestTimeout, loaded.RequestTimeout)
}
