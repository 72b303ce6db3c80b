package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aixgo-dev/gremlin/internal/testserver"
	"github.com/aixgo-dev/gremlin/pkg/config"
)

func run(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env"), "--log-level", "error"))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, context.Background(), "version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestPing(t *testing.T) {
	srv := testserver.New(t, testserver.Reply(testserver.List(testserver.Int64(2))))

	out, err := run(t, context.Background(), "ping", "--url", srv.URL())
	require.NoError(t, err)
	assert.Contains(t, out, srv.URL()+" answered in")

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "eval", reqs[0].Op)
}

func TestPing_Unreachable(t *testing.T) {
	srv := testserver.New(t, nil)
	url := srv.URL()
	srv.Close()

	_, err := run(t, context.Background(), "ping", "--url", url)
	assert.ErrorContains(t, err, "ping "+url)
}

func TestSubmit(t *testing.T) {
	srv := testserver.New(t, testserver.Reply(testserver.List(testserver.Int64(6))))

	t.Run("inline document", func(t *testing.T) {
		out, err := run(t, context.Background(), "submit", `{"step":[["V"],["count"]]}`, "--url", srv.URL())
		require.NoError(t, err)
		assert.Equal(t, "[6]\n", out)
	})

	t.Run("document from a file with a session", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "count.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"step":[["E"],["count"]]}`), 0o600))

		_, err := run(t, context.Background(), "submit", path, "--url", srv.URL(), "--session", "s-1")
		require.NoError(t, err)

		reqs := srv.Requests()
		last := reqs[len(reqs)-1]
		assert.Equal(t, "bytecode", last.Op)
		assert.Equal(t, "session", last.Processor)
	})

	t.Run("rejects an empty document", func(t *testing.T) {
		_, err := run(t, context.Background(), "submit", `{}`, "--url", srv.URL())
		assert.ErrorContains(t, err, "no steps")
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		_, err := run(t, context.Background(), "submit", `not json`, "--url", srv.URL())
		assert.ErrorContains(t, err, "parse bytecode")
	})
}

func TestFeatures(t *testing.T) {
	t.Run("configured provider", func(t *testing.T) {
		out, err := run(t, context.Background(), "features", "--provider", "neptune")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, []string{"neptune", "true", "true"}, strings.Fields(lines[1]))
	})

	t.Run("all providers", func(t *testing.T) {
		out, err := run(t, context.Background(), "features", "--all")
		require.NoError(t, err)
		assert.Contains(t, out, "neptune")
		assert.Contains(t, out, "tinkergraph")
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := run(t, context.Background(), "features", "--provider", "orientdb")
		assert.ErrorContains(t, err, "unknown provider")
	})
}

func TestConfigFile(t *testing.T) {
	srv := testserver.New(t, testserver.Reply(testserver.List(testserver.Int64(2))))
	path := filepath.Join(t.TempDir(), "gremlin.yaml")
	require.NoError(t, os.WriteFile(path, []byte("url: "+srv.URL()+"\nprovider: neptune\n"), 0o600))

	_, err := run(t, context.Background(), "ping", "--config", path)
	require.NoError(t, err)
	assert.Len(t, srv.Requests(), 1)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gremlin.yaml")

	out, err := run(t, context.Background(), "config", "init", path, "--url", "wss://graph.example.com:8182/gremlin", "--provider", "neptune")
	require.NoError(t, err)
	assert.Equal(t, "wrote "+path+"\n", out)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "wss://graph.example.com:8182/gremlin", cfg.URL)
	assert.Equal(t, "neptune", cfg.Provider)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	t.Run("refuses to overwrite", func(t *testing.T) {
		_, err := run(t, context.Background(), "config", "init", path)
		assert.ErrorContains(t, err, "already exists")
	})

	t.Run("force overwrites", func(t *testing.T) {
		_, err := run(t, context.Background(), "config", "init", path, "--force")
		require.NoError(t, err)

		cfg, err := config.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, config.Default().URL, cfg.URL)
	})
}

func TestMetrics_StopsWithContext(t *testing.T) {
	srv := testserver.New(t, testserver.Reply(testserver.List(testserver.Int64(2))))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := run(t, ctx, "metrics", "--url", srv.URL(), "--addr", "127.0.0.1:0")
	assert.NoError(t, err)
}
