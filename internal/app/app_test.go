package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowgrid/internal/agent"
	"github.com/vk/flowgrid/internal/testutil"
)

func writeFile(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestNewApp_RegistersBuiltinsAndConfiguredAgents(t *testing.T) {
	cfgPath := writeFile(t, "flowgrid.hcl", `
agent "example_fetcher" {
  kind = "data_fetcher"
  config = {
    url = "http://example.test/data"
  }
}
`)

	var out testutil.SafeBuffer
	a, err := NewApp(context.Background(), &out, Options{ConfigPath: cfgPath, LogLevel: "error"})
	require.NoError(t, err)

	agents := a.Orchestrator().ListAgents()
	names := make(map[string]string, len(agents))
	for _, info := range agents {
		names[info.Name] = info.Kind
	}
	for _, kind := range agent.Kinds() {
		assert.Equal(t, kind, names[kind], "built-in kind %q must be pre-registered under its own name", kind)
	}
	assert.Equal(t, "data_fetcher", names["example_fetcher"])
}

func TestNewApp_RejectsUnknownConfiguredKind(t *testing.T) {
	cfgPath := writeFile(t, "flowgrid.hcl", `
agent "bad" {
  kind = "teleporter"
}
`)

	var out testutil.SafeBuffer
	_, err := NewApp(context.Background(), &out, Options{ConfigPath: cfgPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown agent kind")
}

func TestRunSpecFile_Succeeds(t *testing.T) {
	specPath := writeFile(t, "run.yaml", `
nodes:
  - id: hello
    agent: echo
    params:
      greeting: hi
`)

	var out testutil.SafeBuffer
	a, err := NewApp(context.Background(), &out, Options{LogLevel: "error"})
	require.NoError(t, err)

	require.NoError(t, a.RunSpecFile(context.Background(), specPath))
	assert.Contains(t, out.String(), `"status": "SUCCEEDED"`)
	assert.Contains(t, out.String(), `"greeting": "hi"`)
}

func TestRunSpecFile_FailedRunIsAnError(t *testing.T) {
	specPath := writeFile(t, "run.yaml", `
nodes:
  - id: doomed
    agent: nobody
    max_attempts: 1
`)

	var out testutil.SafeBuffer
	a, err := NewApp(context.Background(), &out, Options{LogLevel: "error"})
	require.NoError(t, err)

	err = a.RunSpecFile(context.Background(), specPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finished with status FAILED")
	assert.Contains(t, out.String(), `"status": "FAILED"`)
}

func TestRunSpecFile_InvalidSpec(t *testing.T) {
	specPath := writeFile(t, "run.yaml", `
nodes:
  - id: a
    agent: echo
edges:
  - from: a
    to: ghost
`)

	var out testutil.SafeBuffer
	a, err := NewApp(context.Background(), &out, Options{LogLevel: "error"})
	require.NoError(t, err)

	err = a.RunSpecFile(context.Background(), specPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown_edge_endpoint")
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	var out testutil.SafeBuffer
	a, err := NewApp(context.Background(), &out, Options{ListenAddr: "127.0.0.1:0", LogLevel: "error"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not shut down after context cancellation")
	}
}
