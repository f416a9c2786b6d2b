package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataFetcher_FetchesURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	d := NewDataFetcher(nil)
	out, err := d.Execute(context.Background(), map[string]any{"url": srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, out["status_code"])
	assert.Equal(t, `{"ok":true}`, out["body"])
}

func TestDataFetcher_ConfigURLFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDataFetcher(map[string]any{"url": srv.URL})
	out, err := d.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, out["status_code"])
}

func TestDataFetcher_MissingURL(t *testing.T) {
	d := NewDataFetcher(nil)
	_, err := d.Execute(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestChartGenerator_ProducesArtifact(t *testing.T) {
	g := NewChartGenerator(nil)
	out, err := g.Execute(context.Background(), map[string]any{
		"node1": map[string]any{"result": 11.0},
	})
	require.NoError(t, err)

	art, ok := out[ArtifactKey].(Artifact)
	require.True(t, ok, "output should carry an artifact")
	assert.Equal(t, "chart.svg", art.Name)
	assert.Equal(t, "image/svg+xml", art.ContentType)
	assert.Contains(t, string(art.Data), "<svg")
	assert.Equal(t, true, out["generated"])
}

func TestChartGenerator_NoNumericInput(t *testing.T) {
	g := NewChartGenerator(nil)
	_, err := g.Execute(context.Background(), map[string]any{"text": "hello"})
	require.Error(t, err)
}

func TestEcho_MergesConfUnderInputs(t *testing.T) {
	e := NewEcho(map[string]any{"source": "conf", "extra": 1})
	out, err := e.Execute(context.Background(), map[string]any{"source": "inputs"})
	require.NoError(t, err)
	assert.Equal(t, "inputs", out["source"])
	assert.Equal(t, 1, out["extra"])
}

func TestSleeper_HonorsCancellation(t *testing.T) {
	s := NewSleeper(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := s.Execute(ctx, map[string]any{"duration": "5s"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFactory_KnownAndUnknownKinds(t *testing.T) {
	for _, kind := range Kinds() {
		a, err := New(kind, nil)
		require.NoError(t, err, kind)
		require.NotNil(t, a, kind)
	}

	_, err := New("teleporter", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown agent kind")
}
