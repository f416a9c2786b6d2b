package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowgrid/internal/engine"
	"github.com/vk/flowgrid/internal/orchestrator"
	"github.com/vk/flowgrid/internal/registry"
	"github.com/vk/flowgrid/internal/runstore"
)

type apiHarness struct {
	orch *orchestrator.Orchestrator
	srv  *httptest.Server
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	orch := orchestrator.New(registry.New(), runstore.New(), engine.Defaults{
		MaxAttempts: 2,
		Timeout:     time.Second,
		Backoff:     time.Millisecond,
	}, logger)

	srv := httptest.NewServer(NewServer(orch, logger).Handler())
	t.Cleanup(srv.Close)
	return &apiHarness{orch: orch, srv: srv}
}

func (h *apiHarness) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(h.srv.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func (h *apiHarness) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(h.srv.URL + path)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// submitAndAwait posts a run spec, expects 202, and waits for the run to
// settle before returning its id.
func (h *apiHarness) submitAndAwait(t *testing.T, spec map[string]any) string {
	t.Helper()
	resp := h.post(t, "/runs", spec)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	out := decode[submitRunResponse](t, resp)
	require.NotEmpty(t, out.RunID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, h.orch.WaitForRun(ctx, out.RunID))
	return out.RunID
}

func TestHealth(t *testing.T) {
	h := newAPIHarness(t)
	resp := h.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestSubmitRun_Lifecycle(t *testing.T) {
	h := newAPIHarness(t)
	require.NoError(t, h.orch.RegisterAgent("mirror", "echo", nil))

	runID := h.submitAndAwait(t, map[string]any{
		"nodes": []map[string]any{
			{"id": "a", "agent": "mirror", "params": map[string]any{"greeting": "hello"}},
			{"id": "b", "agent": "mirror"},
		},
		"edges":          []map[string]any{{"from": "a", "to": "b"}},
		"initial_inputs": map[string]any{"seed": 42},
	})

	resp := h.get(t, "/runs/"+runID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decode[runstore.RunState](t, resp)
	assert.Equal(t, runstore.RunSucceeded, state.Status)
	require.Len(t, state.Nodes, 2)
	assert.Equal(t, runstore.StatusSucceeded, state.Nodes["a"].Status)
	assert.Equal(t, "hello", state.Nodes["a"].Output["greeting"])
	// b inherits a's output plus the initial inputs.
	assert.Equal(t, float64(42), state.Nodes["b"].Output["seed"])

	resp = h.get(t, "/runs")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summaries := decode[[]runstore.Summary](t, resp)
	require.Len(t, summaries, 1)
	assert.Equal(t, runID, summaries[0].RunID)
	assert.Equal(t, 2, summaries[0].NodeCount)
}

func TestSubmitRun_ValidationFailure(t *testing.T) {
	h := newAPIHarness(t)

	resp := h.post(t, "/runs", map[string]any{
		"nodes": []map[string]any{
			{"id": "a", "agent": "x"},
			{"id": "b", "agent": "x"},
		},
		"edges": []map[string]any{
			{"from": "a", "to": "b"},
			{"from": "b", "to": "a"},
		},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	assert.Equal(t, "cycle_detected", body.Kind)
	assert.Contains(t, body.Error, "invalid run spec")
}

func TestSubmitRun_MalformedBody(t *testing.T) {
	h := newAPIHarness(t)
	resp, err := http.Post(h.srv.URL+"/runs", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitRun_InvalidTimeout(t *testing.T) {
	h := newAPIHarness(t)
	resp := h.post(t, "/runs", map[string]any{
		"nodes": []map[string]any{
			{"id": "a", "agent": "x", "timeout": "soon"},
		},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	assert.Contains(t, body.Error, "invalid timeout")
}

func TestGetRun_NotFound(t *testing.T) {
	h := newAPIHarness(t)
	resp := h.get(t, "/runs/ghost")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAgents_RegisterAndList(t *testing.T) {
	h := newAPIHarness(t)

	resp := h.post(t, "/agents", map[string]any{
		"name":   "fetcher",
		"kind":   "data_fetcher",
		"config": map[string]any{"url": "http://example.test"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[orchestrator.AgentInfo](t, resp)
	assert.Equal(t, orchestrator.AgentInfo{Name: "fetcher", Kind: "data_fetcher"}, created)

	resp = h.post(t, "/agents", map[string]any{"name": "bad", "kind": "teleporter"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	assert.Contains(t, body.Error, "unknown agent kind")

	resp = h.get(t, "/agents")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	agents := decode[[]orchestrator.AgentInfo](t, resp)
	require.Len(t, agents, 1)
	assert.Equal(t, "fetcher", agents[0].Name)
}

func TestArtifactDownload(t *testing.T) {
	h := newAPIHarness(t)
	require.NoError(t, h.orch.RegisterAgent("calc", "calculator", nil))
	require.NoError(t, h.orch.RegisterAgent("chart", "chart_generator", nil))

	runID := h.submitAndAwait(t, map[string]any{
		"nodes": []map[string]any{
			{"id": "sum", "agent": "calc", "params": map[string]any{"values": []any{2, 3}}},
			{"id": "render", "agent": "chart"},
		},
		"edges": []map[string]any{{"from": "sum", "to": "render"}},
	})

	resp := h.get(t, "/runs/"+runID+"/artifacts/chart.svg")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")

	resp = h.get(t, "/runs/"+runID+"/artifacts/missing.svg")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
