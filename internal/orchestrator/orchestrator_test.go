package orchestrator

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowgrid/internal/engine"
	"github.com/vk/flowgrid/internal/registry"
	"github.com/vk/flowgrid/internal/runstore"
	"github.com/vk/flowgrid/internal/workflow"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	defaults := engine.Defaults{
		MaxAttempts: 2,
		Timeout:     time.Second,
		Backoff:     time.Millisecond,
		BackoffMax:  2 * time.Millisecond,
	}
	return New(registry.New(), runstore.New(), defaults, logger)
}

// submitAndWait submits a spec and blocks until the run settles.
func submitAndWait(t *testing.T, o *Orchestrator, spec workflow.RunSpec) runstore.RunState {
	t.Helper()
	runID, err := o.SubmitRun(spec)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, o.WaitForRun(ctx, runID))

	state, err := o.GetRun(runID)
	require.NoError(t, err)
	return state
}

func TestSubmitRun_InvalidSpecRecordsNothing(t *testing.T) {
	o := newTestOrchestrator(t)

	_, err := o.SubmitRun(workflow.RunSpec{
		Nodes: []workflow.Node{{ID: "a", Agent: "x"}, {ID: "b", Agent: "x"}},
		Edges: []workflow.Edge{{From: "a", To: "b"}, {From: "b", To: "a"}},
	})

	var verr *workflow.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, workflow.KindCycleDetected, verr.Kind)
	assert.Empty(t, o.ListRuns(), "a rejected spec must leave no trace in the store")
}

func TestRegisterAgent(t *testing.T) {
	o := newTestOrchestrator(t)

	require.NoError(t, o.RegisterAgent("fetch", "data_fetcher", nil))
	require.NoError(t, o.RegisterAgent("mirror", "echo", map[string]any{"tag": "demo"}))

	err := o.RegisterAgent("bad", "teleporter", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown agent kind")

	err = o.RegisterAgent("", "echo", nil)
	require.Error(t, err)

	assert.Equal(t, []AgentInfo{
		{Name: "fetch", Kind: "data_fetcher"},
		{Name: "mirror", Kind: "echo"},
	}, o.ListAgents())
}

func TestRegisterAgent_UpsertReplacesKind(t *testing.T) {
	o := newTestOrchestrator(t)
	require.NoError(t, o.RegisterAgent("worker", "echo", nil))
	require.NoError(t, o.RegisterAgent("worker", "sleeper", nil))

	agents := o.ListAgents()
	require.Len(t, agents, 1)
	assert.Equal(t, AgentInfo{Name: "worker", Kind: "sleeper"}, agents[0])
}

func TestEndToEnd_FetchThenCalculate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"operation": "add"}`))
	}))
	defer srv.Close()

	o := newTestOrchestrator(t)
	require.NoError(t, o.RegisterAgent("fetcher", "data_fetcher", nil))
	require.NoError(t, o.RegisterAgent("calc", "calculator", nil))
	require.NoError(t, o.RegisterAgent("mirror", "echo", nil))

	state := submitAndWait(t, o, workflow.RunSpec{
		Nodes: []workflow.Node{
			{ID: "node1", Agent: "fetcher", Params: map[string]any{"url": srv.URL}},
			{ID: "node2", Agent: "calc", Params: map[string]any{
				"parent": "node1",
				"values": []any{5, 6},
			}},
			{ID: "node3", Agent: "mirror", Params: map[string]any{"side": "independent"}},
		},
		Edges: []workflow.Edge{{From: "node1", To: "node2"}},
	})

	require.Equal(t, runstore.RunSucceeded, state.Status)

	node1 := state.Nodes["node1"]
	require.Equal(t, runstore.StatusSucceeded, node1.Status)
	assert.Equal(t, http.StatusOK, node1.Output["status_code"])

	node2 := state.Nodes["node2"]
	require.Equal(t, runstore.StatusSucceeded, node2.Status)
	assert.Equal(t, float64(11), node2.Output["result"])

	node3 := state.Nodes["node3"]
	require.Equal(t, runstore.StatusSucceeded, node3.Status)
	assert.Equal(t, "independent", node3.Output["side"])
}

func TestEndToEnd_NonNumericValuesExhaustRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	o := newTestOrchestrator(t)
	require.NoError(t, o.RegisterAgent("fetcher", "data_fetcher", nil))
	require.NoError(t, o.RegisterAgent("calc", "calculator", nil))
	require.NoError(t, o.RegisterAgent("mirror", "echo", nil))

	// "5s" and "6s" never become numbers, so node2 burns its whole retry
	// budget deterministically while the rest of the graph is unaffected.
	state := submitAndWait(t, o, workflow.RunSpec{
		Nodes: []workflow.Node{
			{ID: "node1", Agent: "fetcher", Params: map[string]any{"url": srv.URL}},
			{ID: "node2", Agent: "calc", Params: map[string]any{
				"parent": "node1",
				"values": []any{"5s", "6s"},
			}},
			{ID: "node3", Agent: "mirror"},
		},
		Edges: []workflow.Edge{{From: "node1", To: "node2"}},
	})

	require.Equal(t, runstore.RunFailed, state.Status)
	assert.Equal(t, runstore.StatusSucceeded, state.Nodes["node1"].Status)
	assert.Equal(t, runstore.StatusSucceeded, state.Nodes["node3"].Status)

	node2 := state.Nodes["node2"]
	assert.Equal(t, runstore.StatusFailed, node2.Status)
	assert.Equal(t, 2, node2.Attempt)
	assert.Contains(t, node2.Error, "non-numeric")
}

func TestEndToEnd_ChartArtifact(t *testing.T) {
	o := newTestOrchestrator(t)
	require.NoError(t, o.RegisterAgent("calc", "calculator", nil))
	require.NoError(t, o.RegisterAgent("chart", "chart_generator", nil))

	state := submitAndWait(t, o, workflow.RunSpec{
		Nodes: []workflow.Node{
			{ID: "sum", Agent: "calc", Params: map[string]any{"values": []any{2, 3}}},
			{ID: "render", Agent: "chart"},
		},
		Edges: []workflow.Edge{{From: "sum", To: "render"}},
	})

	require.Equal(t, runstore.RunSucceeded, state.Status)
	require.Equal(t, []string{"chart.svg"}, state.Artifacts)

	runID := state.RunID
	art, err := o.Artifact(runID, "chart.svg")
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", art.ContentType)
	assert.Contains(t, string(art.Data), "<svg")

	_, err = o.Artifact(runID, "nope.svg")
	assert.ErrorIs(t, err, runstore.ErrArtifactNotFound)
}

func TestGetRun_NotFound(t *testing.T) {
	o := newTestOrchestrator(t)
	_, err := o.GetRun("missing")
	assert.ErrorIs(t, err, runstore.ErrRunNotFound)
}

func TestWaitForRun_UnknownRun(t *testing.T) {
	o := newTestOrchestrator(t)
	err := o.WaitForRun(context.Background(), "missing")
	assert.ErrorIs(t, err, runstore.ErrRunNotFound)
}

func TestListRuns_OrderedByCreation(t *testing.T) {
	o := newTestOrchestrator(t)
	require.NoError(t, o.RegisterAgent("mirror", "echo", nil))

	var ids []string
	for i := 0; i < 3; i++ {
		state := submitAndWait(t, o, workflow.RunSpec{
			Nodes: []workflow.Node{{ID: "only", Agent: "mirror"}},
		})
		ids = append(ids, state.RunID)
	}

	summaries := o.ListRuns()
	require.Len(t, summaries, 3)
	for i, s := range summaries {
		assert.Equal(t, ids[i], s.RunID)
		assert.Equal(t, runstore.RunSucceeded, s.Status)
		assert.Equal(t, 1, s.NodeCount)
	}
}
