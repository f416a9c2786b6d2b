// Package runstore provides the ephemeral, thread-safe, in-memory store of
// run and per-node execution state.
//
// The store is created once per orchestrator instance and lives for the
// lifetime of the process; nothing is persisted. Mutations are applied one
// node transition at a time, and reads return a deep-copied point-in-time
// snapshot, so a caller observing a run mid-execution never sees a torn
// update.
package runstore

import (
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"
)

// ErrRunNotFound is returned for lookups of unknown run ids.
var ErrRunNotFound = fmt.Errorf("run not found")

// ErrArtifactNotFound is returned for lookups of unknown artifact names.
var ErrArtifactNotFound = fmt.Errorf("artifact not found")

// Status is the execution state of a single node.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusReady     Status = "READY"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusSkipped   Status = "SKIPPED"
)

// Terminal reports whether a node status is final.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSkipped
}

// RunStatus is the overall state of a run. Running is the only non-terminal
// run status; a run is Succeeded iff every node succeeded.
type RunStatus string

const (
	RunRunning   RunStatus = "RUNNING"
	RunSucceeded RunStatus = "SUCCEEDED"
	RunFailed    RunStatus = "FAILED"
)

// NodeState tracks one node's progress through a run.
type NodeState struct {
	Status    Status         `json:"status"`
	Attempt   int            `json:"attempt"`
	Output    map[string]any `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	StartedAt *time.Time     `json:"started_at,omitempty"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
}

// Artifact is a named blob recorded against a run by an agent.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// RunState is the full state of one run.
type RunState struct {
	RunID     string                `json:"run_id"`
	Status    RunStatus             `json:"status"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
	Nodes     map[string]*NodeState `json:"nodes"`
	Artifacts []string              `json:"artifacts,omitempty"`
}

// Summary is the list-view projection of a run.
type Summary struct {
	RunID     string    `json:"run_id"`
	Status    RunStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	NodeCount int       `json:"node_count"`
}

type runEntry struct {
	state     RunState
	artifacts map[string]Artifact
}

// Store maps run ids to run state. All methods are safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*runEntry
	now  func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{runs: make(map[string]*runEntry), now: time.Now}
}

// Create seeds the state for a new run: every node starts Pending except the
// given roots, which start Ready. The run itself starts Running.
func (s *Store) Create(runID string, nodeIDs, roots []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[runID]; exists {
		return fmt.Errorf("run %q already exists", runID)
	}

	nodes := make(map[string]*NodeState, len(nodeIDs))
	for _, id := range nodeIDs {
		nodes[id] = &NodeState{Status: StatusPending}
	}
	for _, id := range roots {
		nodes[id].Status = StatusReady
	}

	now := s.now()
	s.runs[runID] = &runEntry{
		state: RunState{
			RunID:     runID,
			Status:    RunRunning,
			CreatedAt: now,
			UpdatedAt: now,
			Nodes:     nodes,
		},
		artifacts: make(map[string]Artifact),
	}
	return nil
}

// Get returns a deep-copied snapshot of a run's state.
func (s *Store) Get(runID string) (RunState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.runs[runID]
	if !ok {
		return RunState{}, fmt.Errorf("%q: %w", runID, ErrRunNotFound)
	}
	return snapshot(entry), nil
}

// List returns summaries of all runs, oldest first.
func (s *Store) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.runs))
	for _, entry := range s.runs {
		out = append(out, Summary{
			RunID:     entry.state.RunID,
			Status:    entry.state.Status,
			CreatedAt: entry.state.CreatedAt,
			UpdatedAt: entry.state.UpdatedAt,
			NodeCount: len(entry.state.Nodes),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].RunID < out[j].RunID
	})
	return out
}

// MarkReady transitions a node to Ready once all its dependencies succeeded.
func (s *Store) MarkReady(runID, nodeID string) error {
	return s.mutateNode(runID, nodeID, func(n *NodeState) {
		n.Status = StatusReady
	})
}

// MarkRunning transitions a node to Running and records its start time.
func (s *Store) MarkRunning(runID, nodeID string) error {
	return s.mutateNode(runID, nodeID, func(n *NodeState) {
		n.Status = StatusRunning
		t := s.now()
		n.StartedAt = &t
	})
}

// SetAttempt records the invocation attempt a node is currently on.
func (s *Store) SetAttempt(runID, nodeID string, attempt int) error {
	return s.mutateNode(runID, nodeID, func(n *NodeState) {
		n.Attempt = attempt
	})
}

// MarkSucceeded transitions a node to Succeeded and records its output.
func (s *Store) MarkSucceeded(runID, nodeID string, output map[string]any) error {
	return s.mutateNode(runID, nodeID, func(n *NodeState) {
		n.Status = StatusSucceeded
		n.Output = copyMap(output)
		t := s.now()
		n.EndedAt = &t
	})
}

// MarkFailed transitions a node to Failed and records its last error.
func (s *Store) MarkFailed(runID, nodeID, errMsg string) error {
	return s.mutateNode(runID, nodeID, func(n *NodeState) {
		n.Status = StatusFailed
		n.Error = errMsg
		t := s.now()
		n.EndedAt = &t
	})
}

// MarkSkipped transitions a node to Skipped. Skipped nodes are never
// dispatched, so they carry no start time and an attempt count of zero.
func (s *Store) MarkSkipped(runID, nodeID, reason string) error {
	return s.mutateNode(runID, nodeID, func(n *NodeState) {
		n.Status = StatusSkipped
		n.Error = reason
		t := s.now()
		n.EndedAt = &t
	})
}

// NodeOutput returns a copy of a succeeded node's recorded output.
func (s *Store) NodeOutput(runID, nodeID string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.runs[runID]
	if !ok {
		return nil, false
	}
	n, ok := entry.state.Nodes[nodeID]
	if !ok || n.Status != StatusSucceeded {
		return nil, false
	}
	return copyMap(n.Output), true
}

// SetRunStatus records a run's terminal status.
func (s *Store) SetRunStatus(runID string, status RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%q: %w", runID, ErrRunNotFound)
	}
	entry.state.Status = status
	entry.state.UpdatedAt = s.now()
	return nil
}

// AddArtifact records an artifact against a run, replacing any prior
// artifact with the same name.
func (s *Store) AddArtifact(runID string, art Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%q: %w", runID, ErrRunNotFound)
	}
	entry.artifacts[art.Name] = art
	entry.state.UpdatedAt = s.now()
	return nil
}

// Artifact returns a run's artifact by name.
func (s *Store) Artifact(runID, name string) (Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.runs[runID]
	if !ok {
		return Artifact{}, fmt.Errorf("%q: %w", runID, ErrRunNotFound)
	}
	art, ok := entry.artifacts[name]
	if !ok {
		return Artifact{}, fmt.Errorf("%q: %w", name, ErrArtifactNotFound)
	}
	out := art
	out.Data = append([]byte(nil), art.Data...)
	return out, nil
}

func (s *Store) mutateNode(runID, nodeID string, mutate func(*NodeState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("%q: %w", runID, ErrRunNotFound)
	}
	n, ok := entry.state.Nodes[nodeID]
	if !ok {
		return fmt.Errorf("node %q not part of run %q", nodeID, runID)
	}
	mutate(n)
	entry.state.UpdatedAt = s.now()
	return nil
}

func snapshot(entry *runEntry) RunState {
	out := entry.state
	out.Nodes = make(map[string]*NodeState, len(entry.state.Nodes))
	for id, n := range entry.state.Nodes {
		c := *n
		c.Output = copyMap(n.Output)
		if n.StartedAt != nil {
			t := *n.StartedAt
			c.StartedAt = &t
		}
		if n.EndedAt != nil {
			t := *n.EndedAt
			c.EndedAt = &t
		}
		out.Nodes[id] = &c
	}
	if len(entry.artifacts) > 0 {
		names := make([]string, 0, len(entry.artifacts))
		for name := range entry.artifacts {
			names = append(names, name)
		}
		sort.Strings(names)
		out.Artifacts = names
	}
	return out
}

// copyMap is a shallow copy; output maps are treated as immutable once
// recorded, so one level is enough to keep snapshots isolated.
func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	maps.Copy(out, m)
	return out
}
