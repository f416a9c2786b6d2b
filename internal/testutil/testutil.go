// Package testutil provides shared helpers for exercising the engine and
// API in tests: a thread-safe log buffer, wall-clock execution records for
// concurrency assertions, and function-backed fake agents.
package testutil

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// ExecutionRecord captures the wall-clock window of one agent invocation.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two execution windows intersect.
func (r ExecutionRecord) Overlaps(other ExecutionRecord) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Recorder collects execution records keyed by node id.
type Recorder struct {
	mu      sync.Mutex
	records map[string]ExecutionRecord
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{records: make(map[string]ExecutionRecord)}
}

// Record stores the execution window for a key.
func (r *Recorder) Record(key string, rec ExecutionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[key] = rec
}

// Get returns the execution window recorded for a key.
func (r *Recorder) Get(key string) (ExecutionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	return rec, ok
}

// FuncAgent adapts a function to the agent contract, the standard way tests
// inject bespoke behavior.
type FuncAgent func(ctx context.Context, inputs map[string]any) (map[string]any, error)

// Execute implements the agent.Agent interface.
func (f FuncAgent) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	return f(ctx, inputs)
}

// RecordingAgent returns an agent that records its execution window under
// the node's "record_key" input (falling back to key), sleeps for d, and
// succeeds with the given output.
func RecordingAgent(rec *Recorder, key string, d time.Duration, output map[string]any) FuncAgent {
	return func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
		k := key
		if v, ok := inputs["record_key"].(string); ok {
			k = v
		}
		start := time.Now()
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			rec.Record(k, ExecutionRecord{Start: start, End: time.Now()})
			return nil, ctx.Err()
		}
		rec.Record(k, ExecutionRecord{Start: start, End: time.Now()})
		return output, nil
	}
}
