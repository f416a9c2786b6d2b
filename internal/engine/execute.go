package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vk/flowgrid/internal/agent"
	"github.com/vk/flowgrid/internal/workflow"
)

// executeNode resolves a node's agent and runs it through the node's retry
// budget. An unregistered agent fails the node immediately without consuming
// any attempts. Otherwise each attempt is bounded by the node's timeout, and
// the node fails with the last attempt's error once the budget is exhausted.
func (e *Engine) executeNode(ctx context.Context, runID string, g *workflow.Graph, n workflow.Node, logger *slog.Logger) (map[string]any, error) {
	a, err := e.registry.Lookup(n.Agent)
	if err != nil {
		return nil, err
	}

	inputs := e.effectiveInputs(runID, g, n)
	maxAttempts, timeout := e.policyFor(n)

	var last error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		e.store.SetAttempt(runID, n.ID, attempt)

		out, err := e.invoke(ctx, n.Agent, a, inputs, timeout, attempt)
		if err == nil {
			return out, nil
		}
		last = err
		logger.Warn("Attempt failed.", "attempt", attempt, "max_attempts", maxAttempts, "error", err)

		if attempt == maxAttempts {
			break
		}
		delay := backoffDelay(attempt, e.defaults)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, &AgentExecutionError{Agent: n.Agent, Attempt: attempt, Err: ctx.Err()}
		}
	}
	return nil, last
}

// invoke performs one attempt. The agent runs on its own goroutine writing
// into a buffered channel: when the deadline wins the select, the attempt is
// abandoned and a late result lands in the buffer and is discarded, never
// recorded. A panic inside the agent is converted into an execution error so
// a faulty agent cannot take down the orchestrator or its sibling nodes.
func (e *Engine) invoke(ctx context.Context, name string, a agent.Agent, inputs map[string]any, timeout time.Duration, attempt int) (map[string]any, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		out map[string]any
		err error
	}
	resCh := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resCh <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		out, err := a.Execute(attemptCtx, inputs)
		resCh <- result{out: out, err: err}
	}()

	select {
	case res := <-resCh:
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) {
				// The agent observed its own deadline; still a timeout.
				return nil, &TimeoutError{Agent: name, Attempt: attempt, Timeout: timeout}
			}
			return nil, &AgentExecutionError{Agent: name, Attempt: attempt, Err: res.err}
		}
		return res.out, nil
	case <-attemptCtx.Done():
		if ctx.Err() == nil {
			return nil, &TimeoutError{Agent: name, Attempt: attempt, Timeout: timeout}
		}
		return nil, &AgentExecutionError{Agent: name, Attempt: attempt, Err: ctx.Err()}
	}
}

func (e *Engine) policyFor(n workflow.Node) (maxAttempts int, timeout time.Duration) {
	maxAttempts = e.defaults.MaxAttempts
	if n.MaxAttempts > 0 {
		maxAttempts = n.MaxAttempts
	}
	timeout = e.defaults.Timeout
	if n.Timeout > 0 {
		timeout = n.Timeout
	}
	return maxAttempts, timeout
}
