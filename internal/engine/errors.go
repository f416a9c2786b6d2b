package engine

import (
	"fmt"
	"time"
)

// AgentExecutionError records one failed invocation attempt. It counts
// against the node's retry budget.
type AgentExecutionError struct {
	Agent   string
	Attempt int
	Err     error
}

// Error implements the error interface.
func (e *AgentExecutionError) Error() string {
	return fmt.Sprintf("agent %q failed on attempt %d: %v", e.Agent, e.Attempt, e.Err)
}

// Unwrap exposes the underlying agent error.
func (e *AgentExecutionError) Unwrap() error { return e.Err }

// TimeoutError records an attempt that exceeded its deadline. It counts
// against the retry budget like any other failure but is kept distinct so
// timeouts stay visible in run state.
type TimeoutError struct {
	Agent   string
	Attempt int
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("agent %q timed out after %s on attempt %d", e.Agent, e.Timeout, e.Attempt)
}
