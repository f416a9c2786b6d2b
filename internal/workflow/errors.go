package workflow

import "fmt"

// ValidationKind identifies the specific check a run spec failed.
type ValidationKind string

const (
	KindDuplicateNodeID     ValidationKind = "duplicate_node_id"
	KindUnknownEdgeEndpoint ValidationKind = "unknown_edge_endpoint"
	KindCycleDetected       ValidationKind = "cycle_detected"
)

// ValidationError is returned by Validate when a run spec is rejected. No
// run state is ever created for a spec that fails validation; the caller can
// correct the spec and resubmit.
type ValidationError struct {
	Kind   ValidationKind
	Detail string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid run spec (%s): %s", e.Kind, e.Detail)
}
