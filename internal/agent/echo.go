package agent

import (
	"context"
	"maps"
)

// Echo returns its effective inputs unchanged, with any config entries
// merged underneath. Useful for demos and for asserting input merging in
// tests.
type Echo struct {
	conf map[string]any
}

// NewEcho builds an echo agent.
func NewEcho(conf map[string]any) *Echo { return &Echo{conf: conf} }

// Execute implements the Agent interface.
func (e *Echo) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(e.conf)+len(inputs))
	maps.Copy(out, e.conf)
	maps.Copy(out, inputs)
	return out, nil
}
