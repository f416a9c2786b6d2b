package agent

import (
	"context"
	"fmt"
	"time"
)

// Sleeper sleeps for the "duration" input (a time.ParseDuration string) and
// returns how long it slept. It aborts immediately when the attempt context
// is canceled, so it is the standard subject of timeout tests and demos.
type Sleeper struct {
	fallback time.Duration
}

// NewSleeper builds a sleeper agent. A "duration" config entry sets the
// fallback used when the inputs carry none.
func NewSleeper(conf map[string]any) *Sleeper {
	s := &Sleeper{fallback: 100 * time.Millisecond}
	if d, ok := conf["duration"].(string); ok {
		if parsed, err := time.ParseDuration(d); err == nil {
			s.fallback = parsed
		}
	}
	return s
}

// Execute implements the Agent interface.
func (s *Sleeper) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	d := s.fallback
	if raw, ok := inputs["duration"].(string); ok {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("sleeper: invalid duration %q: %w", raw, err)
		}
		d = parsed
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return map[string]any{"slept": d.String()}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
