package agent

import (
	"context"
	"fmt"
)

// Calculator applies an arithmetic operation over a list of values. Values
// that are strings naming another input key are resolved against the inputs
// first, so a node can reference a dependency's output by id. The operation
// is taken from the "operation" input, then from the output map of the node
// named by "parent", and defaults to "add".
type Calculator struct{}

// NewCalculator builds a calculator agent.
func NewCalculator() *Calculator { return &Calculator{} }

// Execute implements the Agent interface.
func (c *Calculator) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	op := resolveOperation(inputs)

	raw, ok := inputs["values"].([]any)
	if !ok {
		return nil, fmt.Errorf("calculator: missing or invalid %q input", "values")
	}

	values := make([]float64, 0, len(raw))
	for _, v := range raw {
		f, err := resolveValue(v, inputs)
		if err != nil {
			return nil, fmt.Errorf("calculator: %w", err)
		}
		values = append(values, f)
	}

	result, err := calculate(op, values)
	if err != nil {
		return nil, fmt.Errorf("calculator: %w", err)
	}
	return map[string]any{"result": result}, nil
}

func resolveOperation(inputs map[string]any) string {
	if op, ok := inputs["operation"].(string); ok && op != "" {
		return op
	}
	if parent, ok := inputs["parent"].(string); ok {
		if out, ok := inputs[parent].(map[string]any); ok {
			if op, ok := out["operation"].(string); ok && op != "" {
				return op
			}
		}
	}
	return "add"
}

// resolveValue turns one element of "values" into a number. Strings are
// treated as references to other input keys; a reference to a map picks its
// "result" entry, matching how node outputs are shaped.
func resolveValue(v any, inputs map[string]any) (float64, error) {
	if f, ok := asFloat(v); ok {
		return f, nil
	}
	name, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("non-numeric value %v", v)
	}
	ref, ok := inputs[name]
	if !ok {
		return 0, fmt.Errorf("non-numeric value %q does not reference an input", name)
	}
	if out, ok := ref.(map[string]any); ok {
		ref = out["result"]
	}
	f, ok := asFloat(ref)
	if !ok {
		return 0, fmt.Errorf("input %q referenced by values is not numeric", name)
	}
	return f, nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func calculate(op string, values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	switch op {
	case "add":
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum, nil
	case "multiply":
		product := 1.0
		for _, v := range values {
			product *= v
		}
		return product, nil
	case "subtract":
		result := values[0]
		for _, v := range values[1:] {
			result -= v
		}
		return result, nil
	case "divide":
		result := values[0]
		for _, v := range values[1:] {
			if v == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			result /= v
		}
		return result, nil
	default:
		return 0, fmt.Errorf("unsupported operation %q", op)
	}
}
