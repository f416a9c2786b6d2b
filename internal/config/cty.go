package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// durationFromExpr evaluates a duration attribute. A string value is parsed
// with time.ParseDuration ("30s", "1m30s"); a bare number means seconds.
func durationFromExpr(expr hcl.Expression) (time.Duration, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return 0, fmt.Errorf("evaluating expression: %w", diags)
	}
	switch val.Type() {
	case cty.String:
		d, err := time.ParseDuration(val.AsString())
		if err != nil {
			return 0, err
		}
		return d, nil
	case cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return time.Duration(f * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("expected a duration string or number of seconds, got %s", val.Type().FriendlyName())
	}
}

// mapFromExpr evaluates a free-form object attribute into a plain Go map.
func mapFromExpr(expr hcl.Expression) (map[string]any, error) {
	if !isExprDefined(expr) {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("evaluating expression: %w", diags)
	}
	got, err := goFromCty(val)
	if err != nil {
		return nil, err
	}
	m, ok := got.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %s", val.Type().FriendlyName())
	}
	return m, nil
}

// goFromCty converts an evaluated cty value into the plain Go types agents
// consume: string, bool, float64, []any, and map[string]any.
func goFromCty(val cty.Value) (any, error) {
	if val.IsNull() {
		return nil, nil
	}
	t := val.Type()
	switch {
	case t == cty.String:
		return val.AsString(), nil
	case t == cty.Bool:
		return val.True(), nil
	case t == cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return f, nil
	case t.IsTupleType() || t.IsListType() || t.IsSetType():
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			g, err := goFromCty(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, g)
		}
		return out, nil
	case t.IsObjectType() || t.IsMapType():
		out := make(map[string]any, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			g, err := goFromCty(ev)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = g
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", t.FriendlyName())
	}
}
