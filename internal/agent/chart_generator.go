package agent

import (
	"context"
	"fmt"
	"math"
)

// ChartGenerator renders a single-bar SVG chart of one numeric input and
// hands it to the engine as a run artifact. The value is looked up under the
// config's "input_key" (default "result"), first directly in the inputs and
// then inside any dependency output map.
type ChartGenerator struct {
	inputKey string
}

// NewChartGenerator builds a chart_generator agent.
func NewChartGenerator(conf map[string]any) *ChartGenerator {
	key := "result"
	if k, ok := conf["input_key"].(string); ok && k != "" {
		key = k
	}
	return &ChartGenerator{inputKey: key}
}

// Execute implements the Agent interface.
func (g *ChartGenerator) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	val, ok := g.findValue(inputs)
	if !ok {
		return nil, fmt.Errorf("chart_generator: no numeric %q input found", g.inputKey)
	}

	svg := renderBarSVG(val)
	return map[string]any{
		ArtifactKey: Artifact{
			Name:        "chart.svg",
			ContentType: "image/svg+xml",
			Data:        []byte(svg),
		},
		"generated": true,
		"bytes":     len(svg),
	}, nil
}

func (g *ChartGenerator) findValue(inputs map[string]any) (float64, bool) {
	if f, ok := asFloat(inputs[g.inputKey]); ok {
		return f, true
	}
	for _, v := range inputs {
		if out, ok := v.(map[string]any); ok {
			if f, ok := asFloat(out[g.inputKey]); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// renderBarSVG draws one vertical bar scaled against a headroom of 20% above
// the value, mirroring a minimal bar chart.
func renderBarSVG(val float64) string {
	const width, height = 200, 150
	ceiling := math.Max(1, val*1.2)
	barHeight := int(math.Round(math.Abs(val) / ceiling * (height - 20)))
	y := height - barHeight

	return fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`+
			`<title>value = %g</title>`+
			`<rect x="70" y="%d" width="60" height="%d" fill="steelblue"/>`+
			`</svg>`,
		width, height, val, y, barHeight,
	)
}
