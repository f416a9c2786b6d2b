package agent

import (
	"fmt"
	"sort"
)

// builders maps each compiled-in agent kind to its constructor. Registration
// at the API binds a name to one of these kinds plus a static config map;
// there is no runtime code loading.
var builders = map[string]func(conf map[string]any) Agent{
	"data_fetcher":    func(conf map[string]any) Agent { return NewDataFetcher(conf) },
	"calculator":      func(conf map[string]any) Agent { return NewCalculator() },
	"chart_generator": func(conf map[string]any) Agent { return NewChartGenerator(conf) },
	"echo":            func(conf map[string]any) Agent { return NewEcho(conf) },
	"sleeper":         func(conf map[string]any) Agent { return NewSleeper(conf) },
}

// New builds a compiled-in agent of the given kind. The conf mapping holds
// static settings the agent falls back to when an input is absent.
func New(kind string, conf map[string]any) (Agent, error) {
	build, ok := builders[kind]
	if !ok {
		return nil, fmt.Errorf("unknown agent kind %q (available: %v)", kind, Kinds())
	}
	return build(conf), nil
}

// Kinds returns the sorted names of all compiled-in agent kinds.
func Kinds() []string {
	kinds := make([]string, 0, len(builders))
	for k := range builders {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
