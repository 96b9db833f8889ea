package compute

import (
	"fmt"
	"sort"

	"github.com/san-kum/gravsim/internal/dynamo"
)

const (
	Direct    = "direct"
	BarnesHut = "barneshut"
)

// DefaultTheta is the Barnes-Hut opening angle used when none is given.
const DefaultTheta = 0.5

var evaluators = map[string]func(theta float64) dynamo.ForceEvaluator{
	Direct:    func(float64) dynamo.ForceEvaluator { return NewDirect() },
	BarnesHut: func(theta float64) dynamo.ForceEvaluator { return NewBarnesHut(theta) },
}

// New returns the named force evaluator. theta is only used by tree codes.
func New(name string, theta float64) (dynamo.ForceEvaluator, error) {
	fn, ok := evaluators[name]
	if !ok {
		return nil, fmt.Errorf("unknown force evaluator: %s (available: %v)", name, Names())
	}
	return fn(theta), nil
}

func Names() []string {
	names := make([]string, 0, len(evaluators))
	for name := range evaluators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
