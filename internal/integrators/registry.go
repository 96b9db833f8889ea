package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/gravsim/internal/dynamo"
)

// Default is the scheme used when a configuration names none.
const Default = "symplectic_euler"

var schemes = map[string]func() dynamo.Scheme{
	"symplectic_euler": func() dynamo.Scheme { return NewSymplecticEuler() },
	"leapfrog":         func() dynamo.Scheme { return NewLeapfrog() },
	"euler":            func() dynamo.Scheme { return NewEuler() },
	"rk4":              func() dynamo.Scheme { return NewRK4() },
}

func New(name string) (dynamo.Scheme, error) {
	if name == "" {
		name = Default
	}
	fn, ok := schemes[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s (available: %v)", name, Names())
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(schemes))
	for name := range schemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
