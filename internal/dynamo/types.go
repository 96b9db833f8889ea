package dynamo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Handle is a dense body index issued by a Store. Handles are never reused.
type Handle int

// Body is one point mass.
type Body struct {
	ID   Handle
	Pos  r2.Vec
	Vel  r2.Vec
	Mass float64
}

// Params are the physical and numerical constants of a run.
type Params struct {
	G         float64
	Softening float64
	Dt        float64
}

func DefaultParams() Params {
	return Params{
		G:         1.0,
		Softening: 0.01,
		Dt:        0.001,
	}
}

// Validate accepts a zero softening length; configs loaded from disk
// require it to be positive.
func (p Params) Validate() error {
	if !(p.G > 0) || math.IsInf(p.G, 0) {
		return fmt.Errorf("%w: G must be positive and finite, got %g", ErrInvalidParams, p.G)
	}
	if !(p.Softening >= 0) || math.IsInf(p.Softening, 0) {
		return fmt.Errorf("%w: softening must be non-negative and finite, got %g", ErrInvalidParams, p.Softening)
	}
	if !(p.Dt > 0) || math.IsInf(p.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive and finite, got %g", ErrInvalidParams, p.Dt)
	}
	return nil
}

// ForceEvaluator fills acc with the gravitational acceleration of every
// live body. Dead slots must be left zero. Implementations may approximate
// the exact pairwise sum.
type ForceEvaluator interface {
	Name() string
	Accelerations(pos []r2.Vec, mass []float64, alive []bool, g, eps float64, acc []r2.Vec) error
}

// Stepper is the view of the simulation state handed to a Scheme. Position
// and velocity slices are mutated in place.
type Stepper interface {
	Positions() []r2.Vec
	Velocities() []r2.Vec
	Alive() []bool
	// Accelerations evaluates the field at pos. The returned slice is owned
	// by the stepper and overwritten by the next call.
	Accelerations(pos []r2.Vec) ([]r2.Vec, error)
}

// Scheme advances positions and velocities by one time step.
type Scheme interface {
	Name() string
	Step(s Stepper, dt float64) error
}

// EngineState is the integrator lifecycle.
type EngineState int

const (
	Idle EngineState = iota
	Stepping
	Faulted
)

func (s EngineState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Stepping:
		return "stepping"
	case Faulted:
		return "faulted"
	default:
		return fmt.Sprintf("EngineState(%d)", int(s))
	}
}

func finite(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}
