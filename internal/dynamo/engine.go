package dynamo

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

// Engine advances a Store by fixed time steps. It implements Stepper for
// the scheme it drives.
type Engine struct {
	store  *Store
	eval   ForceEvaluator
	scheme Scheme
	params Params

	state EngineState
	fault error
	time  float64
	steps int64

	acc []r2.Vec
}

func NewEngine(store *Store, eval ForceEvaluator, scheme Scheme, params Params) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidParams)
	}
	if eval == nil || scheme == nil {
		return nil, fmt.Errorf("%w: force evaluator and scheme are required", ErrInvalidParams)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		store:  store,
		eval:   eval,
		scheme: scheme,
		params: params,
	}, nil
}

// Step advances the state by one Dt. A non-finite result faults the engine;
// once faulted, every Step fails until Reset.
func (e *Engine) Step() error {
	if e.state == Faulted {
		return &FaultedError{Cause: e.fault}
	}
	e.state = Stepping

	if err := e.scheme.Step(e, e.params.Dt); err != nil {
		return e.fail(err)
	}
	if err := e.checkState(); err != nil {
		return e.fail(err)
	}

	e.steps++
	e.time += e.params.Dt
	e.state = Idle
	return nil
}

// Reset re-seeds the engine with store and clears any fault.
func (e *Engine) Reset(store *Store) error {
	if store == nil {
		return fmt.Errorf("%w: nil store", ErrInvalidParams)
	}
	e.store = store
	e.state = Idle
	e.fault = nil
	e.time = 0
	e.steps = 0
	return nil
}

func (e *Engine) State() EngineState { return e.state }
func (e *Engine) Fault() error       { return e.fault }
func (e *Engine) Time() float64      { return e.time }
func (e *Engine) Steps() int64       { return e.steps }
func (e *Engine) Params() Params     { return e.params }
func (e *Engine) Store() *Store      { return e.store }

func (e *Engine) Evaluator() ForceEvaluator { return e.eval }
func (e *Engine) Scheme() Scheme            { return e.scheme }

func (e *Engine) Positions() []r2.Vec  { return e.store.pos }
func (e *Engine) Velocities() []r2.Vec { return e.store.vel }
func (e *Engine) Alive() []bool        { return e.store.alive }

func (e *Engine) Accelerations(pos []r2.Vec) ([]r2.Vec, error) {
	n := len(e.store.mass)
	if cap(e.acc) < n {
		e.acc = make([]r2.Vec, n)
	}
	e.acc = e.acc[:n]
	clear(e.acc)

	if err := e.eval.Accelerations(pos, e.store.mass, e.store.alive, e.params.G, e.params.Softening, e.acc); err != nil {
		return nil, e.instability(-1, "force evaluation ("+e.eval.Name()+")", err)
	}
	for i, a := range e.acc {
		if e.store.alive[i] && !finite(a) {
			return nil, e.instability(Handle(i), "acceleration", nil)
		}
	}
	return e.acc, nil
}

func (e *Engine) checkState() error {
	for i := range e.store.mass {
		if !e.store.alive[i] {
			continue
		}
		if !finite(e.store.vel[i]) {
			return e.instability(Handle(i), "velocity", nil)
		}
		if !finite(e.store.pos[i]) {
			return e.instability(Handle(i), "position", nil)
		}
	}
	return nil
}

func (e *Engine) instability(h Handle, quantity string, cause error) error {
	return &NumericalInstabilityError{
		Step:     e.steps + 1,
		Time:     e.time + e.params.Dt,
		Body:     h,
		Quantity: quantity,
		Cause:    cause,
	}
}

func (e *Engine) fail(err error) error {
	var ni *NumericalInstabilityError
	if !errors.As(err, &ni) {
		err = e.instability(-1, "scheme "+e.scheme.Name(), err)
	}
	e.state = Faulted
	e.fault = err
	return err
}
