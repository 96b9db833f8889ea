package integrators

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

// oscillator is a unit harmonic oscillator per body: a = -p.
type oscillator struct {
	pos, vel []r2.Vec
	alive    []bool
	acc      []r2.Vec
	evals    int
	err      error
}

func newOscillator(p, v r2.Vec) *oscillator {
	return &oscillator{
		pos:   []r2.Vec{p},
		vel:   []r2.Vec{v},
		alive: []bool{true},
		acc:   make([]r2.Vec, 1),
	}
}

func (o *oscillator) Positions() []r2.Vec  { return o.pos }
func (o *oscillator) Velocities() []r2.Vec { return o.vel }
func (o *oscillator) Alive() []bool        { return o.alive }

func (o *oscillator) Accelerations(pos []r2.Vec) ([]r2.Vec, error) {
	o.evals++
	if o.err != nil {
		return nil, o.err
	}
	for i := range pos {
		o.acc[i] = r2.Scale(-1, pos[i])
	}
	return o.acc, nil
}

func (o *oscillator) energy() float64 {
	return 0.5*r2.Norm2(o.vel[0]) + 0.5*r2.Norm2(o.pos[0])
}

func TestRK4Accuracy(t *testing.T) {
	osc := newOscillator(r2.Vec{X: 1}, r2.Vec{})
	integ := NewRK4()

	dt := 0.01
	steps := 100
	for i := 0; i < steps; i++ {
		if err := integ.Step(osc, dt); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(osc.pos[0].X-expectedX) > 1e-8 {
		t.Errorf("position error too large: got %.10f, expected %.10f", osc.pos[0].X, expectedX)
	}
	if math.Abs(osc.vel[0].X-expectedV) > 1e-8 {
		t.Errorf("velocity error too large: got %.10f, expected %.10f", osc.vel[0].X, expectedV)
	}
	if osc.evals != 4*steps {
		t.Errorf("expected %d force evaluations, got %d", 4*steps, osc.evals)
	}
}

func TestSchemesTrackOscillator(t *testing.T) {
	tests := []struct {
		name string
		tol  float64
	}{
		{"symplectic_euler", 1e-2},
		{"leapfrog", 1e-4},
		{"euler", 5e-2},
		{"rk4", 1e-8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheme, err := New(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			if scheme.Name() != tt.name {
				t.Errorf("expected name %s, got %s", tt.name, scheme.Name())
			}

			osc := newOscillator(r2.Vec{X: 1}, r2.Vec{})
			dt := 0.001
			steps := 1000
			for i := 0; i < steps; i++ {
				if err := scheme.Step(osc, dt); err != nil {
					t.Fatal(err)
				}
			}

			want := math.Cos(float64(steps) * dt)
			if got := osc.pos[0].X; math.Abs(got-want) > tt.tol {
				t.Errorf("x(1) = %.8f, expected %.8f ± %g", got, want, tt.tol)
			}
		})
	}
}

func TestSymplecticEnergyBounded(t *testing.T) {
	for _, name := range []string{"symplectic_euler", "leapfrog"} {
		t.Run(name, func(t *testing.T) {
			scheme, _ := New(name)
			osc := newOscillator(r2.Vec{X: 1}, r2.Vec{Y: 1})
			e0 := osc.energy()

			maxDrift := 0.0
			for i := 0; i < 100000; i++ {
				if err := scheme.Step(osc, 0.01); err != nil {
					t.Fatal(err)
				}
				maxDrift = math.Max(maxDrift, math.Abs(osc.energy()-e0)/e0)
			}
			if maxDrift > 0.01 {
				t.Errorf("energy drift %.4f exceeds 1%% over 1000 periods", maxDrift)
			}
		})
	}
}

func TestEulerEnergyGrows(t *testing.T) {
	osc := newOscillator(r2.Vec{X: 1}, r2.Vec{})
	e0 := osc.energy()
	integ := NewEuler()
	for i := 0; i < 1000; i++ {
		_ = integ.Step(osc, 0.01)
	}
	if osc.energy() <= e0 {
		t.Errorf("explicit Euler should gain energy on an oscillator: %.6f -> %.6f", e0, osc.energy())
	}
}

func TestSchemesSkipDeadSlots(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			scheme, _ := New(name)
			osc := newOscillator(r2.Vec{X: 1}, r2.Vec{Y: 1})
			osc.alive[0] = false
			if err := scheme.Step(osc, 0.1); err != nil {
				t.Fatal(err)
			}
			if osc.pos[0] != (r2.Vec{X: 1}) || osc.vel[0] != (r2.Vec{Y: 1}) {
				t.Errorf("dead slot moved: pos %v vel %v", osc.pos[0], osc.vel[0])
			}
		})
	}
}

func TestSchemesPropagateForceErrors(t *testing.T) {
	boom := errors.New("boom")
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			scheme, _ := New(name)
			osc := newOscillator(r2.Vec{X: 1}, r2.Vec{})
			osc.err = boom
			if err := scheme.Step(osc, 0.1); !errors.Is(err, boom) {
				t.Errorf("expected force error, got %v", err)
			}
		})
	}
}

func TestNewUnknownScheme(t *testing.T) {
	if _, err := New("verlet-9000"); err == nil {
		t.Error("expected error for unknown integrator")
	}
	s, err := New("")
	if err != nil || s.Name() != Default {
		t.Errorf("empty name should select %s, got %v, %v", Default, s, err)
	}
}
