package dynamo_test

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/integrators"
	"github.com/san-kum/gravsim/internal/metrics"
	"gonum.org/v1/gonum/spatial/r2"
)

func binaryStore(t *testing.T) *dynamo.Store {
	t.Helper()
	s := dynamo.NewStore()
	if _, err := s.Add(r2.Vec{X: -1}, r2.Vec{Y: 0.5}, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(r2.Vec{X: 1}, r2.Vec{Y: -0.5}, 1); err != nil {
		t.Fatal(err)
	}
	return s
}

func newEngine(t *testing.T, s *dynamo.Store, p dynamo.Params) *dynamo.Engine {
	t.Helper()
	eng, err := dynamo.NewEngine(s, compute.NewDirect(), integrators.NewSymplecticEuler(), p)
	if err != nil {
		t.Fatal(err)
	}
	return eng
}

func TestNewEngineValidation(t *testing.T) {
	eval, scheme := compute.NewDirect(), integrators.NewSymplecticEuler()
	tests := []struct {
		name   string
		store  *dynamo.Store
		eval   dynamo.ForceEvaluator
		scheme dynamo.Scheme
		params dynamo.Params
	}{
		{"nil store", nil, eval, scheme, dynamo.DefaultParams()},
		{"nil evaluator", dynamo.NewStore(), nil, scheme, dynamo.DefaultParams()},
		{"nil scheme", dynamo.NewStore(), eval, nil, dynamo.DefaultParams()},
		{"zero G", dynamo.NewStore(), eval, scheme, dynamo.Params{G: 0, Softening: 0.01, Dt: 0.001}},
		{"negative softening", dynamo.NewStore(), eval, scheme, dynamo.Params{G: 1, Softening: -1, Dt: 0.001}},
		{"zero dt", dynamo.NewStore(), eval, scheme, dynamo.Params{G: 1, Softening: 0.01}},
		{"nan dt", dynamo.NewStore(), eval, scheme, dynamo.Params{G: 1, Softening: 0.01, Dt: math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dynamo.NewEngine(tt.store, tt.eval, tt.scheme, tt.params)
			if !errors.Is(err, dynamo.ErrInvalidParams) {
				t.Errorf("expected ErrInvalidParams, got %v", err)
			}
		})
	}
}

func TestBinaryConservation(t *testing.T) {
	s := binaryStore(t)
	p := dynamo.DefaultParams()
	eng := newEngine(t, s, p)

	e0 := metrics.TotalEnergy(s.All(), p.G, p.Softening)
	for i := 0; i < 1000; i++ {
		if err := eng.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if eng.Steps() != 1000 {
		t.Errorf("expected 1000 steps, got %d", eng.Steps())
	}
	if math.Abs(eng.Time()-1.0) > 1e-9 {
		t.Errorf("expected time 1.0, got %.12f", eng.Time())
	}
	if eng.State() != dynamo.Idle {
		t.Errorf("expected idle engine, got %v", eng.State())
	}

	if mom := metrics.Momentum(s.All()); r2.Norm(mom) > 1e-9 {
		t.Errorf("momentum not conserved: %v", mom)
	}
	e1 := metrics.TotalEnergy(s.All(), p.G, p.Softening)
	if drift := math.Abs(e1-e0) / math.Abs(e0); drift > 0.01 {
		t.Errorf("energy drift %.4f exceeds 1%%: %.6f -> %.6f", drift, e0, e1)
	}
}

func TestMomentumConservedAcrossSchemes(t *testing.T) {
	for _, name := range integrators.Names() {
		t.Run(name, func(t *testing.T) {
			s := dynamo.NewStore()
			bodies := []struct {
				pos, vel r2.Vec
				mass     float64
			}{
				{r2.Vec{X: -1}, r2.Vec{Y: 0.3}, 2},
				{r2.Vec{X: 1, Y: 0.5}, r2.Vec{X: -0.2, Y: -0.4}, 1},
				{r2.Vec{Y: 2}, r2.Vec{X: 0.1}, 0.5},
			}
			for _, b := range bodies {
				if _, err := s.Add(b.pos, b.vel, b.mass); err != nil {
					t.Fatal(err)
				}
			}
			scheme, _ := integrators.New(name)
			eng, err := dynamo.NewEngine(s, compute.NewDirect(), scheme, dynamo.DefaultParams())
			if err != nil {
				t.Fatal(err)
			}

			p0 := metrics.Momentum(s.All())
			for i := 0; i < 500; i++ {
				if err := eng.Step(); err != nil {
					t.Fatal(err)
				}
			}
			if d := r2.Norm(r2.Sub(metrics.Momentum(s.All()), p0)); d > 1e-9 {
				t.Errorf("momentum drifted by %g", d)
			}
		})
	}
}

func TestCoincidentBodiesFault(t *testing.T) {
	s := dynamo.NewStore()
	for range 10 {
		if _, err := s.Add(r2.Vec{X: 1, Y: 1}, r2.Vec{}, 1); err != nil {
			t.Fatal(err)
		}
	}
	eng := newEngine(t, s, dynamo.Params{G: 1, Softening: 0, Dt: 0.001})

	err := eng.Step()
	if !errors.Is(err, dynamo.ErrNumericalInstability) {
		t.Fatalf("expected ErrNumericalInstability, got %v", err)
	}
	var ni *dynamo.NumericalInstabilityError
	if !errors.As(err, &ni) {
		t.Fatalf("expected *NumericalInstabilityError, got %T", err)
	}
	if ni.Step != 1 || ni.Quantity != "acceleration" {
		t.Errorf("unexpected fault context: %+v", ni)
	}
	if eng.State() != dynamo.Faulted {
		t.Errorf("expected faulted engine, got %v", eng.State())
	}
	if eng.Steps() != 0 || eng.Time() != 0 {
		t.Errorf("a failed step must not advance time: steps=%d time=%f", eng.Steps(), eng.Time())
	}

	err = eng.Step()
	if !errors.Is(err, dynamo.ErrFaulted) || !errors.Is(err, dynamo.ErrNumericalInstability) {
		t.Errorf("expected ErrFaulted wrapping the cause, got %v", err)
	}

	if err := eng.Reset(binaryStore(t)); err != nil {
		t.Fatal(err)
	}
	if eng.State() != dynamo.Idle || eng.Fault() != nil {
		t.Errorf("reset should clear the fault, got %v / %v", eng.State(), eng.Fault())
	}
	if err := eng.Step(); err != nil {
		t.Errorf("step after reset: %v", err)
	}
}

func TestSingleBodyAtRest(t *testing.T) {
	for _, name := range compute.Names() {
		t.Run(name, func(t *testing.T) {
			s := dynamo.NewStore()
			if _, err := s.Add(r2.Vec{X: 3, Y: -2}, r2.Vec{}, 5); err != nil {
				t.Fatal(err)
			}
			eval, _ := compute.New(name, compute.DefaultTheta)
			eng, err := dynamo.NewEngine(s, eval, integrators.NewLeapfrog(), dynamo.DefaultParams())
			if err != nil {
				t.Fatal(err)
			}

			for i := 0; i < 100; i++ {
				if err := eng.Step(); err != nil {
					t.Fatal(err)
				}
			}
			b, _ := s.Get(0)
			if b.Pos != (r2.Vec{X: 3, Y: -2}) || b.Vel != (r2.Vec{}) {
				t.Errorf("isolated body moved: %+v", b)
			}
		})
	}
}

func TestKeplerPeriod(t *testing.T) {
	// Equal masses at separation 2 with v = 0.5 orbit circularly;
	// T = 2π·√(a³/(G·M)) = 4π.
	s := binaryStore(t)
	p := dynamo.DefaultParams()
	eng := newEngine(t, s, p)

	expected := 2 * math.Pi * math.Sqrt(math.Pow(2, 3)/(p.G*2))

	// Body 0 starts on the negative x axis moving up; a full orbit brings
	// it back across y = 0 from below on the x < 0 side.
	prevY := 0.0
	period := 0.0
	for i := 0; i < 20000 && period == 0; i++ {
		if err := eng.Step(); err != nil {
			t.Fatal(err)
		}
		b, _ := s.Get(0)
		if i > 100 && prevY < 0 && b.Pos.Y >= 0 && b.Pos.X < 0 {
			frac := -prevY / (b.Pos.Y - prevY)
			period = eng.Time() - p.Dt + frac*p.Dt
		}
		prevY = b.Pos.Y
	}

	if period == 0 {
		t.Fatal("orbit did not complete")
	}
	if rel := math.Abs(period-expected) / expected; rel > 0.01 {
		t.Errorf("period %.4f deviates from Kepler %.4f by %.3f%%", period, expected, rel*100)
	}
}

func TestRemovedBodyExertsNoForce(t *testing.T) {
	s := binaryStore(t)
	if _, err := s.Add(r2.Vec{Y: 5}, r2.Vec{}, 1000); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(2); err != nil {
		t.Fatal(err)
	}

	ref := binaryStore(t)
	eng := newEngine(t, s, dynamo.DefaultParams())
	refEng := newEngine(t, ref, dynamo.DefaultParams())
	for i := 0; i < 100; i++ {
		if err := eng.Step(); err != nil {
			t.Fatal(err)
		}
		if err := refEng.Step(); err != nil {
			t.Fatal(err)
		}
	}

	for h := dynamo.Handle(0); h < 2; h++ {
		got, _ := s.Get(h)
		want, _ := ref.Get(h)
		if got.Pos != want.Pos || got.Vel != want.Vel {
			t.Errorf("body %d: removed mass still acts: got %+v want %+v", h, got, want)
		}
	}
}

type failingScheme struct{ err error }

func (f failingScheme) Name() string                       { return "failing" }
func (f failingScheme) Step(dynamo.Stepper, float64) error { return f.err }

func TestSchemeErrorFaultsEngine(t *testing.T) {
	boom := errors.New("boom")
	eng, err := dynamo.NewEngine(binaryStore(t), compute.NewDirect(), failingScheme{boom}, dynamo.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}

	err = eng.Step()
	if !errors.Is(err, boom) || !errors.Is(err, dynamo.ErrNumericalInstability) {
		t.Errorf("expected instability wrapping scheme error, got %v", err)
	}
	if eng.State() != dynamo.Faulted {
		t.Errorf("expected faulted engine, got %v", eng.State())
	}
}

func TestEngineStateString(t *testing.T) {
	tests := []struct {
		state dynamo.EngineState
		want  string
	}{
		{dynamo.Idle, "idle"},
		{dynamo.Stepping, "stepping"},
		{dynamo.Faulted, "faulted"},
		{dynamo.EngineState(9), "EngineState(9)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("expected %s, got %s", tt.want, got)
		}
	}
}
