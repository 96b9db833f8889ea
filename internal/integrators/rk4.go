package integrators

import (
	"github.com/san-kum/gravsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

// RK4 is the classic fourth order Runge-Kutta method over the combined
// (position, velocity) state. It is accurate per step but not symplectic.
type RK4 struct {
	kp, kv  [4][]r2.Vec
	scratch []r2.Vec
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Name() string { return "rk4" }

func (r *RK4) ensureScratch(n int) {
	if len(r.scratch) != n {
		for k := range 4 {
			r.kp[k] = make([]r2.Vec, n)
			r.kv[k] = make([]r2.Vec, n)
		}
		r.scratch = make([]r2.Vec, n)
	}
}

func (r *RK4) Step(s dynamo.Stepper, dt float64) error {
	pos, vel, alive := s.Positions(), s.Velocities(), s.Alive()
	n := len(pos)
	r.ensureScratch(n)

	// Stage k uses the state offset by c·dt along stage k-1.
	offsets := [4]float64{0, dt * 0.5, dt * 0.5, dt}
	for k := range 4 {
		h := offsets[k]
		for i := 0; i < n; i++ {
			if k == 0 {
				r.scratch[i] = pos[i]
				r.kp[k][i] = vel[i]
				continue
			}
			r.scratch[i] = r2.Add(pos[i], r2.Scale(h, r.kp[k-1][i]))
			r.kp[k][i] = r2.Add(vel[i], r2.Scale(h, r.kv[k-1][i]))
		}

		acc, err := s.Accelerations(r.scratch)
		if err != nil {
			return err
		}
		copy(r.kv[k], acc)
	}

	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		if !alive[i] {
			continue
		}
		dp := r2.Add(r2.Add(r.kp[0][i], r2.Scale(2, r.kp[1][i])), r2.Add(r2.Scale(2, r.kp[2][i]), r.kp[3][i]))
		dv := r2.Add(r2.Add(r.kv[0][i], r2.Scale(2, r.kv[1][i])), r2.Add(r2.Scale(2, r.kv[2][i]), r.kv[3][i]))
		pos[i] = r2.Add(pos[i], r2.Scale(dt6, dp))
		vel[i] = r2.Add(vel[i], r2.Scale(dt6, dv))
	}
	return nil
}
