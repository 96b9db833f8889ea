package integrators

import "github.com/san-kum/gravsim/internal/dynamo"

// Leapfrog is the kick-drift-kick form of velocity Verlet. It evaluates
// forces twice per step and is second order and time reversible.
type Leapfrog struct{}

func NewLeapfrog() *Leapfrog {
	return &Leapfrog{}
}

func (l *Leapfrog) Name() string { return "leapfrog" }

func (l *Leapfrog) Step(s dynamo.Stepper, dt float64) error {
	pos, vel, alive := s.Positions(), s.Velocities(), s.Alive()
	halfDt := dt * 0.5

	acc, err := s.Accelerations(pos)
	if err != nil {
		return err
	}
	for i := range pos {
		if !alive[i] {
			continue
		}
		vel[i].X += acc[i].X * halfDt
		vel[i].Y += acc[i].Y * halfDt
		pos[i].X += vel[i].X * dt
		pos[i].Y += vel[i].Y * dt
	}

	acc, err = s.Accelerations(pos)
	if err != nil {
		return err
	}
	for i := range pos {
		if !alive[i] {
			continue
		}
		vel[i].X += acc[i].X * halfDt
		vel[i].Y += acc[i].Y * halfDt
	}
	return nil
}
