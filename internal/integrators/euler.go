package integrators

import "github.com/san-kum/gravsim/internal/dynamo"

// Euler is the explicit forward Euler method. Energy drifts without bound;
// it is kept for comparison runs only.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Name() string { return "euler" }

func (e *Euler) Step(s dynamo.Stepper, dt float64) error {
	pos, vel, alive := s.Positions(), s.Velocities(), s.Alive()
	acc, err := s.Accelerations(pos)
	if err != nil {
		return err
	}
	for i := range pos {
		if !alive[i] {
			continue
		}
		pos[i].X += vel[i].X * dt
		pos[i].Y += vel[i].Y * dt
		vel[i].X += acc[i].X * dt
		vel[i].Y += acc[i].Y * dt
	}
	return nil
}

// SymplecticEuler kicks velocities with the current accelerations and then
// drifts positions with the updated velocities.
type SymplecticEuler struct{}

func NewSymplecticEuler() *SymplecticEuler {
	return &SymplecticEuler{}
}

func (e *SymplecticEuler) Name() string { return "symplectic_euler" }

func (e *SymplecticEuler) Step(s dynamo.Stepper, dt float64) error {
	pos, vel, alive := s.Positions(), s.Velocities(), s.Alive()
	acc, err := s.Accelerations(pos)
	if err != nil {
		return err
	}
	for i := range pos {
		if !alive[i] {
			continue
		}
		vel[i].X += acc[i].X * dt
		vel[i].Y += acc[i].Y * dt
		pos[i].X += vel[i].X * dt
		pos[i].Y += vel[i].Y * dt
	}
	return nil
}
