package dynamo

import (
	"iter"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Store holds per-body state as parallel slices indexed by Handle so that
// force evaluators and schemes can update it in bulk without copying.
//
// Removal tombstones the slot: the handle stays reserved, every other
// handle keeps its index, and dead slots are skipped everywhere.
type Store struct {
	pos   []r2.Vec
	vel   []r2.Vec
	mass  []float64
	alive []bool
	live  int
}

func NewStore() *Store {
	return &Store{}
}

// Add validates and appends a body. On error the store is unchanged.
func (s *Store) Add(pos, vel r2.Vec, mass float64) (Handle, error) {
	if !(mass > 0) || math.IsInf(mass, 0) {
		return -1, &InvalidBodyError{Field: "mass", Value: mass}
	}
	for _, c := range []struct {
		field string
		value float64
	}{
		{"position.x", pos.X}, {"position.y", pos.Y},
		{"velocity.x", vel.X}, {"velocity.y", vel.Y},
	} {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return -1, &InvalidBodyError{Field: c.field, Value: c.value}
		}
	}

	h := Handle(len(s.mass))
	s.pos = append(s.pos, pos)
	s.vel = append(s.vel, vel)
	s.mass = append(s.mass, mass)
	s.alive = append(s.alive, true)
	s.live++
	return h, nil
}

func (s *Store) Get(h Handle) (Body, error) {
	if !s.valid(h) {
		return Body{}, &UnknownHandleError{Handle: h}
	}
	return s.body(int(h)), nil
}

// Remove tombstones h. Only the owner may call it, and never mid-step.
func (s *Store) Remove(h Handle) error {
	if !s.valid(h) {
		return &UnknownHandleError{Handle: h}
	}
	i := int(h)
	s.alive[i] = false
	s.pos[i] = r2.Vec{}
	s.vel[i] = r2.Vec{}
	s.live--
	return nil
}

// All yields live bodies in handle order. The sequence reads the store
// when iterated, so ranging over it again observes current state.
func (s *Store) All() iter.Seq[Body] {
	return func(yield func(Body) bool) {
		for i := range s.mass {
			if !s.alive[i] {
				continue
			}
			if !yield(s.body(i)) {
				return
			}
		}
	}
}

// Len returns the number of live bodies.
func (s *Store) Len() int { return s.live }

// Cap returns the number of handles issued so far, live or removed.
func (s *Store) Cap() int { return len(s.mass) }

func (s *Store) Positions() []r2.Vec  { return s.pos }
func (s *Store) Velocities() []r2.Vec { return s.vel }
func (s *Store) Masses() []float64    { return s.mass }
func (s *Store) Alive() []bool        { return s.alive }

// Clone returns a deep copy, tombstones included.
func (s *Store) Clone() *Store {
	return &Store{
		pos:   append([]r2.Vec(nil), s.pos...),
		vel:   append([]r2.Vec(nil), s.vel...),
		mass:  append([]float64(nil), s.mass...),
		alive: append([]bool(nil), s.alive...),
		live:  s.live,
	}
}

func (s *Store) valid(h Handle) bool {
	return h >= 0 && int(h) < len(s.mass) && s.alive[h]
}

func (s *Store) body(i int) Body {
	return Body{ID: Handle(i), Pos: s.pos[i], Vel: s.vel[i], Mass: s.mass[i]}
}
