package snapshot

import (
	"iter"
	"math"

	"github.com/san-kum/gravsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultRadiusScale converts cbrt(mass) into a display radius.
const DefaultRadiusScale = 0.05

// BodyView is the published, read-only copy of one live body.
type BodyView struct {
	ID     dynamo.Handle
	Pos    r2.Vec
	Vel    r2.Vec
	Mass   float64
	Radius float64
}

// Snapshot is an immutable copy of the simulation at a step boundary.
// Nothing may modify a Snapshot after it has been published.
type Snapshot struct {
	Step   int64
	Time   float64
	Status dynamo.EngineState
	Bodies []BodyView
}

// Capture copies the live bodies of e. Call it only from the goroutine
// that owns e, between steps.
func Capture(e *dynamo.Engine, radiusScale float64) *Snapshot {
	if radiusScale <= 0 {
		radiusScale = DefaultRadiusScale
	}
	store := e.Store()
	s := &Snapshot{
		Step:   e.Steps(),
		Time:   e.Time(),
		Status: e.State(),
		Bodies: make([]BodyView, 0, store.Len()),
	}
	for b := range store.All() {
		s.Bodies = append(s.Bodies, BodyView{
			ID:     b.ID,
			Pos:    b.Pos,
			Vel:    b.Vel,
			Mass:   b.Mass,
			Radius: Radius(b.Mass, radiusScale),
		})
	}
	return s
}

// Radius is the display radius of a body: proportional to the cube root
// of its mass, as for bodies of equal density.
func Radius(mass, scale float64) float64 {
	return math.Cbrt(mass) * scale
}

// WithStatus returns a copy carrying status. The body slice is shared,
// which is safe because snapshots are never mutated.
func (s *Snapshot) WithStatus(status dynamo.EngineState) *Snapshot {
	c := *s
	c.Status = status
	return &c
}

func (s *Snapshot) Len() int { return len(s.Bodies) }

// All yields the bodies as dynamo.Body values for diagnostics.
func (s *Snapshot) All() iter.Seq[dynamo.Body] {
	return func(yield func(dynamo.Body) bool) {
		for _, b := range s.Bodies {
			if !yield(dynamo.Body{ID: b.ID, Pos: b.Pos, Vel: b.Vel, Mass: b.Mass}) {
				return
			}
		}
	}
}

// Instances returns one [x, y, radius] triple per body, the layout an
// instanced quad renderer uploads as-is.
func (s *Snapshot) Instances() []float32 {
	out := make([]float32, 0, 3*len(s.Bodies))
	for _, b := range s.Bodies {
		out = append(out, float32(b.Pos.X), float32(b.Pos.Y), float32(b.Radius))
	}
	return out
}

// Bounds returns the axis-aligned extent of all bodies including their
// radii. An empty snapshot has zero bounds.
func (s *Snapshot) Bounds() (lo, hi r2.Vec) {
	if len(s.Bodies) == 0 {
		return r2.Vec{}, r2.Vec{}
	}
	lo = r2.Vec{X: math.Inf(1), Y: math.Inf(1)}
	hi = r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, b := range s.Bodies {
		lo.X = math.Min(lo.X, b.Pos.X-b.Radius)
		lo.Y = math.Min(lo.Y, b.Pos.Y-b.Radius)
		hi.X = math.Max(hi.X, b.Pos.X+b.Radius)
		hi.Y = math.Max(hi.Y, b.Pos.Y+b.Radius)
	}
	return lo, hi
}
