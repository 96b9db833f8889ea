package metrics

import (
	"iter"
	"math"
	"slices"

	"github.com/san-kum/gravsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

func KineticEnergy(bodies iter.Seq[dynamo.Body]) float64 {
	var ke float64
	for b := range bodies {
		ke += 0.5 * b.Mass * r2.Norm2(b.Vel)
	}
	return ke
}

// PotentialEnergy is the softened pair potential -G·m_i·m_j/√(r²+ε²),
// consistent with the force law the evaluators integrate.
func PotentialEnergy(bodies iter.Seq[dynamo.Body], g, eps float64) float64 {
	bs := slices.Collect(bodies)
	eps2 := eps * eps

	var pe float64
	for i := range bs {
		for j := i + 1; j < len(bs); j++ {
			d := r2.Sub(bs[j].Pos, bs[i].Pos)
			pe -= g * bs[i].Mass * bs[j].Mass / math.Sqrt(r2.Norm2(d)+eps2)
		}
	}
	return pe
}

func TotalEnergy(bodies iter.Seq[dynamo.Body], g, eps float64) float64 {
	return KineticEnergy(bodies) + PotentialEnergy(bodies, g, eps)
}

// Momentum is the total linear momentum Σ m·v.
func Momentum(bodies iter.Seq[dynamo.Body]) r2.Vec {
	var p r2.Vec
	for b := range bodies {
		p = r2.Add(p, r2.Scale(b.Mass, b.Vel))
	}
	return p
}

// AngularMomentum is the z component of Σ m·(r × v) about the origin.
func AngularMomentum(bodies iter.Seq[dynamo.Body]) float64 {
	var l float64
	for b := range bodies {
		l += b.Mass * r2.Cross(b.Pos, b.Vel)
	}
	return l
}

func CenterOfMass(bodies iter.Seq[dynamo.Body]) (r2.Vec, float64) {
	var c r2.Vec
	var m float64
	for b := range bodies {
		c = r2.Add(c, r2.Scale(b.Mass, b.Pos))
		m += b.Mass
	}
	if m == 0 {
		return r2.Vec{}, 0
	}
	return r2.Scale(1/m, c), m
}
