package metrics

import (
	"math"

	"github.com/san-kum/gravsim/internal/snapshot"
	"gonum.org/v1/gonum/spatial/r2"
)

// MomentumDrift reports the largest |P(t) - P(0)| seen, normalised by the
// total |m·v| of the first sample when that is non-zero.
type MomentumDrift struct {
	name     string
	initial  r2.Vec
	scale    float64
	maxDrift float64
	samples  int
}

func NewMomentumDrift() *MomentumDrift {
	return &MomentumDrift{
		name: "momentum_drift",
	}
}

func (m *MomentumDrift) Name() string { return m.name }

func (m *MomentumDrift) Observe(s *snapshot.Snapshot) {
	p := Momentum(s.All())
	if m.samples == 0 {
		m.initial = p
		for _, b := range s.Bodies {
			m.scale += b.Mass * r2.Norm(b.Vel)
		}
		if m.scale == 0 {
			m.scale = 1
		}
	}
	m.samples++
	m.maxDrift = math.Max(m.maxDrift, r2.Norm(r2.Sub(p, m.initial))/m.scale)
}

func (m *MomentumDrift) Value() float64 {
	return m.maxDrift
}

func (m *MomentumDrift) Reset() {
	m.initial = r2.Vec{}
	m.scale = 0
	m.maxDrift = 0
	m.samples = 0
}
