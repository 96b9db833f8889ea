package metrics

import (
	"math"

	"github.com/san-kum/gravsim/internal/snapshot"
)

// Energy reports the mean total energy over all observed snapshots.
type Energy struct {
	name        string
	g, eps      float64
	samples     int
	totalEnergy float64
}

func NewEnergy(g, eps float64) *Energy {
	return &Energy{
		name: "energy",
		g:    g,
		eps:  eps,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(s *snapshot.Snapshot) {
	e.totalEnergy += TotalEnergy(s.All(), e.g, e.eps)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift reports the largest relative deviation of total energy from
// the first observed value.
type EnergyDrift struct {
	name          string
	g, eps        float64
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(g, eps float64) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		g:    g,
		eps:  eps,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(s *snapshot.Snapshot) {
	energy := TotalEnergy(s.All(), e.g, e.eps)

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

// Current is the total energy at the last observation.
func (e *EnergyDrift) Current() float64 {
	return e.currentEnergy
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
