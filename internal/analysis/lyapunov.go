package analysis

import (
	"errors"
	"math"

	"github.com/san-kum/gravsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

// LyapunovConfig controls a largest-exponent estimate.
type LyapunovConfig struct {
	Perturbation float64
	Steps        int
	// RenormEvery is the number of steps between renormalisations
	RenormEvery int
}

// LyapunovExponent estimates the largest Lyapunov exponent by the
// two-trajectory method: build makes two identical engines, the second is
// displaced by Perturbation along the x axis of its first live body, and the
// separation in phase space is measured and rescaled every RenormEvery
// steps. A clearly positive value indicates chaos.
func LyapunovExponent(build func() (*dynamo.Engine, error), cfg LyapunovConfig) (float64, error) {
	if cfg.Perturbation <= 0 || cfg.Steps <= 0 {
		return 0, errors.New("analysis: perturbation and steps must be positive")
	}
	if cfg.RenormEvery <= 0 {
		cfg.RenormEvery = 10
	}

	ref, err := build()
	if err != nil {
		return 0, err
	}
	pert, err := build()
	if err != nil {
		return 0, err
	}
	if ref.Store().Cap() != pert.Store().Cap() {
		return 0, errors.New("analysis: build returned engines of different sizes")
	}

	first := -1
	for b := range pert.Store().All() {
		first = int(b.ID)
		break
	}
	if first < 0 {
		return 0, errors.New("analysis: no bodies")
	}
	pert.Store().Positions()[first].X += cfg.Perturbation

	d0 := cfg.Perturbation
	sumLog := 0.0
	elapsed := 0.0

	for i := 1; i <= cfg.Steps; i++ {
		if err := ref.Step(); err != nil {
			return 0, err
		}
		if err := pert.Step(); err != nil {
			return 0, err
		}
		if i%cfg.RenormEvery != 0 && i != cfg.Steps {
			continue
		}

		d := separation(ref.Store(), pert.Store())
		if d == 0 {
			continue
		}
		sumLog += math.Log(d / d0)
		elapsed = ref.Time()
		rescale(ref.Store(), pert.Store(), d0/d)
	}

	if elapsed == 0 {
		return 0, nil
	}
	return sumLog / elapsed, nil
}

func separation(a, b *dynamo.Store) float64 {
	pa, pb := a.Positions(), b.Positions()
	va, vb := a.Velocities(), b.Velocities()
	alive := a.Alive()

	var sum float64
	for i := range pa {
		if !alive[i] {
			continue
		}
		sum += r2.Norm2(r2.Sub(pb[i], pa[i])) + r2.Norm2(r2.Sub(vb[i], va[i]))
	}
	return math.Sqrt(sum)
}

// rescale pulls b back towards a so their separation shrinks by scale.
func rescale(a, b *dynamo.Store, scale float64) {
	pa, pb := a.Positions(), b.Positions()
	va, vb := a.Velocities(), b.Velocities()
	for i := range pa {
		pb[i] = r2.Add(pa[i], r2.Scale(scale, r2.Sub(pb[i], pa[i])))
		vb[i] = r2.Add(va[i], r2.Scale(scale, r2.Sub(vb[i], va[i])))
	}
}
