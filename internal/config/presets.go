package config

import (
	"math"
	"sort"

	"github.com/san-kum/gravsim/internal/compute"
)

var Presets = map[string]*Config{
	"binary": {
		Name: "binary", G: 1, Softening: 0.01, Dt: 0.001, Duration: 20,
		Integrator: "symplectic_euler", Evaluator: compute.Direct, RadiusScale: 0.08,
		Bodies: []BodyConfig{
			{Pos: []float64{-1, 0}, Vel: []float64{0, 0.5}, Mass: 1},
			{Pos: []float64{1, 0}, Vel: []float64{0, -0.5}, Mass: 1},
		},
	},
	"circular": {
		Name: "circular", G: 1, Softening: 0.001, Dt: 0.0005, Duration: 10,
		Integrator: "leapfrog", Evaluator: compute.Direct, RadiusScale: 0.05,
		Bodies: circularPair(10, 0.1, 2),
	},
	"figure8": {
		Name: "figure8", G: 1, Softening: 0.0001, Dt: 0.0005, Duration: 6.3259,
		Integrator: "leapfrog", Evaluator: compute.Direct, RadiusScale: 0.05,
		Bodies: []BodyConfig{
			{Pos: []float64{-0.97000436, 0.24308753}, Vel: []float64{0.466203685, 0.43236573}, Mass: 1},
			{Pos: []float64{0.97000436, -0.24308753}, Vel: []float64{0.466203685, 0.43236573}, Mass: 1},
			{Pos: []float64{0, 0}, Vel: []float64{-0.93240737, -0.86473146}, Mass: 1},
		},
	},
	"solar": {
		Name: "solar", G: 1, Softening: 0.01, Dt: 0.0005, Duration: 30,
		Integrator: "leapfrog", Evaluator: compute.Direct, RadiusScale: 0.02,
		Bodies: solarSystem(1000, []float64{2, 3.5, 5, 7, 10}, []float64{0.05, 0.2, 0.3, 1, 0.5}),
	},
	"disk": {
		Name: "disk", G: 1, Softening: 0.1, Dt: 0.001, Duration: 20,
		Integrator: "leapfrog", Evaluator: compute.BarnesHut, Theta: 0.5, RadiusScale: 0.03,
		Generator: &GeneratorConfig{Kind: "disk", Count: 500, Radius: 10, CentralMass: 1000, Mass: 0.1},
	},
	"collapse": {
		Name: "collapse", G: 1, Softening: 0.1, Dt: 0.001, Duration: 15,
		Integrator: "leapfrog", Evaluator: compute.BarnesHut, Theta: 0.5, RadiusScale: 0.04,
		Generator: &GeneratorConfig{Kind: "random", Count: 200, Radius: 5, Mass: 1},
	},
}

// GetPreset returns a copy of the named preset with defaults filled in, or
// nil if it does not exist.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Name = p.Name
	cfg.G = p.G
	cfg.Softening = p.Softening
	cfg.Dt = p.Dt
	cfg.Duration = p.Duration
	cfg.Integrator = p.Integrator
	cfg.Evaluator = p.Evaluator
	if p.Theta > 0 {
		cfg.Theta = p.Theta
	}
	if p.RadiusScale > 0 {
		cfg.RadiusScale = p.RadiusScale
	}
	clone := p.Clone()
	cfg.Bodies = clone.Bodies
	cfg.Generator = clone.Generator
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// circularPair places two bodies on circular orbits about their common
// centre of mass, which stays at rest at the origin.
func circularPair(m1, m2, sep float64) []BodyConfig {
	total := m1 + m2
	vrel := math.Sqrt(DefaultG * total / sep)
	r1, r2 := sep*m2/total, sep*m1/total
	return []BodyConfig{
		{Pos: []float64{-r1, 0}, Vel: []float64{0, -vrel * m2 / total}, Mass: m1},
		{Pos: []float64{r2, 0}, Vel: []float64{0, vrel * m1 / total}, Mass: m2},
	}
}

// solarSystem puts a star at the origin and planets on circular orbits
// around it, alternating sides so the star's recoil stays small.
func solarSystem(star float64, radii, masses []float64) []BodyConfig {
	bodies := []BodyConfig{{Pos: []float64{0, 0}, Vel: []float64{0, 0}, Mass: star}}
	for i, r := range radii {
		side := 1.0
		if i%2 == 1 {
			side = -1
		}
		v := math.Sqrt(DefaultG * star / r)
		bodies = append(bodies, BodyConfig{
			Pos:  []float64{side * r, 0},
			Vel:  []float64{0, side * v},
			Mass: masses[i],
		})
	}
	return bodies
}
