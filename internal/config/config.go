package config

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"slices"

	"github.com/san-kum/gravsim/internal/clock"
	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/integrators"
	"github.com/san-kum/gravsim/internal/snapshot"
	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultG         = 1.0
	DefaultSoftening = 0.01
	DefaultDt        = 0.001
	DefaultDuration  = 10.0
	DefaultTickHz    = 240.0
	MaxTickHz        = 1e6
	DefaultSeed      = 42
)

type Config struct {
	Name        string           `yaml:"name"`
	G           float64          `yaml:"g"`
	Softening   float64          `yaml:"softening"`
	Dt          float64          `yaml:"dt"`
	MaxCatchUp  int              `yaml:"max_catch_up"`
	Integrator  string           `yaml:"integrator"`
	Evaluator   string           `yaml:"evaluator"`
	Theta       float64          `yaml:"theta"`
	Duration    float64          `yaml:"duration"`
	TickHz      float64          `yaml:"tick_hz"`
	TimeScale   float64          `yaml:"time_scale"`
	RadiusScale float64          `yaml:"radius_scale"`
	Seed        int64            `yaml:"seed"`
	Bodies      []BodyConfig     `yaml:"bodies"`
	Generator   *GeneratorConfig `yaml:"generator,omitempty"`
}

type BodyConfig struct {
	Pos  []float64 `yaml:"pos,flow"`
	Vel  []float64 `yaml:"vel,flow"`
	Mass float64   `yaml:"mass"`
}

// GeneratorConfig adds procedurally placed bodies after the explicit ones.
type GeneratorConfig struct {
	// Kind is ring, disk or random
	Kind        string  `yaml:"kind"`
	Count       int     `yaml:"count"`
	Radius      float64 `yaml:"radius"`
	CentralMass float64 `yaml:"central_mass"`
	// Mass of each generated body
	Mass float64 `yaml:"mass"`
}

var generatorKinds = []string{"disk", "random", "ring"}

func DefaultConfig() *Config {
	return &Config{
		Name:        "custom",
		G:           DefaultG,
		Softening:   DefaultSoftening,
		Dt:          DefaultDt,
		MaxCatchUp:  clock.DefaultMaxCatchUp,
		Integrator:  integrators.Default,
		Evaluator:   compute.Direct,
		Theta:       compute.DefaultTheta,
		Duration:    DefaultDuration,
		TickHz:      DefaultTickHz,
		TimeScale:   1,
		RadiusScale: snapshot.DefaultRadiusScale,
		Seed:        DefaultSeed,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks ranges and names. Unlike the engine, a configuration
// requires a strictly positive softening length.
func (c *Config) Validate() error {
	switch {
	case !(c.G > 0) || math.IsInf(c.G, 0):
		return fmt.Errorf("%w: g must be positive, got %g", dynamo.ErrInvalidParams, c.G)
	case !(c.Softening > 0) || math.IsInf(c.Softening, 0):
		return fmt.Errorf("%w: softening must be positive, got %g", dynamo.ErrInvalidParams, c.Softening)
	case !(c.Dt > 0) || math.IsInf(c.Dt, 0):
		return fmt.Errorf("%w: dt must be positive, got %g", dynamo.ErrInvalidParams, c.Dt)
	case c.MaxCatchUp < 1:
		return fmt.Errorf("%w: max_catch_up must be at least 1, got %d", dynamo.ErrInvalidParams, c.MaxCatchUp)
	case !(c.Theta >= 0):
		return fmt.Errorf("%w: theta must not be negative, got %g", dynamo.ErrInvalidParams, c.Theta)
	case !(c.Duration > 0):
		return fmt.Errorf("%w: duration must be positive, got %g", dynamo.ErrInvalidParams, c.Duration)
	case !(c.TickHz > 0) || c.TickHz > MaxTickHz:
		return fmt.Errorf("%w: tick_hz must be in (0, %g], got %g", dynamo.ErrInvalidParams, MaxTickHz, c.TickHz)
	case !(c.TimeScale > 0):
		return fmt.Errorf("%w: time_scale must be positive, got %g", dynamo.ErrInvalidParams, c.TimeScale)
	}
	if !slices.Contains(integrators.Names(), c.Integrator) {
		return fmt.Errorf("%w: unknown integrator %q (available: %v)", dynamo.ErrInvalidParams, c.Integrator, integrators.Names())
	}
	if !slices.Contains(compute.Names(), c.Evaluator) {
		return fmt.Errorf("%w: unknown evaluator %q (available: %v)", dynamo.ErrInvalidParams, c.Evaluator, compute.Names())
	}

	for i, b := range c.Bodies {
		if len(b.Pos) != 2 || len(b.Vel) != 2 {
			return fmt.Errorf("%w: body %d: pos and vel need exactly 2 components", dynamo.ErrInvalidBody, i)
		}
	}
	n := len(c.Bodies)
	if g := c.Generator; g != nil {
		if !slices.Contains(generatorKinds, g.Kind) {
			return fmt.Errorf("%w: unknown generator kind %q (available: %v)", dynamo.ErrInvalidParams, g.Kind, generatorKinds)
		}
		if g.Count < 0 || !(g.Radius > 0) || g.CentralMass < 0 || g.Mass < 0 {
			return fmt.Errorf("%w: generator needs count >= 0, radius > 0 and non-negative masses", dynamo.ErrInvalidParams)
		}
		n += g.Count
		if g.CentralMass > 0 {
			n++
		}
	}
	if n == 0 {
		return fmt.Errorf("%w: at least one body is required", dynamo.ErrInvalidParams)
	}
	return nil
}

func (c *Config) EngineParams() dynamo.Params {
	return dynamo.Params{
		G:         c.G,
		Softening: c.Softening,
		Dt:        c.Dt,
	}
}

// Steps is the number of whole steps that fit in Duration.
func (c *Config) Steps() int64 {
	return int64(math.Round(c.Duration / c.Dt))
}

// BuildStore creates the initial bodies. Generated bodies are
// deterministic for a given Seed.
func (c *Config) BuildStore() (*dynamo.Store, error) {
	s := dynamo.NewStore()
	for i, b := range c.Bodies {
		if len(b.Pos) != 2 || len(b.Vel) != 2 {
			return nil, fmt.Errorf("%w: body %d: pos and vel need exactly 2 components", dynamo.ErrInvalidBody, i)
		}
		pos := r2.Vec{X: b.Pos[0], Y: b.Pos[1]}
		vel := r2.Vec{X: b.Vel[0], Y: b.Vel[1]}
		if _, err := s.Add(pos, vel, b.Mass); err != nil {
			return nil, fmt.Errorf("body %d: %w", i, err)
		}
	}
	if c.Generator != nil {
		rng := rand.New(rand.NewSource(c.Seed))
		if err := c.Generator.generate(s, rng, c.G, c.Softening); err != nil {
			return nil, fmt.Errorf("generator %s: %w", c.Generator.Kind, err)
		}
	}
	return s, nil
}

// Build validates the configuration and assembles a ready engine.
func (c *Config) Build() (*dynamo.Engine, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	store, err := c.BuildStore()
	if err != nil {
		return nil, err
	}
	return c.NewEngine(store)
}

// NewEngine assembles an engine around an existing store, for callers that
// adjust the initial bodies before the run.
func (c *Config) NewEngine(store *dynamo.Store) (*dynamo.Engine, error) {
	eval, err := compute.New(c.Evaluator, c.Theta)
	if err != nil {
		return nil, err
	}
	scheme, err := integrators.New(c.Integrator)
	if err != nil {
		return nil, err
	}
	return dynamo.NewEngine(store, eval, scheme, c.EngineParams())
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Bodies = make([]BodyConfig, len(c.Bodies))
	for i, b := range c.Bodies {
		out.Bodies[i] = BodyConfig{
			Pos:  slices.Clone(b.Pos),
			Vel:  slices.Clone(b.Vel),
			Mass: b.Mass,
		}
	}
	if c.Generator != nil {
		g := *c.Generator
		out.Generator = &g
	}
	return &out
}

// Clock returns a simulation clock matching the configuration.
func (c *Config) Clock() (*clock.Clock, error) {
	clk, err := clock.New(c.Dt, c.MaxCatchUp)
	if err != nil {
		return nil, err
	}
	clk.TimeScale = c.TimeScale
	return clk, nil
}

func (g *GeneratorConfig) generate(s *dynamo.Store, rng *rand.Rand, gc, eps float64) error {
	mass := g.Mass
	if mass == 0 {
		mass = 1
	}
	if g.CentralMass > 0 {
		if _, err := s.Add(r2.Vec{}, r2.Vec{}, g.CentralMass); err != nil {
			return err
		}
	}

	for i := 0; i < g.Count; i++ {
		var pos, vel r2.Vec
		switch g.Kind {
		case "ring":
			angle := 2 * math.Pi * float64(i) / float64(g.Count)
			pos = r2.Vec{X: g.Radius * math.Cos(angle), Y: g.Radius * math.Sin(angle)}
			vel = orbitalVelocity(pos, gc*(g.CentralMass+mass*float64(g.Count)/2), eps)
		case "disk":
			// sqrt keeps the surface density uniform.
			r := g.Radius * math.Sqrt(0.05+0.95*rng.Float64())
			angle := 2 * math.Pi * rng.Float64()
			pos = r2.Vec{X: r * math.Cos(angle), Y: r * math.Sin(angle)}
			enclosed := g.CentralMass + mass*float64(g.Count)*(r*r)/(g.Radius*g.Radius)
			vel = orbitalVelocity(pos, gc*enclosed, eps)
		case "random":
			pos = r2.Vec{X: g.Radius * (2*rng.Float64() - 1), Y: g.Radius * (2*rng.Float64() - 1)}
		default:
			return fmt.Errorf("%w: unknown generator kind %q", dynamo.ErrInvalidParams, g.Kind)
		}
		if _, err := s.Add(pos, vel, mass); err != nil {
			return fmt.Errorf("body %d: %w", i, err)
		}
	}
	return nil
}

// orbitalVelocity is the counter-clockwise circular speed at pos around a
// softened point of gravitational parameter mu at the origin.
func orbitalVelocity(pos r2.Vec, mu, eps float64) r2.Vec {
	r := r2.Norm(pos)
	if r == 0 || mu == 0 {
		return r2.Vec{}
	}
	v := math.Sqrt(mu * r * r / math.Pow(r*r+eps*eps, 1.5))
	return r2.Vec{X: -pos.Y / r * v, Y: pos.X / r * v}
}
