package automation

import (
	"context"
	"fmt"
	"maps"
	"runtime"
	"slices"

	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/sim"
	"golang.org/x/sync/errgroup"
)

var sweepParams = map[string]func(*config.Config, float64){
	"dt":        func(c *config.Config, v float64) { c.Dt = v },
	"softening": func(c *config.Config, v float64) { c.Softening = v },
	"theta":     func(c *config.Config, v float64) { c.Theta = v },
	"g":         func(c *config.Config, v float64) { c.G = v },
}

// SweepParams lists the parameters a Sweep can vary.
func SweepParams() []string {
	return slices.Sorted(maps.Keys(sweepParams))
}

// ParameterSweep runs Base once per evenly spaced value of Param between
// Min and Max inclusive.
type ParameterSweep struct {
	Base   *config.Config
	Param  string
	Min    float64
	Max    float64
	Points int
}

// SweepPoint holds the conservation errors at one parameter value.
type SweepPoint struct {
	Value         float64
	Steps         int64
	EnergyDrift   float64
	MomentumDrift float64
	Err           error
}

// Values returns the parameter values the sweep visits.
func (p *ParameterSweep) Values() []float64 {
	if p.Points == 1 {
		return []float64{p.Min}
	}
	vals := make([]float64, p.Points)
	step := (p.Max - p.Min) / float64(p.Points-1)
	for i := range vals {
		vals[i] = p.Min + float64(i)*step
	}
	return vals
}

// RunSweep executes the sweep points concurrently. Each point builds its
// own engine. A point that faults keeps its error in Err; invalid
// configurations fail the whole sweep before anything runs.
func RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepPoint, error) {
	set, ok := sweepParams[sweep.Param]
	if !ok {
		return nil, fmt.Errorf("unknown sweep parameter: %s (available: %v)", sweep.Param, SweepParams())
	}
	if sweep.Base == nil || sweep.Points < 1 {
		return nil, fmt.Errorf("%w: sweep needs a base config and at least one point", dynamo.ErrInvalidParams)
	}

	values := sweep.Values()
	engines := make([]*dynamo.Engine, len(values))
	configs := make([]*config.Config, len(values))
	for i, v := range values {
		cfg := sweep.Base.Clone()
		set(cfg, v)
		engine, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.Param, v, err)
		}
		engines[i], configs[i] = engine, cfg
	}

	points := make([]SweepPoint, len(values))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range values {
		g.Go(func() error {
			cfg := configs[i]
			res, err := sim.New(engines[i]).Run(ctx, sim.Config{
				Steps:       cfg.Steps(),
				SampleEvery: cfg.Steps(),
				RadiusScale: cfg.RadiusScale,
			})
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if res == nil {
				points[i] = SweepPoint{Value: values[i], Err: err}
				return nil
			}
			points[i] = SweepPoint{
				Value:         values[i],
				Steps:         res.StepsTaken,
				EnergyDrift:   res.EnergyDrift,
				MomentumDrift: res.MomentumDrift,
				Err:           err,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}
