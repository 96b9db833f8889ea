package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

// MonteCarloConfig perturbs the initial positions of Base and checks how
// many trials stay bound.
type MonteCarloConfig struct {
	Base         *config.Config
	Perturbation float64
	Trials       int
	Seed         int64
	// EscapeRadius is the distance from the centre of mass beyond which a
	// body counts as escaped
	EscapeRadius float64
	SampleEvery  int64
}

type MonteCarloResult struct {
	TrialID int
	// Stability is the fraction of samples with every body inside EscapeRadius
	Stability   float64
	Stable      bool
	EnergyDrift float64
	Err         error
}

// RunMonteCarlo executes all trials concurrently. Trial i is seeded with
// Seed+i, so results do not depend on scheduling.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig) ([]MonteCarloResult, error) {
	if cfg.Base == nil || cfg.Trials < 1 || !(cfg.EscapeRadius > 0) || cfg.Perturbation < 0 {
		return nil, fmt.Errorf("%w: monte carlo needs a base config, trials, and a positive escape radius", dynamo.ErrInvalidParams)
	}
	if err := cfg.Base.Validate(); err != nil {
		return nil, err
	}

	ensemble := sim.NewEnsemble()
	stability := make([]*metrics.Stability, cfg.Trials)
	for trial := 0; trial < cfg.Trials; trial++ {
		store, err := cfg.Base.BuildStore()
		if err != nil {
			return nil, err
		}
		perturb(store, rand.New(rand.NewSource(cfg.Seed+int64(trial))), cfg.Perturbation)

		engine, err := cfg.Base.NewEngine(store)
		if err != nil {
			return nil, err
		}
		s := sim.New(engine)
		stability[trial] = metrics.NewStability(cfg.EscapeRadius)
		s.AddMetric(stability[trial])
		ensemble.Add(s)
	}

	results, errs := ensemble.RunEach(ctx, sim.Config{
		Steps:       cfg.Base.Steps(),
		SampleEvery: max(cfg.SampleEvery, 1),
		RadiusScale: cfg.Base.RadiusScale,
	})
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	out := make([]MonteCarloResult, cfg.Trials)
	for i, res := range results {
		out[i] = MonteCarloResult{TrialID: i, Err: errs[i]}
		if res == nil {
			continue
		}
		out[i].Stability = res.Metrics["stability"]
		out[i].Stable = out[i].Err == nil && out[i].Stability == 1
		out[i].EnergyDrift = res.EnergyDrift
	}
	return out, nil
}

// perturb displaces every live body by a uniform offset in a square of
// half-width amount.
func perturb(store *dynamo.Store, rng *rand.Rand, amount float64) {
	if amount == 0 {
		return
	}
	pos, alive := store.Positions(), store.Alive()
	for i := range pos {
		if !alive[i] {
			continue
		}
		pos[i] = r2.Add(pos[i], r2.Vec{
			X: (rng.Float64() - 0.5) * 2 * amount,
			Y: (rng.Float64() - 0.5) * 2 * amount,
		})
	}
}

// MonteCarloStats counts stable and unstable trials.
func MonteCarloStats(results []MonteCarloResult) (stable, unstable int) {
	for _, r := range results {
		if r.Stable {
			stable++
		} else {
			unstable++
		}
	}
	return
}

// MeanStability averages the per-trial stability fractions.
func MeanStability(results []MonteCarloResult) float64 {
	if len(results) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, r := range results {
		sum += r.Stability
	}
	return sum / float64(len(results))
}
