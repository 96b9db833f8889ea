package automation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/logger"
	"github.com/san-kum/gravsim/internal/sim"
	"github.com/san-kum/gravsim/internal/storage"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of batch runs.
type Scenario struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Runs        []RunSpec `yaml:"runs"`
}

// RunSpec names a starting configuration and the fields to override on it.
// Exactly one of Preset and Config is set.
type RunSpec struct {
	Preset      string  `yaml:"preset,omitempty"`
	Config      string  `yaml:"config,omitempty"`
	Integrator  string  `yaml:"integrator,omitempty"`
	Evaluator   string  `yaml:"evaluator,omitempty"`
	Theta       float64 `yaml:"theta,omitempty"`
	Dt          float64 `yaml:"dt,omitempty"`
	Softening   float64 `yaml:"softening,omitempty"`
	Duration    float64 `yaml:"duration,omitempty"`
	SampleEvery int64   `yaml:"sample_every,omitempty"`
	Save        bool    `yaml:"save,omitempty"`
}

// RunResult is the outcome of one scenario run. Err holds a numerical
// fault; the partial result is kept.
type RunResult struct {
	Spec   RunSpec
	Config *config.Config
	Result *sim.Result
	RunID  string
	Err    error
}

// LoadScenario loads a scenario from a YAML file. Config paths are
// resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if len(scenario.Runs) == 0 {
		return nil, fmt.Errorf("%w: scenario %s has no runs", dynamo.ErrInvalidParams, path)
	}
	dir := filepath.Dir(path)
	for i := range scenario.Runs {
		if c := scenario.Runs[i].Config; c != "" && !filepath.IsAbs(c) {
			scenario.Runs[i].Config = filepath.Join(dir, c)
		}
	}
	return &scenario, nil
}

// Resolve loads the base configuration and applies the overrides.
func (r RunSpec) Resolve() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case r.Preset != "" && r.Config != "":
		return nil, fmt.Errorf("%w: run sets both preset and config", dynamo.ErrInvalidParams)
	case r.Preset != "":
		if cfg = config.GetPreset(r.Preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", r.Preset)
		}
	case r.Config != "":
		var err error
		if cfg, err = config.Load(r.Config); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: run needs a preset or a config", dynamo.ErrInvalidParams)
	}

	if r.Integrator != "" {
		cfg.Integrator = r.Integrator
	}
	if r.Evaluator != "" {
		cfg.Evaluator = r.Evaluator
	}
	if r.Theta > 0 {
		cfg.Theta = r.Theta
	}
	if r.Dt > 0 {
		cfg.Dt = r.Dt
	}
	if r.Softening > 0 {
		cfg.Softening = r.Softening
	}
	if r.Duration > 0 {
		cfg.Duration = r.Duration
	}
	return cfg, cfg.Validate()
}

// RunScenario executes the runs in order. A numerical fault is recorded on
// its run and the scenario continues; configuration errors, storage errors
// and cancellation stop it. store may be nil when no run saves.
func RunScenario(ctx context.Context, scenario *Scenario, store *storage.Store, log *zap.Logger) ([]RunResult, error) {
	log = logger.OrNop(log).With(zap.String("scenario", scenario.Name))
	results := make([]RunResult, 0, len(scenario.Runs))

	for i, spec := range scenario.Runs {
		cfg, err := spec.Resolve()
		if err != nil {
			return results, fmt.Errorf("run %d: %w", i+1, err)
		}
		engine, err := cfg.Build()
		if err != nil {
			return results, fmt.Errorf("run %d: %w", i+1, err)
		}

		log.Info("scenario run",
			zap.Int("run", i+1),
			zap.Int("of", len(scenario.Runs)),
			zap.String("config", cfg.Name),
			zap.String("integrator", cfg.Integrator),
			zap.String("evaluator", cfg.Evaluator),
		)

		s := sim.New(engine)
		res, runErr := s.Run(ctx, sim.Config{
			Steps:       cfg.Steps(),
			SampleEvery: max(spec.SampleEvery, 1),
			RadiusScale: cfg.RadiusScale,
		})
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			return results, runErr
		}

		rr := RunResult{Spec: spec, Config: cfg, Result: res, Err: runErr}
		if runErr != nil {
			log.Warn("scenario run faulted", zap.Int("run", i+1), zap.Error(runErr))
		}
		if spec.Save {
			if store == nil {
				return results, fmt.Errorf("run %d: save requested without a store", i+1)
			}
			if rr.RunID, err = store.Save(cfg, res, runErr); err != nil {
				return results, fmt.Errorf("run %d: save: %w", i+1, err)
			}
		}
		results = append(results, rr)
	}

	return results, nil
}
