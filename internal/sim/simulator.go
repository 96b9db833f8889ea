package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/snapshot"
	"gonum.org/v1/gonum/spatial/r2"
)

// Simulator runs an engine headless for a fixed number of steps.
type Simulator struct {
	engine    *dynamo.Engine
	metrics   []Metric
	observers []Observer
}

func New(engine *dynamo.Engine) *Simulator {
	return &Simulator{
		engine:    engine,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Engine() *dynamo.Engine { return s.engine }

// Run steps the engine cfg.Steps times, sampling every cfg.SampleEvery
// steps. On a step error or cancellation the partial result is returned
// together with the error.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	every := max(cfg.SampleEvery, 1)

	result := &Result{
		Samples: make([]*snapshot.Snapshot, 0, cfg.Steps/every+2),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	first := snapshot.Capture(s.engine, cfg.RadiusScale)
	s.sample(result, first)

	var runErr error
	var i int64
	for i = 0; i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
		default:
		}
		if runErr != nil {
			break
		}

		if err := s.engine.Step(); err != nil {
			runErr = fmt.Errorf("step %d: %w", s.engine.Steps()+1, err)
			break
		}
		result.StepsTaken++

		if (i+1)%every == 0 || i+1 == cfg.Steps {
			s.sample(result, snapshot.Capture(s.engine, cfg.RadiusScale))
		}
	}

	// A faulted store holds the non-finite values that tripped the check.
	last := result.Final()
	if last.Step != s.engine.Steps() && s.engine.State() != dynamo.Faulted {
		last = snapshot.Capture(s.engine, cfg.RadiusScale)
		s.sample(result, last)
	}

	p := s.engine.Params()
	e0 := metrics.TotalEnergy(first.All(), p.G, p.Softening)
	e1 := metrics.TotalEnergy(last.All(), p.G, p.Softening)
	if e0 != 0 {
		result.EnergyDrift = math.Abs(e1-e0) / math.Abs(e0)
	}
	result.MomentumDrift = r2.Norm(r2.Sub(metrics.Momentum(last.All()), metrics.Momentum(first.All())))

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, runErr
}

func (s *Simulator) sample(result *Result, snap *snapshot.Snapshot) {
	result.Samples = append(result.Samples, snap)
	for _, m := range s.metrics {
		m.Observe(snap)
	}
	for _, obs := range s.observers {
		obs.OnSnapshot(snap)
	}
}

func (s *Simulator) validateConfig(cfg Config) error {
	if s.engine == nil {
		return fmt.Errorf("%w: nil engine", dynamo.ErrInvalidParams)
	}
	if cfg.Steps <= 0 {
		return fmt.Errorf("%w: steps must be positive, got %d", dynamo.ErrInvalidParams, cfg.Steps)
	}
	if cfg.SampleEvery < 0 {
		return fmt.Errorf("%w: sample interval must not be negative, got %d", dynamo.ErrInvalidParams, cfg.SampleEvery)
	}
	return nil
}

// Simulate is a one-shot batch run of engine.
func Simulate(ctx context.Context, engine *dynamo.Engine, steps, sampleEvery int64, observers ...Observer) (*Result, error) {
	s := New(engine)
	for _, o := range observers {
		s.AddObserver(o)
	}
	return s.Run(ctx, Config{Steps: steps, SampleEvery: sampleEvery})
}
