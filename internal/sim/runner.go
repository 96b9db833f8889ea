package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/san-kum/gravsim/internal/clock"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/logger"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/snapshot"
	"go.uber.org/zap"
)

// DefaultTickHz is the rate at which the runner polls its clock.
const DefaultTickHz = 240

// ErrAlreadyRun is returned by a second call to Runner.Run.
var ErrAlreadyRun = errors.New("sim: runner already run")

// Runner is the single owner of an engine in interactive mode. It polls the
// clock, steps the engine, and publishes a snapshot after every completed
// step. Presenters only ever see the publisher.
type Runner struct {
	engine *dynamo.Engine
	clock  *clock.Clock
	pub    *snapshot.Publisher

	log         *zap.Logger
	collectors  *metrics.Collectors
	interval    time.Duration
	radiusScale float64

	paused   atomic.Bool
	started  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	mu  sync.Mutex
	err error
}

type RunnerOption func(*Runner)

func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) { r.log = logger.OrNop(l) }
}

func WithCollectors(c *metrics.Collectors) RunnerOption {
	return func(r *Runner) { r.collectors = c }
}

// WithTickHz sets how often the clock is polled. Rates above 1GHz poll
// every nanosecond.
func WithTickHz(hz float64) RunnerOption {
	return func(r *Runner) {
		if hz > 0 {
			r.interval = max(time.Duration(float64(time.Second)/hz), time.Nanosecond)
		}
	}
}

func WithRadiusScale(scale float64) RunnerOption {
	return func(r *Runner) { r.radiusScale = scale }
}

func NewRunner(engine *dynamo.Engine, clk *clock.Clock, pub *snapshot.Publisher, opts ...RunnerOption) (*Runner, error) {
	if engine == nil || clk == nil || pub == nil {
		return nil, fmt.Errorf("%w: runner needs an engine, a clock and a publisher", dynamo.ErrInvalidParams)
	}
	r := &Runner{
		engine:      engine,
		clock:       clk,
		pub:         pub,
		log:         zap.NewNop(),
		interval:    time.Second / DefaultTickHz,
		radiusScale: snapshot.DefaultRadiusScale,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run drives the simulation on the calling goroutine until ctx is done,
// Stop is called, or the engine faults. Stop yields a nil error. A Runner
// runs once; later calls return ErrAlreadyRun.
func (r *Runner) Run(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}
	defer close(r.done)

	p := r.engine.Params()
	r.log.Info("simulation started",
		zap.Int("bodies", r.engine.Store().Len()),
		zap.String("evaluator", r.engine.Evaluator().Name()),
		zap.String("integrator", r.engine.Scheme().Name()),
		zap.Float64("dt", p.Dt),
		zap.Float64("softening", p.Softening),
		zap.Duration("tick", r.interval),
	)
	r.publish()
	r.observeState()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			err := ctx.Err()
			r.log.Info("simulation cancelled", zap.Int64("step", r.engine.Steps()), zap.Float64("time", r.engine.Time()))
			r.setErr(err)
			return err
		case <-r.stop:
			r.log.Info("simulation stopped", zap.Int64("step", r.engine.Steps()), zap.Float64("time", r.engine.Time()))
			return nil
		case <-ticker.C:
		}

		if r.paused.Load() {
			r.clock.Reset()
			continue
		}

		tick, err := r.clock.Poll(r.step)
		if tick.Dropped > 0 {
			r.collectors.ObserveDropped(tick.Dropped)
			r.log.Debug("catch-up cap reached", zap.Int("dropped", tick.Dropped), zap.Float64("lost", tick.Lost))
		}
		if err != nil {
			return r.fault(err)
		}
		if tick.Steps > 0 {
			r.observeState()
		}
	}
}

func (r *Runner) step() error {
	start := time.Now()
	if err := r.engine.Step(); err != nil {
		return err
	}
	r.collectors.ObserveStep(time.Since(start))
	r.publish()
	return nil
}

func (r *Runner) publish() {
	r.pub.Publish(snapshot.Capture(r.engine, r.radiusScale))
}

func (r *Runner) observeState() {
	if r.collectors == nil {
		return
	}
	s := r.pub.Latest()
	p := r.engine.Params()
	r.collectors.ObserveState(s.Len(), s.Time, metrics.TotalEnergy(s.All(), p.G, p.Softening))
}

// fault freezes presenters on the last valid snapshot and records err.
func (r *Runner) fault(err error) error {
	last := r.pub.Latest()
	r.pub.Publish(last.WithStatus(dynamo.Faulted))

	kind := "other"
	switch {
	case errors.Is(err, dynamo.ErrNumericalInstability):
		kind = "numerical_instability"
	case errors.Is(err, dynamo.ErrFaulted):
		kind = "faulted"
	}
	r.collectors.ObserveFault(kind)
	r.log.Error("simulation faulted",
		zap.Error(err),
		zap.Int64("step", last.Step),
		zap.Float64("time", last.Time),
	)

	err = fmt.Errorf("simulation faulted: %w", err)
	r.setErr(err)
	return err
}

// Stop asks Run to return before its next poll. A poll in progress
// finishes its steps first. Safe to call from any goroutine, any number of
// times.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// SetPaused suspends stepping. Wall time that passes while paused is not
// simulated.
func (r *Runner) SetPaused(paused bool) { r.paused.Store(paused) }

func (r *Runner) Paused() bool { return r.paused.Load() }

func (r *Runner) Done() <-chan struct{} { return r.done }

func (r *Runner) Publisher() *snapshot.Publisher { return r.pub }

// Err returns the error Run finished with, if any.
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Runner) setErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}
