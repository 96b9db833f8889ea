package sim

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Ensemble runs independent simulators concurrently. Each simulator must
// own its engine and store.
type Ensemble struct {
	runs []*Simulator
}

func NewEnsemble(runs ...*Simulator) *Ensemble {
	return &Ensemble{runs: runs}
}

func (e *Ensemble) Add(s *Simulator) { e.runs = append(e.runs, s) }

func (e *Ensemble) Len() int { return len(e.runs) }

// Run executes every simulator with cfg. A failing run does not stop the
// others; its partial result is kept and its error is joined into the
// returned error.
func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	results, errs := e.RunEach(ctx, cfg)
	for i, err := range errs {
		if err != nil {
			errs[i] = fmt.Errorf("run %d: %w", i, err)
		}
	}
	return results, errors.Join(errs...)
}

// RunEach is Run with the errors kept per simulator, in the order they
// were added.
func (e *Ensemble) RunEach(ctx context.Context, cfg Config) ([]*Result, []error) {
	results := make([]*Result, len(e.runs))
	errs := make([]error, len(e.runs))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, s := range e.runs {
		g.Go(func() error {
			results[i], errs[i] = s.Run(ctx, cfg)
			return nil
		})
	}
	_ = g.Wait()

	return results, errs
}
