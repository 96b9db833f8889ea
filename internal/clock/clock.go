// Package clock drives fixed simulation steps from variable wall-clock time.
//
// Wall time is scaled into simulated time and accumulated; every whole Dt
// in the accumulator runs one step. At most MaxCatchUp steps run per
// Advance. Whole steps beyond the cap are dropped so a stalled caller
// never falls further behind; the fractional remainder is kept.
package clock

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultMaxCatchUp bounds the steps run by a single Advance.
const DefaultMaxCatchUp = 8

// ErrHalted is returned by Advance after a step has failed.
var ErrHalted = errors.New("clock: halted after step failure")

// Tick reports what a single Advance did.
type Tick struct {
	Steps   int
	Dropped int
	// Lost is the simulated time discarded with the dropped steps.
	Lost float64
}

type Clock struct {
	Dt         float64
	MaxCatchUp int
	// TimeScale is simulated time per wall-clock second.
	TimeScale float64
	// Now is the time source used by Poll.
	Now func() time.Time

	acc    float64
	last   time.Time
	halted error
}

func New(dt float64, maxCatchUp int) (*Clock, error) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("clock: dt must be positive and finite, got %g", dt)
	}
	if maxCatchUp < 1 {
		return nil, fmt.Errorf("clock: max catch-up must be at least 1, got %d", maxCatchUp)
	}
	return &Clock{
		Dt:         dt,
		MaxCatchUp: maxCatchUp,
		TimeScale:  1,
		Now:        time.Now,
	}, nil
}

// Advance adds elapsed wall time and runs step for every whole Dt
// accumulated, up to MaxCatchUp times. If step fails the accumulator is
// cleared, the error is returned, and the clock halts.
func (c *Clock) Advance(elapsed time.Duration, step func() error) (Tick, error) {
	var tick Tick
	if c.halted != nil {
		return tick, fmt.Errorf("%w (cause: %w)", ErrHalted, c.halted)
	}
	if elapsed > 0 {
		c.acc += elapsed.Seconds() * c.TimeScale
	}

	for c.acc >= c.Dt {
		if tick.Steps == c.MaxCatchUp {
			whole := math.Floor(c.acc / c.Dt)
			tick.Dropped = int(whole)
			tick.Lost = whole * c.Dt
			c.acc -= tick.Lost
			if c.acc < 0 || c.acc >= c.Dt {
				c.acc = 0
			}
			break
		}
		if err := step(); err != nil {
			c.acc = 0
			c.halted = err
			return tick, err
		}
		c.acc -= c.Dt
		tick.Steps++
	}
	return tick, nil
}

// Poll advances by the wall time elapsed since the previous Poll. The first
// call only starts the clock.
func (c *Clock) Poll(step func() error) (Tick, error) {
	now := c.Now()
	if c.last.IsZero() {
		c.last = now
		return Tick{}, c.Halted()
	}
	elapsed := now.Sub(c.last)
	c.last = now
	return c.Advance(elapsed, step)
}

// Alpha is the fraction of a step left in the accumulator, for
// presenters that interpolate between snapshots.
func (c *Clock) Alpha() float64 {
	return c.acc / c.Dt
}

// Halted returns the wrapped step error once the clock has halted.
func (c *Clock) Halted() error {
	if c.halted == nil {
		return nil
	}
	return fmt.Errorf("%w (cause: %w)", ErrHalted, c.halted)
}

// Reset clears the accumulator and any halt, and restarts Poll timing.
func (c *Clock) Reset() {
	c.acc = 0
	c.halted = nil
	c.last = time.Time{}
}
