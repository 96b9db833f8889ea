package sim

import "github.com/san-kum/gravsim/internal/snapshot"

// Metric accumulates a scalar over the snapshots it observes.
type Metric interface {
	Name() string
	Observe(s *snapshot.Snapshot)
	Value() float64
	Reset()
}

// Observer is notified of every sampled snapshot of a batch run.
type Observer interface {
	OnSnapshot(s *snapshot.Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(s *snapshot.Snapshot)

func (f ObserverFunc) OnSnapshot(s *snapshot.Snapshot) { f(s) }

// Config controls a batch run.
type Config struct {
	Steps       int64
	SampleEvery int64
	RadiusScale float64
}

// Result of a batch run. Samples always starts with the initial state and
// ends with the state after the last completed step.
type Result struct {
	Samples       []*snapshot.Snapshot
	Metrics       map[string]float64
	StepsTaken    int64
	EnergyDrift   float64
	MomentumDrift float64
}

// Final is the last sampled snapshot.
func (r *Result) Final() *snapshot.Snapshot {
	if len(r.Samples) == 0 {
		return nil
	}
	return r.Samples[len(r.Samples)-1]
}
