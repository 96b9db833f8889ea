package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors is the Prometheus instrumentation of a simulation runner.
// A nil *Collectors is valid and records nothing.
type Collectors struct {
	// StepsTotal counts completed integration steps
	StepsTotal prometheus.Counter

	// StepDuration tracks wall time spent per engine step
	StepDuration prometheus.Histogram

	// DroppedSteps counts steps discarded by the catch-up cap
	DroppedSteps prometheus.Counter

	// Faults counts engine faults by error kind
	Faults *prometheus.CounterVec

	// Bodies tracks the number of live bodies
	Bodies prometheus.Gauge

	// SimTime tracks simulated time in simulation units
	SimTime prometheus.Gauge

	// Energy tracks total energy of the last published snapshot
	Energy prometheus.Gauge
}

// NewCollectors registers the gravsim metrics on reg.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	f := promauto.With(reg)
	return &Collectors{
		StepsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "gravsim_steps_total",
			Help: "Total number of completed integration steps",
		}),
		StepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gravsim_step_duration_seconds",
			Help:    "Wall time spent in one engine step",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		DroppedSteps: f.NewCounter(prometheus.CounterOpts{
			Name: "gravsim_dropped_steps_total",
			Help: "Total number of steps dropped by the catch-up cap",
		}),
		Faults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gravsim_faults_total",
			Help: "Total number of engine faults by kind",
		}, []string{"kind"}),
		Bodies: f.NewGauge(prometheus.GaugeOpts{
			Name: "gravsim_bodies",
			Help: "Number of live bodies",
		}),
		SimTime: f.NewGauge(prometheus.GaugeOpts{
			Name: "gravsim_sim_time",
			Help: "Simulated time",
		}),
		Energy: f.NewGauge(prometheus.GaugeOpts{
			Name: "gravsim_energy",
			Help: "Total energy of the latest snapshot",
		}),
	}
}

func (c *Collectors) ObserveStep(d time.Duration) {
	if c == nil {
		return
	}
	c.StepsTotal.Inc()
	c.StepDuration.Observe(d.Seconds())
}

func (c *Collectors) ObserveDropped(steps int) {
	if c == nil || steps <= 0 {
		return
	}
	c.DroppedSteps.Add(float64(steps))
}

func (c *Collectors) ObserveFault(kind string) {
	if c == nil {
		return
	}
	c.Faults.WithLabelValues(kind).Inc()
}

func (c *Collectors) ObserveState(bodies int, simTime, energy float64) {
	if c == nil {
		return
	}
	c.Bodies.Set(float64(bodies))
	c.SimTime.Set(simTime)
	c.Energy.Set(energy)
}
